package gtimer

import (
	"github.com/godyy/glog"
	"github.com/godyy/gtimer/thread"
)

// optionSet 选项集合.
type optionSet struct {
	logger        glog.Logger     // 日志工具.
	threadOptions []thread.Option // TimerThread 选项.
}

// Option 选项.
type Option func(*optionSet)

// WithLogger 日志工具选项.
func WithLogger(logger glog.Logger) Option {
	return func(opts *optionSet) {
		opts.logger = logger.Named("gtimer")
		opts.threadOptions = append(opts.threadOptions, thread.WithLogger(opts.logger))
	}
}

// WithThreadOptions TimerThread 选项.
func WithThreadOptions(options ...thread.Option) Option {
	return func(opts *optionSet) {
		opts.threadOptions = append(opts.threadOptions, options...)
	}
}
