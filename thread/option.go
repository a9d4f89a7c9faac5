package thread

import "github.com/godyy/glog"

// Option TimerThread 选项.
type Option func(*TimerThread)

// WithLogger 日志工具选项.
func WithLogger(logger glog.Logger) Option {
	return func(th *TimerThread) {
		th.logger = logger.Named("thread")
	}
}
