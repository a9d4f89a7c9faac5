package gtimer

import (
	"github.com/godyy/glog"
	"go.uber.org/zap"
)

// createStdLogger 创建标准输出的 logger.
func createStdLogger(level glog.Level) glog.Logger {
	return glog.NewLogger(&glog.Config{
		Level:        level,
		EnableCaller: true,
		CallerSkip:   0,
		Development:  true,
		Cores:        []glog.CoreConfig{glog.NewStdCoreConfig()},
	}).Named("gtimer")
}

func lfdError(err error) zap.Field {
	return zap.NamedError("error", err)
}

func lfdTimerName(name string) zap.Field {
	return zap.String("timer", name)
}
