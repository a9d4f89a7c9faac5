package thread

import (
	"time"

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

func lfdDelay(d time.Duration) zap.Field {
	return zap.Duration("delay", d)
}

func lfdWaitFor(d time.Duration) zap.Field {
	return zap.Duration("waitFor", d)
}

func lfdFired(n uint64) zap.Field {
	return zap.Uint64("fired", n)
}

func lfdQueueLen(n int) zap.Field {
	return zap.Int("queueLen", n)
}

func lfdPriority(p int) zap.Field {
	return zap.Int("priority", p)
}

func lfdCount(n int) zap.Field {
	return zap.Int("count", n)
}
