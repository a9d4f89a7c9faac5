package gtimer

import (
	"context"
	"errors"
	"time"

	pkgerrors "github.com/pkg/errors"
)

// WatchProcessPriority 每隔 interval 读取一次进程优先级并通知定时器线程,
// 直到 ctx 结束或读取失败.
func (m *Manager) WatchProcessPriority(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return errors.New("interval must > 0")
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		p, err := ProcessPriority()
		if err != nil {
			m.logger.ErrorFields("read process priority", lfdError(err))
			return pkgerrors.WithMessage(err, "read process priority")
		}
		m.NotifyPriorityChanged(p)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
