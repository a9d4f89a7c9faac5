package gtimer

import (
	"time"

	pkgerrors "github.com/pkg/errors"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// DumpTimers 以 JSON 导出定时器线程的诊断信息: 状态, 进程优先级,
// 统计以及所有未触发定时器.
func (m *Manager) DumpTimers() ([]byte, error) {
	infos := m.th.GetAllTimers()
	timers := make([]any, 0, len(infos))
	for _, info := range infos {
		timers = append(timers, map[string]any{
			"name":     info.Name,
			"delayMs":  float64(info.Delay) / float64(time.Millisecond),
			"type":     info.Type.String(),
			"deadline": info.Deadline.UTC().Format(time.RFC3339Nano),
		})
	}

	stats := m.th.Stats()
	s, err := structpb.NewStruct(map[string]any{
		"state":    m.th.State().String(),
		"priority": m.th.Priority(),
		"stats": map[string]any{
			"added":             stats.Added,
			"removed":           stats.Removed,
			"fired":             stats.Fired,
			"dispatchFailures":  stats.DispatchFailures,
			"notifiedWakeups":   stats.NotifiedWakeups,
			"unnotifiedWakeups": stats.UnnotifiedWakeups,
			"earlyWakeups":      stats.EarlyWakeups,
		},
		"timers": timers,
	})
	if err != nil {
		return nil, pkgerrors.WithMessage(err, "build timers struct")
	}

	b, err := protojson.Marshal(s)
	if err != nil {
		return nil, pkgerrors.WithMessage(err, "marshal timers")
	}
	return b, nil
}
