package thread

// State 定时器线程状态.
type State int32

const (
	StateIdle           State = iota // 未启动.
	StateRunningAwake                // 运行中, 正在处理到期定时器.
	StateRunningWaiting              // 运行中, 等待下次唤醒.
	StateSleeping                    // 系统休眠中, 不触发定时器.
	StateShuttingDown                // 关闭中.
	StateStopped                     // 已停止.
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunningAwake:
		return "running-awake"
	case StateRunningWaiting:
		return "running-waiting"
	case StateSleeping:
		return "sleeping"
	case StateShuttingDown:
		return "shutting-down"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}
