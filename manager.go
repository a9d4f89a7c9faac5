package gtimer

import (
	"time"

	"github.com/godyy/glog"
	"github.com/godyy/gtimer/target"
	"github.com/godyy/gtimer/thread"
)

// Manager 进程级定时器服务. 在进程启动时构造一次, 进程退出时关闭一次,
// 以参数形式注入到使用方.
type Manager struct {
	th     *thread.TimerThread // 定时器线程.
	logger glog.Logger         // 日志工具.
}

// NewManager 构造 Manager. cfg 为 nil 时使用默认配置.
func NewManager(cfg *thread.Config, options ...Option) (*Manager, error) {
	var optSet optionSet
	for _, opt := range options {
		opt(&optSet)
	}

	if optSet.logger == nil {
		optSet.logger = createStdLogger(glog.InfoLevel)
		optSet.threadOptions = append([]thread.Option{thread.WithLogger(optSet.logger)}, optSet.threadOptions...)
	}

	th, err := thread.New(cfg, optSet.threadOptions...)
	if err != nil {
		return nil, err
	}

	return &Manager{
		th:     th,
		logger: optSet.logger,
	}, nil
}

// Thread 定时器线程.
func (m *Manager) Thread() *thread.TimerThread {
	return m.th
}

// NewTimer 构造以 tgt 为执行环境的定时器. name 为空时生成匿名名称.
func (m *Manager) NewTimer(name string, tgt target.Dispatcher) *Timer {
	return newTimer(m, name, tgt)
}

// Start 启动定时器线程. 第一次添加定时器时也会自动启动.
func (m *Manager) Start() error {
	return m.th.Start()
}

// Shutdown 关闭定时器线程, 取消所有未触发的定时器.
func (m *Manager) Shutdown() error {
	return m.th.Shutdown()
}

// NotifySleep 通知系统即将休眠.
func (m *Manager) NotifySleep() {
	m.th.NotifySleep()
}

// NotifyResume 通知系统已唤醒.
func (m *Manager) NotifyResume() {
	m.th.NotifyResume()
}

// NotifyPriorityChanged 通知进程优先级变化.
func (m *Manager) NotifyPriorityChanged(priority int) {
	m.th.NotifyPriorityChanged(priority)
}

// GetAllTimers 所有未触发定时器的快照.
func (m *Manager) GetAllTimers() []thread.TimerInfo {
	return m.th.GetAllTimers()
}

// FindNextFireTime 见 thread.TimerThread.FindNextFireTime.
func (m *Manager) FindNextFireTime(tgt target.Dispatcher, def time.Time, searchBound int) time.Time {
	return m.th.FindNextFireTime(tgt, def, searchBound)
}

// Stats 定时器线程统计.
func (m *Manager) Stats() thread.Stats {
	return m.th.Stats()
}
