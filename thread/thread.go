// Package thread 实现进程级定时器线程.
//
// 定时器线程由一个后台 goroutine 驱动, 维护按到期时间排序的定时器队列,
// 触发到期定时器, 并将相近的到期时间合并到同一次唤醒中以减少唤醒次数.
package thread

import (
	"math"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"github.com/godyy/glog"
	"github.com/godyy/gtimer/target"
	pkgerrors "github.com/pkg/errors"
	"go.uber.org/multierr"
	"golang.org/x/time/rate"
)

// TimerInfo 定时器只读快照.
type TimerInfo struct {
	Name     string        // 名称.
	Delay    time.Duration // 请求的延迟.
	Type     TimerType     // 类型.
	Deadline time.Time     // 到期时间.
}

// TimerThread 定时器线程.
type TimerThread struct {
	cfg             Config        // 配置.
	logger          glog.Logger   // 日志工具.
	dispatchLimiter *rate.Limiter // 投递失败日志限流.
	priority        atomic.Int32  // 最近一次通知的进程优先级.

	mtx            sync.Mutex    // 互斥锁, 保护以下字段.
	queue          queue         // 定时器队列.
	state          State         // 状态.
	started        bool          // 是否已启动.
	shutdown       bool          // 是否已关闭.
	sleeping       bool          // 系统是否休眠.
	waiting        bool          // 后台 goroutine 是否在等待.
	notified       bool          // 本次等待是否被通知唤醒.
	intendedWakeup time.Time     // 计划唤醒时间, 零值表示无计划.
	stats          Stats         // 统计.
	cWake          chan struct{} // 唤醒信号.
	cStopped       chan struct{} // 后台 goroutine 已退出信号.
	sysTimer       *time.Timer   // 系统定时器, 只由后台 goroutine 访问.
}

// New 构造 TimerThread. 后台 goroutine 在第一次 Add 或 Start 时启动.
func New(cfg *Config, options ...Option) (*TimerThread, error) {
	var c Config
	if cfg != nil {
		c = *cfg
	}
	if err := c.init(); err != nil {
		return nil, err
	}

	th := &TimerThread{
		cfg:             c,
		dispatchLimiter: rate.NewLimiter(rate.Limit(c.DispatchFailureLogRate), c.DispatchFailureLogRate),
		state:           StateIdle,
		cWake:           make(chan struct{}, 1),
		cStopped:        make(chan struct{}),
	}

	for _, opt := range options {
		opt(th)
	}

	if th.logger == nil {
		th.logger = createStdLogger(glog.InfoLevel).Named("thread")
	}

	return th, nil
}

// Config 返回生效的配置.
func (th *TimerThread) Config() Config {
	return th.cfg
}

// AllowedEarlyFiring 定时器允许提前触发的时间.
func (th *TimerThread) AllowedEarlyFiring() time.Duration {
	return th.cfg.AllowedEarlyFiring
}

// Start 启动后台 goroutine. 重复调用无副作用.
func (th *TimerThread) Start() error {
	th.mtx.Lock()
	defer th.mtx.Unlock()
	return th.startLocked()
}

func (th *TimerThread) startLocked() error {
	if th.shutdown {
		return ErrAlreadyShutdown
	}
	if th.started {
		return nil
	}

	th.started = true
	th.state = StateRunningAwake
	th.sysTimer = time.NewTimer(time.Hour)
	th.stopSysTimer()
	go th.loop()

	th.logger.Info("started")
	return nil
}

// Shutdown 关闭定时器线程. 取消所有仍在队列中的定时器, 并等待后台
// goroutine 退出. 不能在 target.Inline 执行的回调中调用.
func (th *TimerThread) Shutdown() error {
	th.mtx.Lock()
	if th.shutdown {
		th.mtx.Unlock()
		return ErrAlreadyShutdown
	}
	th.shutdown = true

	if !th.started {
		th.state = StateStopped
		th.mtx.Unlock()
		return ErrNotInitialized
	}

	th.state = StateShuttingDown
	th.notifyLocked()

	// 取消操作可能重入定时器线程, 必须在释放锁之后进行.
	entries := th.queue.takeAll()
	for i := range entries {
		if !entries[i].canceled() {
			entries[i].live.timer.SetInScheduler(false)
		}
	}
	th.mtx.Unlock()

	var errs error
	canceled := 0
	for i := range entries {
		e := &entries[i]
		if e.canceled() {
			continue
		}
		canceled++
		if err := e.live.timer.Cancel(); err != nil {
			errs = multierr.Append(errs, pkgerrors.WithMessagef(err, "cancel timer %q", e.live.name))
		}
	}
	if errs != nil {
		th.logger.ErrorFields("cancel timers on shutdown", lfdError(errs))
	}

	<-th.cStopped

	th.mtx.Lock()
	th.state = StateStopped
	th.mtx.Unlock()

	th.logger.InfoFields("shutdown", lfdCount(canceled))
	return nil
}

// Add 将 t 加入定时器队列. 调用方必须持有 t 的锁.
func (th *TimerThread) Add(t Timer) error {
	th.mtx.Lock()
	defer th.mtx.Unlock()

	if th.shutdown {
		return errStopped
	}

	if t.Target() == nil {
		return pkgerrors.WithMessage(ErrNotInitialized, "timer target not specified")
	}
	if !reflect.TypeOf(t.Target()).Comparable() {
		return pkgerrors.WithMessagef(ErrTargetNotComparable, "timer %q", t.Name())
	}

	if err := th.startLocked(); err != nil {
		return err
	}

	if t.InScheduler() {
		err := pkgerrors.Errorf("timer %q added twice", t.Name())
		th.violation(err)
		return err
	}

	e := newEntry(t)

	// 早于计划唤醒时间, 或请求尽快触发时唤醒后台 goroutine.
	wake := th.waiting &&
		(th.intendedWakeup.IsZero() || e.deadline.Before(th.intendedWakeup) || e.delay == 0)

	th.queue.add(e)
	t.SetInScheduler(true)
	th.stats.Added++
	th.assertQueue()

	th.logger.DebugFields("add", lfdTimerName(e.live.name), lfdDelay(e.delay))

	if wake {
		th.notifyLocked()
	}

	return nil
}

// Remove 将 t 从定时器队列中移除. 调用方必须持有 t 的锁.
// t 未被追踪时返回 ErrNotFound. 不会唤醒后台 goroutine.
func (th *TimerThread) Remove(t Timer) error {
	th.mtx.Lock()
	defer th.mtx.Unlock()

	if !t.InScheduler() {
		return ErrNotFound
	}

	if !th.queue.remove(t) {
		th.violation(pkgerrors.Errorf("timer %q tracked but not queued", t.Name()))
		return ErrNotFound
	}

	t.SetInScheduler(false)
	th.stats.Removed++
	th.assertQueue()

	return nil
}

// NotifySleep 通知系统即将休眠. 休眠期间不触发定时器.
func (th *TimerThread) NotifySleep() {
	if th.cfg.IgnoreSleepWakeNotifications {
		return
	}

	th.mtx.Lock()
	th.sleeping = true
	th.mtx.Unlock()

	th.logger.Info("sleep")
}

// NotifyResume 通知系统已唤醒. 即使没有对应的 NotifySleep 也会唤醒
// 后台 goroutine 重新计算等待时间.
func (th *TimerThread) NotifyResume() {
	if th.cfg.IgnoreSleepWakeNotifications {
		return
	}

	th.mtx.Lock()
	th.sleeping = false
	th.notifyLocked()
	th.mtx.Unlock()

	th.logger.Info("resume")
}

// NotifyPriorityChanged 记录进程优先级. 超出 int32 范围的值被截断到边界.
func (th *TimerThread) NotifyPriorityChanged(priority int) {
	p := int32(min(max(priority, math.MinInt32), math.MaxInt32))
	if old := th.priority.Swap(p); old != p {
		th.logger.InfoFields("priority changed", lfdPriority(int(p)))
	}
}

// Priority 最近一次通知的进程优先级.
func (th *TimerThread) Priority() int {
	return int(th.priority.Load())
}

// State 当前状态.
func (th *TimerThread) State() State {
	th.mtx.Lock()
	defer th.mtx.Unlock()
	return th.state
}

// Stats 统计快照.
func (th *TimerThread) Stats() Stats {
	th.mtx.Lock()
	defer th.mtx.Unlock()
	return th.stats
}

// Len 队列槽位数, 包括尚未清理的已取消条目.
func (th *TimerThread) Len() int {
	th.mtx.Lock()
	defer th.mtx.Unlock()
	return th.queue.len()
}

// GetAllTimers 返回队列中所有存活定时器的快照.
func (th *TimerThread) GetAllTimers() []TimerInfo {
	th.mtx.Lock()
	defer th.mtx.Unlock()

	infos := make([]TimerInfo, 0, th.queue.liveCount())
	th.queue.rangeLive(func(e *entry) bool {
		infos = append(infos, TimerInfo{
			Name:     e.live.name,
			Delay:    e.delay,
			Type:     e.live.typ,
			Deadline: e.deadline,
		})
		return true
	})
	return infos
}

// FindNextFireTime 查找以 d 为执行环境的非低优先级定时器中最早的到期
// 时间, 用于空闲让步. 晚于 def 的结果返回 def; 检查超过 searchBound
// 个其它定时器仍未找到时, 返回 now+IdleFallbackWindow 与 def 中较早者.
// 队列中的执行环境都是可比较类型, d 不可比较时不会匹配任何定时器.
func (th *TimerThread) FindNextFireTime(d target.Dispatcher, def time.Time, searchBound int) time.Time {
	th.mtx.Lock()
	defer th.mtx.Unlock()

	result := def
	th.queue.rangeLive(func(e *entry) bool {
		if e.deadline.After(def) {
			return false
		}

		if !e.live.typ.IsLowPriority() && e.live.target == d {
			result = e.deadline
			return false
		}

		if searchBound <= 0 {
			if fallback := time.Now().Add(th.cfg.IdleFallbackWindow); fallback.Before(def) {
				result = fallback
			}
			return false
		}

		searchBound--
		return true
	})
	return result
}

// notifyLocked 唤醒后台 goroutine.
func (th *TimerThread) notifyLocked() {
	th.notified = true
	select {
	case th.cWake <- struct{}{}:
	default:
	}
}

// violation 处理内部不变量被破坏.
func (th *TimerThread) violation(err error) {
	if debugAssertions {
		panic(err)
	}
	th.logger.ErrorFields("timer thread invariant violated", lfdError(err))
}

// assertQueue 检查队列不变量.
func (th *TimerThread) assertQueue() {
	if !debugAssertions {
		return
	}
	if err := th.queue.verify(); err != nil {
		panic(err)
	}
}

// pruneLeadingCanceled 清理队首已取消条目.
func (th *TimerThread) pruneLeadingCanceled() {
	th.assertQueue()
	th.queue.pruneLeadingCanceled()
}

// fireDueTimers 触发所有到期定时器, 返回触发数量.
func (th *TimerThread) fireDueTimers() uint64 {
	th.pruneLeadingCanceled()

	var fired uint64
	now := time.Now()
	for !th.queue.empty() {
		front := th.queue.front()
		if now.Add(th.cfg.AllowedEarlyFiring).Before(front.deadline) {
			// 重新采样当前时间, 距离上次采样可能已经过去了一段时间.
			now = time.Now()
			if now.Add(th.cfg.AllowedEarlyFiring).Before(front.deadline) {
				break
			}
		}

		fired++
		th.postTimer(th.queue.popFront())

		// 投递期间锁被释放, 可能已经关闭.
		if th.shutdown {
			break
		}

		th.pruneLeadingCanceled()
	}

	return fired
}

// postTimer 将到期定时器投递到其执行环境. 投递期间释放锁, 回调可以
// 重入 Add/Remove.
func (th *TimerThread) postTimer(e entry) {
	ref := e.live
	ref.timer.SetInScheduler(false)
	th.stats.Fired++

	th.mtx.Unlock()
	err := ref.target.Dispatch(func() { ref.timer.Fire(e.seq) })
	if err != nil && th.dispatchLimiter.Allow() {
		th.logger.WarnFields("drop timer", lfdTimerName(ref.name), lfdError(multierr.Combine(ErrDispatchFailed, err)))
	}
	th.mtx.Lock()

	if err != nil {
		th.stats.DispatchFailures++
	}
}

// computeWakeup 计算下次唤醒时间. 队列为空时返回零值.
func (th *TimerThread) computeWakeup() time.Time {
	if th.queue.empty() {
		return time.Time{}
	}
	return planWakeup(th.queue.entries, th.cfg.MinFiringDelayTolerance, th.cfg.MaxFiringDelayTolerance)
}

// loop 主循环逻辑.
func (th *TimerThread) loop() {
	defer close(th.cStopped)

	th.mtx.Lock()
	defer th.mtx.Unlock()

	for !th.shutdown {
		var (
			waitFor time.Duration
			forever bool
		)

		if !th.sleeping {
			th.state = StateRunningAwake
			fired := th.fireDueTimers()
			if th.shutdown {
				break
			}

			wakeup := th.computeWakeup()
			th.intendedWakeup = wakeup
			if wakeup.IsZero() {
				forever = true
			} else {
				waitFor = max(0, time.Until(wakeup))
			}

			th.logger.DebugFields("wait",
				lfdFired(fired), lfdQueueLen(th.queue.len()), lfdWaitFor(waitFor))
		} else {
			th.state = StateSleeping
			th.intendedWakeup = time.Time{}
			waitFor = th.cfg.SleepPollInterval
		}

		th.wait(waitFor, forever)
	}
}

// wait 释放锁并等待 d, 或被通知唤醒. forever 为 true 时只等待通知.
func (th *TimerThread) wait(d time.Duration, forever bool) {
	// 状态变化都发生在锁内, 遗留的信号已无意义.
	select {
	case <-th.cWake:
	default:
	}

	th.waiting = true
	th.notified = false
	if th.state != StateSleeping {
		th.state = StateRunningWaiting
	}
	th.mtx.Unlock()

	var cTimeout <-chan time.Time
	if !forever {
		th.resetSysTimer(d)
		cTimeout = th.sysTimer.C
	}

	select {
	case <-th.cWake:
	case <-cTimeout:
	}
	th.stopSysTimer()

	th.mtx.Lock()
	th.waiting = false
	if th.notified {
		th.stats.NotifiedWakeups++
	} else {
		th.stats.UnnotifiedWakeups++
		if !th.intendedWakeup.IsZero() && time.Now().Before(th.intendedWakeup) {
			th.stats.EarlyWakeups++
		}
	}
}

// resetSysTimer 重置系统定时器.
func (th *TimerThread) resetSysTimer(d time.Duration) {
	th.stopSysTimer()
	th.sysTimer.Reset(d)
}

// stopSysTimer 停止系统定时器.
func (th *TimerThread) stopSysTimer() {
	if !th.sysTimer.Stop() {
		select {
		case <-th.sysTimer.C:
		default:
		}
	}
}
