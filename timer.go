package gtimer

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/godyy/gtimer/target"
	"github.com/godyy/gtimer/thread"
	"github.com/google/uuid"
)

// Type 定时器类型.
type Type = thread.TimerType

const (
	OneShot                   = thread.TypeOneShot
	RepeatingSlack            = thread.TypeRepeatingSlack
	RepeatingPrecise          = thread.TypeRepeatingPrecise
	RepeatingPreciseCanSkip   = thread.TypeRepeatingPreciseCanSkip
	RepeatingSlackLowPriority = thread.TypeRepeatingSlackLowPriority
	OneShotLowPriority        = thread.TypeOneShotLowPriority
)

// anonymousPrefix 未命名定时器的名称前缀.
const anonymousPrefix = "Anonymous_"

// ErrTimerNotInitialized 定时器未初始化.
var ErrTimerNotInitialized = errors.New("timer not initialized")

// ErrCallbackNil 回调函数为空.
var ErrCallbackNil = errors.New("callback func is nil")

// ErrNegativeDelay 延迟为负.
var ErrNegativeDelay = errors.New("delay must >= 0")

// Callback 定时器回调函数.
type Callback func(t *Timer)

// seqGen 定时器序号生成器. 每次武装定时器都会取得新的序号.
var seqGen atomic.Uint64

// Timer 定时器. 到期后回调在其执行环境中执行.
type Timer struct {
	m      *Manager          // 所属 Manager.
	name   string            // 名称.
	target target.Dispatcher // 执行环境.

	mtx      sync.Mutex    // 互斥锁, 保护以下字段.
	cb       Callback      // 回调函数.
	typ      Type          // 类型.
	delay    time.Duration // 延迟.
	deadline time.Time     // 到期时间.
	seq      uint64        // 当前序号.

	inScheduler bool // 是否被定时器线程追踪, 由定时器线程锁保护.
}

func newTimer(m *Manager, name string, tgt target.Dispatcher) *Timer {
	if name == "" {
		name = anonymousPrefix + uuid.NewString()[:8]
	}
	return &Timer{
		m:      m,
		name:   name,
		target: tgt,
	}
}

// Name 名称.
func (t *Timer) Name() string {
	return t.name
}

// Target 执行环境.
func (t *Timer) Target() target.Dispatcher {
	return t.target
}

// Type 类型.
func (t *Timer) Type() Type {
	t.mtx.Lock()
	defer t.mtx.Unlock()
	return t.typ
}

// Delay 延迟.
func (t *Timer) Delay() time.Duration {
	t.mtx.Lock()
	defer t.mtx.Unlock()
	return t.delay
}

// Deadline 到期时间.
func (t *Timer) Deadline() time.Time {
	t.mtx.Lock()
	defer t.mtx.Unlock()
	return t.deadline
}

// Init 以 cb, delay, typ 初始化并启动定时器. 已启动的定时器会先被取消.
func (t *Timer) Init(cb Callback, delay time.Duration, typ Type) error {
	if cb == nil {
		return ErrCallbackNil
	}
	if delay < 0 {
		return ErrNegativeDelay
	}

	t.mtx.Lock()
	defer t.mtx.Unlock()

	_ = t.m.th.Remove(t.scheduled())
	t.cb = cb
	t.typ = typ
	t.delay = delay
	return t.armLocked(time.Now())
}

// SetDelay 修改延迟, 并从当前时间重新计时.
func (t *Timer) SetDelay(delay time.Duration) error {
	if delay < 0 {
		return ErrNegativeDelay
	}

	t.mtx.Lock()
	defer t.mtx.Unlock()

	if t.cb == nil {
		return ErrTimerNotInitialized
	}

	_ = t.m.th.Remove(t.scheduled())
	t.delay = delay
	return t.armLocked(time.Now())
}

// Cancel 取消定时器. 已投递但尚未执行的回调不会再执行.
func (t *Timer) Cancel() error {
	t.mtx.Lock()
	defer t.mtx.Unlock()

	_ = t.m.th.Remove(t.scheduled())
	t.seq = seqGen.Add(1)
	t.cb = nil
	return nil
}

// armLocked 以 base+delay 为到期时间加入定时器线程.
func (t *Timer) armLocked(base time.Time) error {
	t.seq = seqGen.Add(1)
	t.deadline = base.Add(t.delay)
	return t.m.th.Add(t.scheduled())
}

// fire 执行序号为 seq 的回调. 序号过期说明定时器在投递后被取消或
// 重新初始化.
func (t *Timer) fire(seq uint64) {
	t.mtx.Lock()
	if seq != t.seq || t.cb == nil {
		t.mtx.Unlock()
		return
	}

	cb := t.cb
	typ := t.typ

	switch typ {
	case RepeatingPrecise:
		t.rearmLocked(t.deadline)
	case RepeatingPreciseCanSkip:
		base := t.deadline
		if now := time.Now(); base.Add(t.delay).Before(now) {
			base = now
		}
		t.rearmLocked(base)
	}

	firedSeq := t.seq
	t.mtx.Unlock()

	cb(t)

	if typ != RepeatingSlack && typ != RepeatingSlackLowPriority {
		return
	}

	t.mtx.Lock()
	defer t.mtx.Unlock()

	// 回调中重新初始化或取消过, 不再自动重启.
	if t.seq != firedSeq || t.cb == nil {
		return
	}
	t.rearmLocked(time.Now())
}

func (t *Timer) rearmLocked(base time.Time) {
	if err := t.armLocked(base); err != nil {
		t.m.logger.DebugFields("rearm timer", lfdTimerName(t.name), lfdError(err))
	}
}

func (t *Timer) scheduled() *scheduled {
	return (*scheduled)(t)
}

// scheduled 定时器线程视角下的 Timer. 除 Cancel 与 Fire 外, 方法均在
// 调用方已持有定时器锁时被调用, 因此不再加锁.
type scheduled Timer

func (s *scheduled) Name() string              { return s.name }
func (s *scheduled) Type() thread.TimerType    { return s.typ }
func (s *scheduled) Deadline() time.Time       { return s.deadline }
func (s *scheduled) Delay() time.Duration      { return s.delay }
func (s *scheduled) Seq() uint64               { return s.seq }
func (s *scheduled) Target() target.Dispatcher { return s.target }
func (s *scheduled) InScheduler() bool         { return s.inScheduler }
func (s *scheduled) SetInScheduler(in bool)    { s.inScheduler = in }
func (s *scheduled) Cancel() error             { return (*Timer)(s).Cancel() }
func (s *scheduled) Fire(seq uint64)           { (*Timer)(s).fire(seq) }
