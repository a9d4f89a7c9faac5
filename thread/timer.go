package thread

import (
	"time"

	"github.com/godyy/gtimer/target"
)

// TimerType 定时器类型.
type TimerType uint8

const (
	// TypeOneShot 单次触发.
	TypeOneShot TimerType = 0

	// TypeRepeatingSlack 重复触发, 回调结束后再以 now+delay 重新计时.
	TypeRepeatingSlack TimerType = 1

	// TypeRepeatingPrecise 重复触发, 下次到期时间为上次到期时间+delay.
	TypeRepeatingPrecise TimerType = 2

	// TypeRepeatingPreciseCanSkip 同 TypeRepeatingPrecise, 落后时跳过错过的触发.
	TypeRepeatingPreciseCanSkip TimerType = 3

	// TypeRepeatingSlackLowPriority 低优先级的 TypeRepeatingSlack.
	TypeRepeatingSlackLowPriority TimerType = 4

	// TypeOneShotLowPriority 低优先级的 TypeOneShot.
	TypeOneShotLowPriority TimerType = 5
)

// IsRepeating 是否重复触发.
func (t TimerType) IsRepeating() bool {
	return t >= TypeRepeatingSlack && t <= TypeRepeatingSlackLowPriority
}

// IsLowPriority 是否低优先级.
func (t TimerType) IsLowPriority() bool {
	return t == TypeRepeatingSlackLowPriority || t == TypeOneShotLowPriority
}

func (t TimerType) String() string {
	switch t {
	case TypeOneShot:
		return "one-shot"
	case TypeRepeatingSlack:
		return "repeating-slack"
	case TypeRepeatingPrecise:
		return "repeating-precise"
	case TypeRepeatingPreciseCanSkip:
		return "repeating-precise-can-skip"
	case TypeRepeatingSlackLowPriority:
		return "repeating-slack-low-priority"
	case TypeOneShotLowPriority:
		return "one-shot-low-priority"
	default:
		return "unknown"
	}
}

// Timer 由定时器线程调度的定时器.
//
// Add/Remove 调用方必须持有该定时器自身的锁, 锁顺序固定为先 Timer 锁
// 后定时器线程锁. 定时器线程只在 Add/Remove 期间读取 Name, Type,
// Deadline, Delay, Seq, Target, 这些方法不得再获取定时器自身的锁.
// InScheduler 标记由定时器线程锁保护. 定时器处于线程中时, Deadline
// 与 Seq 不得变化.
type Timer interface {
	Name() string
	Type() TimerType
	Deadline() time.Time
	Delay() time.Duration

	// Seq 本次武装的序号, 全局单调递增.
	Seq() uint64

	// Target 回调的执行环境.
	Target() target.Dispatcher

	InScheduler() bool
	SetInScheduler(in bool)

	// Cancel 取消定时器. 在不持有任何锁时调用.
	Cancel() error

	// Fire 在执行环境中触发序号为 seq 的回调.
	Fire(seq uint64)
}
