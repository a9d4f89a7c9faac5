package gtimer

import (
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/godyy/glog"
	"github.com/godyy/gtimer/target"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(tb testing.TB) *Manager {
	m, err := NewManager(nil, WithLogger(createStdLogger(glog.WarnLevel)))
	require.NoError(tb, err)
	tb.Cleanup(func() { _ = m.Shutdown() })
	return m
}

func TestTimerOneShot(t *testing.T) {
	m := newTestManager(t)

	var fired atomic.Int32
	timer := m.NewTimer("one-shot", target.Inline)
	require.NoError(t, timer.Init(func(*Timer) { fired.Add(1) }, 5*time.Millisecond, OneShot))

	require.Eventually(t, func() bool { return fired.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(1), fired.Load())
	assert.Empty(t, m.GetAllTimers())
}

func TestTimerCancel(t *testing.T) {
	m := newTestManager(t)

	var fired atomic.Int32
	timer := m.NewTimer("cancel", target.Inline)
	require.NoError(t, timer.Init(func(*Timer) { fired.Add(1) }, 20*time.Millisecond, OneShot))
	require.NoError(t, timer.Cancel())
	require.NoError(t, timer.Cancel())

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(0), fired.Load())
	assert.ErrorIs(t, timer.SetDelay(time.Millisecond), ErrTimerNotInitialized)
}

func TestTimerCancelAfterDispatch(t *testing.T) {
	m := newTestManager(t)

	et := target.NewEventTarget("busy")
	defer et.Close()

	// 阻塞执行环境, 使回调投递后暂不执行.
	block := make(chan struct{})
	require.NoError(t, et.Dispatch(func() { <-block }))

	var fired atomic.Int32
	timer := m.NewTimer("late-cancel", et)
	require.NoError(t, timer.Init(func(*Timer) { fired.Add(1) }, time.Millisecond, OneShot))
	require.Eventually(t, func() bool { return m.Stats().Fired == 1 }, time.Second, time.Millisecond)

	require.NoError(t, timer.Cancel())
	close(block)

	finished := make(chan struct{})
	require.NoError(t, et.Dispatch(func() { close(finished) }))
	<-finished
	assert.Equal(t, int32(0), fired.Load())
}

func TestTimerRepeatingSlack(t *testing.T) {
	m := newTestManager(t)

	var fired atomic.Int32
	timer := m.NewTimer("slack", target.Inline)
	require.NoError(t, timer.Init(func(*Timer) { fired.Add(1) }, 2*time.Millisecond, RepeatingSlack))

	require.Eventually(t, func() bool { return fired.Load() >= 3 }, time.Second, time.Millisecond)
	require.NoError(t, timer.Cancel())
	n := fired.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, n, fired.Load())
}

func TestTimerRepeatingPrecise(t *testing.T) {
	m := newTestManager(t)

	var (
		fired     atomic.Int32
		deadlines = make(chan time.Time, 16)
	)
	timer := m.NewTimer("precise", target.Inline)
	start := time.Now()
	require.NoError(t, timer.Init(func(*Timer) {
		if fired.Add(1) <= 3 {
			deadlines <- time.Now()
		}
	}, 5*time.Millisecond, RepeatingPrecise))

	require.Eventually(t, func() bool { return fired.Load() >= 3 }, time.Second, time.Millisecond)
	require.NoError(t, timer.Cancel())

	// 精确重复定时器以上次到期时间为基准, 第 n 次触发不早于 start+n*delay.
	for i := 1; i <= 3; i++ {
		at := <-deadlines
		assert.False(t, at.Before(start.Add(time.Duration(i)*5*time.Millisecond-m.Thread().AllowedEarlyFiring())))
	}
}

func TestTimerRepeatingPreciseCanSkip(t *testing.T) {
	m := newTestManager(t)

	var fired atomic.Int32
	timer := m.NewTimer("can-skip", target.Inline)
	require.NoError(t, timer.Init(func(*Timer) {
		// 回调耗时超过周期, 之后的触发点直接跳到当前时间.
		if fired.Add(1) == 1 {
			time.Sleep(30 * time.Millisecond)
		}
	}, 5*time.Millisecond, RepeatingPreciseCanSkip))

	require.Eventually(t, func() bool { return fired.Load() >= 2 }, time.Second, time.Millisecond)
	require.NoError(t, timer.Cancel())
	assert.True(t, timer.Deadline().After(time.Now().Add(-20*time.Millisecond)))
}

func TestTimerCancelInsideCallback(t *testing.T) {
	m := newTestManager(t)

	var fired atomic.Int32
	timer := m.NewTimer("self-cancel", target.Inline)
	require.NoError(t, timer.Init(func(t *Timer) {
		if fired.Add(1) == 2 {
			_ = t.Cancel()
		}
	}, 2*time.Millisecond, RepeatingSlack))

	require.Eventually(t, func() bool { return fired.Load() == 2 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(2), fired.Load())
}

func TestTimerSetDelay(t *testing.T) {
	m := newTestManager(t)

	var fired atomic.Int32
	timer := m.NewTimer("set-delay", target.Inline)
	require.NoError(t, timer.Init(func(*Timer) { fired.Add(1) }, time.Hour, OneShot))
	require.NoError(t, timer.SetDelay(2*time.Millisecond))
	assert.Equal(t, 2*time.Millisecond, timer.Delay())

	require.Eventually(t, func() bool { return fired.Load() == 1 }, time.Second, time.Millisecond)
	assert.ErrorIs(t, timer.SetDelay(-time.Second), ErrNegativeDelay)
}

func TestTimerReinit(t *testing.T) {
	m := newTestManager(t)

	var first, second atomic.Int32
	timer := m.NewTimer("reinit", target.Inline)
	require.NoError(t, timer.Init(func(*Timer) { first.Add(1) }, 10*time.Millisecond, OneShot))
	require.NoError(t, timer.Init(func(*Timer) { second.Add(1) }, 10*time.Millisecond, RepeatingSlackLowPriority))
	assert.Equal(t, RepeatingSlackLowPriority, timer.Type())

	infos := m.GetAllTimers()
	require.Len(t, infos, 1)
	assert.Equal(t, "reinit", infos[0].Name)

	require.Eventually(t, func() bool { return second.Load() >= 1 }, time.Second, time.Millisecond)
	assert.Equal(t, int32(0), first.Load())
	require.NoError(t, timer.Cancel())
}

func TestTimerInitErrors(t *testing.T) {
	m := newTestManager(t)

	timer := m.NewTimer("errors", target.Inline)
	assert.ErrorIs(t, timer.Init(nil, time.Millisecond, OneShot), ErrCallbackNil)
	assert.ErrorIs(t, timer.Init(func(*Timer) {}, -time.Millisecond, OneShot), ErrNegativeDelay)

	noTarget := m.NewTimer("no-target", nil)
	assert.Error(t, noTarget.Init(func(*Timer) {}, time.Millisecond, OneShot))
}

func TestTimerAnonymousName(t *testing.T) {
	m := newTestManager(t)

	a := m.NewTimer("", target.Inline)
	b := m.NewTimer("", target.Inline)
	assert.True(t, strings.HasPrefix(a.Name(), anonymousPrefix))
	assert.NotEqual(t, a.Name(), b.Name())
	assert.Equal(t, target.Inline, a.Target())
}

func TestTimerAfterShutdown(t *testing.T) {
	m := newTestManager(t)

	var fired atomic.Int32
	timer := m.NewTimer("pending", target.Inline)
	require.NoError(t, timer.Init(func(*Timer) { fired.Add(1) }, time.Hour, RepeatingSlack))
	require.NoError(t, m.Shutdown())

	assert.Empty(t, m.GetAllTimers())
	assert.ErrorIs(t, timer.SetDelay(time.Millisecond), ErrTimerNotInitialized)

	late := m.NewTimer("late", target.Inline)
	assert.Error(t, late.Init(func(*Timer) { fired.Add(1) }, time.Millisecond, OneShot))
	assert.Equal(t, int32(0), fired.Load())
}
