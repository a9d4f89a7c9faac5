package thread

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testMinTolerance = time.Millisecond
	testMaxTolerance = 10 * time.Second
)

func TestAcceptableDelay(t *testing.T) {
	assert.Equal(t, testMinTolerance, acceptableDelay(0, testMinTolerance, testMaxTolerance))
	assert.Equal(t, testMinTolerance, acceptableDelay(4*time.Millisecond, testMinTolerance, testMaxTolerance))
	assert.Equal(t, 100*time.Millisecond, acceptableDelay(800*time.Millisecond, testMinTolerance, testMaxTolerance))
	assert.Equal(t, testMaxTolerance, acceptableDelay(time.Hour, testMinTolerance, testMaxTolerance))
}

func TestPlanWakeupEmpty(t *testing.T) {
	assert.True(t, planWakeup(nil, testMinTolerance, testMaxTolerance).IsZero())
}

func TestPlanWakeupBundlesNearbyTimers(t *testing.T) {
	base := time.Now()
	entries := []entry{
		liveEntry(base, 0, 100*time.Millisecond, 1),
		liveEntry(base, time.Millisecond, 100*time.Millisecond, 2),
		liveEntry(base, 2*time.Millisecond, 100*time.Millisecond, 3),
		liveEntry(base, 20*time.Millisecond, 100*time.Millisecond, 4),
	}

	wakeup := planWakeup(entries, testMinTolerance, testMaxTolerance)
	assert.True(t, wakeup.Equal(base.Add(2*time.Millisecond)))
}

func TestPlanWakeupTighterToleranceShrinksWindow(t *testing.T) {
	base := time.Now()
	entries := []entry{
		// 可接受延迟 100ms.
		liveEntry(base, 0, 800*time.Millisecond, 1),
		// 可接受延迟 1ms, 截止时间收紧到 base+11ms.
		liveEntry(base, 10*time.Millisecond, 8*time.Millisecond, 2),
		// 仍在第一个定时器的容忍范围内, 但晚于收紧后的截止时间.
		liveEntry(base, 50*time.Millisecond, 800*time.Millisecond, 3),
	}

	wakeup := planWakeup(entries, testMinTolerance, testMaxTolerance)
	assert.True(t, wakeup.Equal(base.Add(10*time.Millisecond)))
}

func TestPlanWakeupSkipsCanceled(t *testing.T) {
	base := time.Now()
	canceled := liveEntry(base, 3*time.Millisecond, 0, 2)
	canceled.live = nil
	entries := []entry{
		liveEntry(base, 0, 80*time.Millisecond, 1),
		canceled,
		liveEntry(base, 5*time.Millisecond, 80*time.Millisecond, 3),
		liveEntry(base, 30*time.Millisecond, 80*time.Millisecond, 4),
	}

	wakeup := planWakeup(entries, testMinTolerance, testMaxTolerance)
	assert.True(t, wakeup.Equal(base.Add(5*time.Millisecond)))
}

func TestPlanWakeupNeverExceedsFirstTolerance(t *testing.T) {
	base := time.Now()
	r := rand.New(rand.NewSource(7))

	for round := 0; round < 200; round++ {
		var q queue
		n := 1 + r.Intn(30)
		for i := 0; i < n; i++ {
			offset := time.Duration(r.Intn(200)) * time.Millisecond
			delay := time.Duration(r.Intn(2000)) * time.Millisecond
			q.add(liveEntry(base, offset, delay, uint64(i+1)))
		}
		require.NoError(t, q.verify())

		first := q.front()
		wakeup := planWakeup(q.entries, testMinTolerance, testMaxTolerance)
		bound := acceptableDelay(first.delay, testMinTolerance, testMaxTolerance)
		assert.False(t, wakeup.Before(first.deadline))
		assert.LessOrEqual(t, wakeup.Sub(first.deadline), bound)

		// 被合并的每个定时器都不会晚于其自身的容忍范围触发.
		for i := range q.entries {
			e := &q.entries[i]
			if e.deadline.After(wakeup) {
				break
			}
			assert.LessOrEqual(t, wakeup.Sub(e.deadline), acceptableDelay(e.delay, testMinTolerance, testMaxTolerance))
		}
	}
}
