package thread

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/godyy/glog"
	"github.com/godyy/gtimer/target"
	"github.com/stretchr/testify/require"
)

var testSeq atomic.Uint64

type testTimer struct {
	th     *TimerThread
	name   string
	typ    TimerType
	target target.Dispatcher
	onFire func(*testTimer)

	mtx      sync.Mutex
	deadline time.Time
	delay    time.Duration
	seq      uint64
	in       bool

	fired    atomic.Int32
	canceled atomic.Int32
}

func newTestTimer(th *TimerThread, name string, tgt target.Dispatcher) *testTimer {
	return &testTimer{th: th, name: name, target: tgt}
}

func (t *testTimer) arm(delay time.Duration) error {
	t.mtx.Lock()
	defer t.mtx.Unlock()
	t.seq = testSeq.Add(1)
	t.delay = delay
	t.deadline = time.Now().Add(delay)
	return t.th.Add(t)
}

func (t *testTimer) remove() error {
	t.mtx.Lock()
	defer t.mtx.Unlock()
	return t.th.Remove(t)
}

func (t *testTimer) Name() string              { return t.name }
func (t *testTimer) Type() TimerType           { return t.typ }
func (t *testTimer) Deadline() time.Time       { return t.deadline }
func (t *testTimer) Delay() time.Duration      { return t.delay }
func (t *testTimer) Seq() uint64               { return t.seq }
func (t *testTimer) Target() target.Dispatcher { return t.target }
func (t *testTimer) InScheduler() bool         { return t.in }
func (t *testTimer) SetInScheduler(in bool)    { t.in = in }

func (t *testTimer) Cancel() error {
	t.canceled.Add(1)
	_ = t.remove()
	return nil
}

func (t *testTimer) Fire(seq uint64) {
	t.fired.Add(1)
	if t.onFire != nil {
		t.onFire(t)
	}
}

func newTestThread(tb testing.TB, cfg *Config) *TimerThread {
	th, err := New(cfg, WithLogger(createStdLogger(glog.WarnLevel)))
	require.NoError(tb, err)
	return th
}

// liveEntry 构造测试用的存活条目.
func liveEntry(base time.Time, offset, delay time.Duration, seq uint64) entry {
	tt := &testTimer{name: "t", delay: delay, seq: seq, deadline: base.Add(offset)}
	return entry{
		deadline: tt.deadline,
		delay:    delay,
		seq:      seq,
		live:     &liveRef{timer: tt, name: tt.name},
	}
}

// orderRecorder 记录回调触发顺序.
type orderRecorder struct {
	mtx   sync.Mutex
	names []string
}

func (r *orderRecorder) record(t *testTimer) {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	r.names = append(r.names, t.name)
}

func (r *orderRecorder) get() []string {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	return append([]string(nil), r.names...)
}
