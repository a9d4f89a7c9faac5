package thread

import (
	"sort"
	"time"

	"github.com/godyy/gtimer/target"
	"github.com/godyy/gutils/container/set"
	pkgerrors "github.com/pkg/errors"
)

// liveRef 存活条目引用的定时器, 以及在 Add 时缓存的定时器属性.
type liveRef struct {
	timer  Timer             // 定时器.
	target target.Dispatcher // 执行环境.
	name   string            // 名称.
	typ    TimerType         // 类型.
}

// entry 定时器队列中的槽位. live 为 nil 表示已取消, 槽位保留排序键,
// 等待被队首清理或被后续 add 覆盖.
type entry struct {
	deadline time.Time     // 到期时间.
	delay    time.Duration // 请求的延迟.
	seq      uint64        // 序号.
	live     *liveRef      // 存活引用.
}

// newEntry 构造存活条目, 调用方持有 t 的锁.
func newEntry(t Timer) entry {
	return entry{
		deadline: t.Deadline(),
		delay:    t.Delay(),
		seq:      t.Seq(),
		live: &liveRef{
			timer:  t,
			target: t.Target(),
			name:   t.Name(),
			typ:    t.Type(),
		},
	}
}

func (e *entry) canceled() bool {
	return e.live == nil
}

// less 按 (deadline, seq) 比较.
func (e *entry) less(other *entry) bool {
	if !e.deadline.Equal(other.deadline) {
		return e.deadline.Before(other.deadline)
	}
	return e.seq < other.seq
}

// queue 按 (deadline, seq) 非降序排列的定时器队列.
type queue struct {
	entries []entry
}

func (q *queue) len() int {
	return len(q.entries)
}

func (q *queue) empty() bool {
	return len(q.entries) == 0
}

func (q *queue) front() *entry {
	return &q.entries[0]
}

// add 插入条目. 优先覆盖插入点之前的已取消槽位, 其次在右移过程中
// 吸收遇到的第一个已取消槽位, 都没有时才追加.
func (q *queue) add(e entry) {
	at := sort.Search(len(q.entries), func(i int) bool {
		return e.less(&q.entries[i])
	})

	// 取消后立即重新添加同一个定时器时, 通常会命中它自己的旧槽位.
	if at > 0 && q.entries[at-1].canceled() {
		q.entries[at-1] = e
		return
	}

	for i := at; i < len(q.entries); i++ {
		if q.entries[i].canceled() {
			q.entries[i] = e
			return
		}
		q.entries[i], e = e, q.entries[i]
	}

	q.entries = append(q.entries, e)
}

// remove 将 t 对应的条目标记为已取消. 不收缩队列.
func (q *queue) remove(t Timer) bool {
	key := entry{deadline: t.Deadline(), seq: t.Seq()}
	i := sort.Search(len(q.entries), func(i int) bool {
		return !q.entries[i].less(&key)
	})
	if i >= len(q.entries) || key.less(&q.entries[i]) {
		return false
	}
	e := &q.entries[i]
	if e.canceled() || e.live.timer != t {
		return false
	}
	e.live = nil
	return true
}

// pruneLeadingCanceled 移除队首连续的已取消条目, 返回移除数量.
func (q *queue) pruneLeadingCanceled() int {
	n := 0
	for n < len(q.entries) && q.entries[n].canceled() {
		q.entries[n] = entry{}
		n++
	}
	if n > 0 {
		q.entries = q.entries[n:]
	}
	return n
}

// popFront 弹出队首条目.
func (q *queue) popFront() entry {
	e := q.entries[0]
	q.entries[0] = entry{}
	q.entries = q.entries[1:]
	return e
}

// takeAll 移出全部条目.
func (q *queue) takeAll() []entry {
	entries := q.entries
	q.entries = nil
	return entries
}

// rangeLive 按顺序遍历存活条目, fn 返回 false 时停止.
func (q *queue) rangeLive(fn func(e *entry) bool) {
	for i := range q.entries {
		if q.entries[i].canceled() {
			continue
		}
		if !fn(&q.entries[i]) {
			return
		}
	}
}

// liveCount 存活条目数量.
func (q *queue) liveCount() int {
	n := 0
	q.rangeLive(func(*entry) bool {
		n++
		return true
	})
	return n
}

// verify 检查队列有序且没有重复的存活定时器.
func (q *queue) verify() error {
	seen := set.NewSet[Timer]()
	for i := range q.entries {
		e := &q.entries[i]
		if i > 0 && !q.entries[i-1].less(e) {
			return pkgerrors.Errorf("timer queue out of order at %d", i)
		}
		if e.canceled() {
			continue
		}
		if seen.Contains(e.live.timer) {
			return pkgerrors.Errorf("timer %q queued twice", e.live.name)
		}
		seen.Add(e.live.timer)
	}
	return nil
}
