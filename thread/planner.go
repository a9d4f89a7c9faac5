package thread

import "time"

// delayDivider 定时器可接受的触发延迟以其请求延迟的 1/delayDivider 为基准.
const delayDivider = 8

// acceptableDelay 计算请求延迟为 delay 的定时器可接受的触发延迟.
func acceptableDelay(delay, lo, hi time.Duration) time.Duration {
	d := delay / delayDivider
	if d < lo {
		return lo
	}
	if d > hi {
		return hi
	}
	return d
}

// planWakeup 计算下次唤醒时间. entries 的第一个条目必须是存活的.
//
// 从队首开始, 将到期时间不晚于截止时间的后续存活定时器合并到同一次
// 唤醒中, 唤醒时间取被合并的最后一个定时器的到期时间. 截止时间只会
// 随着合并而收紧, 因此唤醒时间不会晚于队首定时器的到期时间加上其
// 可接受延迟.
func planWakeup(entries []entry, lo, hi time.Duration) time.Time {
	if len(entries) == 0 {
		return time.Time{}
	}

	first := &entries[0]
	wakeup := first.deadline
	cutoff := wakeup.Add(acceptableDelay(first.delay, lo, hi))

	for i := 1; i < len(entries); i++ {
		e := &entries[i]
		if e.canceled() {
			continue
		}
		if e.deadline.After(cutoff) {
			break
		}
		wakeup = e.deadline
		if c := e.deadline.Add(acceptableDelay(e.delay, lo, hi)); c.Before(cutoff) {
			cutoff = c
		}
	}

	return wakeup
}
