package thread

// Stats 定时器线程统计.
type Stats struct {
	Added             uint64 // 添加的定时器数.
	Removed           uint64 // 移除的定时器数.
	Fired             uint64 // 触发的定时器数.
	DispatchFailures  uint64 // 投递失败被丢弃的定时器数.
	NotifiedWakeups   uint64 // 被通知唤醒的次数.
	UnnotifiedWakeups uint64 // 按计划唤醒的次数.
	EarlyWakeups      uint64 // 早于计划时间的非通知唤醒次数.
}

// Wakeups 唤醒总次数.
func (s Stats) Wakeups() uint64 {
	return s.NotifiedWakeups + s.UnnotifiedWakeups
}
