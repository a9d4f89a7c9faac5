package thread

import (
	"errors"
	"time"
)

const (
	// DefaultAllowedEarlyFiring 默认允许定时器提前触发的时间.
	DefaultAllowedEarlyFiring = 250 * time.Microsecond

	// DefaultMinFiringDelayTolerance 默认最小可接受触发延迟.
	DefaultMinFiringDelayTolerance = 1 * time.Millisecond

	// DefaultMaxFiringDelayTolerance 默认最大可接受触发延迟.
	DefaultMaxFiringDelayTolerance = 10 * time.Second

	// DefaultSleepPollInterval 默认系统休眠期间的轮询间隔.
	DefaultSleepPollInterval = 100 * time.Millisecond

	// DefaultIdleFallbackWindow 默认空闲让步窗口.
	DefaultIdleFallbackWindow = 16 * time.Millisecond

	// DefaultDispatchFailureLogRate 默认每秒允许输出的投递失败日志数.
	DefaultDispatchFailureLogRate = 1
)

// Config 定时器线程配置. 零值字段使用默认值, 因此时长字段无法配置为 0,
// 需要近似为 0 时使用 1ns.
type Config struct {
	// AllowedEarlyFiring 判断定时器是否到期时允许的提前量. 0 表示默认值.
	AllowedEarlyFiring time.Duration `yaml:"allowedEarlyFiring"`

	// MinFiringDelayTolerance 可接受触发延迟下限. 0 表示默认值.
	MinFiringDelayTolerance time.Duration `yaml:"minFiringDelayTolerance"`

	// MaxFiringDelayTolerance 可接受触发延迟上限. 0 表示默认值.
	MaxFiringDelayTolerance time.Duration `yaml:"maxFiringDelayTolerance"`

	// SleepPollInterval 系统休眠期间, 定时器线程的轮询间隔.
	SleepPollInterval time.Duration `yaml:"sleepPollInterval"`

	// IdleFallbackWindow FindNextFireTime 超出搜索范围时返回的短窗口.
	IdleFallbackWindow time.Duration `yaml:"idleFallbackWindow"`

	// IgnoreSleepWakeNotifications 忽略系统休眠/唤醒通知.
	IgnoreSleepWakeNotifications bool `yaml:"ignoreSleepWakeNotifications"`

	// DispatchFailureLogRate 每秒允许输出的投递失败日志数.
	DispatchFailureLogRate int `yaml:"dispatchFailureLogRate"`
}

// DefaultConfig 返回默认配置.
func DefaultConfig() *Config {
	c := &Config{}
	_ = c.init()
	return c
}

func (c *Config) init() error {
	if c == nil {
		return errors.New("Config nil")
	}

	if c.AllowedEarlyFiring < 0 {
		return errors.New("Config.AllowedEarlyFiring must >= 0")
	}
	if c.AllowedEarlyFiring == 0 {
		c.AllowedEarlyFiring = DefaultAllowedEarlyFiring
	}

	if c.MinFiringDelayTolerance < 0 {
		return errors.New("Config.MinFiringDelayTolerance must >= 0")
	}
	if c.MinFiringDelayTolerance == 0 {
		c.MinFiringDelayTolerance = DefaultMinFiringDelayTolerance
	}

	if c.MaxFiringDelayTolerance < 0 {
		return errors.New("Config.MaxFiringDelayTolerance must >= 0")
	}
	if c.MaxFiringDelayTolerance == 0 {
		c.MaxFiringDelayTolerance = DefaultMaxFiringDelayTolerance
	}

	if c.MinFiringDelayTolerance > c.MaxFiringDelayTolerance {
		return errors.New("Config.MinFiringDelayTolerance must <= Config.MaxFiringDelayTolerance")
	}

	if c.SleepPollInterval < 0 {
		return errors.New("Config.SleepPollInterval must >= 0")
	}
	if c.SleepPollInterval == 0 {
		c.SleepPollInterval = DefaultSleepPollInterval
	}

	if c.IdleFallbackWindow < 0 {
		return errors.New("Config.IdleFallbackWindow must >= 0")
	}
	if c.IdleFallbackWindow == 0 {
		c.IdleFallbackWindow = DefaultIdleFallbackWindow
	}

	if c.DispatchFailureLogRate < 0 {
		return errors.New("Config.DispatchFailureLogRate must >= 0")
	}
	if c.DispatchFailureLogRate == 0 {
		c.DispatchFailureLogRate = DefaultDispatchFailureLogRate
	}

	return nil
}

// Validate 校验配置, 不修改 c.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("Config nil")
	}
	cp := *c
	return cp.init()
}
