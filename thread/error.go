package thread

import (
	"errors"

	"go.uber.org/multierr"
)

// ErrNotInitialized 定时器线程未初始化.
var ErrNotInitialized = errors.New("timer thread not initialized")

// ErrAlreadyShutdown 定时器线程已关闭.
var ErrAlreadyShutdown = errors.New("timer thread already shutdown")

// ErrNotFound 定时器未被定时器线程追踪.
var ErrNotFound = errors.New("timer not found")

// ErrDispatchFailed 定时器投递到目标执行环境失败.
var ErrDispatchFailed = errors.New("timer dispatch failed")

// ErrTargetNotComparable 定时器的执行环境不是可比较类型.
var ErrTargetNotComparable = errors.New("timer target not comparable")

// errStopped 关闭后添加定时器返回的错误, 同时匹配 ErrNotInitialized 和 ErrAlreadyShutdown.
var errStopped = multierr.Combine(ErrAlreadyShutdown, ErrNotInitialized)
