package gtimer

import (
	pkgerrors "github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// ProcessPriority 当前进程的 nice 值.
func ProcessPriority() (int, error) {
	// 内核返回 20-nice.
	p, err := unix.Getpriority(unix.PRIO_PROCESS, 0)
	if err != nil {
		return 0, pkgerrors.WithMessage(err, "getpriority")
	}
	return 20 - p, nil
}
