//go:build !unix

package gtimer

import "errors"

// ProcessPriority 当前平台不支持读取进程优先级.
func ProcessPriority() (int, error) {
	return 0, errors.New("process priority not supported")
}
