//go:build !gtimerdebug

package thread

// debugAssertions 为 true 时, 内部不变量被破坏会直接 panic.
const debugAssertions = false
