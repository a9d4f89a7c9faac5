//go:build gtimerdebug

package thread

const debugAssertions = true
