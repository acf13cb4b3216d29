package app

import (
	"os"
	"sync"
)

var (
	testMode     bool
	testModeOnce sync.Once
)

// InTestMode reports whether MERIDIAN_TEST_MODE=1 is set. The entrypoints
// exit early in test mode so integration harnesses can exec the binary
// without connecting to postgres or redis.
func InTestMode() bool {
	testModeOnce.Do(func() {
		testMode = os.Getenv("MERIDIAN_TEST_MODE") == "1"
	})
	return testMode
}
