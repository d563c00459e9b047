package app

import (
	"os"
	"strconv"
	"sync"
)

// TestModeEnv switches off listeners and background servers when set to a
// true value. The shared testing package sets it for every test binary.
const TestModeEnv = "PHARMA_LEDGER_TEST_MODE"

var testMode = sync.OnceValue(func() bool {
	on, _ := strconv.ParseBool(os.Getenv(TestModeEnv))
	return on
})

// InTestMode reports whether binaries should exit before opening listeners.
func InTestMode() bool {
	return testMode()
}
