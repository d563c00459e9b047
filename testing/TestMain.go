package testing

import (
	"os"
	stdtesting "testing"
)

// Importing this package for side effects puts the process in test mode and
// defaults the store to the in-memory backend.
func init() {
	setDefault("PHARMA_LEDGER_TEST_MODE", "true")
	setDefault("STORE_DRIVER", "memory")
}

func setDefault(key, value string) {
	if _, ok := os.LookupEnv(key); !ok {
		_ = os.Setenv(key, value)
	}
}

func TestMain(m *stdtesting.M) {
	os.Exit(m.Run())
}
