package app

import (
	"os"
	"strconv"
	"sync/atomic"
)

// TestModeEnv keeps the binaries from dialling infrastructure when truthy.
const TestModeEnv = "TRADESDESK_TEST_MODE"

var testMode atomic.Pointer[bool]

func readTestMode() *bool {
	on, _ := strconv.ParseBool(os.Getenv(TestModeEnv))
	return &on
}

// InTestMode reports whether entrypoints should return before connecting to
// Postgres, Redis or the queue. The environment is read once; see RefreshTestMode.
func InTestMode() bool {
	if v := testMode.Load(); v != nil {
		return *v
	}
	v := readTestMode()
	testMode.CompareAndSwap(nil, v)
	return *testMode.Load()
}

// RefreshTestMode re-reads the environment.
func RefreshTestMode() {
	testMode.Store(readTestMode())
}
