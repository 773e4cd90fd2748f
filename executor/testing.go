package executor

import (
	"sync"

	"github.com/caffeineduck/hashcall/hostfunc"
)

// TestExecutor provides a shared executor for tests to avoid repeated runtime
// setup. Use GetTestExecutor() to get a shared instance.
var (
	testExecutor     *Executor
	testExecutorOnce sync.Once
	testExecutorErr  error
)

// GetTestExecutor returns a shared executor with the default host functions.
// The executor is created once and reused.
func GetTestExecutor() (*Executor, error) {
	testExecutorOnce.Do(func() {
		testExecutor, testExecutorErr = New(hostfunc.NewRegistry())
	})
	return testExecutor, testExecutorErr
}

// CloseTestExecutor closes the shared test executor.
func CloseTestExecutor() {
	if testExecutor != nil {
		testExecutor.Close()
		testExecutor = nil
		testExecutorOnce = sync.Once{} // Reset for next test run
	}
}
