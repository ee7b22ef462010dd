// Package synctest holds small test-only helpers shared across the
// primitive packages' test suites. It generalizes the goroutine-leak
// check the teacher's own subpub_test.go performs by hand
// (runtime.NumGoroutine before/after) into one reusable assertion.
package synctest

import (
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// AssertNoGoroutineLeak runs fn, gives background goroutines a moment to
// unwind, and fails the test if the goroutine count grew beyond the small
// slack the Go test runtime itself introduces.
func AssertNoGoroutineLeak(t *testing.T, fn func()) {
	t.Helper()
	runtime.GC()
	before := runtime.NumGoroutine()

	fn()

	deadline := time.Now().Add(time.Second)
	for {
		runtime.GC()
		after := runtime.NumGoroutine()
		if after <= before+1 {
			return
		}
		if time.Now().After(deadline) {
			assert.LessOrEqual(t, after, before+1, "goroutine leak: before=%d after=%d", before, after)
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
}
