package testsupport

import (
	"sync"
	"testing"
	"time"
)

// RunConcurrently starts n goroutines calling fn with their index and waits
// for all of them. The goroutines are released together to maximise
// interleaving. The test fails if they do not finish within timeout.
func RunConcurrently(t testing.TB, n int, timeout time.Duration, fn func(i int)) {
	t.Helper()

	var ready, done sync.WaitGroup
	start := make(chan struct{})

	ready.Add(n)
	done.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer done.Done()
			ready.Done()
			<-start
			fn(i)
		}(i)
	}

	ready.Wait()
	close(start)

	finished := make(chan struct{})
	go func() {
		done.Wait()
		close(finished)
	}()

	select {
	case <-finished:
	case <-time.After(timeout):
		t.Fatalf("%d goroutines did not finish within %v", n, timeout)
	}
}
