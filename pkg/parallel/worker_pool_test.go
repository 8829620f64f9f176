package parallel

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func newPool(t *testing.T, workers int) *WorkerPool {
	t.Helper()
	pool, err := NewWorkerPool(workers)
	if err != nil {
		t.Fatalf("NewWorkerPool(%d): %v", workers, err)
	}
	return pool
}

func TestWorkerPoolRunsTask(t *testing.T) {
	pool := newPool(t, 4)

	executed := false
	if !pool.Submit(func() { executed = true }) {
		t.Error("submission on an open pool failed")
	}

	pool.Wait()
	if !executed {
		t.Error("task was not executed")
	}
}

func TestWorkerPoolConcurrentSubmitters(t *testing.T) {
	pool := newPool(t, 10)

	numTasks := 100
	var counter int64

	var wg sync.WaitGroup
	for i := 0; i < numTasks; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pool.Submit(func() {
				atomic.AddInt64(&counter, 1)
			})
		}()
	}

	wg.Wait()
	pool.Wait()

	if counter != int64(numTasks) {
		t.Errorf("counter = %d, want %d", counter, numTasks)
	}
}

// Closing while submissions are in flight must not panic; late
// submissions simply report false.
func TestWorkerPoolCloseRace(t *testing.T) {
	for iteration := 0; iteration < 100; iteration++ {
		pool := newPool(t, 4)

		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 10; j++ {
					pool.Submit(func() {
						time.Sleep(time.Millisecond)
					})
				}
			}()
		}

		time.Sleep(5 * time.Millisecond)
		pool.Close()
		wg.Wait()
	}
}

func TestWorkerPoolSubmitAfterClose(t *testing.T) {
	pool := newPool(t, 4)

	if !pool.Submit(func() { time.Sleep(10 * time.Millisecond) }) {
		t.Error("submission before close should succeed")
	}
	pool.Close()

	if pool.Submit(func() { t.Error("task ran after close") }) {
		t.Error("submission after close should return false")
	}
}

func TestWorkerPoolRepeatedClose(t *testing.T) {
	pool := newPool(t, 4)

	for i := 0; i < 10; i++ {
		pool.Submit(func() {
			time.Sleep(time.Millisecond)
		})
	}

	pool.Close()
	pool.Close()
	pool.Close()
}

func TestWorkerPoolConcurrentClose(t *testing.T) {
	pool := newPool(t, 4)

	for i := 0; i < 20; i++ {
		pool.Submit(func() {
			time.Sleep(time.Millisecond)
		})
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pool.Close()
		}()
	}
	wg.Wait()
}

// Wait must drain every submitted task, the pattern the uncertainty
// sampler relies on: each trial writes its own slot, then one Wait
// makes all slots visible.
func TestWorkerPoolPerSlotResults(t *testing.T) {
	pool := newPool(t, 5)

	trials := 50
	samples := make([]float64, trials)
	for i := 0; i < trials; i++ {
		i := i
		pool.Submit(func() {
			samples[i] = float64(i) / float64(trials)
		})
	}

	pool.Wait()

	for i := 1; i < trials; i++ {
		if samples[i] != float64(i)/float64(trials) {
			t.Errorf("slot %d was not written", i)
		}
	}
}

func TestWorkerPoolRecoversPanic(t *testing.T) {
	pool := newPool(t, 4)

	var counter int64
	for i := 0; i < 5; i++ {
		pool.Submit(func() {
			panic("intentional panic")
		})
	}
	for i := 0; i < 10; i++ {
		pool.Submit(func() {
			atomic.AddInt64(&counter, 1)
		})
	}

	pool.Wait()

	// Workers recover task panics and keep serving the queue.
	if counter != 10 {
		t.Errorf("counter = %d, want 10", counter)
	}
}

func BenchmarkWorkerPoolThroughput(b *testing.B) {
	pool, err := NewWorkerPool(10)
	if err != nil {
		b.Fatal(err)
	}
	defer pool.Close()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		pool.Submit(func() {})
	}
}

func BenchmarkWorkerPoolWithWork(b *testing.B) {
	pool, err := NewWorkerPool(10)
	if err != nil {
		b.Fatal(err)
	}
	defer pool.Close()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		pool.Submit(func() {
			sum := 0.0
			for j := 0; j < 100; j++ {
				sum += float64(j) * 0.001
			}
			_ = sum
		})
	}
}
