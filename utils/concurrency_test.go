package utils

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestSeenSetNoDuplicates(t *testing.T) {
	s := NewSeenSet()

	added := s.Add("https://www.autoscout24.ch/de/d/1")
	if !added {
		t.Error("first Add should return true")
	}

	added = s.Add("https://www.autoscout24.ch/de/d/1")
	if added {
		t.Error("second Add of same key should return false")
	}

	if s.Size() != 1 {
		t.Errorf("size: got %d, want 1", s.Size())
	}
}

func TestSeenSetConcurrency(t *testing.T) {
	s := NewSeenSet()
	var added int64

	pool := NewWorkerPool(10, 0)
	for i := 0; i < 100; i++ {
		pool.Submit(func() {
			if s.Add("https://www.autoscout24.ch/de/d/42") {
				atomic.AddInt64(&added, 1)
			}
		})
	}
	pool.Wait()

	if added != 1 {
		t.Errorf("expected exactly 1 successful Add, got %d", added)
	}
	if s.Size() != 1 {
		t.Errorf("size: got %d, want 1", s.Size())
	}
}

func TestWorkerPoolRunsAllJobs(t *testing.T) {
	pool := NewWorkerPool(4, 0)
	var count int64

	for i := 0; i < 50; i++ {
		pool.Submit(func() {
			atomic.AddInt64(&count, 1)
		})
	}
	pool.Wait()

	if count != 50 {
		t.Errorf("expected 50 jobs to run, got %d", count)
	}
}

func TestWorkerPoolRateLimit(t *testing.T) {
	pool := NewWorkerPool(2, 30)

	start := time.Now()
	for i := 0; i < 4; i++ {
		pool.Submit(func() {})
	}
	pool.Wait()
	elapsed := time.Since(start)

	// 4 jobs spaced 30ms apart need at least ~90ms after the first.
	if elapsed < 80*time.Millisecond {
		t.Errorf("rate limit not enforced: 4 jobs finished in %v", elapsed)
	}
}
