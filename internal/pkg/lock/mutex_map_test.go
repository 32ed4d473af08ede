package lock

import (
	"sync"
	"testing"
)

func TestMutexMapSerializesSameKey(t *testing.T) {
	m := NewMutexMap()
	const workers = 16
	const iterations = 200

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < iterations; j++ {
				m.Lock("thread-1")
				counter++
				m.Unlock("thread-1")
			}
		}()
	}
	wg.Wait()

	if counter != workers*iterations {
		t.Errorf("counter = %d, want %d", counter, workers*iterations)
	}
}

func TestMutexMapIndependentKeys(t *testing.T) {
	m := NewMutexMap()
	m.Lock("thread-a")
	defer m.Unlock("thread-a")

	done := make(chan struct{})
	go func() {
		m.Lock("thread-b")
		m.Unlock("thread-b")
		close(done)
	}()

	// thread-b must not be blocked by the held thread-a lock.
	<-done
}
