package crawler

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestDomainGateCapsConcurrency(t *testing.T) {
	gates := NewDomainGates(1)

	var inFlight, maxSeen atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := gates.Acquire(context.Background(), "a.com")
			if err != nil {
				t.Errorf("Acquire: %v", err)
				return
			}
			n := inFlight.Add(1)
			for {
				m := maxSeen.Load()
				if n <= m || maxSeen.CompareAndSwap(m, n) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			inFlight.Add(-1)
			release()
		}()
	}
	wg.Wait()

	if maxSeen.Load() > 1 {
		t.Errorf("in-flight count for a.com reached %d with maxPerDomain=1", maxSeen.Load())
	}
}

func TestDomainGateIndependentHosts(t *testing.T) {
	gates := NewDomainGates(1)

	releaseA, err := gates.Acquire(context.Background(), "a.com")
	if err != nil {
		t.Fatalf("Acquire a.com: %v", err)
	}
	defer releaseA()

	// A held slot on a.com must not block b.com.
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	releaseB, err := gates.Acquire(ctx, "b.com")
	if err != nil {
		t.Fatalf("b.com blocked by a.com: %v", err)
	}
	releaseB()
}

func TestDomainGateContextCancel(t *testing.T) {
	gates := NewDomainGates(1)
	release, _ := gates.Acquire(context.Background(), "a.com")
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := gates.Acquire(ctx, "a.com"); err == nil {
		t.Error("Acquire must fail when the context ends first")
	}
}
