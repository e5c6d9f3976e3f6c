package collector

import (
	"sync"
	"testing"
	"time"
)

// The read loop stamps the last-message time while the health monitor reads
// it and swaps the client on stale feeds; both paths must go through the
// collector's mutex.
func TestCollectorSharedStateAccess(t *testing.T) {
	c := New("wss://counters.example.net/feed", "", nil, nil)

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			c.touch()
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			_ = c.lastSeen()
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			c.mu.Lock()
			c.client = &Client{}
			c.mu.Unlock()
			_ = c.currentClient()
		}
	}()
	wg.Wait()

	if c.lastSeen().IsZero() {
		t.Error("last message time should be stamped")
	}
	if c.currentClient() == nil {
		t.Error("client should be set")
	}
}

func TestCollectorLastSeenAdvances(t *testing.T) {
	c := New("wss://counters.example.net/feed", "", nil, nil)

	before := c.lastSeen()
	time.Sleep(time.Millisecond)
	c.touch()
	if !c.lastSeen().After(before) {
		t.Errorf("last seen %v should advance past %v", c.lastSeen(), before)
	}
}
