package observable

import (
	"sync"
	"testing"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestSubscribeDeliversCurrentValueFirst(t *testing.T) {
	v := New(3)
	var got []int
	cancel := v.Subscribe(func(n int) { got = append(got, n) })
	defer cancel()

	v.Set(4)
	v.Set(5)

	want := []int{3, 4, 5}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestListenersRunInRegistrationOrder(t *testing.T) {
	v := New("")
	var order []string
	v.Subscribe(func(s string) {
		if s != "" {
			order = append(order, "first:"+s)
		}
	})
	v.Subscribe(func(s string) {
		if s != "" {
			order = append(order, "second:"+s)
		}
	})

	v.Set("x")

	if len(order) != 2 || order[0] != "first:x" || order[1] != "second:x" {
		t.Fatalf("unexpected notification order %v", order)
	}
}

func TestUpdateWithoutChangeDoesNotPublish(t *testing.T) {
	v := New(1)
	calls := 0
	v.Subscribe(func(int) { calls++ })

	if v.Update(func(n int) (int, bool) { return n, false }) {
		t.Fatalf("expected Update to report no publish")
	}
	if calls != 1 {
		t.Fatalf("expected only the initial delivery, got %d calls", calls)
	}
	if v.Version() != 0 {
		t.Fatalf("expected version 0, got %d", v.Version())
	}

	if !v.Update(func(n int) (int, bool) { return n + 1, true }) {
		t.Fatalf("expected Update to publish")
	}
	if calls != 2 || v.Get() != 2 || v.Version() != 1 {
		t.Fatalf("unexpected state calls=%d value=%d version=%d", calls, v.Get(), v.Version())
	}
}

func TestCancelStopsDelivery(t *testing.T) {
	v := New(0)
	calls := 0
	cancel := v.Subscribe(func(int) { calls++ })
	cancel()
	cancel()

	v.Set(1)
	if calls != 1 {
		t.Fatalf("expected 1 call after cancel, got %d", calls)
	}
	if v.Listeners() != 0 {
		t.Fatalf("expected no listeners, got %d", v.Listeners())
	}
}

func TestCancelFromInsideListener(t *testing.T) {
	v := New(0)
	calls := 0
	var cancel func()
	cancel = v.Subscribe(func(n int) {
		calls++
		if n == 1 {
			cancel()
		}
	})
	v.Set(1)
	v.Set(2)
	if calls != 2 {
		t.Fatalf("expected 2 calls, got %d", calls)
	}
}

func TestConcurrentSetsAreSeenInCommitOrder(t *testing.T) {
	v := New(0)
	var (
		mu   sync.Mutex
		seen []int
	)
	v.Subscribe(func(n int) {
		mu.Lock()
		seen = append(seen, n)
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v.Update(func(n int) (int, bool) { return n + 1, true })
		}()
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 51 {
		t.Fatalf("expected 51 deliveries, got %d", len(seen))
	}
	for i, n := range seen {
		if n != i {
			t.Fatalf("delivery %d out of order: %v", i, seen)
		}
	}
	if v.Get() != 50 {
		t.Fatalf("expected final value 50, got %d", v.Get())
	}
}
