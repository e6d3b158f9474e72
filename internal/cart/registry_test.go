package cart

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

type memorySnapshots struct {
	mu      sync.Mutex
	data    map[string][]Item
	saves   int
	deletes int
	failOn  string
}

func newMemorySnapshots() *memorySnapshots {
	return &memorySnapshots{data: map[string][]Item{}}
}

func (m *memorySnapshots) Load(_ context.Context, id string) ([]Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Item(nil), m.data[id]...), nil
}

func (m *memorySnapshots) Save(_ context.Context, id string, items []Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id == m.failOn {
		return errors.New("boom")
	}
	m.saves++
	m.data[id] = append([]Item(nil), items...)
	return nil
}

func (m *memorySnapshots) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletes++
	delete(m.data, id)
	return nil
}

func TestRegistryReturnsSameSession(t *testing.T) {
	reg := NewRegistry(RegistryOptions{})
	ctx := context.Background()

	a, err := reg.Get(ctx, "sess-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	b, err := reg.Get(ctx, " sess-1 ")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if a != b {
		t.Fatalf("expected the same session for the same id")
	}
	other, _ := reg.Get(ctx, "sess-2")
	if other == a || other.Cart == a.Cart || other.Drawer == a.Drawer {
		t.Fatalf("sessions must not share stores")
	}
}

func TestRegistryRejectsEmptyID(t *testing.T) {
	reg := NewRegistry(RegistryOptions{})
	if _, err := reg.Get(context.Background(), "  "); !errors.Is(err, ErrMissingSessionID) {
		t.Fatalf("expected ErrMissingSessionID, got %v", err)
	}
}

func TestRegistryMutatePersistsOnlyOnChange(t *testing.T) {
	snaps := newMemorySnapshots()
	reg := NewRegistry(RegistryOptions{Snapshots: snaps})
	ctx := context.Background()

	if _, err := reg.Mutate(ctx, "s", func(s *Session) { s.Cart.AddItem(heel(1)) }); err != nil {
		t.Fatalf("Mutate: %v", err)
	}
	if _, err := reg.Mutate(ctx, "s", func(s *Session) {
		s.Cart.UpdateQuantity(Item{SKU: "missing"}, 3)
		s.Drawer.Open()
	}); err != nil {
		t.Fatalf("Mutate: %v", err)
	}
	if snaps.saves != 1 {
		t.Fatalf("expected 1 save, got %d", snaps.saves)
	}
	if diff := cmp.Diff([]Item{heel(1)}, snaps.data["s"]); diff != "" {
		t.Fatalf("snapshot mismatch (-want +got):\n%s", diff)
	}

	if _, err := reg.Mutate(ctx, "s", func(s *Session) { s.Cart.Clear() }); err != nil {
		t.Fatalf("Mutate: %v", err)
	}
	if snaps.deletes != 1 {
		t.Fatalf("expected clearing to delete the snapshot, got %d deletes", snaps.deletes)
	}
}

func TestRegistryRestoresSnapshotButNotDrawer(t *testing.T) {
	snaps := newMemorySnapshots()
	snaps.data["s"] = []Item{heel(2)}
	reg := NewRegistry(RegistryOptions{Snapshots: snaps})

	s, err := reg.Get(context.Background(), "s")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if diff := cmp.Diff([]Item{heel(2)}, s.Cart.Items()); diff != "" {
		t.Fatalf("restored items mismatch (-want +got):\n%s", diff)
	}
	if s.Drawer.IsOpen() {
		t.Fatalf("drawer must start closed")
	}
}

func TestRegistryMutateReportsSaveFailure(t *testing.T) {
	snaps := newMemorySnapshots()
	snaps.failOn = "s"
	reg := NewRegistry(RegistryOptions{Snapshots: snaps})

	s, err := reg.Mutate(context.Background(), "s", func(s *Session) { s.Cart.AddItem(heel(1)) })
	if err == nil {
		t.Fatalf("expected persist error")
	}
	if s == nil || s.Cart.Len() != 1 {
		t.Fatalf("in-memory state must survive a failed save")
	}
}

func TestRegistryConcurrentMutationsSaveLatestLines(t *testing.T) {
	snaps := newMemorySnapshots()
	reg := NewRegistry(RegistryOptions{Snapshots: snaps})
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := reg.Mutate(ctx, "s", func(s *Session) { s.Cart.AddItem(heel(1)) }); err != nil {
				t.Errorf("Mutate: %v", err)
			}
		}()
	}
	wg.Wait()

	s, err := reg.Get(ctx, "s")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	stored, _ := snaps.Load(ctx, "s")
	if diff := cmp.Diff(s.Cart.Items(), stored); diff != "" {
		t.Fatalf("snapshot lags the cart (-cart +snapshot):\n%s", diff)
	}
	if got := stored[0].Quantity; got != 50 {
		t.Fatalf("expected 50 units, got %d", got)
	}
}

func TestRegistryEvictsIdleSessions(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	reg := NewRegistry(RegistryOptions{
		IdleTTL: time.Hour,
		Clock:   func() time.Time { return now },
	})
	ctx := context.Background()

	if _, err := reg.Get(ctx, "old"); err != nil {
		t.Fatalf("Get: %v", err)
	}
	now = now.Add(2 * time.Hour)
	if _, err := reg.Get(ctx, "new"); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if reg.Len() != 1 {
		t.Fatalf("expected idle session to be evicted, have %d sessions", reg.Len())
	}
}

func TestRegistryForget(t *testing.T) {
	snaps := newMemorySnapshots()
	reg := NewRegistry(RegistryOptions{Snapshots: snaps})
	ctx := context.Background()
	_, _ = reg.Mutate(ctx, "s", func(s *Session) { s.Cart.AddItem(heel(1)) })

	if err := reg.Forget(ctx, "s"); err != nil {
		t.Fatalf("Forget: %v", err)
	}
	if reg.Len() != 0 {
		t.Fatalf("expected no sessions")
	}
	if _, ok := snaps.data["s"]; ok {
		t.Fatalf("expected snapshot to be deleted")
	}
}
