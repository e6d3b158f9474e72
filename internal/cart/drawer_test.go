package cart

import "testing"

func TestDrawerStartsClosed(t *testing.T) {
	if NewDrawer().IsOpen() {
		t.Fatalf("expected drawer to start closed")
	}
}

func TestDrawerToggle(t *testing.T) {
	d := NewDrawer()
	d.Toggle()
	if !d.IsOpen() {
		t.Fatalf("expected toggle from initial state to open")
	}
	d.Toggle()
	if d.IsOpen() {
		t.Fatalf("expected second toggle to return to closed")
	}
}

func TestDrawerOpenIsIdempotent(t *testing.T) {
	d := NewDrawer()
	var seen []bool
	d.Subscribe(func(v bool) { seen = append(seen, v) })

	d.Open()
	d.Open()
	if !d.IsOpen() {
		t.Fatalf("expected open")
	}
	d.Close()
	d.Close()
	if d.IsOpen() {
		t.Fatalf("expected closed")
	}

	want := []bool{false, true, true, false, false}
	if len(seen) != len(want) {
		t.Fatalf("expected deliveries %v, got %v", want, seen)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("expected deliveries %v, got %v", want, seen)
		}
	}
}
