package cart

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestSnapshotRoundTripDropsInvalidLines(t *testing.T) {
	raw, err := encodeSnapshot([]Item{heel(2), {SKU: "", Quantity: 1}, {SKU: "X", Quantity: 0}, {SKU: "Y", Quantity: 1, Price: -5}})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	items, err := decodeSnapshot(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if diff := cmp.Diff([]Item{heel(2)}, items); diff != "" {
		t.Fatalf("decoded items mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeSnapshotRejectsUnknownVersion(t *testing.T) {
	if _, err := decodeSnapshot([]byte(`{"v":9,"items":[]}`)); err == nil {
		t.Fatalf("expected version error")
	}
	if _, err := decodeSnapshot([]byte(`not json`)); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestNewRedisSnapshotsDefaults(t *testing.T) {
	if _, err := NewRedisSnapshots(nil, "", 0); err == nil {
		t.Fatalf("expected error for nil client")
	}
	client := NewRedisClient("localhost:6379")
	defer client.Close()
	s, err := NewRedisSnapshots(client, "", 0)
	if err != nil {
		t.Fatalf("NewRedisSnapshots: %v", err)
	}
	if s.key("abc") != "storefront:cart:abc" {
		t.Fatalf("unexpected key %q", s.key("abc"))
	}
	if s.ttl != 24*time.Hour {
		t.Fatalf("unexpected ttl %s", s.ttl)
	}
}
