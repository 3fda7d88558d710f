package qring

import "testing"

func TestPushDedupNoOp(t *testing.T) {
	r := New[string, int](3)
	r.Push("a", 1, nil)
	r.Push("a", 2, func(old int) int { return old }) // no-op update
	if r.Len() != 1 {
		t.Fatalf("len = %d, want 1", r.Len())
	}
	if !r.Contains("a") {
		t.Fatal("expected a present")
	}
}

func TestPushDedupBumpsRepeatCount(t *testing.T) {
	type rec struct {
		count int
	}
	r := New[string, rec](15)
	r.Push("timeout", rec{count: 1}, nil)
	r.Push("timeout", rec{}, func(old rec) rec {
		old.count++
		return old
	})
	r.Push("timeout", rec{}, func(old rec) rec {
		old.count++
		return old
	})

	snap := r.Snapshot()
	if len(snap) != 1 {
		t.Fatalf("snapshot len = %d, want 1", len(snap))
	}
	if snap[0].Value.count != 3 {
		t.Fatalf("count = %d, want 3", snap[0].Value.count)
	}
}

func TestRingAdvanceEvictsOldest(t *testing.T) {
	r := New[int, int](2)
	r.Push(1, 100, nil)
	r.Push(2, 200, nil)
	_, _, evicted := r.Push(3, 300, nil)
	if !evicted {
		t.Fatal("expected eviction on third distinct key")
	}
	if r.Contains(1) {
		t.Fatal("expected oldest key 1 to be evicted")
	}
	if !r.Contains(2) || !r.Contains(3) {
		t.Fatal("expected keys 2 and 3 to remain")
	}
}

func TestPopFrontOrderAndDrain(t *testing.T) {
	r := New[string, struct{}](4)
	r.Push("x", struct{}{}, nil)
	r.Push("y", struct{}{}, nil)
	r.Push("z", struct{}{}, nil)

	k, _, ok := r.PopFront()
	if !ok || k != "x" {
		t.Fatalf("expected x first, got %q ok=%v", k, ok)
	}
	k, _, ok = r.PopFront()
	if !ok || k != "y" {
		t.Fatalf("expected y second, got %q ok=%v", k, ok)
	}
	k, _, ok = r.PopFront()
	if !ok || k != "z" {
		t.Fatalf("expected z third, got %q ok=%v", k, ok)
	}
	if _, _, ok = r.PopFront(); ok {
		t.Fatal("expected ring to be drained")
	}
}

// Duplicate enqueue onto a deferred-style queue must be a no-op, per spec
// §3 "Duplicates are skipped: if the kind is already present, append is a
// no-op."
func TestDeferredQueueDuplicateSkipped(t *testing.T) {
	r := New[string, struct{}](8)
	r.Push("hangup", struct{}{}, func(old struct{}) struct{} { return old })
	r.Push("hangup", struct{}{}, func(old struct{}) struct{} { return old })
	if r.Len() != 1 {
		t.Fatalf("len = %d, want 1", r.Len())
	}
}
