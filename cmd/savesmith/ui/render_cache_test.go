package ui

import "testing"

func TestRenderCache_GetOrCompute(t *testing.T) {
	rc := NewRenderCache(10)
	calls := 0
	compute := func() string {
		calls++
		return "rendered"
	}

	key := ComputeKey(uint64(1), "overview", 80, true)
	if got := rc.GetOrCompute(key, compute); got != "rendered" {
		t.Fatalf("got %q", got)
	}
	rc.GetOrCompute(key, compute)
	if calls != 1 {
		t.Errorf("expected one computation, got %d", calls)
	}
	if hits, misses := rc.Stats(); hits != 1 || misses != 1 {
		t.Errorf("expected 1 hit and 1 miss, got %d/%d", hits, misses)
	}

	rc.Clear()
	rc.GetOrCompute(key, compute)
	if calls != 2 {
		t.Errorf("expected recompute after Clear, got %d calls", calls)
	}
}

func TestRenderCache_ResetsWhenFull(t *testing.T) {
	rc := NewRenderCache(2)
	for i := 0; i < 3; i++ {
		rc.GetOrCompute(ComputeKey(i), func() string { return "x" })
	}
	rc.mu.Lock()
	defer rc.mu.Unlock()
	if len(rc.entries) != 1 {
		t.Errorf("expected cache to reset when full, have %d entries", len(rc.entries))
	}
}

func TestComputeKey(t *testing.T) {
	if ComputeKey("ab", "c") == ComputeKey("a", "bc") {
		t.Error("inputs must be separated")
	}
	if ComputeKey([]byte(`{"a":1}`)) == ComputeKey([]byte(`{"a":2}`)) {
		t.Error("byte inputs must affect the key")
	}
	if ComputeKey(true) == ComputeKey(false) {
		t.Error("bool inputs must affect the key")
	}
	if ComputeKey(uint64(3), 80) != ComputeKey(uint64(3), 80) {
		t.Error("key must be deterministic")
	}
}
