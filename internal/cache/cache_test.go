package cache

import (
	"errors"
	"testing"
	"time"
)

func TestGetOrSetLoadsOnce(t *testing.T) {
	svc := NewService(60, 600)

	calls := 0
	loader := func() (any, error) {
		calls++
		return "loaded", nil
	}

	for i := 0; i < 3; i++ {
		val, err := svc.GetOrSet("key", time.Minute, loader)
		if err != nil {
			t.Fatalf("GetOrSet returned error: %v", err)
		}
		if val != "loaded" {
			t.Errorf("expected loaded value, got %v", val)
		}
	}

	if calls != 1 {
		t.Errorf("expected loader to run once, ran %d times", calls)
	}
}

func TestGetOrSetDoesNotCacheErrors(t *testing.T) {
	svc := NewService(60, 600)

	boom := errors.New("upstream down")
	if _, err := svc.GetOrSet("key", time.Minute, func() (any, error) { return nil, boom }); !errors.Is(err, boom) {
		t.Fatalf("expected loader error back, got %v", err)
	}

	// A failed load must not poison the key.
	val, err := svc.GetOrSet("key", time.Minute, func() (any, error) { return 42, nil })
	if err != nil {
		t.Fatalf("second GetOrSet returned error: %v", err)
	}
	if val != 42 {
		t.Errorf("expected 42, got %v", val)
	}
}

func TestDeleteAndFlush(t *testing.T) {
	svc := NewService(60, 600)

	svc.Set("a", 1, time.Minute)
	svc.Set("b", 2, time.Minute)

	svc.Delete("a")
	if _, found := svc.Get("a"); found {
		t.Error("deleted key still present")
	}

	svc.Flush()
	if _, found := svc.Get("b"); found {
		t.Error("flushed key still present")
	}
}
