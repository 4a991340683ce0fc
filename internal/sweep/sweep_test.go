package sweep

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/websoft9/portd/internal/registry"
)

func newTestSweeper(t *testing.T) (*Sweeper, *registry.Registry) {
	t.Helper()
	reg, err := registry.Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { reg.Close() })
	return NewSweeper(reg, zerolog.Nop()), reg
}

func TestSweeper_TickKeepsUnexpiredRecords(t *testing.T) {
	sweeper, reg := newTestSweeper(t)

	claim := reg.Claim("app:api:main", registry.ClaimOptions{Expires: "1s"})
	if !claim.Success {
		t.Fatalf("claim failed: %s", claim.Error)
	}

	sweeper.Tick() // not yet expired relative to real clock, expect no-op
	found := reg.Find("*", registry.FindOptions{})
	if found.Count != 1 {
		t.Fatalf("expected record to survive an early tick, count=%d", found.Count)
	}
}

func TestTickerScheduler_StopsOnContextCancel(t *testing.T) {
	sweeper, _ := newTestSweeper(t)
	sched := NewTickerScheduler(sweeper, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- sched.Run(ctx) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop within timeout")
	}
}
