package kernel

import (
	"testing"

	"vklinux/kernel/signal"
)

func TestShouldDeliver(t *testing.T) {
	var mask signal.Set
	mask = mask.Add(signal.SIGTERM)

	if !shouldDeliver(mask, signal.SIGINT) {
		t.Fatalf("SIGINT is not blocked and should be deliverable")
	}
	if shouldDeliver(mask, signal.SIGTERM) {
		t.Fatalf("SIGTERM is blocked and should not be deliverable")
	}
	if shouldDeliver(mask, 0) {
		t.Fatalf("signal 0 is never deliverable")
	}
}

func TestScanPendingPicksLowestUnblocked(t *testing.T) {
	var pending signal.Set
	pending = pending.Add(signal.SIGTERM).Add(signal.SIGINT)

	var mask signal.Set
	mask = mask.Add(signal.SIGINT)

	got := scanPending(pending, mask)
	if got != signal.SIGTERM {
		t.Fatalf("expected SIGTERM (SIGINT is blocked), got %d", got)
	}
}

func TestScanPendingNoneDeliverable(t *testing.T) {
	var pending signal.Set
	pending = pending.Add(signal.SIGINT)
	var mask signal.Set
	mask = mask.Add(signal.SIGINT)

	if got := scanPending(pending, mask); got != 0 {
		t.Fatalf("expected 0 when every pending signal is blocked, got %d", got)
	}
}
