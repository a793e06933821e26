package chain

import (
	"context"
	"testing"
)

func TestTrackerIsSynced(t *testing.T) {
	tr := NewTracker(0)

	if tr.IsSynced(context.Background()) {
		t.Fatalf("a tracker without blocks should not be synced")
	}

	tr.SetHeights(100, 100)
	if !tr.IsSynced(context.Background()) {
		t.Fatalf("equal heights should be synced")
	}

	tr.SetNetworkHeight(103)
	if tr.IsSynced(context.Background()) {
		t.Fatalf("lagging by 3 blocks should not be synced")
	}
	if lag := tr.Lag(); lag != 3 {
		t.Fatalf("lag should be 3, not %d", lag)
	}

	tr.SetLocalHeight(105)
	if !tr.IsSynced(context.Background()) {
		t.Fatalf("being ahead of the network should be synced")
	}
	if tip := tr.Tip(); tip != 105 {
		t.Fatalf("tip should be 105, not %d", tip)
	}
}

func TestTrackerTolerance(t *testing.T) {
	tr := NewTracker(2)

	tr.SetHeights(100, 102)
	if !tr.IsSynced(context.Background()) {
		t.Fatalf("lag within tolerance should be synced")
	}

	tr.SetNetworkHeight(103)
	if tr.IsSynced(context.Background()) {
		t.Fatalf("lag beyond tolerance should not be synced")
	}
}
