package engine

import "testing"

func TestTrackPrimaryIndex(t *testing.T) {
	var secondary Track
	if got := secondary.PrimaryIndex(); got != NoPrimary {
		t.Errorf("zero track: PrimaryIndex() = %d, expected %d", got, NoPrimary)
	}

	primary := Track{ID: 1}
	primary.SetPrimaryIndex(0)
	if got := primary.PrimaryIndex(); got != 0 {
		t.Errorf("PrimaryIndex() = %d, expected 0", got)
	}

	primary.SetPrimaryIndex(-5)
	if got := primary.PrimaryIndex(); got != NoPrimary {
		t.Errorf("negative index: PrimaryIndex() = %d, expected %d", got, NoPrimary)
	}
}
