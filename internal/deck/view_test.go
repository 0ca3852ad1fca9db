package deck_test

import (
	"testing"

	"github.com/inquiredu/hi-fi-cassette-physics/internal/deck"
	"github.com/inquiredu/hi-fi-cassette-physics/internal/tape"
)

func TestActiveProgress(t *testing.T) {
	snap := deck.Snapshot{Side: tape.SideA, SideAProgress: 0.3, SideBProgress: 0.8}
	if got := snap.ActiveProgress(); got != 0.3 {
		t.Errorf("ActiveProgress() = %v, want 0.3", got)
	}

	snap.Side = tape.SideB
	if got := snap.ActiveProgress(); got != 0.8 {
		t.Errorf("ActiveProgress() = %v, want 0.8", got)
	}
}

func TestCanFlip(t *testing.T) {
	tests := []struct {
		name     string
		progress float64
		expected bool
	}{
		{"fully rewound", 0, true},
		{"exactly at end", 1, true},
		{"near end within epsilon", 0.995, true},
		{"at epsilon boundary", 0.99, true},
		{"mid side", 0.5, false},
		{"just started", 0.001, false},
		{"just under epsilon", 0.989, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := deck.Snapshot{Side: tape.SideA, SideAProgress: tt.progress}
			if got := snap.CanFlip(); got != tt.expected {
				t.Errorf("CanFlip() at %v = %v, want %v", tt.progress, got, tt.expected)
			}
		})
	}
}

func TestSeekTargetProgress(t *testing.T) {
	tl := tape.Tracklist{
		SideA: []tape.Track{
			{Title: "One", Duration: "4:28"},   // 268s
			{Title: "Two", Duration: "4:39"},   // 279s
			{Title: "Three", Duration: "4:52"}, // 292s
		},
	}
	sideSeconds := 878.0

	tests := []struct {
		name     string
		index    int
		expected float64
	}{
		{"first track starts just past the leader", 0, 1.0 / sideSeconds},
		{"second track", 1, 269.0 / sideSeconds},
		{"third track", 2, 548.0 / sideSeconds},
		{"negative index clamps to start", -3, 1.0 / sideSeconds},
		{"past the end clamps to the last boundary", 99, 840.0 / sideSeconds},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := deck.SeekTargetProgress(tape.SideA, tt.index, tl)
			if !almostEqual(got, tt.expected) {
				t.Errorf("SeekTargetProgress(A, %d) = %v, want %v", tt.index, got, tt.expected)
			}
		})
	}
}

func TestSeekTargetProgressCapsBelowAutoStop(t *testing.T) {
	// A track starting in the last 1% of the tape would land on the
	// auto-stop point; the target is capped just short of the end instead.
	tl := tape.Tracklist{
		SideA: []tape.Track{
			{Title: "Almost Everything", Duration: "9:59"},
			{Title: "Outro Sting", Duration: "0:01"},
		},
	}

	got := deck.SeekTargetProgress(tape.SideA, 1, tl)
	if !almostEqual(got, 0.99) {
		t.Errorf("SeekTargetProgress near end = %v, want capped at 0.99", got)
	}
}

func TestSeekTargetProgressEmptySide(t *testing.T) {
	// With no tracks the fraction is computed against the synthetic
	// 30-minute side, landing just past the start.
	got := deck.SeekTargetProgress(tape.SideB, 0, tape.Tracklist{})
	want := 1.0 / 1800.0
	if !almostEqual(got, want) {
		t.Errorf("SeekTargetProgress on blank tape = %v, want %v", got, want)
	}
}
