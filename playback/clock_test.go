package playback

import (
	"math"
	"testing"
	"time"
)

func TestFormatClock(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "00:00:00"},
		{-5 * time.Second, "00:00:00"},
		{59*time.Second + 600*time.Millisecond, "00:01:00"},
		{61 * time.Second, "00:01:01"},
		{time.Hour + 2*time.Minute + 3*time.Second, "01:02:03"},
		{25 * time.Hour, "25:00:00"},
	}

	for _, tt := range tests {
		if got := FormatClock(tt.in); got != tt.want {
			t.Errorf("FormatClock(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestProgress(t *testing.T) {
	tests := []struct {
		name   string
		pos    time.Duration
		dur    time.Duration
		want   float64
		wantOK bool
	}{
		{"half", 30 * time.Second, time.Minute, 0.5, true},
		{"past the end", 2 * time.Minute, time.Minute, 1, true},
		{"negative position", -time.Second, time.Minute, 0, true},
		{"no duration", time.Second, 0, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Progress(tt.pos, tt.dur)
			if ok != tt.wantOK || math.Abs(got-tt.want) > 1e-9 {
				t.Fatalf("Progress() = %v, %v, want %v, %v", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestClampFractionNaN(t *testing.T) {
	if got := clampFraction(math.NaN()); got != 0 {
		t.Fatalf("clampFraction(NaN) = %v, want 0", got)
	}
}
