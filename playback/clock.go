package playback

import (
	"fmt"
	"math"
	"time"
)

// FormatClock renders d as HH:MM:SS, rounding to the nearest second.
// Negative durations render as zero.
func FormatClock(d time.Duration) string {
	if d < 0 {
		d = 0
	}

	secs := int(math.Round(d.Seconds()))
	return fmt.Sprintf("%02d:%02d:%02d", secs/3600, (secs/60)%60, secs%60)
}

// Progress returns pos/dur clamped to [0, 1]. It returns false when the
// duration is not usable.
func Progress(pos, dur time.Duration) (float64, bool) {
	if dur <= 0 {
		return 0, false
	}
	return clampFraction(float64(pos) / float64(dur)), true
}

func clampFraction(f float64) float64 {
	switch {
	case math.IsNaN(f), f < 0:
		return 0
	case f > 1:
		return 1
	}
	return f
}
