package playback

import "time"

// Controls translates user gestures on the player surface into machine
// calls.
type Controls struct {
	m *Machine
}

// NewControls returns the gesture handler for m.
func NewControls(m *Machine) *Controls {
	return &Controls{m: m}
}

// TapButton toggles playback according to the icon on screen, not the
// playback state.
func (c *Controls) TapButton() {
	c.m.post(func() {
		if c.m.Affordance() == PauseIcon {
			c.m.pressPause()
			return
		}
		c.m.pressPlay()
	})
}

// DragSlider seeks to fraction of the local asset's duration.
func (c *Controls) DragSlider(fraction float64) {
	c.m.post(func() { c.seekFraction(clampFraction(fraction)) })
}

// TapSlider seeks to the point of the slider at x. sliderX and width
// describe the slider's horizontal extent in the same units as x.
func (c *Controls) TapSlider(x, sliderX, width float64) {
	if width <= 0 {
		return
	}
	c.DragSlider((x - sliderX) / width)
}

// Nudge moves playback by fraction of the duration, relative to the
// position on the slider.
func (c *Controls) Nudge(fraction float64) {
	c.m.post(func() {
		c.seekFraction(clampFraction(c.m.Progress() + fraction))
	})
}

func (c *Controls) seekFraction(fraction float64) {
	dur, ok := c.m.local.Duration()
	if !ok || dur <= 0 {
		return
	}
	c.m.seek(time.Duration(float64(dur) * fraction))
}
