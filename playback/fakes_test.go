package playback

import (
	"sync"
	"testing"
	"time"
)

type fakeTimer struct {
	every   time.Duration
	tick    func()
	stopped bool
}

func (t *fakeTimer) Stop() { t.stopped = true }

type fakeTimers struct {
	mu  sync.Mutex
	all []*fakeTimer
}

func (f *fakeTimers) factory(every time.Duration, tick func()) Timer {
	f.mu.Lock()
	defer f.mu.Unlock()

	t := &fakeTimer{every: every, tick: tick}
	f.all = append(f.all, t)
	return t
}

func (f *fakeTimers) alive() []*fakeTimer {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []*fakeTimer
	for _, t := range f.all {
		if !t.stopped {
			out = append(out, t)
		}
	}
	return out
}

type fakeLocal struct {
	playing bool
	pos     time.Duration
	dur     time.Duration
	hasDur  bool
	loaded  bool
	calls   []string
}

func newFakeLocal(pos, dur time.Duration) *fakeLocal {
	return &fakeLocal{pos: pos, dur: dur, hasDur: dur > 0, loaded: true}
}

func (l *fakeLocal) Play() {
	l.playing = true
	l.calls = append(l.calls, "play")
}

func (l *fakeLocal) Pause() {
	l.playing = false
	l.calls = append(l.calls, "pause")
}

func (l *fakeLocal) Seek(to time.Duration) {
	l.pos = to
	l.calls = append(l.calls, "seek")
}

func (l *fakeLocal) CurrentTime() time.Duration {
	l.calls = append(l.calls, "currentTime")
	return l.pos
}

func (l *fakeLocal) Duration() (time.Duration, bool) { return l.dur, l.hasDur }
func (l *fakeLocal) Loaded() bool                    { return l.loaded }

type startCall struct {
	info MediaInformation
	at   time.Duration
	done func(bool)
}

type timeRequest func(pos, dur time.Duration, ok bool)

type fakeRemote struct {
	connected bool
	listeners []func(SessionStatus)
	starts    []startCall
	plays     []func(bool)
	pauses    []func(bool)
	seeks     []time.Duration
	times     []timeRequest
}

func (r *fakeRemote) AddSessionStatusListener(l func(SessionStatus)) {
	r.listeners = append(r.listeners, l)
}

func (r *fakeRemote) HasConnectionEstablished() bool { return r.connected }

func (r *fakeRemote) StartSelectedItemRemotely(info MediaInformation, at time.Duration, done func(bool)) {
	r.starts = append(r.starts, startCall{info: info, at: at, done: done})
}

func (r *fakeRemote) PlaySelectedItemRemotely(done func(bool)) {
	r.plays = append(r.plays, done)
}

func (r *fakeRemote) PauseSelectedItemRemotely(done func(bool)) {
	r.pauses = append(r.pauses, done)
}

func (r *fakeRemote) SeekSelectedItemRemotely(to time.Duration, done func(bool)) {
	r.seeks = append(r.seeks, to)
	done(true)
}

func (r *fakeRemote) RequestCurrentTime(done func(pos, dur time.Duration, ok bool)) {
	r.times = append(r.times, done)
}

func (r *fakeRemote) emit(s SessionStatus) {
	for _, l := range r.listeners {
		l(s)
	}
}

type fakeSink struct {
	slider     float64
	current    string
	total      string
	affordance Affordance
	backend    Backend
	pushes     int
}

func (s *fakeSink) SetSliderValue(v float64) {
	s.slider = v
	s.pushes++
}

func (s *fakeSink) SetTimeLabels(current, total string) {
	s.current = current
	s.total = total
}

func (s *fakeSink) SetAffordance(a Affordance) { s.affordance = a }
func (s *fakeSink) SetBackend(b Backend)       { s.backend = b }

var testItem = MediaItem{
	Name:         "Big Buck Bunny",
	About:        "A large rabbit",
	ThumbnailURL: "http://example.com/bbb.jpg",
	VideoURL:     "http://example.com/bbb.mp4",
}

type harness struct {
	m      *Machine
	local  *fakeLocal
	remote *fakeRemote
	sink   *fakeSink
	timers *fakeTimers
}

func newHarness(t *testing.T, connected bool, local *fakeLocal) *harness {
	t.Helper()

	h := &harness{
		local:  local,
		remote: &fakeRemote{connected: connected},
		sink:   &fakeSink{},
		timers: &fakeTimers{},
	}
	h.m = NewMachine(testItem, h.local, h.remote, h.sink, Options{
		Timers: h.timers.factory,
		Studio: "castplay",
	})
	t.Cleanup(h.m.Close)

	return h
}

// lastStart returns the most recent remote start request.
func (h *harness) lastStart(t *testing.T) startCall {
	t.Helper()

	if len(h.remote.starts) == 0 {
		t.Fatalf("no remote start requested")
	}
	return h.remote.starts[len(h.remote.starts)-1]
}

// checkInvariants verifies the timer pair and the idle transport.
func (h *harness) checkInvariants(t *testing.T) {
	t.Helper()

	alive := h.timers.alive()
	if len(alive) > 1 {
		t.Fatalf("%d timers alive in %s, want at most one", len(alive), h.m.State())
	}

	local, cast := h.m.Scheduler().Active()
	if local && cast {
		t.Fatalf("both timers alive in %s", h.m.State())
	}
	if h.m.State().IsCast() && h.local.playing {
		t.Fatalf("local transport playing in %s", h.m.State())
	}
	if cast && !h.m.State().IsCast() {
		t.Fatalf("cast timer alive in %s", h.m.State())
	}
	if local && h.m.State().IsCast() {
		t.Fatalf("local timer alive in %s", h.m.State())
	}
}
