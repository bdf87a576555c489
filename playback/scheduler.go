package playback

import (
	"sync"
	"time"

	"github.com/samber/lo"
)

const (
	DefaultLocalInterval = 1 * time.Second
	DefaultCastInterval  = 500 * time.Millisecond
)

// Timer is a repeating task that can be invalidated.
type Timer interface {
	Stop()
}

// TimerFactory starts a repeating task calling tick every interval.
type TimerFactory func(every time.Duration, tick func()) Timer

// TickerTimers returns a TimerFactory backed by time.Ticker whose ticks
// are posted to d, so they run on the playback timeline.
func TickerTimers(d Dispatcher) TimerFactory {
	return func(every time.Duration, tick func()) Timer {
		t := &tickerTimer{stop: make(chan struct{})}
		ticker := time.NewTicker(every)

		go func() {
			defer ticker.Stop()
			for {
				select {
				case <-t.stop:
					return
				case <-ticker.C:
					d.Post(tick)
				}
			}
		}()

		return t
	}
}

type tickerTimer struct {
	stop chan struct{}
	once sync.Once
}

func (t *tickerTimer) Stop() {
	t.once.Do(func() { close(t.stop) })
}

type timerSlot struct {
	timer Timer
	gen   uint64
}

// Scheduler owns the local and remote progress timers. At most one of the
// two is alive at any time.
type Scheduler struct {
	mu         sync.Mutex
	state      func() PlaybackState
	newTimer   TimerFactory
	localEvery time.Duration
	castEvery  time.Duration
	localTick  func()
	castTick   func()
	local      *timerSlot
	cast       *timerSlot
	gen        uint64
}

// SchedulerOptions configures a Scheduler. Zero intervals fall back to
// the defaults.
type SchedulerOptions struct {
	LocalInterval time.Duration
	CastInterval  time.Duration
	Timers        TimerFactory
}

// NewScheduler returns a scheduler that consults state to decide whether a
// timer may run.
func NewScheduler(state func() PlaybackState, localTick, castTick func(), opts SchedulerOptions) *Scheduler {
	s := &Scheduler{
		state:      state,
		newTimer:   opts.Timers,
		localEvery: opts.LocalInterval,
		castEvery:  opts.CastInterval,
		localTick:  localTick,
		castTick:   castTick,
	}

	if s.localEvery <= 0 {
		s.localEvery = DefaultLocalInterval
	}
	if s.castEvery <= 0 {
		s.castEvery = DefaultCastInterval
	}
	if s.newTimer == nil {
		s.newTimer = TickerTimers(Immediate)
	}

	return s
}

// ScheduleLocalTimer invalidates both timers and, when the current state
// polls the local transport, starts a fresh local timer. In any other
// state only the local timer is torn down.
func (s *Scheduler) ScheduleLocalTimer() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if lo.Contains(localTimerStates, s.state()) {
		s.cast = stopSlot(s.cast)
		s.local = stopSlot(s.local)
		s.local = s.start(s.localEvery, s.localTick, func() *timerSlot { return s.local })
		return
	}

	s.local = stopSlot(s.local)
}

// ScheduleCastTimer is the remote counterpart of ScheduleLocalTimer.
func (s *Scheduler) ScheduleCastTimer() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if lo.Contains(castTimerStates, s.state()) {
		s.local = stopSlot(s.local)
		s.cast = stopSlot(s.cast)
		s.cast = s.start(s.castEvery, s.castTick, func() *timerSlot { return s.cast })
		return
	}

	s.cast = stopSlot(s.cast)
}

// Stop invalidates both timers.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.local = stopSlot(s.local)
	s.cast = stopSlot(s.cast)
}

// Active reports which timers are alive.
func (s *Scheduler) Active() (local, cast bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.local != nil, s.cast != nil
}

// castGeneration identifies the live cast timer, if any.
func (s *Scheduler) castGeneration() (uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cast == nil {
		return 0, false
	}
	return s.cast.gen, true
}

func (s *Scheduler) start(every time.Duration, tick func(), current func() *timerSlot) *timerSlot {
	s.gen++
	gen := s.gen

	// Ticks already queued on the timeline when the timer is replaced must
	// not run.
	guarded := func() {
		s.mu.Lock()
		slot := current()
		live := slot != nil && slot.gen == gen
		s.mu.Unlock()

		if live && tick != nil {
			tick()
		}
	}

	return &timerSlot{
		timer: s.newTimer(every, guarded),
		gen:   gen,
	}
}

func stopSlot(slot *timerSlot) *timerSlot {
	if slot != nil && slot.timer != nil {
		slot.timer.Stop()
	}
	return nil
}
