// Package playback decides which of two transports, the local renderer or a
// remote cast receiver, is authoritative for a single media item, and keeps
// the progress indicator in step with it.
//
// All state transitions run on one serial timeline (a Dispatcher, usually a
// Loop). Remote completions and lifecycle events are posted onto that
// timeline before they touch state.
package playback

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Options configures a Machine.
type Options struct {
	// Dispatcher is the playback timeline. Defaults to Immediate.
	Dispatcher Dispatcher
	// Timers creates the progress timers. Defaults to TickerTimers(Dispatcher).
	Timers        TimerFactory
	LocalInterval time.Duration
	CastInterval  time.Duration
	// Studio is sent as part of the remote start request.
	Studio string
	Logger zerolog.Logger
}

// Machine is the single source of truth for the playback state.
type Machine struct {
	mu         sync.RWMutex
	backend    Backend
	intent     Intent
	affordance Affordance
	generation uint64
	progress   float64
	closed     bool

	item      MediaItem
	studio    string
	local     LocalTransport
	remote    RemoteSession
	sink      UISink
	dispatch  Dispatcher
	scheduler *Scheduler
	log       zerolog.Logger
}

// NewMachine binds item to the two transports. remote may be nil, in which
// case the machine only ever drives the local transport. The initial state
// is createdCast when the remote session is already connected.
func NewMachine(item MediaItem, local LocalTransport, remote RemoteSession, sink UISink, opts Options) *Machine {
	if sink == nil {
		sink = nopSink{}
	}
	if opts.Dispatcher == nil {
		opts.Dispatcher = Immediate
	}
	if opts.Timers == nil {
		opts.Timers = TickerTimers(opts.Dispatcher)
	}

	m := &Machine{
		item:       item,
		studio:     opts.Studio,
		local:      local,
		remote:     remote,
		sink:       sink,
		dispatch:   opts.Dispatcher,
		affordance: PlayIcon,
		log:        opts.Logger,
	}

	m.scheduler = NewScheduler(m.State, m.localTick, m.castTick, SchedulerOptions{
		LocalInterval: opts.LocalInterval,
		CastInterval:  opts.CastInterval,
		Timers:        opts.Timers,
	})

	if remote != nil {
		if remote.HasConnectionEstablished() {
			m.backend = BackendRemote
		}
		remote.AddSessionStatusListener(func(status SessionStatus) {
			m.post(func() { m.handleSessionStatus(status) })
		})
	}

	sink.SetAffordance(PlayIcon)
	sink.SetBackend(m.backend)

	m.log.Debug().Str("Method", "NewMachine").Str("State", m.State().String()).Msg("playback machine created")
	return m
}

// State returns the current playback state. Safe from any goroutine.
func (m *Machine) State() PlaybackState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return StateOf(m.backend, m.intent)
}

// Affordance returns the icon currently shown on the play/pause button.
func (m *Machine) Affordance() Affordance {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.affordance
}

// Backend returns the transport currently authoritative for playback.
func (m *Machine) Backend() Backend {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.backend
}

// Progress returns the last fraction pushed to the slider.
func (m *Machine) Progress() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.progress
}

// Scheduler exposes the progress timers, mainly for inspection.
func (m *Machine) Scheduler() *Scheduler {
	return m.scheduler
}

// PressPlay handles the user's play intent.
func (m *Machine) PressPlay() {
	m.post(m.pressPlay)
}

// PressPause handles the user's pause intent.
func (m *Machine) PressPause() {
	m.post(m.pressPause)
}

// Seek moves playback to the given position.
func (m *Machine) Seek(to time.Duration) {
	m.post(func() { m.seek(to) })
}

// HandleSessionStatus feeds a remote lifecycle signal into the machine.
// Listeners registered at construction call this already.
func (m *Machine) HandleSessionStatus(status SessionStatus) {
	m.post(func() { m.handleSessionStatus(status) })
}

// LocalFinished reports that the local transport reached the end of media.
func (m *Machine) LocalFinished() {
	m.post(m.localFinished)
}

// Close stops both timers. Work already queued and late remote
// completions become no-ops.
func (m *Machine) Close() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()

	m.scheduler.Stop()
}

func (m *Machine) post(fn func()) {
	m.dispatch.Post(func() {
		if m.isClosed() {
			return
		}
		fn()
	})
}

func (m *Machine) isClosed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.closed
}

func (m *Machine) currentGeneration() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.generation
}

func (m *Machine) setState(s PlaybackState) {
	m.mu.Lock()
	prev := StateOf(m.backend, m.intent)
	m.backend = s.Backend()
	m.intent = s.Intent()
	m.generation++
	m.mu.Unlock()

	if prev.Backend() != s.Backend() {
		m.sink.SetBackend(s.Backend())
	}

	m.log.Debug().Str("Method", "setState").Str("From", prev.String()).Str("To", s.String()).Msg("state transition")
}

func (m *Machine) setAffordance(a Affordance) {
	m.mu.Lock()
	m.affordance = a
	m.mu.Unlock()

	m.sink.SetAffordance(a)
}

func (m *Machine) pressPlay() {
	m.setAffordance(PauseIcon)

	switch m.State() {
	case StatePlay:
		// Already playing locally.
	case StatePause, StateCreated:
		m.setState(StatePlay)
		m.local.Play()
		m.scheduler.ScheduleLocalTimer()
	case StateCreatedCast:
		m.scheduler.ScheduleCastTimer()
		m.startRemotePlay(IntentPlaying)
	case StateFinished:
		m.local.Seek(0)
		m.setState(StatePlay)
		m.local.Play()
		m.scheduler.ScheduleLocalTimer()
	case StateFinishedCast:
		m.local.Seek(0)
		m.startRemotePlay(IntentPlaying)
	default:
		m.continueRemotePlay()
	}
}

func (m *Machine) pressPause() {
	m.setAffordance(PlayIcon)

	switch m.State() {
	case StatePlay:
		m.local.Pause()
		m.setState(StatePause)
	case StatePlayCast, StatePauseCast:
		m.pauseRemotePlay()
	default:
		// Nothing is playing, locally or on the receiver. Keep the local
		// transport quiet and the state as is.
		m.local.Pause()
	}
}

// startRemotePlay hands playback over to the receiver at the local
// position. On failure the local transport takes over again with fallback
// as its play/pause intent.
func (m *Machine) startRemotePlay(fallback Intent) {
	if m.remote == nil {
		m.log.Warn().Str("Method", "startRemotePlay").Msg("no remote session bound")
		return
	}
	if !m.local.Loaded() {
		m.log.Debug().Str("Method", "startRemotePlay").Msg("no media bound to the local transport, skipping")
		return
	}

	// Read while the local transport is still the source of truth.
	pos := m.local.CurrentTime()
	dur, _ := m.local.Duration()

	m.setState(StatePlayCast)
	m.setAffordance(PauseIcon)
	m.local.Pause()
	m.scheduler.ScheduleLocalTimer()

	info := BuildMediaInformation(m.item, m.studio, dur)
	m.log.Debug().Str("Method", "startRemotePlay").Dur("Position", pos).Dur("Duration", dur).Msg("starting remote playback")

	m.remote.StartSelectedItemRemotely(info, pos, m.completion("StartSelectedItemRemotely", func(done bool) {
		if !done {
			m.failOver(fallback)
			return
		}
		m.scheduler.ScheduleCastTimer()
	}))
}

func (m *Machine) continueRemotePlay() {
	if m.remote == nil {
		m.log.Warn().Str("Method", "continueRemotePlay").Msg("no remote session bound")
		return
	}

	m.local.Pause()
	m.setState(StatePlayCast)
	m.setAffordance(PauseIcon)
	m.scheduler.ScheduleCastTimer()

	m.remote.PlaySelectedItemRemotely(m.completion("PlaySelectedItemRemotely", func(done bool) {
		if !done {
			m.failOver(IntentPlaying)
		}
	}))
}

func (m *Machine) pauseRemotePlay() {
	m.local.Pause()
	m.setState(StatePauseCast)
	m.scheduler.ScheduleCastTimer()

	m.remote.PauseSelectedItemRemotely(m.completion("PauseSelectedItemRemotely", func(done bool) {
		if !done {
			m.failOver(IntentPlaying)
		}
	}))
}

// failOver makes the local transport authoritative again.
func (m *Machine) failOver(intent Intent) {
	if intent == IntentPlaying {
		m.setState(StatePlay)
		m.local.Play()
		m.setAffordance(PauseIcon)
	} else {
		m.setState(StatePause)
		m.local.Pause()
		m.setAffordance(PlayIcon)
	}

	m.scheduler.ScheduleLocalTimer()
	m.log.Info().Str("Method", "failOver").Str("State", m.State().String()).Msg("local transport took over")
}

// completion wraps a remote completion so that it runs on the timeline
// and only if no transition happened since the request was issued.
func (m *Machine) completion(method string, fn func(done bool)) func(bool) {
	gen := m.currentGeneration()

	var once sync.Once
	return func(done bool) {
		once.Do(func() {
			m.post(func() {
				if cur := m.currentGeneration(); cur != gen {
					m.log.Debug().Str("Method", method).Bool("Done", done).Msg("discarding stale completion")
					return
				}
				if !done {
					m.log.Warn().Str("Method", method).Msg("remote operation failed")
				}
				fn(done)
			})
		})
	}
}

func (m *Machine) handleSessionStatus(status SessionStatus) {
	state := m.State()
	m.log.Debug().Str("Method", "handleSessionStatus").Str("Status", status.String()).Str("State", state.String()).Msg("remote session event")

	switch status {
	case SessionStarted:
		if state == StatePlayCast || state == StatePauseCast {
			return
		}
		fallback := IntentPaused
		if state.Intent() == IntentPlaying {
			fallback = IntentPlaying
		}
		m.startRemotePlay(fallback)
	case SessionResumed:
		m.continueRemotePlay()
	case SessionEnded, SessionFailedToStart:
		switch state {
		case StatePlayCast:
			m.failOver(IntentPlaying)
		case StatePauseCast, StateFinishedCast:
			m.failOver(IntentPaused)
		}
	case SessionMediaFinished:
		if state != StatePlayCast {
			return
		}
		m.setState(StateFinishedCast)
		m.setAffordance(PlayIcon)
		m.pushFinalProgress()
		m.scheduler.ScheduleCastTimer()
	}
}

func (m *Machine) localFinished() {
	if m.State() != StatePlay {
		return
	}

	m.setState(StateFinished)
	m.setAffordance(PlayIcon)
	m.pushFinalProgress()
	m.scheduler.ScheduleLocalTimer()
}

func (m *Machine) seek(to time.Duration) {
	if to < 0 {
		to = 0
	}

	m.local.Seek(to)

	state := m.State()
	if !state.IsCast() {
		m.localTick()
		return
	}

	if m.remote == nil || (state.Intent() != IntentPlaying && state.Intent() != IntentPaused) {
		return
	}

	m.remote.SeekSelectedItemRemotely(to, m.completion("SeekSelectedItemRemotely", func(bool) {}))
}

func (m *Machine) localTick() {
	dur, ok := m.local.Duration()
	if !ok {
		return
	}
	m.pushProgress(m.local.CurrentTime(), dur)
}

func (m *Machine) castTick() {
	if m.remote == nil {
		return
	}

	gen, ok := m.scheduler.castGeneration()
	if !ok {
		return
	}

	m.remote.RequestCurrentTime(func(pos, remoteDur time.Duration, ok bool) {
		m.post(func() {
			if !ok {
				return
			}
			if cur, live := m.scheduler.castGeneration(); !live || cur != gen {
				return
			}

			// The local asset stays loaded while the receiver plays it.
			dur, known := m.local.Duration()
			if !known || dur <= 0 {
				dur = remoteDur
			}
			m.pushProgress(pos, dur)
		})
	})
}

func (m *Machine) pushFinalProgress() {
	dur, ok := m.local.Duration()
	if !ok {
		return
	}
	m.pushProgress(dur, dur)
}

func (m *Machine) pushProgress(pos, dur time.Duration) {
	frac, ok := Progress(pos, dur)
	if !ok {
		return
	}

	m.mu.Lock()
	m.progress = frac
	m.mu.Unlock()

	m.sink.SetSliderValue(frac)
	m.sink.SetTimeLabels(FormatClock(pos), FormatClock(dur))
}

type nopSink struct{}

func (nopSink) SetSliderValue(float64)      {}
func (nopSink) SetTimeLabels(string, string) {}
func (nopSink) SetAffordance(Affordance)    {}
func (nopSink) SetBackend(Backend)          {}
