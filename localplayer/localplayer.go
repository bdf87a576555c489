// Package localplayer is the on-device transport: a headless media clock
// bound to a single source.
package localplayer

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go2tv.app/castplay/utils"
)

type stopper interface {
	Stop() bool
}

// Player keeps the local playback position. The zero value is not usable,
// use New.
type Player struct {
	mu        sync.Mutex
	source    string
	loaded    bool
	playing   bool
	offset    time.Duration
	startedAt time.Time
	dur       time.Duration
	hasDur    bool
	finish    stopper
	gen       uint64
	loadGen   uint64

	// OnFinished is called once each time playback reaches the end.
	OnFinished func()
	// FFprobe is the ffprobe binary used to read the duration.
	FFprobe string
	Logger  zerolog.Logger

	now       func() time.Time
	afterFunc func(time.Duration, func()) stopper
	probe     func(ctx context.Context, ffprobe, source string) (time.Duration, error)
}

// New returns an empty player.
func New(ffprobe string) *Player {
	return &Player{
		FFprobe: ffprobe,
		Logger:  zerolog.Nop(),
		now:     time.Now,
		afterFunc: func(d time.Duration, f func()) stopper {
			return time.AfterFunc(d, f)
		},
		probe: utils.DurationForMedia,
	}
}

// Load binds source and resets the clock. The duration is probed in the
// background and stays unknown if probing fails.
func (p *Player) Load(ctx context.Context, source string) {
	p.mu.Lock()
	p.disarmLocked()
	p.source = source
	p.loaded = true
	p.playing = false
	p.offset = 0
	p.hasDur = false
	p.dur = 0
	p.loadGen++
	gen := p.loadGen
	probe, ffprobe := p.probe, p.FFprobe
	p.mu.Unlock()

	go func() {
		d, err := probe(ctx, ffprobe, source)
		if err != nil {
			p.Logger.Warn().Str("Method", "Load").Str("Source", source).Err(err).Msg("duration unknown")
			return
		}

		p.mu.Lock()
		defer p.mu.Unlock()
		if p.loadGen != gen {
			return
		}
		p.setDurationLocked(d)
		p.Logger.Debug().Str("Method", "Load").Dur("Duration", d).Msg("duration probed")
	}()
}

// SetDuration overrides the probed duration.
func (p *Player) SetDuration(d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.setDurationLocked(d)
}

func (p *Player) setDurationLocked(d time.Duration) {
	if d <= 0 {
		return
	}
	p.dur = d
	p.hasDur = true
	p.armLocked()
}

// Source returns the loaded source.
func (p *Player) Source() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.source
}

func (p *Player) Loaded() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loaded
}

func (p *Player) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}

func (p *Player) Play() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.loaded || p.playing {
		return
	}
	p.playing = true
	p.startedAt = p.now()
	p.armLocked()
}

func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.playing {
		return
	}
	p.offset = p.positionLocked()
	p.playing = false
	p.disarmLocked()
}

// Seek moves the clock to to, clamped to the media bounds.
func (p *Player) Seek(to time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.offset = p.clampLocked(to)
	p.startedAt = p.now()
	p.armLocked()
}

func (p *Player) CurrentTime() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.positionLocked()
}

func (p *Player) Duration() (time.Duration, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dur, p.hasDur
}

func (p *Player) positionLocked() time.Duration {
	pos := p.offset
	if p.playing {
		pos += p.now().Sub(p.startedAt)
	}
	return p.clampLocked(pos)
}

func (p *Player) clampLocked(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	if p.hasDur && d > p.dur {
		return p.dur
	}
	return d
}

// armLocked schedules the end-of-media callback for the current segment.
func (p *Player) armLocked() {
	p.disarmLocked()
	if !p.playing || !p.hasDur {
		return
	}

	p.gen++
	gen := p.gen
	remaining := p.dur - p.positionLocked()
	p.finish = p.afterFunc(remaining, func() { p.reachedEnd(gen) })
}

func (p *Player) disarmLocked() {
	if p.finish != nil {
		p.finish.Stop()
		p.finish = nil
	}
}

func (p *Player) reachedEnd(gen uint64) {
	p.mu.Lock()
	if p.gen != gen || !p.playing {
		p.mu.Unlock()
		return
	}
	p.offset = p.dur
	p.playing = false
	p.finish = nil
	onFinished := p.OnFinished
	p.mu.Unlock()

	p.Logger.Debug().Str("Method", "reachedEnd").Msg("end of media")
	if onFinished != nil {
		onFinished()
	}
}
