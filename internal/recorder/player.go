package recorder

import (
	"sync"
	"time"
)

// Player is the playback the recorder reads offsets from.
type Player interface {
	Play()
	Pause()
	Paused() bool
	// CurrentTime is the playhead in seconds.
	CurrentTime() float64
}

// ClockPlayer advances a playhead with wall-clock time while playing. It stands
// in for a video element when the clip is watched outside the terminal.
type ClockPlayer struct {
	mu       sync.Mutex
	now      func() time.Time
	duration float64
	offset   float64
	started  time.Time
	playing  bool
}

// NewClockPlayer creates a paused player at 0. A positive duration caps the playhead.
func NewClockPlayer(duration time.Duration) *ClockPlayer {
	return &ClockPlayer{now: time.Now, duration: duration.Seconds()}
}

func (p *ClockPlayer) Play() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.playing {
		return
	}
	p.started = p.now()
	p.playing = true
}

func (p *ClockPlayer) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.playing {
		return
	}
	p.offset = p.position()
	p.playing = false
}

func (p *ClockPlayer) Paused() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.playing
}

func (p *ClockPlayer) CurrentTime() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.position()
}

// Seek moves the playhead to seconds.
func (p *ClockPlayer) Seek(seconds float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if seconds < 0 {
		seconds = 0
	}
	p.offset = seconds
	p.started = p.now()
}

func (p *ClockPlayer) position() float64 {
	pos := p.offset
	if p.playing {
		pos += p.now().Sub(p.started).Seconds()
	}
	if p.duration > 0 && pos > p.duration {
		pos = p.duration
	}
	return pos
}
