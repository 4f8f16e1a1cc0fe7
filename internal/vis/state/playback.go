package state

import "time"

// PlaybackState manages replay timing. Time is measured in episode steps,
// so frame i is shown while CurrentTime is in [i, i+1).
type PlaybackState struct {
	CurrentTime float64 // Current playback position in steps
	MaxTime     float64 // Number of recorded steps
	Speed       float64 // Steps per second
	Playing     bool
	lastUpdate  time.Time
}

// NewPlaybackState creates a paused playback over maxTime steps.
func NewPlaybackState(maxTime float64) *PlaybackState {
	return &PlaybackState{
		MaxTime:    maxTime,
		Speed:      2.0,
		lastUpdate: time.Now(),
	}
}

// TogglePlay toggles playback on/off, rewinding when at the end.
func (p *PlaybackState) TogglePlay() {
	if p.Playing {
		p.Pause()
		return
	}
	if p.CurrentTime >= p.MaxTime {
		p.CurrentTime = 0
	}
	p.Play()
}

// Play starts playback.
func (p *PlaybackState) Play() {
	p.Playing = true
	p.lastUpdate = time.Now()
}

// Pause stops playback.
func (p *PlaybackState) Pause() {
	p.Playing = false
}

// Reset rewinds to the initial observation.
func (p *PlaybackState) Reset() {
	p.CurrentTime = 0
	p.Playing = false
}

// Advance moves playback by the wall time elapsed since the last update.
func (p *PlaybackState) Advance() {
	now := time.Now()
	elapsed := now.Sub(p.lastUpdate)
	p.lastUpdate = now
	p.AdvanceBy(elapsed)
}

// AdvanceBy moves playback by elapsed wall time at the current speed and
// stops at the last frame.
func (p *PlaybackState) AdvanceBy(elapsed time.Duration) {
	if !p.Playing {
		return
	}
	p.CurrentTime += elapsed.Seconds() * p.Speed
	if p.CurrentTime >= p.MaxTime {
		p.CurrentTime = p.MaxTime
		p.Playing = false
	}
}

// SetTime seeks, clamping to [0, MaxTime].
func (p *PlaybackState) SetTime(t float64) {
	if t < 0 {
		t = 0
	}
	if t > p.MaxTime {
		t = p.MaxTime
	}
	p.CurrentTime = t
}

// Frame returns the index of the frame on screen.
func (p *PlaybackState) Frame() int {
	return int(p.CurrentTime)
}

// StepForward pauses and moves to the next frame.
func (p *PlaybackState) StepForward() {
	p.Pause()
	p.SetTime(float64(p.Frame() + 1))
}

// StepBack pauses and moves to the previous frame.
func (p *PlaybackState) StepBack() {
	p.Pause()
	f := p.Frame()
	if float64(f) == p.CurrentTime {
		f--
	}
	p.SetTime(float64(f))
}

// SetSpeed sets the playback speed in steps per second.
func (p *PlaybackState) SetSpeed(speed float64) {
	if speed < 0.25 {
		speed = 0.25
	}
	if speed > 32 {
		speed = 32
	}
	p.Speed = speed
}

// Progress returns current progress as 0-1.
func (p *PlaybackState) Progress() float64 {
	if p.MaxTime <= 0 {
		return 0
	}
	return p.CurrentTime / p.MaxTime
}
