package metrics

import (
	"sync"
	"time"
)

// DefaultFPSWindow is how often FPSMeter recomputes its rate.
const DefaultFPSWindow = 500 * time.Millisecond

// FPSMeter counts frames and recomputes frames per second once per window.
type FPSMeter struct {
	mu     sync.Mutex
	window time.Duration
	now    func() time.Time
	start  time.Time
	frames int
	fps    float64
}

func NewFPSMeter(window time.Duration, now func() time.Time) *FPSMeter {
	if window <= 0 {
		window = DefaultFPSWindow
	}
	if now == nil {
		now = time.Now
	}
	return &FPSMeter{window: window, now: now, start: now()}
}

// Tick counts one frame and returns the current rate.
func (m *FPSMeter) Tick() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.frames++
	t := m.now()
	if elapsed := t.Sub(m.start); elapsed >= m.window {
		m.fps = float64(m.frames) / elapsed.Seconds()
		m.frames = 0
		m.start = t
	}
	return m.fps
}

func (m *FPSMeter) FPS() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fps
}
