// Package animate drives a simulator frame by frame through a scheduler
// with the run/stop/reset tri-state.
package animate

import (
	"time"

	"go.uber.org/zap"

	"github.com/san-kum/fieldsim/internal/field"
	"github.com/san-kum/fieldsim/internal/scheduler"
)

type State int

const (
	Stopped State = iota
	Animating
	Resetting
)

func (s State) String() string {
	switch s {
	case Animating:
		return "animating"
	case Resetting:
		return "resetting"
	default:
		return "stopped"
	}
}

// Target is what the driver advances.
type Target interface {
	Step() error
	Reset(gen field.Generator)
}

type Option func(*Driver)

func WithLogger(l *zap.Logger) Option {
	return func(d *Driver) { d.logger = l }
}

// WithInterval delays each frame after the first. Zero means every refresh.
func WithInterval(iv time.Duration) Option {
	return func(d *Driver) { d.interval = iv }
}

// WithFrameHook calls fn after every completed frame.
func WithFrameHook(fn func()) Option {
	return func(d *Driver) { d.onFrame = fn }
}

// WithErrorHandler receives step errors. The driver stops on error.
func WithErrorHandler(fn func(error)) Option {
	return func(d *Driver) { d.onError = fn }
}

// Driver is NOT thread-safe; call it from the scheduler's goroutine.
type Driver struct {
	target   Target
	sched    scheduler.Scheduler
	logger   *zap.Logger
	interval time.Duration
	onFrame  func()
	onError  func(error)

	state  State
	cancel func()
	frames int
}

func New(target Target, sched scheduler.Scheduler, opts ...Option) *Driver {
	d := &Driver{target: target, sched: sched, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Driver) State() State { return d.state }

// Frames counts completed frames.
func (d *Driver) Frames() int { return d.frames }

func (d *Driver) Interval() time.Duration { return d.interval }

// SetInterval takes effect when the next frame is scheduled.
func (d *Driver) SetInterval(iv time.Duration) {
	if iv < 0 {
		iv = 0
	}
	d.interval = iv
}

// Start begins animating from the preserved state.
func (d *Driver) Start() {
	if d.state != Stopped {
		return
	}
	d.state = Animating
	d.schedule(0)
}

// Stop suspends the frame chain at the next boundary. Buffers are kept.
func (d *Driver) Stop() {
	d.state = Stopped
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
}

// Toggle switches between running and stopped.
func (d *Driver) Toggle() {
	if d.state == Stopped {
		d.Start()
		return
	}
	d.Stop()
}

// Reset requests reinitialization. While stopped it runs a frame at once
// and resumes animating; otherwise the next scheduled frame handles it.
func (d *Driver) Reset() {
	wasStopped := d.state == Stopped
	d.state = Resetting
	if wasStopped {
		d.frame()
	}
}

func (d *Driver) schedule(delay time.Duration) {
	if d.cancel != nil {
		return
	}
	d.cancel = d.sched.Schedule(delay, func() {
		d.cancel = nil
		d.frame()
	})
}

func (d *Driver) frame() {
	switch d.state {
	case Resetting:
		d.target.Reset(nil)
		d.state = Animating
		d.logger.Debug("reset")
		fallthrough
	case Animating:
		if err := d.target.Step(); err != nil {
			d.logger.Error("step failed", zap.Error(err), zap.Int("frame", d.frames))
			d.Stop()
			if d.onError != nil {
				d.onError(err)
			}
			return
		}
		d.frames++
		if d.onFrame != nil {
			d.onFrame()
		}
		d.schedule(d.interval)
	case Stopped:
	}
}
