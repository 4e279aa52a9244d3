// Package scene is the deferred scene renderer. Producers call the Model*
// methods at any time; each call enqueues one message and returns. Once per
// frame Update drains the queue in FIFO order and dispatches every message
// to a SceneBackend between BeginFrame and EndFrame.
package scene

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/san-kum/fieldsim/internal/gpu"
	"github.com/san-kum/fieldsim/internal/queue"
)

type ModelID = queue.ModelID

type Option func(*Renderer)

func WithLogger(l *zap.Logger) Option {
	return func(r *Renderer) { r.logger = l }
}

// WithClock replaces time.Now for frame timing.
func WithClock(now func() time.Time) Option {
	return func(r *Renderer) { r.now = now }
}

// WithDispatchHook is called for every message Update dispatches, after the
// backend handled it.
func WithDispatchHook(fn func(queue.Message)) Option {
	return func(r *Renderer) { r.hook = fn }
}

// Renderer must be built with NewRenderer. A zero Renderer accepts Model*
// calls but Update fails with gpu.ErrNotInitialized.
type Renderer struct {
	backend SceneBackend
	q       *queue.Queue
	qOnce   sync.Once
	logger  *zap.Logger
	now     func() time.Time
	hook    func(queue.Message)

	cur, prev time.Time
	frames    int
}

func NewRenderer(backend SceneBackend, opts ...Option) (*Renderer, error) {
	if backend == nil {
		return nil, fmt.Errorf("scene: nil backend: %w", gpu.ErrNotInitialized)
	}
	r := &Renderer{
		backend: backend,
		logger:  zap.NewNop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.cur = r.now()
	r.prev = r.cur
	return r, nil
}

func (r *Renderer) messages() *queue.Queue {
	r.qOnce.Do(func() {
		if r.q == nil {
			r.q = queue.New()
		}
	})
	return r.q
}

// ModelLoad asks the backend to load id. An empty id loads every model the
// backend knows.
func (r *Renderer) ModelLoad(sender any, id ModelID, instance string) {
	r.messages().Enqueue(queue.LoadModel{From: sender, ID: id, Instance: instance})
}

func (r *Renderer) ModelBind(sender any, id ModelID, instance string) {
	r.messages().Enqueue(queue.BindModel{From: sender, ID: id, Instance: instance})
}

func (r *Renderer) ModelPurge(sender any, id ModelID, instance string) {
	r.messages().Enqueue(queue.PurgeModel{From: sender, ID: id, Instance: instance})
}

func (r *Renderer) ModelPurgeAll(sender any) {
	r.messages().Enqueue(queue.PurgeAll{From: sender})
}

func (r *Renderer) ModelVisible(sender any, alpha float32) {
	r.messages().Enqueue(queue.SetVisible{From: sender, Alpha: alpha})
}

func (r *Renderer) ModelPosture(sender any, posture mgl32.Quat) {
	r.messages().Enqueue(queue.SetPosture{From: sender, Posture: posture})
}

// ModelPosition draws the bound model with the given model matrix.
func (r *Renderer) ModelPosition(sender any, transform mgl32.Mat4) {
	r.messages().Enqueue(queue.SetPosition{From: sender, Transform: transform})
}

func (r *Renderer) ModelBone(sender any, bones []queue.Bone) {
	r.messages().Enqueue(queue.SetBones{From: sender, Bones: bones})
}

// Update renders one frame. Every queued message is consumed exactly once,
// including messages enqueued while draining. Backend errors do not stop the
// drain; they are joined and returned.
func (r *Renderer) Update() error {
	if r.backend == nil {
		return fmt.Errorf("scene: update: %w", gpu.ErrNotInitialized)
	}
	var errs []error
	if err := r.backend.BeginFrame(); err != nil {
		errs = append(errs, fmt.Errorf("begin frame: %w", err))
	}

	n := r.messages().Drain(func(m queue.Message) {
		if err := r.dispatch(m); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", m.Kind(), err))
		}
		if r.hook != nil {
			r.hook(m)
		}
	})

	if err := r.backend.EndFrame(); err != nil {
		errs = append(errs, fmt.Errorf("end frame: %w", err))
	}

	r.prev = r.cur
	r.cur = r.now()
	if r.cur.Before(r.prev) {
		r.cur = r.prev
	}
	r.frames++

	err := errors.Join(errs...)
	if err != nil {
		r.logger.Warn("frame had errors", zap.Int("frame", r.frames), zap.Int("messages", n), zap.Error(err))
	} else {
		r.logger.Debug("frame", zap.Int("frame", r.frames), zap.Int("messages", n))
	}
	return err
}

func (r *Renderer) dispatch(m queue.Message) error {
	switch m := m.(type) {
	case queue.LoadModel:
		return r.backend.LoadModel(m.From, m.ID, m.Instance)
	case queue.BindModel:
		return r.backend.BindModel(m.From, m.ID, m.Instance)
	case queue.PurgeModel:
		return r.backend.PurgeModel(m.From, m.ID, m.Instance)
	case queue.PurgeAll:
		return r.backend.PurgeAll(m.From)
	case queue.SetVisible:
		return r.backend.SetVisible(m.From, m.Alpha)
	case queue.SetPosture:
		return r.backend.SetPosture(m.From, m.Posture)
	case queue.SetPosition:
		return r.backend.PositionModel(m.From, m.Transform)
	case queue.SetBones:
		return r.backend.SetBones(m.From, m.Bones)
	default:
		panic(fmt.Sprintf("scene: unhandled message %T", m))
	}
}

// DeltaTime is the time between the last two Update calls, zero before the
// first.
func (r *Renderer) DeltaTime() time.Duration { return r.cur.Sub(r.prev) }

// Pending reports the number of queued messages.
func (r *Renderer) Pending() int { return r.messages().Len() }

func (r *Renderer) Frames() int { return r.frames }
