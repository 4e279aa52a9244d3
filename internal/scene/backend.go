package scene

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/san-kum/fieldsim/internal/queue"
)

var ErrNoModelBound = errors.New("scene: no model bound")

// UnknownModelError reports a model id missing from the registry or the
// mesh provider.
type UnknownModelError struct {
	ID ModelID
}

func (e *UnknownModelError) Error() string {
	return fmt.Sprintf("scene: unknown model %q", string(e.ID))
}

// Is matches another *UnknownModelError with the same ID, or any ID when
// the target's is empty.
func (e *UnknownModelError) Is(target error) bool {
	t, ok := target.(*UnknownModelError)
	return ok && (t.ID == "" || t.ID == e.ID)
}

// SceneBackend executes scene messages. Update calls BeginFrame, one handler
// per drained message, then EndFrame, all on the caller's goroutine.
type SceneBackend interface {
	BeginFrame() error
	LoadModel(sender any, id ModelID, instance string) error
	BindModel(sender any, id ModelID, instance string) error
	PurgeModel(sender any, id ModelID, instance string) error
	PurgeAll(sender any) error
	SetVisible(sender any, alpha float32) error
	SetPosture(sender any, posture mgl32.Quat) error
	PositionModel(sender any, transform mgl32.Mat4) error
	SetBones(sender any, bones []queue.Bone) error
	EndFrame() error
}

// NopBackend accepts every message and does nothing. Embed it to implement
// only part of SceneBackend.
type NopBackend struct{}

func (NopBackend) BeginFrame() error                     { return nil }
func (NopBackend) LoadModel(any, ModelID, string) error  { return nil }
func (NopBackend) BindModel(any, ModelID, string) error  { return nil }
func (NopBackend) PurgeModel(any, ModelID, string) error { return nil }
func (NopBackend) PurgeAll(any) error                    { return nil }
func (NopBackend) SetVisible(any, float32) error         { return nil }
func (NopBackend) SetPosture(any, mgl32.Quat) error      { return nil }
func (NopBackend) PositionModel(any, mgl32.Mat4) error   { return nil }
func (NopBackend) SetBones(any, []queue.Bone) error      { return nil }
func (NopBackend) EndFrame() error                       { return nil }

var _ SceneBackend = NopBackend{}
