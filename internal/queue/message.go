// Package queue holds the scene mutation messages and the FIFO they travel
// through between producers and the renderer's per-frame drain.
//
// Message is a closed sum type: only the variants in this package satisfy
// it, so a type switch over them in the consumer is exhaustive.
package queue

import "github.com/go-gl/mathgl/mgl32"

type ModelID string

// Bone is one joint transform of a skinned model.
type Bone struct {
	Name      string
	Transform mgl32.Mat4
}

type Message interface {
	Sender() any
	Kind() string
	sealed()
}

type LoadModel struct {
	From     any
	ID       ModelID
	Instance string
}

type BindModel struct {
	From     any
	ID       ModelID
	Instance string
}

type PurgeModel struct {
	From     any
	ID       ModelID
	Instance string
}

type PurgeAll struct {
	From any
}

type SetVisible struct {
	From  any
	Alpha float32
}

type SetPosture struct {
	From    any
	Posture mgl32.Quat
}

type SetPosition struct {
	From      any
	Transform mgl32.Mat4
}

type SetBones struct {
	From  any
	Bones []Bone
}

func (m LoadModel) Sender() any   { return m.From }
func (m BindModel) Sender() any   { return m.From }
func (m PurgeModel) Sender() any  { return m.From }
func (m PurgeAll) Sender() any    { return m.From }
func (m SetVisible) Sender() any  { return m.From }
func (m SetPosture) Sender() any  { return m.From }
func (m SetPosition) Sender() any { return m.From }
func (m SetBones) Sender() any    { return m.From }

func (LoadModel) Kind() string   { return "model_load" }
func (BindModel) Kind() string   { return "model_bind" }
func (PurgeModel) Kind() string  { return "model_purge" }
func (PurgeAll) Kind() string    { return "model_purge_all" }
func (SetVisible) Kind() string  { return "model_visible" }
func (SetPosture) Kind() string  { return "model_posture" }
func (SetPosition) Kind() string { return "model_position" }
func (SetBones) Kind() string    { return "model_bone" }

func (LoadModel) sealed()   {}
func (BindModel) sealed()   {}
func (PurgeModel) sealed()  {}
func (PurgeAll) sealed()    {}
func (SetVisible) sealed()  {}
func (SetPosture) sealed()  {}
func (SetPosition) sealed() {}
func (SetBones) sealed()    {}

// Kinds lists every message kind.
func Kinds() []string {
	return []string{
		LoadModel{}.Kind(), BindModel{}.Kind(), PurgeModel{}.Kind(), PurgeAll{}.Kind(),
		SetVisible{}.Kind(), SetPosture{}.Kind(), SetPosition{}.Kind(), SetBones{}.Kind(),
	}
}
