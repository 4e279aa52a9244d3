// Package demo drives the scene renderer with the quaternion
// interpolation demo: two spheres spinning about a tilted axis at different
// rates, a trail of spheres interpolated between them and a torus at a
// user-chosen point along the arc.
package demo

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/san-kum/fieldsim/internal/scene"
)

const (
	// Period is the number of frames before the counter wraps.
	Period = 6 * 360

	TrailStep = 0.05
	// TrailLen is the number of trail poses: t = 0, 0.05, ... 0.95.
	TrailLen = 20
)

const (
	SphereModel scene.ModelID = "sphere"
	TorusModel  scene.ModelID = "torus"
)

// Sink receives the demo's scene messages. *scene.Renderer satisfies it.
type Sink interface {
	ModelLoad(sender any, id scene.ModelID, instance string)
	ModelBind(sender any, id scene.ModelID, instance string)
	ModelPosition(sender any, transform mgl32.Mat4)
}

type Slerp struct {
	// AxisDegrees tilts the rotation axis (cos θ, sin θ, 1).
	AxisDegrees float64
	// T places the torus along the arc from A to B, in [0, 1].
	T float32
	// Offset translates every pose in model space.
	Offset mgl32.Vec3

	count int
}

func NewSlerp() *Slerp {
	return &Slerp{T: 0.5, Offset: mgl32.Vec3{0, 0, -20}}
}

func (s *Slerp) Count() int { return s.count }

// Start requests every model the demo draws.
func (s *Slerp) Start(sink Sink) {
	sink.ModelLoad(s, "", "")
}

// Frame advances the counter and enqueues one frame of the demo.
func (s *Slerp) Frame(sink Sink) {
	s.count = (s.count + 1) % Period
	spheres, torus := s.Poses()

	sink.ModelBind(s, SphereModel, "")
	for _, m := range spheres {
		sink.ModelPosition(s, m)
	}
	sink.ModelBind(s, TorusModel, "")
	sink.ModelPosition(s, torus)
}

// Rotations returns the two endpoint rotations for the current frame.
func (s *Slerp) Rotations() (a, b mgl32.Quat) {
	th := s.AxisDegrees * math.Pi / 180
	axis := mgl32.Vec3{float32(math.Cos(th)), float32(math.Sin(th)), 1}.Normalize()
	rad := float32(float64(s.count) * math.Pi / 360)
	return mgl32.QuatRotate(3*rad, axis), mgl32.QuatRotate(2*rad, axis)
}

// Poses returns the sphere model matrices (A, B, then the trail) and the
// torus model matrix.
func (s *Slerp) Poses() (spheres []mgl32.Mat4, torus mgl32.Mat4) {
	a, b := s.Rotations()
	spheres = make([]mgl32.Mat4, 0, 2+TrailLen)
	spheres = append(spheres, s.pose(a), s.pose(b))
	for i := 0; i < TrailLen; i++ {
		spheres = append(spheres, s.pose(mgl32.QuatSlerp(a, b, float32(i)*TrailStep)))
	}
	t := mgl32.Clamp(s.T, 0, 1)
	return spheres, s.pose(mgl32.QuatSlerp(a, b, t))
}

func (s *Slerp) pose(q mgl32.Quat) mgl32.Mat4 {
	return q.Mat4().Mul4(mgl32.Translate3D(s.Offset.X(), s.Offset.Y(), s.Offset.Z()))
}
