package scene

import (
	"errors"
	"sort"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/san-kum/fieldsim/internal/gpu"
	"github.com/san-kum/fieldsim/internal/mesh"
	"github.com/san-kum/fieldsim/internal/shader"
)

// MeshProvider supplies mesh geometry by name.
type MeshProvider interface {
	Mesh(name string) (*mesh.Mesh, error)
	Names() []string
}

// ModelResources are the device buffers of one loaded model.
type ModelResources struct {
	Vertices gpu.Buffer
	Normals  gpu.Buffer
	Colors   gpu.Buffer
	Indices  gpu.Buffer
	Count    int
}

type Camera struct {
	Position mgl32.Vec3
	Target   mgl32.Vec3
	Up       mgl32.Vec3
	FovY     float32 // degrees
	Near     float32
	Far      float32
}

func DefaultCamera() Camera {
	return Camera{
		Position: mgl32.Vec3{0, 0, 80},
		Up:       mgl32.Vec3{0, 1, 0},
		FovY:     30,
		Near:     0.1,
		Far:      200,
	}
}

// ViewProjection returns projection × view for a viewport of the given aspect ratio.
func (c Camera) ViewProjection(aspect float32) mgl32.Mat4 {
	view := mgl32.LookAtV(c.Position, c.Target, c.Up)
	proj := mgl32.Perspective(mgl32.DegToRad(c.FovY), aspect, c.Near, c.Far)
	return proj.Mul4(view)
}

type Light struct {
	Direction mgl32.Vec3
	Ambient   mgl32.Vec4
}

func DefaultLight() Light {
	return Light{Direction: mgl32.Vec3{0, 1, 0}, Ambient: mgl32.Vec4{0.1, 0.1, 0.1, 1}}
}

type BackendOption func(*MeshBackend)

func WithViewport(w, h int) BackendOption {
	return func(b *MeshBackend) { b.width, b.height = w, h }
}

func WithCamera(c Camera) BackendOption {
	return func(b *MeshBackend) { b.camera = c }
}

func WithLight(l Light) BackendOption {
	return func(b *MeshBackend) { b.light = l }
}

func WithBackendLogger(l *zap.Logger) BackendOption {
	return func(b *MeshBackend) { b.logger = l }
}

// MeshBackend draws models from a MeshProvider on a gpu.Device with the
// mesh program: one indexed draw per PositionModel, lit by a directional
// light from a fixed camera.
type MeshBackend struct {
	NopBackend

	dev      gpu.Device
	provider MeshProvider
	prog     gpu.Program
	logger   *zap.Logger

	models  map[ModelID]*ModelResources
	bound   *ModelResources
	boundID ModelID
	alpha   float32

	camera        Camera
	light         Light
	width, height int
	viewProj      mgl32.Mat4
}

func NewMeshBackend(dev gpu.Device, provider MeshProvider, opts ...BackendOption) (*MeshBackend, error) {
	if dev == nil {
		return nil, gpu.ErrNotInitialized
	}
	b := &MeshBackend{
		dev:      dev,
		provider: provider,
		logger:   zap.NewNop(),
		models:   make(map[ModelID]*ModelResources),
		alpha:    1,
		camera:   DefaultCamera(),
		light:    DefaultLight(),
		width:    800,
		height:   600,
	}
	for _, opt := range opts {
		opt(b)
	}
	prog, err := dev.Program(shader.Mesh)
	if err != nil {
		return nil, err
	}
	b.prog = prog
	b.viewProj = b.camera.ViewProjection(b.aspect())
	return b, nil
}

func (b *MeshBackend) aspect() float32 {
	if b.height <= 0 {
		return 1
	}
	return float32(b.width) / float32(b.height)
}

func (b *MeshBackend) BeginFrame() error {
	b.dev.Clear(0, 0, 0, 1)
	b.viewProj = b.camera.ViewProjection(b.aspect())
	return nil
}

func (b *MeshBackend) EndFrame() error {
	b.dev.Flush()
	return nil
}

// LoadModel uploads id once; loading an id already present does nothing.
// An empty id loads every model the provider names.
func (b *MeshBackend) LoadModel(_ any, id ModelID, _ string) error {
	if id == "" {
		var errs []error
		for _, name := range b.provider.Names() {
			errs = append(errs, b.load(ModelID(name)))
		}
		return errors.Join(errs...)
	}
	return b.load(id)
}

func (b *MeshBackend) load(id ModelID) error {
	if _, ok := b.models[id]; ok {
		return nil
	}
	m, err := b.provider.Mesh(string(id))
	if err != nil {
		if errors.Is(err, mesh.ErrUnknownMesh) {
			return &UnknownModelError{ID: id}
		}
		return err
	}

	res := &ModelResources{Count: len(m.Indices)}
	release := func() { b.release(res) }
	if res.Vertices, err = b.dev.NewVertexBuffer(m.Vertices); err != nil {
		return err
	}
	if res.Normals, err = b.dev.NewVertexBuffer(m.Normals); err != nil {
		release()
		return err
	}
	if res.Colors, err = b.dev.NewVertexBuffer(m.Colors); err != nil {
		release()
		return err
	}
	if res.Indices, err = b.dev.NewIndexBuffer(m.Indices); err != nil {
		release()
		return err
	}
	b.models[id] = res
	b.logger.Debug("model loaded", zap.String("model", string(id)),
		zap.Int("vertices", m.VertexCount()), zap.Int("indices", res.Count))
	return nil
}

func (b *MeshBackend) release(res *ModelResources) {
	for _, buf := range []gpu.Buffer{res.Vertices, res.Normals, res.Colors, res.Indices} {
		if buf.ID() != 0 {
			b.dev.DeleteBuffer(buf)
		}
	}
}

// Model looks up a loaded model.
func (b *MeshBackend) Model(id ModelID) (*ModelResources, error) {
	res, ok := b.models[id]
	if !ok {
		return nil, &UnknownModelError{ID: id}
	}
	return res, nil
}

// Models lists loaded model ids in sorted order.
func (b *MeshBackend) Models() []ModelID {
	ids := make([]ModelID, 0, len(b.models))
	for id := range b.models {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (b *MeshBackend) BindModel(_ any, id ModelID, _ string) error {
	res, err := b.Model(id)
	if err != nil {
		return err
	}
	b.bound, b.boundID = res, id
	return nil
}

// Bound returns the id of the bound model, or "" when none is bound.
func (b *MeshBackend) Bound() ModelID { return b.boundID }

func (b *MeshBackend) PurgeModel(_ any, id ModelID, _ string) error {
	res, err := b.Model(id)
	if err != nil {
		return err
	}
	b.release(res)
	delete(b.models, id)
	if b.boundID == id {
		b.bound, b.boundID = nil, ""
	}
	return nil
}

func (b *MeshBackend) PurgeAll(_ any) error {
	for id, res := range b.models {
		b.release(res)
		delete(b.models, id)
	}
	b.bound, b.boundID = nil, ""
	return nil
}

// SetVisible sets the alpha of subsequent draws, clamped to [0, 1].
func (b *MeshBackend) SetVisible(_ any, alpha float32) error {
	b.alpha = mgl32.Clamp(alpha, 0, 1)
	return nil
}

func (b *MeshBackend) PositionModel(_ any, model mgl32.Mat4) error {
	if b.bound == nil {
		return ErrNoModelBound
	}
	res := b.bound
	return b.dev.DrawMesh(gpu.MeshDraw{
		Program: b.prog,
		Attributes: []gpu.Attribute{
			{Name: shader.AttrVertex, Buffer: res.Vertices, Size: 3},
			{Name: shader.AttrNormal, Buffer: res.Normals, Size: 3},
			{Name: shader.AttrColor, Buffer: res.Colors, Size: 4},
		},
		Indices: res.Indices,
		Count:   res.Count,
		Uniforms: gpu.Uniforms{
			shader.UniformMVP:      b.viewProj.Mul4(model),
			shader.UniformModel:    model,
			shader.UniformInvModel: model.Inv(),
			shader.UniformLight:    b.light.Direction,
			shader.UniformAmbient:  b.light.Ambient,
			shader.UniformEye:      b.camera.Position,
			shader.UniformAlpha:    b.alpha,
		},
	})
}

// Close releases every loaded model.
func (b *MeshBackend) Close() error {
	return b.PurgeAll(nil)
}

var _ SceneBackend = (*MeshBackend)(nil)
