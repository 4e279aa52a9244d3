package gpu

import "github.com/go-gl/mathgl/mgl32"

// Texture is a handle to a device-resident RGBA float32 texture.
type Texture struct {
	id   uint32
	W, H int
}

// Screen is the default framebuffer.
var Screen = Texture{}

func (t Texture) ID() uint32     { return t.id }
func (t Texture) IsScreen() bool { return t.id == 0 }

// NewTextureHandle is for Device implementations outside this package.
func NewTextureHandle(id uint32, w, h int) Texture {
	return Texture{id: id, W: w, H: h}
}

type BufferKind int

const (
	VertexBuffer BufferKind = iota
	IndexBuffer
)

type Buffer struct {
	id   uint32
	Kind BufferKind
	Len  int
}

func (b Buffer) ID() uint32 { return b.id }

func NewBufferHandle(id uint32, kind BufferKind, n int) Buffer {
	return Buffer{id: id, Kind: kind, Len: n}
}

type Program struct {
	id   uint32
	Name string
}

func (p Program) ID() uint32 { return p.id }

func NewProgramHandle(id uint32, name string) Program {
	return Program{id: id, Name: name}
}

// Binding attaches a texture to a named sampler.
type Binding struct {
	Name    string
	Texture Texture
}

// Uniforms maps uniform names to float32, mgl32.Vec2/3/4 or mgl32.Mat2/4 values.
type Uniforms map[string]any

func (u Uniforms) Float(name string) float32 {
	v, _ := u[name].(float32)
	return v
}

func (u Uniforms) Mat2(name string) mgl32.Mat2 {
	if v, ok := u[name].(mgl32.Mat2); ok {
		return v
	}
	return mgl32.Ident2()
}

func (u Uniforms) Mat4(name string) mgl32.Mat4 {
	if v, ok := u[name].(mgl32.Mat4); ok {
		return v
	}
	return mgl32.Ident4()
}

func (u Uniforms) Vec3(name string) mgl32.Vec3 {
	v, _ := u[name].(mgl32.Vec3)
	return v
}

func (u Uniforms) Vec4(name string) mgl32.Vec4 {
	v, _ := u[name].(mgl32.Vec4)
	return v
}

// Clone returns a shallow copy.
func (u Uniforms) Clone() Uniforms {
	c := make(Uniforms, len(u))
	for k, v := range u {
		c[k] = v
	}
	return c
}

// Pass is one full-screen program invocation.
type Pass struct {
	Program  Program
	Samplers []Binding
	Uniforms Uniforms
	Target   Texture
}

// Attribute binds a vertex buffer to a named attribute with Size components per vertex.
type Attribute struct {
	Name   string
	Buffer Buffer
	Size   int
}

// MeshDraw is one indexed triangle draw into the screen.
type MeshDraw struct {
	Program    Program
	Attributes []Attribute
	Indices    Buffer
	Count      int
	Uniforms   Uniforms
}

type Capabilities struct {
	FloatTextures  bool
	MaxTextureSize int
}

type Device interface {
	Name() string
	Capabilities() Capabilities

	// Program returns the compiled program for a logical name. Failure is a *ResourceError.
	Program(name string) (Program, error)

	NewTexture(w, h int, pix []float32) (Texture, error)
	WriteTexture(t Texture, pix []float32) error
	ReadTexture(t Texture) ([]float32, error)
	DeleteTexture(t Texture)

	NewVertexBuffer(data []float32) (Buffer, error)
	NewIndexBuffer(data []uint32) (Buffer, error)
	DeleteBuffer(b Buffer)

	Draw(p Pass) error
	DrawMesh(m MeshDraw) error

	Clear(r, g, b, a float32)
	Flush()
	Release()
}

// CheckFeedback returns ErrFeedbackLoop when the pass samples its target.
func CheckFeedback(p Pass) error {
	if p.Target.IsScreen() {
		return nil
	}
	for _, b := range p.Samplers {
		if b.Texture.id == p.Target.id {
			return ErrFeedbackLoop
		}
	}
	return nil
}
