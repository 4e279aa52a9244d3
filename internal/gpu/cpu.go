package gpu

import (
	"fmt"

	"github.com/san-kum/fieldsim/internal/field"
)

// Kernel computes one output texel of a program at target cell (x, y).
type Kernel func(inv *Invocation, x, y int) [4]float32

// Sampler reads a bound texture with clamp-to-edge addressing.
type Sampler struct {
	W, H int
	pix  []float32
}

// Texel returns the texel at integer coordinates, clamped to the edge.
func (s *Sampler) Texel(x, y int) [4]float32 {
	if s == nil || s.W == 0 || s.H == 0 {
		return [4]float32{}
	}
	x = clampInt(x, 0, s.W-1)
	y = clampInt(y, 0, s.H-1)
	i := (y*s.W + x) * field.Channels
	return [4]float32{s.pix[i], s.pix[i+1], s.pix[i+2], s.pix[i+3]}
}

// Sample performs a nearest lookup at normalized coordinates (u, v).
func (s *Sampler) Sample(u, v float32) [4]float32 {
	if s == nil {
		return [4]float32{}
	}
	return s.Texel(floorInt(u*float32(s.W)), floorInt(v*float32(s.H)))
}

// Invocation is the state a Kernel sees during one pass.
type Invocation struct {
	W, H     int
	Uniforms Uniforms
	samplers map[string]*Sampler
}

// Sampler returns the named binding. Unbound names read as zero.
func (inv *Invocation) Sampler(name string) *Sampler {
	return inv.samplers[name]
}

// UV returns the normalized texel-centre coordinate of (x, y).
func (inv *Invocation) UV(x, y int) (float32, float32) {
	return (float32(x) + 0.5) / float32(inv.W), (float32(y) + 0.5) / float32(inv.H)
}

// MeshRecord captures one DrawMesh call on a CPUDevice.
type MeshRecord struct {
	Program  string
	Count    int
	Uniforms Uniforms
}

// CPUStats counts work executed by a CPUDevice.
type CPUStats struct {
	Passes        map[string]int
	MeshDraws     int
	TextureAllocs int
	BufferAllocs  int
}

type CPUOption func(*CPUDevice)

// WithCapabilities overrides the reported capabilities, e.g. to emulate a
// device without float textures.
func WithCapabilities(c Capabilities) CPUOption {
	return func(d *CPUDevice) { d.caps = c }
}

// WithScreenSize sets the default framebuffer size. Without it the screen
// adopts the size of the first texture a screen pass samples.
func WithScreenSize(w, h int) CPUOption {
	return func(d *CPUDevice) { d.screen = field.New(w, h) }
}

// WithBrokenProgram makes Program fail for name, emulating a compile error.
func WithBrokenProgram(name string) CPUOption {
	return func(d *CPUDevice) { d.broken[name] = true }
}

// CPUDevice executes programs as Go kernels.
type CPUDevice struct {
	kernels  map[string]Kernel
	broken   map[string]bool
	caps     Capabilities
	textures map[uint32]*field.Field
	buffers  map[uint32]Buffer
	programs map[string]Program
	screen   *field.Field
	meshLog  []MeshRecord
	stats    CPUStats
	nextID   uint32
	released bool
}

func NewCPUDevice(kernels map[string]Kernel, opts ...CPUOption) *CPUDevice {
	d := &CPUDevice{
		kernels:  kernels,
		broken:   make(map[string]bool),
		caps:     Capabilities{FloatTextures: true, MaxTextureSize: 8192},
		textures: make(map[uint32]*field.Field),
		buffers:  make(map[uint32]Buffer),
		programs: make(map[string]Program),
		stats:    CPUStats{Passes: make(map[string]int)},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *CPUDevice) Name() string               { return "cpu" }
func (d *CPUDevice) Capabilities() Capabilities { return d.caps }

func (d *CPUDevice) id() uint32 {
	d.nextID++
	return d.nextID
}

func (d *CPUDevice) Program(name string) (Program, error) {
	if d.released {
		return Program{}, ErrReleased
	}
	if p, ok := d.programs[name]; ok {
		return p, nil
	}
	if d.broken[name] {
		return Program{}, &ResourceError{Program: name, Err: fmt.Errorf("compile failed")}
	}
	if _, ok := d.kernels[name]; !ok {
		return Program{}, &ResourceError{Program: name, Err: fmt.Errorf("no kernel registered")}
	}
	p := Program{id: d.id(), Name: name}
	d.programs[name] = p
	return p, nil
}

func (d *CPUDevice) NewTexture(w, h int, pix []float32) (Texture, error) {
	if d.released {
		return Texture{}, ErrReleased
	}
	if !d.caps.FloatTextures {
		return Texture{}, &CapabilityError{Capability: "float textures"}
	}
	if w <= 0 || h <= 0 || w > d.caps.MaxTextureSize || h > d.caps.MaxTextureSize {
		return Texture{}, fmt.Errorf("gpu: invalid texture size %dx%d", w, h)
	}
	f := field.New(w, h)
	if pix != nil {
		if len(pix) != len(f.Pix) {
			return Texture{}, fmt.Errorf("%w: texture %dx%d", field.ErrSizeMismatch, w, h)
		}
		copy(f.Pix, pix)
	}
	t := Texture{id: d.id(), W: w, H: h}
	d.textures[t.id] = f
	d.stats.TextureAllocs++
	return t, nil
}

func (d *CPUDevice) texture(t Texture) (*field.Field, error) {
	if d.released {
		return nil, ErrReleased
	}
	if t.IsScreen() {
		if d.screen == nil {
			return nil, ErrNotInitialized
		}
		return d.screen, nil
	}
	f, ok := d.textures[t.id]
	if !ok {
		return nil, fmt.Errorf("%w: texture %d", ErrUnknownResource, t.id)
	}
	return f, nil
}

func (d *CPUDevice) WriteTexture(t Texture, pix []float32) error {
	f, err := d.texture(t)
	if err != nil {
		return err
	}
	if len(pix) != len(f.Pix) {
		return fmt.Errorf("%w: texture %dx%d", field.ErrSizeMismatch, f.W, f.H)
	}
	copy(f.Pix, pix)
	return nil
}

func (d *CPUDevice) ReadTexture(t Texture) ([]float32, error) {
	f, err := d.texture(t)
	if err != nil {
		return nil, err
	}
	out := make([]float32, len(f.Pix))
	copy(out, f.Pix)
	return out, nil
}

func (d *CPUDevice) DeleteTexture(t Texture) {
	delete(d.textures, t.id)
}

func (d *CPUDevice) NewVertexBuffer(data []float32) (Buffer, error) {
	if d.released {
		return Buffer{}, ErrReleased
	}
	b := Buffer{id: d.id(), Kind: VertexBuffer, Len: len(data)}
	d.buffers[b.id] = b
	d.stats.BufferAllocs++
	return b, nil
}

func (d *CPUDevice) NewIndexBuffer(data []uint32) (Buffer, error) {
	if d.released {
		return Buffer{}, ErrReleased
	}
	b := Buffer{id: d.id(), Kind: IndexBuffer, Len: len(data)}
	d.buffers[b.id] = b
	d.stats.BufferAllocs++
	return b, nil
}

func (d *CPUDevice) DeleteBuffer(b Buffer) {
	delete(d.buffers, b.id)
}

func (d *CPUDevice) Draw(p Pass) error {
	if d.released {
		return ErrReleased
	}
	kernel, ok := d.kernels[p.Program.Name]
	if !ok || d.programs[p.Program.Name].id != p.Program.id {
		return fmt.Errorf("%w: program %q", ErrUnknownResource, p.Program.Name)
	}
	if kernel == nil {
		return fmt.Errorf("gpu: program %q has no full-screen kernel", p.Program.Name)
	}
	if err := CheckFeedback(p); err != nil {
		return err
	}

	inv := &Invocation{Uniforms: p.Uniforms, samplers: make(map[string]*Sampler, len(p.Samplers))}
	for _, b := range p.Samplers {
		src, err := d.texture(b.Texture)
		if err != nil {
			return err
		}
		inv.samplers[b.Name] = &Sampler{W: src.W, H: src.H, pix: src.Pix}
	}

	if p.Target.IsScreen() && d.screen == nil {
		for _, s := range inv.samplers {
			d.screen = field.New(s.W, s.H)
			break
		}
	}
	dst, err := d.texture(p.Target)
	if err != nil {
		return err
	}
	inv.W, inv.H = dst.W, dst.H

	ParallelFor(dst.H, 8, func(start, end int) {
		for y := start; y < end; y++ {
			row := y * dst.W * field.Channels
			for x := 0; x < dst.W; x++ {
				v := kernel(inv, x, y)
				copy(dst.Pix[row+x*field.Channels:], v[:])
			}
		}
	})
	d.stats.Passes[p.Program.Name]++
	return nil
}

func (d *CPUDevice) DrawMesh(m MeshDraw) error {
	if d.released {
		return ErrReleased
	}
	if d.programs[m.Program.Name].id != m.Program.id || m.Program.id == 0 {
		return fmt.Errorf("%w: program %q", ErrUnknownResource, m.Program.Name)
	}
	idx, ok := d.buffers[m.Indices.id]
	if !ok || idx.Kind != IndexBuffer {
		return fmt.Errorf("%w: index buffer %d", ErrUnknownResource, m.Indices.id)
	}
	if m.Count > idx.Len {
		return fmt.Errorf("gpu: draw count %d exceeds index buffer length %d", m.Count, idx.Len)
	}
	for _, a := range m.Attributes {
		if _, ok := d.buffers[a.Buffer.id]; !ok {
			return fmt.Errorf("%w: attribute %q", ErrUnknownResource, a.Name)
		}
	}
	d.meshLog = append(d.meshLog, MeshRecord{Program: m.Program.Name, Count: m.Count, Uniforms: m.Uniforms.Clone()})
	d.stats.MeshDraws++
	return nil
}

// Clear fills the screen when one exists.
func (d *CPUDevice) Clear(r, g, b, a float32) {
	if d.screen == nil {
		return
	}
	for i := 0; i < len(d.screen.Pix); i += field.Channels {
		d.screen.Pix[i], d.screen.Pix[i+1], d.screen.Pix[i+2], d.screen.Pix[i+3] = r, g, b, a
	}
}

func (d *CPUDevice) Flush() {}

func (d *CPUDevice) Release() {
	d.textures = make(map[uint32]*field.Field)
	d.buffers = make(map[uint32]Buffer)
	d.programs = make(map[string]Program)
	d.screen = nil
	d.released = true
}

// Screen returns a copy of the default framebuffer, or nil before the first screen pass.
func (d *CPUDevice) Screen() *field.Field {
	if d.screen == nil {
		return nil
	}
	return d.screen.Clone()
}

// TakeMeshDraws returns and clears the mesh draw log.
func (d *CPUDevice) TakeMeshDraws() []MeshRecord {
	out := d.meshLog
	d.meshLog = nil
	return out
}

func (d *CPUDevice) Stats() CPUStats {
	s := d.stats
	s.Passes = make(map[string]int, len(d.stats.Passes))
	for k, v := range d.stats.Passes {
		s.Passes[k] = v
	}
	return s
}

// LiveTextures reports the number of textures currently allocated.
func (d *CPUDevice) LiveTextures() int { return len(d.textures) }

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func floorInt(v float32) int {
	i := int(v)
	if float32(i) > v {
		i--
	}
	return i
}
