// Package glgpu implements gpu.Device on OpenGL 4.3 core.
//
// Every texture is RGBA32F with NEAREST filtering and CLAMP_TO_EDGE
// wrapping, attached to its own framebuffer object so any texture can be a
// render target. Full-screen passes draw a four-vertex triangle strip.
//
// A Device must be created and used on the goroutine that owns the current
// GL context.
package glgpu

import (
	"fmt"
	"strings"
	"unsafe"

	"github.com/go-gl/gl/v4.3-core/gl"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/san-kum/fieldsim/internal/gpu"
	"github.com/san-kum/fieldsim/internal/shader"
)

var quad = []float32{
	-1, -1, 0, 0,
	1, -1, 1, 0,
	-1, 1, 0, 1,
	1, 1, 1, 1,
}

type texture struct {
	handle uint32
	fbo    uint32
	w, h   int
}

type Option func(*Device)

func WithLogger(l *zap.Logger) Option {
	return func(d *Device) { d.logger = l }
}

type Device struct {
	logger   *zap.Logger
	caps     gpu.Capabilities
	textures map[uint32]texture
	buffers  map[uint32]gpu.Buffer
	programs map[string]gpu.Program
	quadVAO  uint32
	quadVBO  uint32
	meshVAO  uint32
	screenW  int
	screenH  int
	released bool
}

// New initializes the GL bindings against the current context.
func New(screenW, screenH int, opts ...Option) (*Device, error) {
	d := &Device{
		logger:   zap.NewNop(),
		textures: make(map[uint32]texture),
		buffers:  make(map[uint32]gpu.Buffer),
		programs: make(map[string]gpu.Program),
		screenW:  screenW,
		screenH:  screenH,
	}
	for _, opt := range opts {
		opt(d)
	}

	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("failed to init opengl: %w", err)
	}

	var maxSize int32
	gl.GetIntegerv(gl.MAX_TEXTURE_SIZE, &maxSize)
	d.caps = gpu.Capabilities{FloatTextures: probeFloatTarget(), MaxTextureSize: int(maxSize)}

	gl.GenVertexArrays(1, &d.quadVAO)
	gl.BindVertexArray(d.quadVAO)
	gl.GenBuffers(1, &d.quadVBO)
	gl.BindBuffer(gl.ARRAY_BUFFER, d.quadVBO)
	gl.BufferData(gl.ARRAY_BUFFER, len(quad)*4, gl.Ptr(quad), gl.STATIC_DRAW)
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointerWithOffset(0, 2, gl.FLOAT, false, 16, 0)
	gl.EnableVertexAttribArray(1)
	gl.VertexAttribPointerWithOffset(1, 2, gl.FLOAT, false, 16, 8)
	gl.BindVertexArray(0)

	gl.GenVertexArrays(1, &d.meshVAO)

	d.logger.Info("opengl device initialized",
		zap.String("version", gl.GoStr(gl.GetString(gl.VERSION))),
		zap.String("renderer", gl.GoStr(gl.GetString(gl.RENDERER))),
		zap.Int32("max_texture_size", maxSize),
		zap.Bool("float_targets", d.caps.FloatTextures),
	)
	return d, nil
}

// probeFloatTarget checks that an RGBA32F texture is a complete color attachment.
func probeFloatTarget() bool {
	var tex, fbo uint32
	gl.GenTextures(1, &tex)
	gl.BindTexture(gl.TEXTURE_2D, tex)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA32F, 1, 1, 0, gl.RGBA, gl.FLOAT, nil)
	gl.GenFramebuffers(1, &fbo)
	gl.BindFramebuffer(gl.FRAMEBUFFER, fbo)
	gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, tex, 0)
	ok := gl.CheckFramebufferStatus(gl.FRAMEBUFFER) == gl.FRAMEBUFFER_COMPLETE
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	gl.DeleteFramebuffers(1, &fbo)
	gl.DeleteTextures(1, &tex)
	return ok
}

func (d *Device) Name() string                   { return "opengl" }
func (d *Device) Capabilities() gpu.Capabilities { return d.caps }

// SetScreenSize updates the default framebuffer viewport after a resize.
func (d *Device) SetScreenSize(w, h int) {
	d.screenW, d.screenH = w, h
}

func (d *Device) Program(name string) (gpu.Program, error) {
	if d.released {
		return gpu.Program{}, gpu.ErrReleased
	}
	if p, ok := d.programs[name]; ok {
		return p, nil
	}
	vs, fs, err := shader.GLSL(name)
	if err != nil {
		return gpu.Program{}, &gpu.ResourceError{Program: name, Err: err}
	}
	attrs := []string{shader.AttrPosition, shader.AttrTexCoord}
	if name == shader.Mesh {
		attrs = []string{shader.AttrVertex, shader.AttrNormal, shader.AttrColor}
	}
	id, err := buildProgram(vs, fs, attrs)
	if err != nil {
		return gpu.Program{}, &gpu.ResourceError{Program: name, Err: err}
	}
	p := gpu.NewProgramHandle(id, name)
	d.programs[name] = p
	d.logger.Debug("program linked", zap.String("program", name), zap.Uint32("id", id))
	return p, nil
}

func compileShader(source string, kind uint32) (uint32, error) {
	sh := gl.CreateShader(kind)
	csources, free := gl.Strs(source + "\x00")
	gl.ShaderSource(sh, 1, csources, nil)
	free()
	gl.CompileShader(sh)

	var status int32
	gl.GetShaderiv(sh, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetShaderiv(sh, gl.INFO_LOG_LENGTH, &logLength)
		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetShaderInfoLog(sh, logLength, nil, gl.Str(log))
		gl.DeleteShader(sh)
		return 0, fmt.Errorf("failed to compile shader: %v", strings.TrimRight(log, "\x00"))
	}
	return sh, nil
}

func buildProgram(vs, fs string, attrs []string) (uint32, error) {
	v, err := compileShader(vs, gl.VERTEX_SHADER)
	if err != nil {
		return 0, err
	}
	defer gl.DeleteShader(v)
	f, err := compileShader(fs, gl.FRAGMENT_SHADER)
	if err != nil {
		return 0, err
	}
	defer gl.DeleteShader(f)

	program := gl.CreateProgram()
	gl.AttachShader(program, v)
	gl.AttachShader(program, f)
	for i, a := range attrs {
		gl.BindAttribLocation(program, uint32(i), gl.Str(a+"\x00"))
	}
	gl.LinkProgram(program)

	var status int32
	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetProgramiv(program, gl.INFO_LOG_LENGTH, &logLength)
		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetProgramInfoLog(program, logLength, nil, gl.Str(log))
		gl.DeleteProgram(program)
		return 0, fmt.Errorf("failed to link program: %v", strings.TrimRight(log, "\x00"))
	}
	return program, nil
}

func (d *Device) NewTexture(w, h int, pix []float32) (gpu.Texture, error) {
	if d.released {
		return gpu.Texture{}, gpu.ErrReleased
	}
	if !d.caps.FloatTextures {
		return gpu.Texture{}, &gpu.CapabilityError{Capability: "float textures"}
	}
	if w <= 0 || h <= 0 || w > d.caps.MaxTextureSize || h > d.caps.MaxTextureSize {
		return gpu.Texture{}, fmt.Errorf("gpu: invalid texture size %dx%d", w, h)
	}
	if pix != nil && len(pix) != w*h*4 {
		return gpu.Texture{}, fmt.Errorf("gpu: texture %dx%d needs %d values, got %d", w, h, w*h*4, len(pix))
	}

	var t texture
	t.w, t.h = w, h
	gl.GenTextures(1, &t.handle)
	gl.BindTexture(gl.TEXTURE_2D, t.handle)
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)
	var ptr unsafe.Pointer
	if pix != nil {
		ptr = gl.Ptr(pix)
	}
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA32F, int32(w), int32(h), 0, gl.RGBA, gl.FLOAT, ptr)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.NEAREST)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.NEAREST)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)

	gl.GenFramebuffers(1, &t.fbo)
	gl.BindFramebuffer(gl.FRAMEBUFFER, t.fbo)
	gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, t.handle, 0)
	status := gl.CheckFramebufferStatus(gl.FRAMEBUFFER)
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	if status != gl.FRAMEBUFFER_COMPLETE {
		gl.DeleteFramebuffers(1, &t.fbo)
		gl.DeleteTextures(1, &t.handle)
		return gpu.Texture{}, &gpu.CapabilityError{Capability: "float color attachment"}
	}

	d.textures[t.handle] = t
	return gpu.NewTextureHandle(t.handle, w, h), nil
}

func (d *Device) texture(h gpu.Texture) (texture, error) {
	if d.released {
		return texture{}, gpu.ErrReleased
	}
	t, ok := d.textures[h.ID()]
	if !ok {
		return texture{}, fmt.Errorf("%w: texture %d", gpu.ErrUnknownResource, h.ID())
	}
	return t, nil
}

func (d *Device) WriteTexture(h gpu.Texture, pix []float32) error {
	t, err := d.texture(h)
	if err != nil {
		return err
	}
	if len(pix) != t.w*t.h*4 {
		return fmt.Errorf("gpu: texture %dx%d needs %d values, got %d", t.w, t.h, t.w*t.h*4, len(pix))
	}
	gl.BindTexture(gl.TEXTURE_2D, t.handle)
	gl.TexSubImage2D(gl.TEXTURE_2D, 0, 0, 0, int32(t.w), int32(t.h), gl.RGBA, gl.FLOAT, gl.Ptr(pix))
	return nil
}

func (d *Device) ReadTexture(h gpu.Texture) ([]float32, error) {
	t, err := d.texture(h)
	if err != nil {
		return nil, err
	}
	out := make([]float32, t.w*t.h*4)
	gl.BindFramebuffer(gl.FRAMEBUFFER, t.fbo)
	gl.ReadPixels(0, 0, int32(t.w), int32(t.h), gl.RGBA, gl.FLOAT, gl.Ptr(out))
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	return out, nil
}

func (d *Device) DeleteTexture(h gpu.Texture) {
	t, ok := d.textures[h.ID()]
	if !ok {
		return
	}
	gl.DeleteFramebuffers(1, &t.fbo)
	gl.DeleteTextures(1, &t.handle)
	delete(d.textures, h.ID())
}

func (d *Device) NewVertexBuffer(data []float32) (gpu.Buffer, error) {
	if d.released {
		return gpu.Buffer{}, gpu.ErrReleased
	}
	var id uint32
	gl.GenBuffers(1, &id)
	gl.BindBuffer(gl.ARRAY_BUFFER, id)
	gl.BufferData(gl.ARRAY_BUFFER, len(data)*4, gl.Ptr(data), gl.STATIC_DRAW)
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	b := gpu.NewBufferHandle(id, gpu.VertexBuffer, len(data))
	d.buffers[id] = b
	return b, nil
}

func (d *Device) NewIndexBuffer(data []uint32) (gpu.Buffer, error) {
	if d.released {
		return gpu.Buffer{}, gpu.ErrReleased
	}
	var id uint32
	gl.GenBuffers(1, &id)
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, id)
	gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, len(data)*4, gl.Ptr(data), gl.STATIC_DRAW)
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, 0)
	b := gpu.NewBufferHandle(id, gpu.IndexBuffer, len(data))
	d.buffers[id] = b
	return b, nil
}

func (d *Device) DeleteBuffer(b gpu.Buffer) {
	if _, ok := d.buffers[b.ID()]; !ok {
		return
	}
	id := b.ID()
	gl.DeleteBuffers(1, &id)
	delete(d.buffers, id)
}

func (d *Device) Draw(p gpu.Pass) error {
	if d.released {
		return gpu.ErrReleased
	}
	if err := gpu.CheckFeedback(p); err != nil {
		return err
	}
	if d.programs[p.Program.Name].ID() != p.Program.ID() {
		return fmt.Errorf("%w: program %q", gpu.ErrUnknownResource, p.Program.Name)
	}

	if p.Target.IsScreen() {
		gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
		gl.Viewport(0, 0, int32(d.screenW), int32(d.screenH))
	} else {
		t, err := d.texture(p.Target)
		if err != nil {
			return err
		}
		gl.BindFramebuffer(gl.FRAMEBUFFER, t.fbo)
		gl.Viewport(0, 0, int32(t.w), int32(t.h))
	}

	prog := p.Program.ID()
	gl.Disable(gl.DEPTH_TEST)
	gl.UseProgram(prog)
	for i, b := range p.Samplers {
		t, err := d.texture(b.Texture)
		if err != nil {
			return err
		}
		gl.ActiveTexture(gl.TEXTURE0 + uint32(i))
		gl.BindTexture(gl.TEXTURE_2D, t.handle)
		gl.Uniform1i(uniformLocation(prog, b.Name), int32(i))
	}
	if err := setUniforms(prog, p.Uniforms); err != nil {
		return err
	}

	gl.BindVertexArray(d.quadVAO)
	gl.DrawArrays(gl.TRIANGLE_STRIP, 0, 4)
	gl.BindVertexArray(0)
	return nil
}

func (d *Device) DrawMesh(m gpu.MeshDraw) error {
	if d.released {
		return gpu.ErrReleased
	}
	if d.programs[m.Program.Name].ID() != m.Program.ID() {
		return fmt.Errorf("%w: program %q", gpu.ErrUnknownResource, m.Program.Name)
	}
	idx, ok := d.buffers[m.Indices.ID()]
	if !ok || idx.Kind != gpu.IndexBuffer {
		return fmt.Errorf("%w: index buffer %d", gpu.ErrUnknownResource, m.Indices.ID())
	}
	if m.Count > idx.Len {
		return fmt.Errorf("gpu: draw count %d exceeds index buffer length %d", m.Count, idx.Len)
	}

	prog := m.Program.ID()
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	gl.Viewport(0, 0, int32(d.screenW), int32(d.screenH))
	gl.Enable(gl.DEPTH_TEST)
	gl.DepthFunc(gl.LEQUAL)
	gl.Enable(gl.CULL_FACE)
	gl.Enable(gl.BLEND)
	gl.BlendFunc(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA)
	gl.UseProgram(prog)

	gl.BindVertexArray(d.meshVAO)
	for _, a := range m.Attributes {
		if _, ok := d.buffers[a.Buffer.ID()]; !ok {
			return fmt.Errorf("%w: attribute %q", gpu.ErrUnknownResource, a.Name)
		}
		loc := gl.GetAttribLocation(prog, gl.Str(a.Name+"\x00"))
		if loc < 0 {
			continue
		}
		gl.BindBuffer(gl.ARRAY_BUFFER, a.Buffer.ID())
		gl.EnableVertexAttribArray(uint32(loc))
		gl.VertexAttribPointerWithOffset(uint32(loc), int32(a.Size), gl.FLOAT, false, 0, 0)
	}
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, idx.ID())
	if err := setUniforms(prog, m.Uniforms); err != nil {
		return err
	}
	gl.DrawElementsWithOffset(gl.TRIANGLES, int32(m.Count), gl.UNSIGNED_INT, 0)
	gl.BindVertexArray(0)
	return nil
}

func uniformLocation(prog uint32, name string) int32 {
	return gl.GetUniformLocation(prog, gl.Str(name+"\x00"))
}

func setUniforms(prog uint32, u gpu.Uniforms) error {
	for name, v := range u {
		loc := uniformLocation(prog, name)
		if loc < 0 {
			continue
		}
		switch val := v.(type) {
		case float32:
			gl.Uniform1f(loc, val)
		case int32:
			gl.Uniform1i(loc, val)
		case mgl32.Vec2:
			gl.Uniform2fv(loc, 1, &val[0])
		case mgl32.Vec3:
			gl.Uniform3fv(loc, 1, &val[0])
		case mgl32.Vec4:
			gl.Uniform4fv(loc, 1, &val[0])
		case mgl32.Mat2:
			gl.UniformMatrix2fv(loc, 1, false, &val[0])
		case mgl32.Mat4:
			gl.UniformMatrix4fv(loc, 1, false, &val[0])
		default:
			return fmt.Errorf("gpu: uniform %q has unsupported type %T", name, v)
		}
	}
	return nil
}

func (d *Device) Clear(r, g, b, a float32) {
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	gl.ClearColor(r, g, b, a)
	gl.ClearDepth(1)
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)
}

func (d *Device) Flush() { gl.Flush() }

func (d *Device) Release() {
	if d.released {
		return
	}
	for id := range d.textures {
		d.DeleteTexture(gpu.NewTextureHandle(id, 0, 0))
	}
	for _, b := range d.buffers {
		d.DeleteBuffer(b)
	}
	for _, p := range d.programs {
		gl.DeleteProgram(p.ID())
	}
	gl.DeleteBuffers(1, &d.quadVBO)
	gl.DeleteVertexArrays(1, &d.quadVAO)
	gl.DeleteVertexArrays(1, &d.meshVAO)
	d.programs = make(map[string]gpu.Program)
	d.released = true
}

var _ gpu.Device = (*Device)(nil)
