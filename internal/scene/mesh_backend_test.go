package scene_test

import (
	"github.com/go-gl/mathgl/mgl32"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/fieldsim/internal/gpu"
	"github.com/san-kum/fieldsim/internal/mesh"
	"github.com/san-kum/fieldsim/internal/scene"
	"github.com/san-kum/fieldsim/internal/shader"
)

func smallCatalog() *mesh.Catalog {
	c := mesh.NewCatalog()
	c.Register("torus", func() *mesh.Mesh { return mesh.Torus(8, 8, 1, 2) })
	c.Register("sphere", func() *mesh.Mesh { return mesh.Sphere(4, 4, 1) })
	return c
}

var _ = Describe("MeshBackend", func() {
	var (
		dev     *gpu.CPUDevice
		backend *scene.MeshBackend
		r       *scene.Renderer
	)

	BeforeEach(func() {
		var err error
		dev = shader.NewCPUDevice(gpu.WithScreenSize(8, 6))
		backend, err = scene.NewMeshBackend(dev, smallCatalog(), scene.WithViewport(8, 6))
		Expect(err).NotTo(HaveOccurred())
		r, err = scene.NewRenderer(backend)
		Expect(err).NotTo(HaveOccurred())
	})

	It("draws exactly once for load, bind and position", func() {
		r.ModelLoad(nil, "torus", "")
		r.ModelBind(nil, "torus", "")
		r.ModelPosition(nil, mgl32.Ident4())
		Expect(r.Update()).To(Succeed())

		draws := dev.TakeMeshDraws()
		Expect(draws).To(HaveLen(1))
		Expect(draws[0].Program).To(Equal(shader.Mesh))
		Expect(draws[0].Count).To(Equal(8 * 8 * 6))
		Expect(draws[0].Uniforms.Mat4(shader.UniformModel)).To(Equal(mgl32.Ident4()))
		Expect(draws[0].Uniforms.Mat4(shader.UniformInvModel)).To(Equal(mgl32.Ident4()))
		Expect(draws[0].Uniforms.Vec3(shader.UniformEye)).To(Equal(mgl32.Vec3{0, 0, 80}))
		Expect(draws[0].Uniforms.Vec3(shader.UniformLight)).To(Equal(mgl32.Vec3{0, 1, 0}))
		Expect(draws[0].Uniforms.Float(shader.UniformAlpha)).To(Equal(float32(1)))
		Expect(r.DeltaTime()).To(BeNumerically(">=", 0))
	})

	It("uses projection times view times model for the mvp matrix", func() {
		model := mgl32.Translate3D(0, 0, -20)
		r.ModelLoad(nil, "sphere", "")
		r.ModelBind(nil, "sphere", "")
		r.ModelPosition(nil, model)
		Expect(r.Update()).To(Succeed())

		want := scene.DefaultCamera().ViewProjection(8.0 / 6.0).Mul4(model)
		got := dev.TakeMeshDraws()[0].Uniforms.Mat4(shader.UniformMVP)
		Expect(got.ApproxEqual(want)).To(BeTrue())
	})

	It("loads every provider model for an empty id, once", func() {
		r.ModelLoad(nil, "", "")
		Expect(r.Update()).To(Succeed())
		Expect(backend.Models()).To(Equal([]scene.ModelID{"sphere", "torus"}))
		allocs := dev.Stats().BufferAllocs
		Expect(allocs).To(Equal(8))

		r.ModelLoad(nil, "torus", "")
		Expect(r.Update()).To(Succeed())
		Expect(dev.Stats().BufferAllocs).To(Equal(allocs))
	})

	It("reports unknown models", func() {
		r.ModelLoad(nil, "teapot", "")
		r.ModelBind(nil, "cube", "")
		err := r.Update()
		Expect(err).To(MatchError(&scene.UnknownModelError{ID: "teapot"}))
		Expect(err).To(MatchError(&scene.UnknownModelError{ID: "cube"}))

		_, err = backend.Model("torus")
		var unknown *scene.UnknownModelError
		Expect(err).To(BeAssignableToTypeOf(unknown))
	})

	It("refuses to position without a bound model", func() {
		r.ModelPosition(nil, mgl32.Ident4())
		Expect(r.Update()).To(MatchError(scene.ErrNoModelBound))
		Expect(dev.TakeMeshDraws()).To(BeEmpty())
	})

	It("applies visibility to later draws", func() {
		r.ModelLoad(nil, "sphere", "")
		r.ModelBind(nil, "sphere", "")
		r.ModelVisible(nil, 2)
		r.ModelPosition(nil, mgl32.Ident4())
		r.ModelVisible(nil, 0.25)
		r.ModelPosition(nil, mgl32.Ident4())
		Expect(r.Update()).To(Succeed())

		draws := dev.TakeMeshDraws()
		Expect(draws).To(HaveLen(2))
		Expect(draws[0].Uniforms.Float(shader.UniformAlpha)).To(Equal(float32(1)))
		Expect(draws[1].Uniforms.Float(shader.UniformAlpha)).To(Equal(float32(0.25)))
	})

	It("releases buffers on purge and unbinds the purged model", func() {
		r.ModelLoad(nil, "sphere", "")
		r.ModelBind(nil, "sphere", "")
		r.ModelPurge(nil, "sphere", "")
		r.ModelPosition(nil, mgl32.Ident4())
		Expect(r.Update()).To(MatchError(scene.ErrNoModelBound))
		Expect(backend.Models()).To(BeEmpty())
		Expect(backend.Bound()).To(BeEmpty())

		r.ModelPurge(nil, "sphere", "")
		Expect(r.Update()).To(MatchError(&scene.UnknownModelError{ID: "sphere"}))
	})

	It("purges everything", func() {
		r.ModelLoad(nil, "", "")
		r.ModelBind(nil, "torus", "")
		r.ModelPurgeAll(nil)
		Expect(r.Update()).To(Succeed())
		Expect(backend.Models()).To(BeEmpty())
		Expect(backend.Bound()).To(BeEmpty())
	})

	It("fails construction without the mesh program", func() {
		broken := shader.NewCPUDevice(gpu.WithBrokenProgram(shader.Mesh))
		_, err := scene.NewMeshBackend(broken, smallCatalog())
		var resErr *gpu.ResourceError
		Expect(err).To(BeAssignableToTypeOf(resErr))

		_, err = scene.NewMeshBackend(nil, smallCatalog())
		Expect(err).To(MatchError(gpu.ErrNotInitialized))
	})
})
