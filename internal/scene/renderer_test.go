package scene_test

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/fieldsim/internal/gpu"
	"github.com/san-kum/fieldsim/internal/queue"
	"github.com/san-kum/fieldsim/internal/scene"
)

// recorder logs every backend call as a string.
type recorder struct {
	scene.NopBackend
	calls  []string
	failOn string
	onBind func()
}

func (r *recorder) BeginFrame() error {
	r.calls = append(r.calls, "begin")
	return nil
}

func (r *recorder) EndFrame() error {
	r.calls = append(r.calls, "end")
	return nil
}

func (r *recorder) LoadModel(sender any, id scene.ModelID, inst string) error {
	return r.log(fmt.Sprintf("load %v %s %s", sender, id, inst))
}

func (r *recorder) BindModel(sender any, id scene.ModelID, inst string) error {
	if r.onBind != nil {
		r.onBind()
	}
	return r.log(fmt.Sprintf("bind %v %s", sender, id))
}

func (r *recorder) PurgeAll(sender any) error {
	return r.log(fmt.Sprintf("purge_all %v", sender))
}

func (r *recorder) SetVisible(sender any, alpha float32) error {
	return r.log(fmt.Sprintf("visible %v %.2f", sender, alpha))
}

func (r *recorder) PositionModel(sender any, m mgl32.Mat4) error {
	return r.log(fmt.Sprintf("position %v %.0f", sender, m.Col(3).Z()))
}

func (r *recorder) SetBones(sender any, bones []queue.Bone) error {
	return r.log(fmt.Sprintf("bones %v %d %s", sender, len(bones), bones[0].Name))
}

func (r *recorder) log(call string) error {
	r.calls = append(r.calls, call)
	if r.failOn != "" && call == r.failOn {
		return errors.New("boom")
	}
	return nil
}

var _ = Describe("Renderer", func() {
	var (
		rec *recorder
		r   *scene.Renderer
		now time.Time
	)

	BeforeEach(func() {
		rec = &recorder{}
		now = time.Unix(1000, 0)
		var err error
		r, err = scene.NewRenderer(rec, scene.WithClock(func() time.Time { return now }))
		Expect(err).NotTo(HaveOccurred())
	})

	It("does nothing until Update", func() {
		r.ModelLoad("a", "torus", "0")
		r.ModelBind("a", "torus", "0")
		Expect(rec.calls).To(BeEmpty())
		Expect(r.Pending()).To(Equal(2))
	})

	It("dispatches in enqueue order between begin and end", func() {
		r.ModelLoad("a", "torus", "0")
		r.ModelVisible("b", 0.5)
		r.ModelBind("a", "torus", "0")
		r.ModelPosition("b", mgl32.Translate3D(0, 0, -20))
		r.ModelPurgeAll("a")

		Expect(r.Update()).To(Succeed())
		Expect(rec.calls).To(Equal([]string{
			"begin",
			"load a torus 0",
			"visible b 0.50",
			"bind a torus",
			"position b -20",
			"purge_all a",
			"end",
		}))
		Expect(r.Pending()).To(BeZero())
	})

	It("consumes each message exactly once", func() {
		r.ModelBind("a", "sphere", "")
		Expect(r.Update()).To(Succeed())
		rec.calls = nil
		Expect(r.Update()).To(Succeed())
		Expect(rec.calls).To(Equal([]string{"begin", "end"}))
	})

	It("drains messages enqueued during the drain in the same frame", func() {
		rec.onBind = func() { r.ModelVisible("late", 1) }
		r.ModelBind("a", "sphere", "")
		Expect(r.Update()).To(Succeed())
		Expect(rec.calls).To(Equal([]string{"begin", "bind a sphere", "visible late 1.00", "end"}))
	})

	It("joins handler errors without stopping the drain", func() {
		rec.failOn = "bind a cube"
		r.ModelBind("a", "cube", "")
		r.ModelVisible("a", 1)

		err := r.Update()
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("model_bind"))
		Expect(rec.calls).To(ContainElement("visible a 1.00"))
		Expect(rec.calls[len(rec.calls)-1]).To(Equal("end"))
	})

	It("copies bone slices at enqueue time", func() {
		bones := []queue.Bone{{Name: "root"}}
		r.ModelBone("a", bones)
		bones[0].Name = "changed"
		Expect(r.Update()).To(Succeed())
		Expect(rec.calls).To(ContainElement("bones a 1 root"))
	})

	It("reports delta time between updates", func() {
		Expect(r.DeltaTime()).To(BeZero())
		now = now.Add(16 * time.Millisecond)
		Expect(r.Update()).To(Succeed())
		Expect(r.DeltaTime()).To(Equal(16 * time.Millisecond))

		now = now.Add(-time.Second)
		Expect(r.Update()).To(Succeed())
		Expect(r.DeltaTime()).To(BeNumerically(">=", 0))
		Expect(r.Frames()).To(Equal(2))
	})

	It("calls the dispatch hook per message", func() {
		var kinds []string
		var err error
		r, err = scene.NewRenderer(rec, scene.WithDispatchHook(func(m queue.Message) { kinds = append(kinds, m.Kind()) }))
		Expect(err).NotTo(HaveOccurred())
		r.ModelPurgeAll(nil)
		r.ModelPosture(nil, mgl32.QuatIdent())
		Expect(r.Update()).To(Succeed())
		Expect(kinds).To(Equal([]string{"model_purge_all", "model_posture"}))
	})

	It("rejects a nil backend", func() {
		nr, err := scene.NewRenderer(nil)
		Expect(err).To(MatchError(gpu.ErrNotInitialized))
		Expect(nr).To(BeNil())
	})

	It("queues on a zero renderer and refuses to update it", func() {
		var zero scene.Renderer
		Expect(func() { zero.ModelLoad("a", "torus", "") }).NotTo(Panic())
		Expect(zero.Pending()).To(Equal(1))
		Expect(zero.Update()).To(MatchError(gpu.ErrNotInitialized))
		Expect(zero.Pending()).To(Equal(1))
		Expect(zero.Frames()).To(BeZero())
	})
})
