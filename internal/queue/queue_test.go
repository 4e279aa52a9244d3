package queue_test

import (
	"github.com/go-gl/mathgl/mgl32"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/fieldsim/internal/queue"
)

var _ = Describe("Queue", func() {
	var q *queue.Queue

	BeforeEach(func() {
		q = queue.New()
	})

	It("starts empty", func() {
		_, ok := q.Dequeue()
		Expect(ok).To(BeFalse())
		Expect(q.Len()).To(BeZero())
	})

	It("dequeues in enqueue order across senders", func() {
		a, b := "producer-a", "producer-b"
		msgs := []queue.Message{
			queue.LoadModel{From: a, ID: "torus"},
			queue.SetVisible{From: b, Alpha: 0.5},
			queue.BindModel{From: a, ID: "torus"},
			queue.SetPosition{From: b, Transform: mgl32.Ident4()},
			queue.PurgeAll{From: a},
		}
		for _, m := range msgs {
			q.Enqueue(m)
		}
		Expect(q.Len()).To(Equal(len(msgs)))

		var got []queue.Message
		n := q.Drain(func(m queue.Message) { got = append(got, m) })
		Expect(n).To(Equal(len(msgs)))
		Expect(got).To(Equal(msgs))
		Expect(q.Len()).To(BeZero())
		Expect(q.Total()).To(Equal(len(msgs)))
	})

	It("keeps duplicates", func() {
		m := queue.BindModel{From: 1, ID: "sphere"}
		q.Enqueue(m)
		q.Enqueue(m)
		Expect(q.Len()).To(Equal(2))
	})

	It("drains messages enqueued by the handler", func() {
		q.Enqueue(queue.PurgeAll{From: "x"})
		var kinds []string
		q.Drain(func(m queue.Message) {
			kinds = append(kinds, m.Kind())
			if _, ok := m.(queue.PurgeAll); ok {
				q.Enqueue(queue.SetVisible{From: "x", Alpha: 1})
			}
		})
		Expect(kinds).To(Equal([]string{"model_purge_all", "model_visible"}))
	})

	It("stops after a bounded number of batches when handlers keep enqueueing", func() {
		q.Enqueue(queue.PurgeAll{From: "x"})
		n := q.Drain(func(m queue.Message) {
			q.Enqueue(m)
		})
		Expect(n).To(Equal(queue.MaxDrainRounds))
		Expect(q.Len()).To(Equal(1))

		Expect(q.Drain(func(queue.Message) {})).To(Equal(1))
		Expect(q.Len()).To(BeZero())
	})

	It("copies bone slices on enqueue", func() {
		bones := []queue.Bone{{Name: "root", Transform: mgl32.Ident4()}}
		q.Enqueue(queue.SetBones{From: "x", Bones: bones})
		bones[0].Name = "changed"

		m, ok := q.Dequeue()
		Expect(ok).To(BeTrue())
		Expect(m.(queue.SetBones).Bones[0].Name).To(Equal("root"))
	})

	It("reports senders and distinct kinds", func() {
		Expect(queue.SetPosture{From: 42}.Sender()).To(Equal(42))
		seen := map[string]bool{}
		for _, k := range queue.Kinds() {
			Expect(seen).NotTo(HaveKey(k))
			seen[k] = true
		}
		Expect(seen).To(HaveLen(8))
	})
})
