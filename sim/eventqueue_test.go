package sim

import (
	"math/rand"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func makeEvent(uid uint64, t VTimeInSec) *Event {
	return &Event{uid: uid, time: t, kind: KindCallback, state: EventPending}
}

var _ = Describe("EventQueue", func() {
	for _, k := range []QueueKind{QueueHeap, QueueList} {
		kind := k

		Context(string(kind), func() {
			var queue EventQueue

			BeforeEach(func() {
				queue = NewEventQueueOfKind(kind)
			})

			It("should pop in order", func() {
				numEvents := 200
				for i := 0; i < numEvents; i++ {
					t := VTimeInSec(float64(rand.Intn(20)) * 0.5)
					queue.Push(makeEvent(uint64(i+1), t))
				}

				Expect(queue.Len()).To(Equal(numEvents))

				prev := queue.Pop()
				for i := 1; i < numEvents; i++ {
					evt := queue.Pop()
					Expect(prev.before(evt)).To(BeTrue())
					prev = evt
				}

				Expect(queue.Pop()).To(BeNil())
				Expect(queue.Len()).To(Equal(0))
			})

			It("should keep insertion order for equal times", func() {
				for i := 1; i <= 10; i++ {
					queue.Push(makeEvent(uint64(i), 5))
				}

				for i := 1; i <= 10; i++ {
					Expect(queue.Pop().UID()).To(Equal(uint64(i)))
				}
			})

			It("should skip cancelled events", func() {
				e1 := makeEvent(1, 1)
				e2 := makeEvent(2, 2)
				e3 := makeEvent(3, 3)
				queue.Push(e1)
				queue.Push(e2)
				queue.Push(e3)

				Expect(queue.Cancel(e1)).To(BeTrue())
				Expect(queue.Cancel(e1)).To(BeFalse())
				Expect(queue.Len()).To(Equal(2))
				Expect(queue.Peek()).To(BeIdenticalTo(e2))
				Expect(queue.Pop()).To(BeIdenticalTo(e2))
				Expect(e1.State()).To(Equal(EventCancelled))
			})

			It("should not cancel a popped event", func() {
				e1 := makeEvent(1, 1)
				queue.Push(e1)

				Expect(queue.Pop()).To(BeIdenticalTo(e1))
				Expect(queue.Cancel(e1)).To(BeFalse())
				Expect(e1.State()).To(Equal(EventPending))
			})

			It("should return nil when only cancelled events are left", func() {
				e1 := makeEvent(1, 1)
				queue.Push(e1)
				queue.Cancel(e1)

				Expect(queue.Peek()).To(BeNil())
				Expect(queue.Pop()).To(BeNil())
			})

			It("should clear", func() {
				e1 := makeEvent(1, 1)
				e2 := makeEvent(2, 2)
				queue.Push(e1)
				queue.Push(e2)

				queue.Clear()

				Expect(queue.Len()).To(Equal(0))
				Expect(queue.Pop()).To(BeNil())
				Expect(e1.State()).To(Equal(EventCancelled))
				Expect(queue.Cancel(e2)).To(BeFalse())
			})
		})
	}
})
