package apps

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/scratchsim/scratchsim/sim"
)

var _ = Describe("Node", func() {
	var (
		mockCtrl *gomock.Controller
		next     *MockTransmitter
		local    *MockReceiver
		node     *Node
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		next = NewMockTransmitter(mockCtrl)
		local = NewMockReceiver(mockCtrl)
		node = NewNode("router")
		node.AddRoute(1, next)
		node.Bind(2, local)
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should forward routed flows", func() {
		pkt := &Packet{Flow: 1}
		next.EXPECT().Transmit(sim.VTimeInSec(3), pkt)

		node.Transmit(3, pkt)
	})

	It("should deliver bound flows", func() {
		pkt := &Packet{Flow: 2}
		local.EXPECT().Receive(sim.VTimeInSec(3), pkt)

		node.Receive(3, pkt)
	})

	It("should prefer local delivery", func() {
		node.Bind(1, local)
		pkt := &Packet{Flow: 1}
		local.EXPECT().Receive(sim.VTimeInSec(1), pkt)

		node.Receive(1, pkt)
	})

	It("should drop unknown flows", func() {
		drops := 0
		node.AcceptHook(sim.HookFunc(func(ctx sim.HookCtx) {
			Expect(ctx.Pos).To(Equal(HookPosPacketDrop))
			drops++
		}))

		node.Receive(1, &Packet{Flow: 9})

		Expect(drops).To(Equal(1))
		Expect(node.Unroutable()).To(Equal(uint64(1)))
		Expect(node.Name()).To(Equal("router"))
	})
})
