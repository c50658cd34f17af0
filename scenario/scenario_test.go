package scenario_test

import (
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/scratchsim/scratchsim/apps"
	"github.com/scratchsim/scratchsim/scenario"
	"github.com/scratchsim/scratchsim/sim"
)

const validScenario = `
name: pair
stopTime: 2
nodes: [a, b]
links:
  - {from: a, to: b, delay: 0.01, dataRate: 1Mbps}
flows:
  - {id: 1, src: a, dst: b, kind: paced, packetSize: 1000, dataRate: 1Mbps, start: 0}
`

var _ = Describe("Parse", func() {
	It("should decode a scenario", func() {
		sc, err := scenario.Parse([]byte(validScenario))
		Expect(err).NotTo(HaveOccurred())

		Expect(sc.Name).To(Equal("pair"))
		Expect(sc.Links[0].DataRate).To(Equal(apps.MbitPerSecond))
		Expect(sc.Flows[0].Stop).To(BeNil())
		Expect(sc.SchedulerBuilder().Build().QueueKind()).
			To(Equal(sim.QueueHeap))
	})

	It("should reject unknown fields", func() {
		_, err := scenario.Parse([]byte(validScenario + "colour: blue\n"))
		Expect(err).To(HaveOccurred())
	})

	It("should reject bad data rates", func() {
		bad := strings.Replace(validScenario, "dataRate: 1Mbps}", "dataRate: lots}", 1)
		_, err := scenario.Parse([]byte(bad))
		Expect(err).To(MatchError(apps.ErrInvalidDataRate))
	})

	DescribeTable("validation",
		func(from, to string) {
			_, err := scenario.Parse(
				[]byte(strings.Replace(validScenario, from, to, 1)))
			Expect(err).To(MatchError(scenario.ErrInvalidScenario))
		},
		Entry("stop time", "stopTime: 2", "stopTime: 0"),
		Entry("queue", "stopTime: 2", "stopTime: 2\nqueue: calendar"),
		Entry("duplicate node", "[a, b]", "[a, b, a]"),
		Entry("unknown link node", "{from: a, to: b,", "{from: a, to: z,"),
		Entry("loop", "{from: a, to: b,", "{from: a, to: a,"),
		Entry("negative delay", "delay: 0.01", "delay: -1"),
		Entry("unknown flow node", "src: a, dst: b", "src: a, dst: q"),
		Entry("same ends", "src: a, dst: b", "src: b, dst: b"),
		Entry("kind", "kind: paced", "kind: cbr"),
		Entry("packet size", "packetSize: 1000", "packetSize: 0"),
		Entry("stop before start", "start: 0}", "start: 1, stop: 0.5}"),
		Entry("negative mean", "start: 0}", "start: 0, onMean: -1}"),
	)

	It("should report every problem", func() {
		sc := &scenario.Scenario{
			Nodes: []string{"a", ""},
			Flows: []scenario.FlowSpec{{ID: 1}, {ID: 1}},
		}

		err := sc.Validate()
		Expect(err).To(MatchError(scenario.ErrInvalidScenario))
		Expect(err.Error()).To(ContainSubstring("stopTime"))
		Expect(err.Error()).To(ContainSubstring("empty node name"))
		Expect(err.Error()).To(ContainSubstring("duplicate flow 1"))
	})

	It("should load files", func() {
		_, err := scenario.Load("testdata/missing.yaml")
		Expect(err).To(HaveOccurred())

		sc, err := scenario.Load("../scenarios/bursty_uplink.yaml")
		Expect(err).NotTo(HaveOccurred())
		Expect(sc.SchedulerBuilder().Build().QueueKind()).
			To(Equal(sim.QueueList))
	})
})

var _ = Describe("Instance", func() {
	It("should route over the path with the least delay", func() {
		sc, err := scenario.Load("testdata/triangle.yaml")
		Expect(err).NotTo(HaveOccurred())

		s := sc.SchedulerBuilder().Build()
		inst, err := sc.Build(s)
		Expect(err).NotTo(HaveOccurred())

		Expect(inst.Routes[1]).To(Equal([]string{"a", "b", "c"}))
		Expect(inst.Routes[2]).To(Equal([]string{"c", "b", "a"}))
		Expect(inst.Links).To(HaveLen(6))

		report, err := inst.Run()
		Expect(err).NotTo(HaveOccurred())
		Expect(s.State()).To(Equal(sim.StateHalted))
		Expect(s.Now()).To(Equal(sim.VTimeInSec(1)))

		Expect(report.Flows).To(HaveLen(2))
		f := report.Flows[0]
		Expect(f.Flow).To(Equal(1))
		Expect(f.TxPackets).To(Equal(uint64(10)))
		Expect(f.RxPackets).To(Equal(uint64(10)))
		Expect(f.DelayMean).To(BeNumerically("~", 0.036, 1e-9))
		Expect(inst.Sinks[1].Received()).To(Equal(uint64(10)))

		g := report.Flows[1]
		Expect(g.RxPackets).To(BeNumerically("<=", g.TxPackets))
		Expect(g.FirstTx).To(BeNumerically(">=", 0.5))
	})

	It("should attach hooks to every part", func() {
		sc, err := scenario.Load("testdata/triangle.yaml")
		Expect(err).NotTo(HaveOccurred())

		inst, err := sc.Build(sc.SchedulerBuilder().Build())
		Expect(err).NotTo(HaveOccurred())

		var rx, tx int
		inst.AcceptHook(sim.HookFunc(func(ctx sim.HookCtx) {
			switch ctx.Pos {
			case apps.HookPosPacketRx:
				rx++
			case apps.HookPosPacketTx:
				tx++
			}
		}))

		report, err := inst.Run()
		Expect(err).NotTo(HaveOccurred())

		total := 0
		for _, f := range report.Flows {
			total += int(f.RxPackets)
		}
		Expect(rx).To(Equal(total))
		Expect(tx).To(BeNumerically(">=", 10))
	})

	It("should fail without scheduling anything when a flow has no path", func() {
		sc, err := scenario.Parse([]byte(strings.Replace(validScenario,
			"dataRate: 1Mbps}", "dataRate: 1Mbps, oneWay: true}", 1)))
		Expect(err).NotTo(HaveOccurred())
		sc.Flows[0].Src, sc.Flows[0].Dst = "b", "a"

		s := sim.NewScheduler()
		_, err = sc.Build(s)
		Expect(err).To(MatchError(scenario.ErrInvalidScenario))
		Expect(s.PendingCount()).To(Equal(0))
	})

	It("should fail without scheduling anything when a later flow is invalid", func() {
		sc, err := scenario.Parse([]byte(validScenario))
		Expect(err).NotTo(HaveOccurred())

		stop := 0.5
		sc.Flows = append(sc.Flows, scenario.FlowSpec{
			ID: 2, Src: "a", Dst: "b", Kind: scenario.FlowPaced,
			PacketSize: 1000, DataRate: apps.MbitPerSecond,
			Start: 1, Stop: &stop,
		})

		s := sim.NewScheduler()
		_, err = sc.Build(s)
		Expect(err).To(MatchError(scenario.ErrInvalidScenario))
		Expect(s.PendingCount()).To(Equal(0))
	})

	It("should fail without scheduling anything when a flow starts in the past", func() {
		sc, err := scenario.Parse([]byte(validScenario))
		Expect(err).NotTo(HaveOccurred())
		sc.Flows = append(sc.Flows, scenario.FlowSpec{
			ID: 2, Src: "a", Dst: "b", Kind: scenario.FlowPaced,
			PacketSize: 1000, DataRate: apps.MbitPerSecond, Start: 3,
		})

		s := sim.NewScheduler()
		_, _ = s.ScheduleAt(2, nil)
		Expect(s.Run()).To(Succeed())

		_, err = sc.Build(s)
		Expect(err).To(MatchError(sim.ErrInvalidTime))
		Expect(s.PendingCount()).To(Equal(0))
	})

	It("should produce the same traffic for the same seed", func() {
		run := func(seed uint64) []uint64 {
			sc, err := scenario.Load("../scenarios/bursty_uplink.yaml")
			Expect(err).NotTo(HaveOccurred())
			sc.Seed = seed

			inst, err := sc.Build(sc.SchedulerBuilder().Build())
			Expect(err).NotTo(HaveOccurred())

			report, err := inst.Run()
			Expect(err).NotTo(HaveOccurred())

			var tx []uint64
			for _, f := range report.Flows {
				tx = append(tx, f.TxPackets, f.RxPackets, f.Dropped)
			}

			return tx
		}

		first := run(0)
		Expect(first).To(HaveLen(15))
		Expect(run(0)).To(Equal(first))
		Expect(run(7)).NotTo(Equal(first))
	})

	It("should run the tower scenario", func() {
		sc, err := scenario.Load("../scenarios/lte_tower.yaml")
		Expect(err).NotTo(HaveOccurred())

		inst, err := sc.Build(sc.SchedulerBuilder().Build())
		Expect(err).NotTo(HaveOccurred())
		Expect(inst.Routes[1]).To(Equal(
			[]string{"ue0", "enb", "gw", "router", "remote"}))

		report, err := inst.Run()
		Expect(err).NotTo(HaveOccurred())

		Expect(report.Flows).To(HaveLen(10))
		for _, f := range report.Flows {
			Expect(f.TxPackets).To(Equal(uint64(1099)))
			Expect(f.RxPackets).To(BeNumerically(">=", 1090))
			Expect(f.LostPackets).To(Equal(f.TxPackets - f.RxPackets))
			Expect(f.FirstTx).To(Equal(1.0))
		}

		Expect(report.PacketCounts).To(HaveLen(9))
	})
})
