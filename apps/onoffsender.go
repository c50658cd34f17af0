package apps

import (
	"math"

	"github.com/iti/rngstream"

	"github.com/scratchsim/scratchsim/sim"
)

// An OnOffSender alternates between on and off periods whose lengths are
// drawn from exponential distributions. While on, it sends packets at its
// data rate. With a zero mean off time the on periods follow each other
// directly. With a zero mean on time the sender never switches off.
type OnOffSender struct {
	AppBase
	*sim.HookableBase

	s   *sim.Scheduler
	out Transmitter
	rng *rngstream.RngStream

	flow       int
	packetSize uint32
	nPackets   uint32
	rate       DataRate
	onMean     float64
	offMean    float64

	running    bool
	sending    bool
	sent       uint32
	sendEvent  sim.EventHandle
	startEvent sim.EventHandle
	stopEvent  sim.EventHandle
}

// OnOffSenderBuilder can build OnOffSenders.
type OnOffSenderBuilder struct {
	s          *sim.Scheduler
	flow       int
	packetSize uint32
	nPackets   uint32
	rate       DataRate
	onMean     float64
	offMean    float64
	seed       uint64
	start      sim.VTimeInSec
	stop       sim.VTimeInSec
	hasStop    bool
}

// MakeOnOffSenderBuilder returns a builder with 1024-byte packets at
// 500kbps, a mean on time of 0.5s and no off time.
func MakeOnOffSenderBuilder() OnOffSenderBuilder {
	return OnOffSenderBuilder{
		packetSize: 1024,
		rate:       500 * KbitPerSecond,
		onMean:     0.5,
	}
}

// WithScheduler sets the scheduler that the sender runs on.
func (b OnOffSenderBuilder) WithScheduler(s *sim.Scheduler) OnOffSenderBuilder {
	b.s = s
	return b
}

// WithFlow sets the flow ID stamped on every packet.
func (b OnOffSenderBuilder) WithFlow(flow int) OnOffSenderBuilder {
	b.flow = flow
	return b
}

// WithPacketSize sets the packet size in bytes.
func (b OnOffSenderBuilder) WithPacketSize(size uint32) OnOffSenderBuilder {
	b.packetSize = size
	return b
}

// WithNumPackets limits how many packets are sent. 0 means no limit.
func (b OnOffSenderBuilder) WithNumPackets(n uint32) OnOffSenderBuilder {
	b.nPackets = n
	return b
}

// WithDataRate sets the rate used during on periods.
func (b OnOffSenderBuilder) WithDataRate(r DataRate) OnOffSenderBuilder {
	b.rate = r
	return b
}

// WithOnOffMeans sets the mean length of the on and off periods in seconds.
func (b OnOffSenderBuilder) WithOnOffMeans(on, off float64) OnOffSenderBuilder {
	b.onMean = on
	b.offMean = off
	return b
}

// WithStartTime sets when the sender starts.
func (b OnOffSenderBuilder) WithStartTime(t sim.VTimeInSec) OnOffSenderBuilder {
	b.start = t
	return b
}

// WithStopTime sets when the sender stops.
func (b OnOffSenderBuilder) WithStopTime(t sim.VTimeInSec) OnOffSenderBuilder {
	b.stop = t
	b.hasStop = true
	return b
}

// WithSeed sets the seed of the random stream. Senders built with the same
// seed and flow draw the same periods.
func (b OnOffSenderBuilder) WithSeed(seed uint64) OnOffSenderBuilder {
	b.seed = seed
	return b
}

// Build creates an OnOffSender that sends into out. The sender draws from
// its own random stream named after the sender and seeded from the builder
// seed and the flow, so it does not depend on other streams in the process.
func (b OnOffSenderBuilder) Build(name string, out Transmitter) *OnOffSender {
	rng := rngstream.New(name)
	rng.SetSeed(streamSeed(b.seed, b.flow))

	return &OnOffSender{
		AppBase: AppBase{
			name:    name,
			start:   b.start,
			stop:    b.stop,
			hasStop: b.hasStop,
		},
		HookableBase: sim.NewHookableBase(),
		s:            b.s,
		out:          out,
		rng:          rng,
		flow:         b.flow,
		packetSize:   b.packetSize,
		nPackets:     b.nPackets,
		rate:         b.rate,
		onMean:       b.onMean,
		offMean:      b.offMean,
	}
}

// streamSeed derives the six seed words of a stream with splitmix64. Every
// word is in [1, 4294944442], which is valid for both components of the
// generator.
func streamSeed(seed uint64, flow int) []uint64 {
	const maxWord = 4294944442

	x := seed ^ uint64(flow)*0xbf58476d1ce4e5b9
	words := make([]uint64, 6)

	for i := range words {
		x += 0x9e3779b97f4a7c15
		z := x
		z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
		z = (z ^ (z >> 27)) * 0x94d049bb133111eb
		z ^= z >> 31
		words[i] = z%maxWord + 1
	}

	return words
}

// sampleExp turns a uniform draw into an exponential one with the given
// mean.
func sampleExp(u01, mean float64) float64 {
	if mean <= 0 {
		return 0
	}

	return -mean * math.Log(1-u01)
}

// StartApplication waits for an off period and then starts sending.
func (o *OnOffSender) StartApplication() {
	o.running = true
	o.sent = 0
	o.scheduleStart()
}

// StopApplication cancels all pending events of the sender.
func (o *OnOffSender) StopApplication() {
	o.running = false
	o.sending = false
	o.s.Cancel(o.sendEvent)
	o.s.Cancel(o.startEvent)
	o.s.Cancel(o.stopEvent)
}

// Sent returns the number of packets sent so far.
func (o *OnOffSender) Sent() uint32 {
	return o.sent
}

// IsOn returns true during on periods.
func (o *OnOffSender) IsOn() bool {
	return o.sending
}

func (o *OnOffSender) scheduleStart() {
	off := sampleExp(o.rng.RandU01(), o.offMean)
	o.startEvent, _ = o.s.ScheduleKind(
		sim.VTimeInSec(off), KindOn, o.startSending)
}

func (o *OnOffSender) startSending() {
	o.sending = true
	o.sendEvent, _ = o.s.ScheduleKind(0, KindSend, o.sendPacket)

	if o.onMean <= 0 {
		return
	}

	on := sampleExp(o.rng.RandU01(), o.onMean)
	o.stopEvent, _ = o.s.ScheduleKind(
		sim.VTimeInSec(on), KindOff, o.stopSending)
}

func (o *OnOffSender) stopSending() {
	o.sending = false
	o.s.Cancel(o.sendEvent)

	if o.running && !o.exhausted() {
		o.scheduleStart()
	}
}

func (o *OnOffSender) exhausted() bool {
	return o.nPackets > 0 && o.sent >= o.nPackets
}

func (o *OnOffSender) sendPacket() {
	now := o.s.Now()
	o.sent++

	pkt := &Packet{
		ID:     uint64(o.sent),
		Flow:   o.flow,
		Size:   o.packetSize,
		SentAt: now,
	}

	o.InvokeHook(sim.HookCtx{
		Domain: o,
		Now:    now,
		Pos:    HookPosPacketTx,
		Item:   pkt,
	})

	o.out.Transmit(now, pkt)

	if o.exhausted() {
		o.s.Cancel(o.stopEvent)
		o.sending = false

		return
	}

	if o.sending {
		o.sendEvent, _ = o.s.ScheduleKind(
			o.rate.TxTime(o.packetSize), KindSend, o.sendPacket)
	}
}
