package apps

import (
	"github.com/scratchsim/scratchsim/sim"
)

// A PacedSender sends fixed-size packets back to back at a constant data
// rate. After each packet it waits for the time the packet takes on the
// wire at that rate before sending the next one.
type PacedSender struct {
	AppBase
	*sim.HookableBase

	s   *sim.Scheduler
	out Transmitter

	flow       int
	packetSize uint32
	nPackets   uint32
	rate       DataRate

	running   bool
	sent      uint32
	sendEvent sim.EventHandle
}

// PacedSenderBuilder can build PacedSenders.
type PacedSenderBuilder struct {
	s          *sim.Scheduler
	flow       int
	packetSize uint32
	nPackets   uint32
	rate       DataRate
	start      sim.VTimeInSec
	stop       sim.VTimeInSec
	hasStop    bool
}

// MakePacedSenderBuilder returns a builder with 1024-byte packets at 1Mbps
// and no packet limit.
func MakePacedSenderBuilder() PacedSenderBuilder {
	return PacedSenderBuilder{
		packetSize: 1024,
		rate:       MbitPerSecond,
	}
}

// WithScheduler sets the scheduler that the sender runs on.
func (b PacedSenderBuilder) WithScheduler(s *sim.Scheduler) PacedSenderBuilder {
	b.s = s
	return b
}

// WithFlow sets the flow ID stamped on every packet.
func (b PacedSenderBuilder) WithFlow(flow int) PacedSenderBuilder {
	b.flow = flow
	return b
}

// WithPacketSize sets the packet size in bytes.
func (b PacedSenderBuilder) WithPacketSize(size uint32) PacedSenderBuilder {
	b.packetSize = size
	return b
}

// WithNumPackets limits how many packets are sent. 0 means no limit.
func (b PacedSenderBuilder) WithNumPackets(n uint32) PacedSenderBuilder {
	b.nPackets = n
	return b
}

// WithDataRate sets the sending rate.
func (b PacedSenderBuilder) WithDataRate(r DataRate) PacedSenderBuilder {
	b.rate = r
	return b
}

// WithStartTime sets when the sender starts.
func (b PacedSenderBuilder) WithStartTime(t sim.VTimeInSec) PacedSenderBuilder {
	b.start = t
	return b
}

// WithStopTime sets when the sender stops.
func (b PacedSenderBuilder) WithStopTime(t sim.VTimeInSec) PacedSenderBuilder {
	b.stop = t
	b.hasStop = true
	return b
}

// Build creates a PacedSender that sends into out.
func (b PacedSenderBuilder) Build(name string, out Transmitter) *PacedSender {
	p := &PacedSender{
		AppBase: AppBase{
			name:    name,
			start:   b.start,
			stop:    b.stop,
			hasStop: b.hasStop,
		},
		HookableBase: sim.NewHookableBase(),
		s:            b.s,
		out:          out,
		flow:         b.flow,
		packetSize:   b.packetSize,
		nPackets:     b.nPackets,
		rate:         b.rate,
	}

	return p
}

// StartApplication sends the first packet right away.
func (p *PacedSender) StartApplication() {
	p.running = true
	p.sent = 0
	p.sendEvent, _ = p.s.ScheduleKind(0, KindSend, p.sendPacket)
}

// StopApplication cancels the pending send.
func (p *PacedSender) StopApplication() {
	p.running = false
	p.s.Cancel(p.sendEvent)
}

// Sent returns the number of packets sent so far.
func (p *PacedSender) Sent() uint32 {
	return p.sent
}

func (p *PacedSender) sendPacket() {
	now := p.s.Now()
	p.sent++

	pkt := &Packet{
		ID:     uint64(p.sent),
		Flow:   p.flow,
		Size:   p.packetSize,
		SentAt: now,
	}

	p.InvokeHook(sim.HookCtx{
		Domain: p,
		Now:    now,
		Pos:    HookPosPacketTx,
		Item:   pkt,
	})

	p.out.Transmit(now, pkt)

	if p.nPackets == 0 || p.sent < p.nPackets {
		p.scheduleTx()
	}
}

func (p *PacedSender) scheduleTx() {
	if !p.running {
		return
	}

	p.sendEvent, _ = p.s.ScheduleKind(
		p.rate.TxTime(p.packetSize), KindSend, p.sendPacket)
}
