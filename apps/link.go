package apps

import (
	"github.com/scratchsim/scratchsim/sim"
)

// A Link is a one-way point-to-point channel. Packets are serialized one at
// a time at the link rate and arrive at the receiver after the propagation
// delay. A link with a queue limit drops packets that arrive while the
// limit is reached.
type Link struct {
	*sim.HookableBase

	name     string
	s        *sim.Scheduler
	dst      Receiver
	delay    sim.VTimeInSec
	rate     DataRate
	maxQueue int

	busyUntil sim.VTimeInSec
	txEnds    []sim.VTimeInSec
	delivered uint64
	dropped   uint64
}

// LinkBuilder can build Links.
type LinkBuilder struct {
	s        *sim.Scheduler
	delay    sim.VTimeInSec
	rate     DataRate
	maxQueue int
}

// MakeLinkBuilder returns a builder for a 100Mbps link with a 5ms delay and
// no queue limit.
func MakeLinkBuilder() LinkBuilder {
	return LinkBuilder{
		delay: 0.005,
		rate:  100 * MbitPerSecond,
	}
}

// WithScheduler sets the scheduler that the link runs on.
func (b LinkBuilder) WithScheduler(s *sim.Scheduler) LinkBuilder {
	b.s = s
	return b
}

// WithDelay sets the propagation delay.
func (b LinkBuilder) WithDelay(d sim.VTimeInSec) LinkBuilder {
	b.delay = d
	return b
}

// WithDataRate sets the link rate.
func (b LinkBuilder) WithDataRate(r DataRate) LinkBuilder {
	b.rate = r
	return b
}

// WithMaxQueue sets how many packets can wait for or be in serialization.
// 0 means no limit.
func (b LinkBuilder) WithMaxQueue(n int) LinkBuilder {
	b.maxQueue = n
	return b
}

// Build creates a link that delivers to dst.
func (b LinkBuilder) Build(name string, dst Receiver) *Link {
	return &Link{
		HookableBase: sim.NewHookableBase(),
		name:         name,
		s:            b.s,
		dst:          dst,
		delay:        b.delay,
		rate:         b.rate,
		maxQueue:     b.maxQueue,
	}
}

// Name returns the name of the link.
func (l *Link) Name() string {
	return l.name
}

// Transmit queues pkt for serialization.
func (l *Link) Transmit(now sim.VTimeInSec, pkt *Packet) {
	l.purgeSent(now)

	if l.maxQueue > 0 && len(l.txEnds) >= l.maxQueue {
		l.dropped++
		l.InvokeHook(sim.HookCtx{
			Domain: l,
			Now:    now,
			Pos:    HookPosPacketDrop,
			Item:   pkt,
		})

		return
	}

	start := now
	if l.busyUntil > start {
		start = l.busyUntil
	}

	txEnd := start + l.rate.TxTime(pkt.Size)
	l.busyUntil = txEnd
	l.txEnds = append(l.txEnds, txEnd)

	_, err := l.s.ScheduleKind(txEnd+l.delay-now, KindDeliver, func() {
		l.delivered++
		l.dst.Receive(l.s.Now(), pkt)
	})
	if err != nil {
		panic(err)
	}
}

func (l *Link) purgeSent(now sim.VTimeInSec) {
	i := 0
	for i < len(l.txEnds) && l.txEnds[i] <= now {
		i++
	}

	l.txEnds = l.txEnds[i:]
}

// QueueLen returns the number of packets waiting for or in serialization.
func (l *Link) QueueLen() int {
	l.purgeSent(l.s.Now())
	return len(l.txEnds)
}

// Delivered returns the number of packets handed to the receiver.
func (l *Link) Delivered() uint64 {
	return l.delivered
}

// Dropped returns the number of packets dropped at the queue.
func (l *Link) Dropped() uint64 {
	return l.dropped
}
