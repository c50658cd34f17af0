package apps

import (
	"github.com/scratchsim/scratchsim/sim"
)

// A Sink accepts packets and counts them.
type Sink struct {
	*sim.HookableBase

	name     string
	received uint64
	bytes    uint64
	lastRx   sim.VTimeInSec
}

// NewSink creates a Sink.
func NewSink(name string) *Sink {
	return &Sink{
		HookableBase: sim.NewHookableBase(),
		name:         name,
	}
}

// Name returns the name of the sink.
func (k *Sink) Name() string {
	return k.name
}

// Receive counts pkt.
func (k *Sink) Receive(now sim.VTimeInSec, pkt *Packet) {
	k.received++
	k.bytes += uint64(pkt.Size)
	k.lastRx = now

	k.InvokeHook(sim.HookCtx{
		Domain: k,
		Now:    now,
		Pos:    HookPosPacketRx,
		Item:   pkt,
	})
}

// Received returns the number of packets received.
func (k *Sink) Received() uint64 {
	return k.received
}

// Bytes returns the number of bytes received.
func (k *Sink) Bytes() uint64 {
	return k.bytes
}

// LastRx returns the time of the last arrival.
func (k *Sink) LastRx() sim.VTimeInSec {
	return k.lastRx
}
