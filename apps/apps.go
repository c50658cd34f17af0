// Package apps provides traffic sources, a point-to-point link model and a
// packet sink that run on a sim.Scheduler.
//
// Senders hand packets to a Transmitter, usually a Link, which delivers them
// to a Receiver, usually a Sink. Each of them is hookable so that observers
// such as a flow monitor can see packets being sent, dropped and received.
package apps

import (
	"errors"

	"github.com/scratchsim/scratchsim/sim"
)

// HookPosPacketTx triggers when an application sends a packet. The Item is
// the *Packet.
var HookPosPacketTx = &sim.HookPos{Name: "PacketTx"}

// HookPosPacketRx triggers when a packet reaches its receiver. The Item is
// the *Packet.
var HookPosPacketRx = &sim.HookPos{Name: "PacketRx"}

// HookPosPacketDrop triggers when a link discards a packet because its
// queue is full. The Item is the *Packet.
var HookPosPacketDrop = &sim.HookPos{Name: "PacketDrop"}

// Event kinds scheduled by this package.
const (
	KindAppStart = "app.start"
	KindAppStop  = "app.stop"
	KindSend     = "app.send"
	KindOn       = "app.on"
	KindOff      = "app.off"
	KindDeliver  = "link.deliver"
)

var (
	// ErrInvalidDataRate is returned when a data rate string cannot be parsed.
	ErrInvalidDataRate = errors.New("apps: invalid data rate")

	// ErrStopBeforeStart is returned when an application would stop before
	// it starts.
	ErrStopBeforeStart = errors.New("apps: stop time before start time")
)

// A Packet is a unit of data that travels from a sender to a receiver.
type Packet struct {
	ID     uint64
	Flow   int
	Size   uint32
	SentAt sim.VTimeInSec
}

// A Transmitter accepts packets for delivery.
type Transmitter interface {
	Transmit(now sim.VTimeInSec, pkt *Packet)
}

// A Receiver is the final destination of packets.
type Receiver interface {
	Receive(now sim.VTimeInSec, pkt *Packet)
}
