package apps

import (
	"github.com/scratchsim/scratchsim/sim"
)

// A Node forwards packets by flow. Packets of a flow bound to the node are
// handed to the local receiver, packets of a routed flow go to the next hop,
// and everything else is dropped.
type Node struct {
	*sim.HookableBase

	name       string
	routes     map[int]Transmitter
	local      map[int]Receiver
	unroutable uint64
}

// NewNode creates a Node with empty tables.
func NewNode(name string) *Node {
	return &Node{
		HookableBase: sim.NewHookableBase(),
		name:         name,
		routes:       make(map[int]Transmitter),
		local:        make(map[int]Receiver),
	}
}

// Name returns the name of the node.
func (n *Node) Name() string {
	return n.name
}

// AddRoute makes the node forward packets of flow to next.
func (n *Node) AddRoute(flow int, next Transmitter) {
	n.routes[flow] = next
}

// Bind makes the node deliver packets of flow to r.
func (n *Node) Bind(flow int, r Receiver) {
	n.local[flow] = r
}

// Transmit accepts a packet from a local application.
func (n *Node) Transmit(now sim.VTimeInSec, pkt *Packet) {
	n.Receive(now, pkt)
}

// Receive delivers or forwards pkt.
func (n *Node) Receive(now sim.VTimeInSec, pkt *Packet) {
	if r, ok := n.local[pkt.Flow]; ok {
		r.Receive(now, pkt)
		return
	}

	if next, ok := n.routes[pkt.Flow]; ok {
		next.Transmit(now, pkt)
		return
	}

	n.unroutable++
	n.InvokeHook(sim.HookCtx{
		Domain: n,
		Now:    now,
		Pos:    HookPosPacketDrop,
		Item:   pkt,
	})
}

// Unroutable returns the number of packets dropped for lack of a route.
func (n *Node) Unroutable() uint64 {
	return n.unroutable
}
