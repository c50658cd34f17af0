// Package flowmon collects per-flow packet statistics from the hooks of the
// apps package.
package flowmon

import (
	"io"
	"math"
	"sync"

	"golang.org/x/exp/slices"
	"gonum.org/v1/gonum/stat"
	"gopkg.in/yaml.v3"

	"github.com/scratchsim/scratchsim/apps"
	"github.com/scratchsim/scratchsim/sim"
)

// FlowSummary is the outcome of one flow.
type FlowSummary struct {
	Flow        int     `json:"flow" yaml:"flow"`
	TxPackets   uint64  `json:"txPackets" yaml:"txPackets"`
	RxPackets   uint64  `json:"rxPackets" yaml:"rxPackets"`
	LostPackets uint64  `json:"lostPackets" yaml:"lostPackets"`
	Dropped     uint64  `json:"dropped" yaml:"dropped"`
	TxBytes     uint64  `json:"txBytes" yaml:"txBytes"`
	RxBytes     uint64  `json:"rxBytes" yaml:"rxBytes"`
	FirstTx     float64 `json:"firstTx" yaml:"firstTx"`
	LastRx      float64 `json:"lastRx" yaml:"lastRx"`
	DelayMean   float64 `json:"delayMean" yaml:"delayMean"`
	DelayStdDev float64 `json:"delayStdDev" yaml:"delayStdDev"`
	DelayP95    float64 `json:"delayP95" yaml:"delayP95"`
	Throughput  float64 `json:"throughputBps" yaml:"throughputBps"`
}

// PacketCount is the number of packets sent and received in one time bucket.
type PacketCount struct {
	Time        float64 `json:"time" yaml:"time"`
	Transmitted uint64  `json:"transmitted" yaml:"transmitted"`
	Received    uint64  `json:"received" yaml:"received"`
}

// Report is everything a Monitor knows.
type Report struct {
	Flows        []FlowSummary `json:"flows" yaml:"flows"`
	PacketCounts []PacketCount `json:"packetCounts" yaml:"packetCounts"`
}

type flowState struct {
	flow      int
	txPackets uint64
	rxPackets uint64
	dropped   uint64
	txBytes   uint64
	rxBytes   uint64
	firstTx   sim.VTimeInSec
	lastRx    sim.VTimeInSec
	delays    []float64
}

// A Monitor is a hook that watches packets being sent, dropped and received.
// Attach it to senders, links, nodes and sinks. It can be read while the
// simulation runs.
type Monitor struct {
	lock        sync.Mutex
	bucketWidth float64
	flows       map[int]*flowState
	buckets     map[float64]*PacketCount
}

// NewMonitor creates a Monitor that groups packet counts into buckets of
// bucketWidth seconds. A width of 0 counts per distinct time.
func NewMonitor(bucketWidth float64) *Monitor {
	return &Monitor{
		bucketWidth: bucketWidth,
		flows:       make(map[int]*flowState),
		buckets:     make(map[float64]*PacketCount),
	}
}

// Func updates the statistics.
func (m *Monitor) Func(ctx sim.HookCtx) {
	pkt, ok := ctx.Item.(*apps.Packet)
	if !ok {
		return
	}

	m.lock.Lock()
	defer m.lock.Unlock()

	switch ctx.Pos {
	case apps.HookPosPacketTx:
		f := m.flow(pkt.Flow)
		if f.txPackets == 0 {
			f.firstTx = ctx.Now
		}
		f.txPackets++
		f.txBytes += uint64(pkt.Size)
		m.bucket(ctx.Now).Transmitted++
	case apps.HookPosPacketRx:
		f := m.flow(pkt.Flow)
		f.rxPackets++
		f.rxBytes += uint64(pkt.Size)
		f.lastRx = ctx.Now
		f.delays = append(f.delays, float64(ctx.Now-pkt.SentAt))
		m.bucket(ctx.Now).Received++
	case apps.HookPosPacketDrop:
		m.flow(pkt.Flow).dropped++
	}
}

func (m *Monitor) flow(id int) *flowState {
	f, ok := m.flows[id]
	if !ok {
		f = &flowState{flow: id}
		m.flows[id] = f
	}

	return f
}

func (m *Monitor) bucket(now sim.VTimeInSec) *PacketCount {
	t := float64(now)
	if m.bucketWidth > 0 {
		t = math.Floor(t/m.bucketWidth) * m.bucketWidth
	}

	b, ok := m.buckets[t]
	if !ok {
		b = &PacketCount{Time: t}
		m.buckets[t] = b
	}

	return b
}

// Flows returns the summaries of all flows ordered by flow ID.
func (m *Monitor) Flows() []FlowSummary {
	m.lock.Lock()
	defer m.lock.Unlock()

	ids := make([]int, 0, len(m.flows))
	for id := range m.flows {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	out := make([]FlowSummary, 0, len(ids))
	for _, id := range ids {
		out = append(out, m.flows[id].summary())
	}

	return out
}

// Flow returns the summary of one flow.
func (m *Monitor) Flow(id int) (FlowSummary, bool) {
	m.lock.Lock()
	defer m.lock.Unlock()

	f, ok := m.flows[id]
	if !ok {
		return FlowSummary{}, false
	}

	return f.summary(), true
}

// PacketCounts returns the packet counts ordered by time.
func (m *Monitor) PacketCounts() []PacketCount {
	m.lock.Lock()
	defer m.lock.Unlock()

	out := make([]PacketCount, 0, len(m.buckets))
	for _, b := range m.buckets {
		out = append(out, *b)
	}

	slices.SortFunc(out, func(a, b PacketCount) int {
		switch {
		case a.Time < b.Time:
			return -1
		case a.Time > b.Time:
			return 1
		default:
			return 0
		}
	})

	return out
}

// Report returns flows and packet counts together.
func (m *Monitor) Report() Report {
	return Report{
		Flows:        m.Flows(),
		PacketCounts: m.PacketCounts(),
	}
}

// WriteYAML writes the report as YAML.
func (m *Monitor) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)

	if err := enc.Encode(m.Report()); err != nil {
		return err
	}

	return enc.Close()
}

func (f *flowState) summary() FlowSummary {
	s := FlowSummary{
		Flow:      f.flow,
		TxPackets: f.txPackets,
		RxPackets: f.rxPackets,
		Dropped:   f.dropped,
		TxBytes:   f.txBytes,
		RxBytes:   f.rxBytes,
		FirstTx:   float64(f.firstTx),
		LastRx:    float64(f.lastRx),
	}

	if f.txPackets > f.rxPackets {
		s.LostPackets = f.txPackets - f.rxPackets
	}

	if len(f.delays) > 0 {
		s.DelayMean = stat.Mean(f.delays, nil)

		sorted := slices.Clone(f.delays)
		slices.Sort(sorted)
		s.DelayP95 = stat.Quantile(0.95, stat.Empirical, sorted, nil)
	}

	if len(f.delays) > 1 {
		s.DelayStdDev = stat.StdDev(f.delays, nil)
	}

	duration := float64(f.lastRx - f.firstTx)
	if f.rxPackets > 0 && duration > 0 {
		s.Throughput = float64(f.rxBytes) * 8 / duration
	}

	return s
}
