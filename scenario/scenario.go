// Package scenario describes a network simulation in YAML and turns the
// description into senders, links and sinks on a sim.Scheduler.
package scenario

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"golang.org/x/exp/slices"
	"gopkg.in/yaml.v3"

	"github.com/scratchsim/scratchsim/apps"
	"github.com/scratchsim/scratchsim/sim"
)

// ErrInvalidScenario wraps every problem found by Validate.
var ErrInvalidScenario = errors.New("scenario: invalid")

// Flow kinds.
const (
	FlowPaced = "paced"
	FlowOnOff = "onoff"
)

var (
	queueKinds = []string{"", string(sim.QueueHeap), string(sim.QueueList)}
	flowKinds  = []string{FlowPaced, FlowOnOff}
)

// A Scenario is a set of nodes joined by links, and flows of packets
// between nodes.
type Scenario struct {
	Name        string     `yaml:"name"`
	StopTime    float64    `yaml:"stopTime"`
	Queue       string     `yaml:"queue,omitempty"`
	BucketWidth float64    `yaml:"bucketWidth,omitempty"`
	Seed        uint64     `yaml:"seed,omitempty"`
	Nodes       []string   `yaml:"nodes"`
	Links       []LinkSpec `yaml:"links"`
	Flows       []FlowSpec `yaml:"flows"`
}

// LinkSpec describes a point-to-point link. Links carry traffic both ways
// unless OneWay is set.
type LinkSpec struct {
	From     string        `yaml:"from"`
	To       string        `yaml:"to"`
	Delay    float64       `yaml:"delay"`
	DataRate apps.DataRate `yaml:"dataRate"`
	MaxQueue int           `yaml:"maxQueue,omitempty"`
	OneWay   bool          `yaml:"oneWay,omitempty"`
}

// FlowSpec describes an application sending from Src to Dst.
type FlowSpec struct {
	ID         int           `yaml:"id"`
	Src        string        `yaml:"src"`
	Dst        string        `yaml:"dst"`
	Kind       string        `yaml:"kind"`
	PacketSize uint32        `yaml:"packetSize"`
	NPackets   uint32        `yaml:"nPackets,omitempty"`
	DataRate   apps.DataRate `yaml:"dataRate"`
	Start      float64       `yaml:"start"`
	Stop       *float64      `yaml:"stop,omitempty"`
	OnMean     float64       `yaml:"onMean,omitempty"`
	OffMean    float64       `yaml:"offMean,omitempty"`
}

// Load reads and validates a scenario file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	sc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return sc, nil
}

// Parse decodes and validates a scenario. Unknown fields are errors.
func Parse(data []byte) (*Scenario, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	sc := &Scenario{}
	if err := dec.Decode(sc); err != nil {
		return nil, err
	}

	if err := sc.Validate(); err != nil {
		return nil, err
	}

	return sc, nil
}

// Validate checks the scenario for problems and reports all of them.
func (sc *Scenario) Validate() error {
	var problems []error

	fail := func(format string, args ...any) {
		problems = append(problems,
			fmt.Errorf("%w: "+format, append([]any{ErrInvalidScenario}, args...)...))
	}

	if sc.StopTime <= 0 {
		fail("stopTime must be positive, got %g", sc.StopTime)
	}

	if !slices.Contains(queueKinds, sc.Queue) {
		fail("unknown queue %q", sc.Queue)
	}

	if sc.BucketWidth < 0 {
		fail("bucketWidth must not be negative")
	}

	seen := make([]string, 0, len(sc.Nodes))
	for _, n := range sc.Nodes {
		switch {
		case n == "":
			fail("empty node name")
		case slices.Contains(seen, n):
			fail("duplicate node %q", n)
		default:
			seen = append(seen, n)
		}
	}

	for i, l := range sc.Links {
		if !slices.Contains(sc.Nodes, l.From) || !slices.Contains(sc.Nodes, l.To) {
			fail("link %d joins unknown nodes %q and %q", i, l.From, l.To)
		}

		if l.From == l.To {
			fail("link %d is a loop on %q", i, l.From)
		}

		if l.Delay < 0 {
			fail("link %d has negative delay", i)
		}

		if l.DataRate == 0 {
			fail("link %d has no dataRate", i)
		}
	}

	ids := make([]int, 0, len(sc.Flows))
	for _, f := range sc.Flows {
		if slices.Contains(ids, f.ID) {
			fail("duplicate flow %d", f.ID)
		}
		ids = append(ids, f.ID)

		sc.validateFlow(f, fail)
	}

	return errors.Join(problems...)
}

func (sc *Scenario) validateFlow(f FlowSpec, fail func(string, ...any)) {
	if !slices.Contains(sc.Nodes, f.Src) || !slices.Contains(sc.Nodes, f.Dst) {
		fail("flow %d runs between unknown nodes %q and %q", f.ID, f.Src, f.Dst)
	}

	if f.Src == f.Dst {
		fail("flow %d starts and ends at %q", f.ID, f.Src)
	}

	if !slices.Contains(flowKinds, f.Kind) {
		fail("flow %d has unknown kind %q", f.ID, f.Kind)
	}

	if f.PacketSize == 0 {
		fail("flow %d has no packetSize", f.ID)
	}

	if f.DataRate == 0 {
		fail("flow %d has no dataRate", f.ID)
	}

	if f.Start < 0 {
		fail("flow %d starts before 0", f.ID)
	}

	if f.Stop != nil && *f.Stop < f.Start {
		fail("flow %d stops before it starts", f.ID)
	}

	if f.OnMean < 0 || f.OffMean < 0 {
		fail("flow %d has negative on or off mean", f.ID)
	}
}

// SchedulerBuilder returns a builder for a scheduler using the queue named
// by the scenario.
func (sc *Scenario) SchedulerBuilder() sim.Builder {
	kind := sim.QueueHeap
	if sc.Queue != "" {
		kind = sim.QueueKind(sc.Queue)
	}

	return sim.MakeBuilder().WithQueueKind(kind)
}
