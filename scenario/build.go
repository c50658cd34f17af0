package scenario

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"

	"github.com/scratchsim/scratchsim/apps"
	"github.com/scratchsim/scratchsim/flowmon"
	"github.com/scratchsim/scratchsim/sim"
)

// An Instance is a scenario built on a scheduler and ready to run.
type Instance struct {
	Scenario  *Scenario
	Scheduler *sim.Scheduler
	Monitor   *flowmon.Monitor

	Nodes   map[string]*apps.Node
	Links   []*apps.Link
	Senders []apps.Application
	Sinks   map[int]*apps.Sink
	Routes  map[int][]string

	hookables []sim.Hookable
}

type edge struct {
	from, to string
}

type topology struct {
	ids   map[string]int64
	names []string
	g     *simple.WeightedDirectedGraph
	links map[edge]*apps.Link
}

// Build creates the nodes, links and applications of the scenario on s and
// installs the applications. Each flow follows the path with the smallest
// total link delay. All checks run before the first application is
// installed, so a failed build leaves s untouched.
func (sc *Scenario) Build(s *sim.Scheduler) (*Instance, error) {
	if err := sc.Validate(); err != nil {
		return nil, err
	}

	for _, f := range sc.Flows {
		if sim.VTimeInSec(f.Start) < s.Now() {
			return nil, fmt.Errorf("flow %d: %w: start %g is before %g",
				f.ID, sim.ErrInvalidTime, f.Start, float64(s.Now()))
		}
	}

	inst := &Instance{
		Scenario:  sc,
		Scheduler: s,
		Monitor:   flowmon.NewMonitor(sc.BucketWidth),
		Nodes:     make(map[string]*apps.Node),
		Sinks:     make(map[int]*apps.Sink),
		Routes:    make(map[int][]string),
	}

	for _, name := range sc.Nodes {
		n := apps.NewNode(name)
		inst.Nodes[name] = n
		inst.hookables = append(inst.hookables, n)
	}

	topo := inst.buildLinks()

	for _, f := range sc.Flows {
		route, err := topo.route(f.Src, f.Dst)
		if err != nil {
			return nil, fmt.Errorf("flow %d: %w", f.ID, err)
		}

		inst.Routes[f.ID] = route
	}

	for _, f := range sc.Flows {
		if err := inst.buildFlow(topo, f); err != nil {
			return nil, err
		}
	}

	inst.AcceptHook(inst.Monitor)

	return inst, nil
}

func (inst *Instance) buildLinks() *topology {
	topo := &topology{
		ids:   make(map[string]int64),
		g:     simple.NewWeightedDirectedGraph(0, math.Inf(1)),
		links: make(map[edge]*apps.Link),
	}

	for i, name := range inst.Scenario.Nodes {
		topo.ids[name] = int64(i)
		topo.names = append(topo.names, name)
		topo.g.AddNode(simple.Node(i))
	}

	for _, l := range inst.Scenario.Links {
		inst.addLink(topo, l, l.From, l.To)

		if !l.OneWay {
			inst.addLink(topo, l, l.To, l.From)
		}
	}

	return topo
}

func (inst *Instance) addLink(topo *topology, l LinkSpec, from, to string) {
	e := edge{from: from, to: to}

	if existing, ok := topo.g.Weight(topo.ids[from], topo.ids[to]); ok &&
		topo.links[e] != nil && existing <= l.Delay {
		return
	}

	link := apps.MakeLinkBuilder().
		WithScheduler(inst.Scheduler).
		WithDelay(sim.VTimeInSec(l.Delay)).
		WithDataRate(l.DataRate).
		WithMaxQueue(l.MaxQueue).
		Build(fmt.Sprintf("%s->%s", from, to), inst.Nodes[to])

	inst.Links = append(inst.Links, link)
	inst.hookables = append(inst.hookables, link)
	topo.links[e] = link

	topo.g.SetWeightedEdge(simple.WeightedEdge{
		F: simple.Node(topo.ids[from]),
		T: simple.Node(topo.ids[to]),
		W: l.Delay,
	})
}

func (inst *Instance) buildFlow(topo *topology, f FlowSpec) error {
	route := inst.Routes[f.ID]
	for i := 0; i+1 < len(route); i++ {
		link := topo.links[edge{from: route[i], to: route[i+1]}]
		inst.Nodes[route[i]].AddRoute(f.ID, link)
	}

	sink := apps.NewSink(fmt.Sprintf("sink-%d", f.ID))
	inst.Nodes[f.Dst].Bind(f.ID, sink)
	inst.Sinks[f.ID] = sink
	inst.hookables = append(inst.hookables, sink)

	app := inst.buildSender(f)
	inst.Senders = append(inst.Senders, app)

	return apps.Install(inst.Scheduler, app)
}

func (inst *Instance) buildSender(f FlowSpec) apps.Application {
	name := fmt.Sprintf("%s-flow-%d", f.Src, f.ID)
	src := inst.Nodes[f.Src]

	switch f.Kind {
	case FlowOnOff:
		b := apps.MakeOnOffSenderBuilder().
			WithScheduler(inst.Scheduler).
			WithFlow(f.ID).
			WithPacketSize(f.PacketSize).
			WithNumPackets(f.NPackets).
			WithDataRate(f.DataRate).
			WithOnOffMeans(f.OnMean, f.OffMean).
			WithSeed(inst.Scenario.Seed).
			WithStartTime(sim.VTimeInSec(f.Start))
		if f.Stop != nil {
			b = b.WithStopTime(sim.VTimeInSec(*f.Stop))
		}

		app := b.Build(name, src)
		inst.hookables = append(inst.hookables, app)

		return app
	default:
		b := apps.MakePacedSenderBuilder().
			WithScheduler(inst.Scheduler).
			WithFlow(f.ID).
			WithPacketSize(f.PacketSize).
			WithNumPackets(f.NPackets).
			WithDataRate(f.DataRate).
			WithStartTime(sim.VTimeInSec(f.Start))
		if f.Stop != nil {
			b = b.WithStopTime(sim.VTimeInSec(*f.Stop))
		}

		app := b.Build(name, src)
		inst.hookables = append(inst.hookables, app)

		return app
	}
}

func (topo *topology) route(src, dst string) ([]string, error) {
	tree := path.DijkstraFrom(simple.Node(topo.ids[src]), topo.g)

	nodes, _ := tree.To(topo.ids[dst])
	if len(nodes) == 0 {
		return nil, fmt.Errorf("%w: no path from %q to %q",
			ErrInvalidScenario, src, dst)
	}

	return topo.nodeNames(nodes), nil
}

func (topo *topology) nodeNames(nodes []graph.Node) []string {
	names := make([]string, 0, len(nodes))
	for _, n := range nodes {
		names = append(names, topo.names[n.ID()])
	}

	return names
}

// AcceptHook attaches h to every node, link, sender and sink of the
// instance.
func (inst *Instance) AcceptHook(h sim.Hook) {
	for _, x := range inst.hookables {
		x.AcceptHook(h)
	}
}

// Run stops the scheduler at the scenario stop time, runs it and returns
// the flow statistics.
func (inst *Instance) Run() (flowmon.Report, error) {
	stop := sim.VTimeInSec(inst.Scenario.StopTime)
	if _, err := inst.Scheduler.StopAt(stop); err != nil {
		return flowmon.Report{}, err
	}

	if err := inst.Scheduler.Run(); err != nil {
		return flowmon.Report{}, err
	}

	inst.Scheduler.Finished()

	return inst.Monitor.Report(), nil
}
