// Package monitoring turns a running simulation into a web server that shows
// its progress and lets a user pause and continue it.
package monitoring

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"runtime/pprof"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/pkg/browser"
	"github.com/rs/xid"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"

	"github.com/scratchsim/scratchsim/flowmon"
	"github.com/scratchsim/scratchsim/monitoring/web"
	"github.com/scratchsim/scratchsim/sim"
)

// Controllable is the part of a scheduler that the monitor drives.
type Controllable interface {
	sim.TimeTeller
	Pause()
	Continue()
	IsPaused() bool
	State() sim.RunState
	EventCount() uint64
	PendingCount() int
}

// FlowSource provides flow statistics.
type FlowSource interface {
	Flows() []flowmon.FlowSummary
	Flow(id int) (flowmon.FlowSummary, bool)
}

// Monitor can turn a simulation into a server and allows external monitoring
// controlling of the simulation.
type Monitor struct {
	scheduler  Controllable
	flows      FlowSource
	components map[string]any
	compNames  []string
	portNumber int
	logger     zerolog.Logger

	progressBarsLock sync.Mutex
	progressBars     []*ProgressBar

	server   *http.Server
	listener net.Listener
}

// NewMonitor creates a new Monitor
func NewMonitor() *Monitor {
	return &Monitor{
		components: make(map[string]any),
		logger:     zerolog.Nop(),
	}
}

// WithPortNumber sets the port number of the monitor. Ports below 1000 are
// replaced by a random port.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber != 0 && portNumber < 1000 {
		m.logger.Warn().
			Int("port", portNumber).
			Msg("port not allowed for the monitor, using a random port")

		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// WithLogger sets the logger used for server messages.
func (m *Monitor) WithLogger(logger zerolog.Logger) *Monitor {
	m.logger = logger
	return m
}

// RegisterScheduler registers the scheduler that runs the simulation.
func (m *Monitor) RegisterScheduler(s Controllable) {
	m.scheduler = s
}

// RegisterFlowSource registers where flow statistics come from.
func (m *Monitor) RegisterFlowSource(f FlowSource) {
	m.flows = f
}

// RegisterComponent makes c inspectable under name.
func (m *Monitor) RegisterComponent(name string, c any) {
	if _, found := m.components[name]; !found {
		m.compNames = append(m.compNames, name)
	}

	m.components[name] = c
}

// CreateProgressBar creates a new progress bar.
func (m *Monitor) CreateProgressBar(name string, total uint64) *ProgressBar {
	bar := &ProgressBar{
		ID:        xid.New().String(),
		Name:      name,
		StartTime: time.Now(),
		Total:     total,
	}

	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	m.progressBars = append(m.progressBars, bar)

	return bar
}

// CompleteProgressBar removes a bar to be shown on the webpage.
func (m *Monitor) CompleteProgressBar(pb *ProgressBar) {
	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	newBars := make([]*ProgressBar, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		if b != pb {
			newBars = append(newBars, b)
		}
	}

	m.progressBars = newBars
}

// Router returns the HTTP routes of the monitor.
func (m *Monitor) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/api/pause", m.pauseScheduler)
	r.HandleFunc("/api/continue", m.continueScheduler)
	r.HandleFunc("/api/now", m.now)
	r.HandleFunc("/api/status", m.status)
	r.HandleFunc("/api/flows", m.listFlows)
	r.HandleFunc("/api/flow/{id}", m.flowDetails)
	r.HandleFunc("/api/list_components", m.listComponents)
	r.HandleFunc("/api/component/{name}", m.componentDetails)
	r.HandleFunc("/api/field/{json}", m.fieldValue)
	r.HandleFunc("/api/progress", m.listProgressBars)
	r.HandleFunc("/api/resource", m.listResources)
	r.HandleFunc("/api/profile", m.collectProfile)
	r.PathPrefix("/").Handler(http.FileServer(web.GetAssets()))

	return r
}

// StartServer starts serving in the background and returns the URL of the
// dashboard.
func (m *Monitor) StartServer() (string, error) {
	listener, err := net.Listen("tcp", ":"+strconv.Itoa(m.portNumber))
	if err != nil {
		return "", fmt.Errorf("monitor: %w", err)
	}

	m.listener = listener
	m.server = &http.Server{
		Handler:           m.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	url := fmt.Sprintf("http://localhost:%d",
		listener.Addr().(*net.TCPAddr).Port)
	m.logger.Info().Str("url", url).Msg("monitoring simulation")

	go func() {
		err := m.server.Serve(listener)
		if err != nil && err != http.ErrServerClosed {
			m.logger.Error().Err(err).Msg("monitor server stopped")
		}
	}()

	return url, nil
}

// OpenInBrowser starts the server and opens the dashboard in the default
// browser.
func (m *Monitor) OpenInBrowser() error {
	url, err := m.StartServer()
	if err != nil {
		return err
	}

	browser.Stdout = os.Stderr

	return browser.OpenURL(url)
}

// StopServer shuts the server down.
func (m *Monitor) StopServer() error {
	if m.server == nil {
		return nil
	}

	return m.server.Close()
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (m *Monitor) requireScheduler(w http.ResponseWriter) bool {
	if m.scheduler == nil {
		http.Error(w, "no scheduler registered", http.StatusServiceUnavailable)
		return false
	}

	return true
}

func (m *Monitor) pauseScheduler(w http.ResponseWriter, _ *http.Request) {
	if !m.requireScheduler(w) {
		return
	}

	m.scheduler.Pause()
	w.WriteHeader(http.StatusOK)
}

func (m *Monitor) continueScheduler(w http.ResponseWriter, _ *http.Request) {
	if !m.requireScheduler(w) {
		return
	}

	m.scheduler.Continue()
	w.WriteHeader(http.StatusOK)
}

func (m *Monitor) now(w http.ResponseWriter, _ *http.Request) {
	if !m.requireScheduler(w) {
		return
	}

	fmt.Fprintf(w, "{\"now\":%.10f}", m.scheduler.CurrentTime())
}

type statusRsp struct {
	Now     float64 `json:"now"`
	State   string  `json:"state"`
	Paused  bool    `json:"paused"`
	Events  uint64  `json:"events"`
	Pending int     `json:"pending"`
}

func (m *Monitor) status(w http.ResponseWriter, _ *http.Request) {
	if !m.requireScheduler(w) {
		return
	}

	writeJSON(w, statusRsp{
		Now:     float64(m.scheduler.CurrentTime()),
		State:   m.scheduler.State().String(),
		Paused:  m.scheduler.IsPaused(),
		Events:  m.scheduler.EventCount(),
		Pending: m.scheduler.PendingCount(),
	})
}

func (m *Monitor) listFlows(w http.ResponseWriter, _ *http.Request) {
	if m.flows == nil {
		writeJSON(w, []flowmon.FlowSummary{})
		return
	}

	writeJSON(w, m.flows.Flows())
}

func (m *Monitor) flowDetails(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "flow id must be a number", http.StatusBadRequest)
		return
	}

	if m.flows == nil {
		http.NotFound(w, r)
		return
	}

	f, ok := m.flows.Flow(id)
	if !ok {
		http.NotFound(w, r)
		return
	}

	writeJSON(w, f)
}

func (m *Monitor) listComponents(w http.ResponseWriter, _ *http.Request) {
	names := m.compNames
	if names == nil {
		names = []string{}
	}

	writeJSON(w, names)
}

func (m *Monitor) findComponentOr404(
	w http.ResponseWriter,
	name string,
) any {
	c, ok := m.components[name]
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprintf(w, "component %s not found", name)

		return nil
	}

	return c
}

func (m *Monitor) componentDetails(w http.ResponseWriter, r *http.Request) {
	component := m.findComponentOr404(w, mux.Vars(r)["name"])
	if component == nil {
		return
	}

	serializer := goseth.NewSerializer()
	serializer.SetRoot(component)
	serializer.SetMaxDepth(1)

	if err := serializer.Serialize(w); err != nil {
		m.logger.Error().Err(err).Msg("serialize component")
	}
}

type fieldReq struct {
	CompName  string `json:"comp_name,omitempty"`
	FieldName string `json:"field_name,omitempty"`
}

func (m *Monitor) fieldValue(w http.ResponseWriter, r *http.Request) {
	req := fieldReq{}

	err := json.Unmarshal([]byte(mux.Vars(r)["json"]), &req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	component := m.findComponentOr404(w, req.CompName)
	if component == nil {
		return
	}

	serializer := goseth.NewSerializer()
	serializer.SetRoot(component)
	serializer.SetMaxDepth(1)

	err = serializer.SetEntryPoint(strings.Split(req.FieldName, "."))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := serializer.Serialize(w); err != nil {
		m.logger.Error().Err(err).Msg("serialize field")
	}
}

type progressRsp struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	StartTime time.Time `json:"start_time"`
	Total     uint64    `json:"total"`
	Finished  uint64    `json:"finished"`
}

func (m *Monitor) listProgressBars(w http.ResponseWriter, _ *http.Request) {
	m.progressBarsLock.Lock()
	rsp := make([]progressRsp, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		b.Lock()
		rsp = append(rsp, progressRsp{
			ID:        b.ID,
			Name:      b.Name,
			StartTime: b.StartTime,
			Total:     b.Total,
			Finished:  b.Finished,
		})
		b.Unlock()
	}
	m.progressBarsLock.Unlock()

	writeJSON(w, rsp)
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	cpuPercent, err := proc.CPUPercent()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	memory, err := proc.MemoryInfo()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memory.RSS,
	})
}

func (m *Monitor) collectProfile(w http.ResponseWriter, _ *http.Request) {
	buf := bytes.NewBuffer(nil)

	if err := pprof.StartCPUProfile(buf); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}

	time.Sleep(time.Second)

	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, prof)
}
