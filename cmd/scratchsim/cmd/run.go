package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/xid"
	"github.com/spf13/cobra"

	"github.com/scratchsim/scratchsim/datarecording"
	"github.com/scratchsim/scratchsim/monitoring"
	"github.com/scratchsim/scratchsim/scenario"
	"github.com/scratchsim/scratchsim/sim"
	"github.com/scratchsim/scratchsim/tracing"
)

var runCmd = &cobra.Command{
	Use:   "run <scenario.yaml>",
	Short: "Run a scenario and print the flow statistics as YAML.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := runOptionsFromFlags(cmd)
		if err != nil {
			return err
		}

		return runScenario(args[0], opts, cmd.OutOrStdout())
	},
}

type runOptions struct {
	recordPath  string
	output      string
	monitor     bool
	openBrowser bool
	monitorPort int
	logEvents   bool
	logAll      bool
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().String("record", "",
		"Record events and flow statistics into this SQLite database "+
			"(without the .sqlite3 suffix). Defaults to $"+envRecordDB+".")
	runCmd.Flags().StringP("output", "o", "",
		"Write the YAML report to this file instead of stdout.")
	runCmd.Flags().Bool("monitor", false,
		"Serve a dashboard while the simulation runs.")
	runCmd.Flags().Bool("open", false,
		"Open the dashboard in a browser. Implies --monitor.")
	runCmd.Flags().Int("monitor-port", 0,
		"Port of the dashboard. Defaults to $"+envMonitorPort+" or a random port.")
	runCmd.Flags().Bool("log-events", false, "Log every fired event.")
	runCmd.Flags().Bool("log-all", false,
		"Also log scheduling and cancellation at debug level.")
}

func runOptionsFromFlags(cmd *cobra.Command) (runOptions, error) {
	var opts runOptions
	var err error

	flags := cmd.Flags()

	if opts.recordPath, err = flags.GetString("record"); err != nil {
		return opts, err
	}

	if opts.recordPath == "" {
		opts.recordPath = cfg.RecordDB
	}

	if opts.output, err = flags.GetString("output"); err != nil {
		return opts, err
	}

	if opts.monitor, err = flags.GetBool("monitor"); err != nil {
		return opts, err
	}

	if opts.openBrowser, err = flags.GetBool("open"); err != nil {
		return opts, err
	}

	if opts.monitorPort, err = flags.GetInt("monitor-port"); err != nil {
		return opts, err
	}

	if opts.monitorPort == 0 {
		opts.monitorPort = cfg.MonitorPort
	}

	if opts.logEvents, err = flags.GetBool("log-events"); err != nil {
		return opts, err
	}

	if opts.logAll, err = flags.GetBool("log-all"); err != nil {
		return opts, err
	}

	return opts, nil
}

func runScenario(path string, opts runOptions, stdout io.Writer) error {
	sc, err := scenario.Load(path)
	if err != nil {
		return err
	}

	s := sc.SchedulerBuilder().Build()

	inst, err := sc.Build(s)
	if err != nil {
		return err
	}

	runID := xid.New().String()
	log := logger.With().Str("scenario", sc.Name).Str("run", runID).Logger()

	kinds := tracing.NewKindCounter()
	s.AcceptHook(kinds)

	if opts.logEvents || opts.logAll {
		eventLogger := sim.NewEventLogger(log)
		if opts.logAll {
			eventLogger.LogAllPositions()
		}

		s.AcceptHook(eventLogger)
	}

	var recorder datarecording.DataRecorder
	if opts.recordPath != "" {
		recorder, err = openRecorder(opts.recordPath)
		if err != nil {
			return err
		}

		s.AcceptHook(tracing.NewEventRecorder(runID, recorder).
			AlsoRecord(sim.HookPosCancel, sim.HookPosHalt))
	}

	if opts.monitor || opts.openBrowser {
		mon, err := startMonitor(inst, opts)
		if err != nil {
			return err
		}
		defer func() { _ = mon.StopServer() }()
	}

	start := time.Now()

	if _, err := inst.Run(); err != nil {
		return err
	}

	log.Info().
		Float64("now", float64(s.Now())).
		Str("state", s.State().String()).
		Uint64("events", s.EventCount()).
		Dur("wall", time.Since(start)).
		Msg("simulation finished")

	for _, k := range kinds.Counts() {
		log.Debug().
			Str("kind", k.Kind).
			Uint64("fired", k.Fired).
			Uint64("cancelled", k.Cancelled).
			Msg("event kind")
	}

	if recorder != nil {
		inst.Monitor.Export(runID, recorder)

		if err := recorder.Close(); err != nil {
			return err
		}
	}

	return writeReport(inst, opts.output, stdout)
}

func openRecorder(path string) (datarecording.DataRecorder, error) {
	filename := path + ".sqlite3"
	if _, err := os.Stat(filename); err == nil {
		return nil, fmt.Errorf("recording %s already exists", filename)
	}

	return datarecording.NewDataRecorder(path), nil
}

func startMonitor(
	inst *scenario.Instance,
	opts runOptions,
) (*monitoring.Monitor, error) {
	mon := monitoring.NewMonitor().
		WithLogger(logger).
		WithPortNumber(opts.monitorPort)

	mon.RegisterScheduler(inst.Scheduler)
	mon.RegisterFlowSource(inst.Monitor)

	for _, name := range inst.Scenario.Nodes {
		mon.RegisterComponent(name, inst.Nodes[name])
	}

	for _, l := range inst.Links {
		mon.RegisterComponent(l.Name(), l)
	}

	for _, app := range inst.Senders {
		mon.RegisterComponent(app.Name(), app)
	}

	bar := mon.CreateProgressBar("virtual time (ms)",
		uint64(inst.Scenario.StopTime*1000))
	inst.Scheduler.AcceptHook(monitoring.NewTimeProgress(bar))

	if opts.openBrowser {
		return mon, mon.OpenInBrowser()
	}

	_, err := mon.StartServer()

	return mon, err
}

func writeReport(
	inst *scenario.Instance,
	output string,
	stdout io.Writer,
) error {
	if output == "" {
		return inst.Monitor.WriteYAML(stdout)
	}

	f, err := os.Create(output)
	if err != nil {
		return err
	}

	if err := inst.Monitor.WriteYAML(f); err != nil {
		f.Close()
		return err
	}

	return f.Close()
}
