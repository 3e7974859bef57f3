package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/foodfactory/cookstage/sim"
	"github.com/foodfactory/cookstage/sim/metrics"
	"github.com/foodfactory/cookstage/sim/trace"
)

var (
	// Kitchen layout
	configPath      string        // YAML kitchen config; flags below override its values
	unitCapacities  []float64     // Capacity of each cooking unit
	bufferCaps      []float64     // Capacity of each overflow buffer
	ordering        string        // Outbound ordering: strict or relaxed
	timeUnit        time.Duration // Length of one production time unit
	idlePoll        time.Duration // Scheduler idle wait

	// Run control
	seed         int64         // Seed for every line's production stream
	logLevel     string        // Log verbosity level
	numLines     int           // Lines created at start
	addLineEvery time.Duration // Add one more line at this period (0 = never)
	runDuration  time.Duration // How long production runs before a graceful stop
	gracePeriod  time.Duration // How long a graceful stop may take before items are killed
	traceLevel   string        // Decision trace level
	resultsPath  string        // Write results JSON here
	listenAddr   string        // Serve line requests and /metrics here
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "cookstage",
	Short: "Concurrent simulator for a shared cooking stage fed by production lines",
}

// runCmd builds the kitchen, feeds it from production lines and reports the result
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the kitchen",
	Run: func(cmd *cobra.Command, args []string) {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)

		rc, err := resolveRunConfig(cmd)
		if err != nil {
			logrus.Fatalf("Invalid kitchen config: %v", err)
		}
		if !trace.IsValidTraceLevel(traceLevel) {
			logrus.Fatalf("Invalid trace level: %s", traceLevel)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		opts := runOptions{
			Seed:         seed,
			Lines:        numLines,
			AddLineEvery: addLineEvery,
			Duration:     runDuration,
			Grace:        gracePeriod,
			TraceLevel:   trace.TraceLevel(traceLevel),
			ResultsPath:  resultsPath,
			ListenAddr:   listenAddr,
		}
		if err := runKitchen(ctx, rc, opts, os.Stdout); err != nil {
			logrus.Fatalf("Kitchen run failed: %v", err)
		}
		logrus.Info("Kitchen run complete.")
	},
}

// validateCmd checks a kitchen config without running anything
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a kitchen config and flags",
	RunE: func(cmd *cobra.Command, args []string) error {
		rc, err := resolveRunConfig(cmd)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "ok: %d units %v, %d buffers %v, ordering %s, time unit %s\n",
			len(rc.Kitchen.UnitCapacities), rc.Kitchen.UnitCapacities,
			len(rc.Kitchen.BufferCapacities), rc.Kitchen.BufferCapacities,
			orderingOrDefault(rc.Kitchen.Ordering), rc.Policy.TimeUnit)
		return nil
	},
}

func orderingOrDefault(m sim.OrderingMode) sim.OrderingMode {
	if m == "" {
		return sim.OrderingStrict
	}
	return m
}

// resolveRunConfig loads --config when given, then applies every flag the user set explicitly.
// Without a config file every flag applies, defaults included.
func resolveRunConfig(cmd *cobra.Command) (RunConfig, error) {
	var kf KitchenFile
	if configPath != "" {
		loaded, err := loadKitchenFile(configPath)
		if err != nil {
			return RunConfig{}, err
		}
		kf = loaded
	}
	flags := cmd.Flags()
	override := func(name string) bool { return configPath == "" || flags.Changed(name) }

	if override("units") {
		kf.Units = unitCapacities
	}
	if override("buffers") {
		kf.Buffers = bufferCaps
	}
	if override("ordering") {
		kf.Ordering = ordering
	}
	defaultTimeUnit := timeUnit
	if flags.Changed("time-unit") {
		kf.TimeUnit = ""
	}
	rc, err := kf.resolve(defaultTimeUnit)
	if err != nil {
		return rc, err
	}
	if override("idle-poll") {
		rc.Kitchen.IdlePoll = idlePoll
	}
	if err := rc.Validate(); err != nil {
		return rc, err
	}
	return rc, nil
}

// runOptions controls a single run independently of the kitchen layout.
type runOptions struct {
	Seed         int64
	Lines        int
	AddLineEvery time.Duration
	Duration     time.Duration
	Grace        time.Duration
	TraceLevel   trace.TraceLevel
	ResultsPath  string
	ListenAddr   string
}

// runKitchen starts a server, adds lines, stops it gracefully after opts.Duration (or when
// ctx ends) and writes the status report to out.
func runKitchen(ctx context.Context, rc RunConfig, opts runOptions, out io.Writer) error {
	reg := prometheus.NewRegistry()
	policy := rc.Policy
	s, err := sim.NewServer(rc.Kitchen,
		sim.WithSeed(opts.Seed),
		sim.WithPolicy(func(int) sim.ProductionPolicy { return policy }),
		sim.WithTrace(trace.NewSimulationTrace(trace.TraceConfig{Level: opts.TraceLevel})),
		sim.WithMetrics(metrics.New(reg)),
	)
	if err != nil {
		return err
	}
	logrus.Infof("Starting run %s: units=%v buffers=%v lines=%d duration=%s seed=%d",
		s.RunID(), rc.Kitchen.UnitCapacities, rc.Kitchen.BufferCapacities, opts.Lines, opts.Duration, opts.Seed)

	// The server outlives ctx so that a signal triggers a graceful stop, not a kill.
	if err := s.Start(context.Background()); err != nil {
		return err
	}

	httpCtx, stopHTTP := context.WithCancel(ctx)
	defer stopHTTP()
	if opts.ListenAddr != "" {
		go func() {
			if err := serveHTTP(httpCtx, opts.ListenAddr, newHandler(s, reg)); err != nil {
				logrus.Errorf("http: %v", err)
			}
		}()
	}

	for i := 0; i < opts.Lines; i++ {
		if _, err := s.AddLine(); err != nil {
			s.Kill()
			return err
		}
	}

	var addTick <-chan time.Time
	if opts.AddLineEvery > 0 {
		ticker := time.NewTicker(opts.AddLineEvery)
		defer ticker.Stop()
		addTick = ticker.C
	}
	var deadline <-chan time.Time
	if opts.Duration > 0 {
		timer := time.NewTimer(opts.Duration)
		defer timer.Stop()
		deadline = timer.C
	}

wait:
	for {
		select {
		case <-ctx.Done():
			logrus.Infof("Interrupted, stopping kitchen")
			break wait
		case <-deadline:
			break wait
		case <-addTick:
			if _, err := s.AddLine(); err != nil {
				logrus.Warnf("add line: %v", err)
			}
		}
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), opts.Grace)
	defer cancel()
	if err := s.Stop(stopCtx); err != nil {
		logrus.Warnf("Graceful stop incomplete: %v", err)
	}
	stopHTTP()

	for _, st := range s.StatusAll() {
		l, err := s.Line(st.ID)
		if err != nil {
			return err
		}
		l.DrainFinished()
	}
	if err := sim.WriteStatusReport(out, s.StatusAll(), s.Holders()); err != nil {
		return err
	}
	if opts.ResultsPath != "" {
		if err := sim.SaveResults(sim.CollectResults(s, opts.Seed), opts.ResultsPath); err != nil {
			return err
		}
		logrus.Infof("Results written to %s", opts.ResultsPath)
	}
	return nil
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {
	for _, c := range []*cobra.Command{runCmd, validateCmd} {
		c.Flags().StringVar(&configPath, "config", "", "Path to a kitchen YAML config")
		c.Flags().Float64SliceVar(&unitCapacities, "units", []float64{30, 30}, "Comma-separated capacities of the cooking units")
		c.Flags().Float64SliceVar(&bufferCaps, "buffers", []float64{15}, "Comma-separated capacities of the overflow buffers")
		c.Flags().StringVar(&ordering, "ordering", string(sim.OrderingStrict), "Outbound ordering (strict, relaxed)")
		c.Flags().DurationVar(&timeUnit, "time-unit", time.Second, "Length of one production time unit")
		c.Flags().DurationVar(&idlePoll, "idle-poll", sim.DefaultIdlePoll, "Scheduler wait after a cycle that moved nothing")
	}

	runCmd.Flags().Int64Var(&seed, "seed", 42, "Seed for item generation")
	runCmd.Flags().StringVar(&logLevel, "log", "info", "Log level (trace, debug, info, warn, error, fatal, panic)")
	runCmd.Flags().IntVar(&numLines, "lines", 2, "Number of production lines created at start")
	runCmd.Flags().DurationVar(&addLineEvery, "add-line-every", 0, "Add another production line at this period (0 disables)")
	runCmd.Flags().DurationVar(&runDuration, "duration", time.Minute, "How long lines produce before a graceful stop (0 = until interrupted)")
	runCmd.Flags().DurationVar(&gracePeriod, "grace", 30*time.Second, "Graceful stop timeout; items still cooking afterwards are lost")
	runCmd.Flags().StringVar(&traceLevel, "trace", string(trace.TraceLevelNone), "Decision trace level (none, decisions)")
	runCmd.Flags().StringVar(&resultsPath, "results", "", "Write results JSON to this path")
	runCmd.Flags().StringVar(&listenAddr, "listen", "", "Serve line requests and /metrics on this address (e.g. :8080)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(validateCmd)
}
