package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/crtsim/internal/automation"
	"github.com/san-kum/crtsim/internal/config"
	"github.com/san-kum/crtsim/internal/experiment"
	"github.com/san-kum/crtsim/internal/export"
	"github.com/san-kum/crtsim/internal/geometry"
	"github.com/san-kum/crtsim/internal/optim"
	"github.com/san-kum/crtsim/internal/stream"
	"github.com/san-kum/crtsim/internal/viz"
	"github.com/spf13/cobra"
)

var (
	configFile string
	preset     string
	dt         float64
	ticks      int
	integrator string
	seed       int64
	workers    int
	logLevel   string
	logFormat  string
	// run
	runs int
	// live
	theme     string
	liveSteps int
	// serve
	addr       string
	interval   time.Duration
	serveSteps int
	// tune
	tunePlate string
	tuneLo    float64
	tuneHi    float64
	tuneSteps int
	tuneGoal  float64
	// sweep
	sweepPlate string
	sweepLo    float64
	sweepHi    float64
	sweepSteps int
	// export
	outFile string
)

// main runs the crtsim root command and exits with status 1 if it returns
// an error.
func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// newRootCmd registers the crtsim commands and binds their flags.
func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "crtsim",
		Short: "charged particle simulation between electrostatic plates",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupLogger(cmd.ErrOrStderr())
		},
		SilenceUsage: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&configFile, "config", "c", "", "scene YAML file")
	pf.StringVarP(&preset, "preset", "p", "", "scene preset (see 'crtsim presets')")
	pf.Float64Var(&dt, "dt", config.DefaultDt, "time step in seconds")
	pf.IntVar(&ticks, "ticks", config.DefaultTicks, "number of ticks to run")
	pf.StringVar(&integrator, "integrator", config.DefaultIntegrator, "integration scheme")
	pf.Int64Var(&seed, "seed", 0, "spawn jitter seed")
	pf.IntVar(&workers, "workers", 0, "tick workers (0 = GOMAXPROCS, 1 = serial)")
	pf.StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	pf.StringVar(&logFormat, "log-format", "text", "log format: text, json")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run a scene and print its metrics",
		RunE:  runScene,
	}
	runCmd.Flags().IntVar(&runs, "runs", 1, "number of runs with consecutive seeds")

	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "watch a scene in the terminal",
		RunE:  runLive,
	}
	liveCmd.Flags().StringVar(&theme, "theme", "", "phosphor theme")
	liveCmd.Flags().IntVar(&liveSteps, "steps", 2, "ticks per frame")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "stream a scene over websocket",
		RunE:  runServe,
	}
	serveCmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	serveCmd.Flags().DurationVar(&interval, "interval", 33*time.Millisecond, "frame interval")
	serveCmd.Flags().IntVar(&serveSteps, "steps", 2, "ticks per frame")

	tuneCmd := &cobra.Command{
		Use:   "tune",
		Short: "grid search a plate charge for a target deflection",
		RunE:  runTune,
	}
	tuneCmd.Flags().StringVar(&tunePlate, "plate", "", "plate to tune (default: steering plate)")
	tuneCmd.Flags().Float64Var(&tuneLo, "min", -2e-9, "lowest charge")
	tuneCmd.Flags().Float64Var(&tuneHi, "max", 2e-9, "highest charge")
	tuneCmd.Flags().IntVar(&tuneSteps, "steps", 21, "grid points")
	tuneCmd.Flags().Float64Var(&tuneGoal, "target", 0.5, "target mean deflection")

	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "run a scene over a range of plate charges",
		RunE:  runSweep,
	}
	sweepCmd.Flags().StringVar(&sweepPlate, "plate", "", "plate to sweep (default: steering plate)")
	sweepCmd.Flags().Float64Var(&sweepLo, "min", -2e-9, "lowest charge")
	sweepCmd.Flags().Float64Var(&sweepHi, "max", 2e-9, "highest charge")
	sweepCmd.Flags().IntVar(&sweepSteps, "steps", 9, "grid points")

	scenarioCmd := &cobra.Command{
		Use:   "scenario [file]",
		Short: "run a scripted sequence of scenes",
		Args:  cobra.ExactArgs(1),
		RunE:  runScenario,
	}

	benchCmd := &cobra.Command{
		Use:   "bench",
		Short: "measure ticks per second for each integrator",
		RunE:  benchScene,
	}

	compareCmd := &cobra.Command{
		Use:   "compare [integrator...]",
		Short: "compare integrators on the same scene",
		RunE:  compareIntegrators,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list scene presets",
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "PRESET\tPLATES\tTICKS\tSTEERING")
			for _, name := range config.ListPresets() {
				cfg := config.GetPreset(name)
				fmt.Fprintf(w, "%s\t%d\t%d\t%s\n", name, len(cfg.Plates), cfg.Ticks, cfg.Steering.Controller)
			}
			return w.Flush()
		},
	}

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv",
		Short: "run a scene and write sampled particles as CSV",
		RunE: exportWith(func(w io.Writer, exp *experiment.Experiment, res *experiment.Result) error {
			return export.FramesCSV(w, res)
		}),
	}

	exportHitsCmd := &cobra.Command{
		Use:   "export-hits",
		Short: "run a scene and write screen hits as CSV",
		RunE: exportWith(func(w io.Writer, exp *experiment.Experiment, res *experiment.Result) error {
			return export.HitsCSV(w, res)
		}),
	}

	exportJSONCmd := &cobra.Command{
		Use:   "export-json",
		Short: "run a scene and write the result as JSON",
		RunE: exportWith(func(w io.Writer, exp *experiment.Experiment, res *experiment.Result) error {
			return export.JSON(w, res)
		}),
	}

	exportSVGCmd := &cobra.Command{
		Use:   "export-svg",
		Short: "run a scene and draw the trajectories as SVG",
		RunE: exportWith(func(w io.Writer, exp *experiment.Experiment, res *experiment.Result) error {
			opts := export.DefaultSVGOptions()
			h, err := geometry.ParseAxis(exp.Config().Lifecycle.TravelAxis)
			if err != nil {
				return err
			}
			v, err := geometry.ParseAxis(exp.Config().Steering.Axis)
			if err != nil {
				return err
			}
			opts.Horizontal, opts.Vertical = h, v
			_, err = io.WriteString(w, export.TrajectoriesToSVG(res, exp.Plates().Snapshot(), opts))
			return err
		}),
	}

	for _, c := range []*cobra.Command{exportCSVCmd, exportHitsCmd, exportJSONCmd, exportSVGCmd} {
		c.Flags().StringVarP(&outFile, "out", "o", "", "output file (default stdout)")
	}

	rootCmd.AddCommand(runCmd, liveCmd, serveCmd, tuneCmd, sweepCmd, scenarioCmd, benchCmd, compareCmd, presetsCmd,
		exportCSVCmd, exportHitsCmd, exportJSONCmd, exportSVGCmd)

	return rootCmd
}

func setupLogger(w io.Writer) error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(logLevel)); err != nil {
		return fmt.Errorf("bad log level %q: %w", logLevel, err)
	}
	opts := &slog.HandlerOptions{Level: level}

	var h slog.Handler
	switch logFormat {
	case "text":
		h = slog.NewTextHandler(w, opts)
	case "json":
		h = slog.NewJSONHandler(w, opts)
	default:
		return fmt.Errorf("bad log format %q (want text or json)", logFormat)
	}
	slog.SetDefault(slog.New(h))
	return nil
}

// loadConfig resolves the scene: preset, then config file, then any flag
// the user set explicitly.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()

	if preset != "" {
		cfg = config.GetPreset(preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	}

	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("dt") {
		cfg.Dt = dt
	}
	if flags.Changed("ticks") {
		cfg.Ticks = ticks
	}
	if flags.Changed("integrator") {
		cfg.Integrator = integrator
	}
	if flags.Changed("seed") {
		cfg.Seed = seed
	}
	if flags.Changed("workers") {
		cfg.Workers = workers
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

func runScene(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	out := cmd.OutOrStdout()
	if runs > 1 {
		return runEnsemble(ctx, out, cfg)
	}

	exp, err := experiment.New(cfg, experiment.WithLogger(slog.Default()))
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "running %s (%d ticks, dt=%g)...\n", cfg.Name, cfg.Ticks, cfg.Dt)
	start := time.Now()

	result, err := exp.Run(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "completed in %v\n", time.Since(start))
	fmt.Fprintf(out, "hits: %d  faults: %d  frames: %d\n", len(result.Hits), len(result.Faults), len(result.Frames))

	printMetrics(out, result.Metrics)

	axis, err := geometry.ParseAxis(cfg.Steering.Axis)
	if err != nil {
		return err
	}
	if len(result.Hits) > 1 {
		landing := make([]float64, len(result.Hits))
		for i, h := range result.Hits {
			landing[i] = geometry.Component(h.Position, axis)
		}
		fmt.Fprintln(out)
		fmt.Fprintln(out, asciigraph.Plot(landing,
			asciigraph.Height(10),
			asciigraph.Width(60),
			asciigraph.Caption("screen landing position by hit")))
	}
	return nil
}

func runEnsemble(ctx context.Context, out io.Writer, cfg *config.Config) error {
	fmt.Fprintf(out, "running %d x %s...\n", runs, cfg.Name)
	start := time.Now()

	results, err := experiment.NewEnsemble(cfg, runs, cfg.Seed, experiment.WithLogger(slog.Default())).Run(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "completed in %v\n", time.Since(start))
	printMetrics(out, experiment.MeanMetrics(results))
	return nil
}

func printMetrics(out io.Writer, m map[string]float64) {
	fmt.Fprintln(out, "\nmetrics:")
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %s\t%.6g\n", name, m[name])
	}
	w.Flush()
}

func runLive(cmd *cobra.Command, args []string) error {
	if preset == "" && configFile == "" {
		picker, err := tea.NewProgram(viz.NewPicker(config.ListPresets())).Run()
		if err != nil {
			return err
		}
		chosen := picker.(viz.Picker).Chosen
		if chosen == "" {
			return nil
		}
		preset = chosen
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	// The TUI owns the terminal, so logs would corrupt the screen.
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))

	build := func() (*experiment.Experiment, error) {
		return experiment.New(cfg.Clone(), experiment.WithLogger(quiet))
	}

	opts := []viz.Option{viz.WithStepsPerFrame(liveSteps)}
	if theme != "" {
		opts = append(opts, viz.WithTheme(theme))
	}
	model, err := viz.NewModel(build, opts...)
	if err != nil {
		return err
	}

	_, err = tea.NewProgram(model, tea.WithAltScreen()).Run()
	return err
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	exp, err := experiment.New(cfg, experiment.WithLogger(slog.Default()))
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	srv := stream.New(exp,
		stream.WithInterval(interval),
		stream.WithStepsPerFrame(serveSteps),
		stream.WithLogger(slog.Default()))
	return srv.ListenAndServe(ctx, addr)
}

func runTune(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	plate := tunePlate
	if plate == "" {
		plate = cfg.Steering.Plate
	}
	if plate == "" {
		return fmt.Errorf("no plate to tune: pass --plate or set steering.plate")
	}

	// Tuning sweeps static charges, so the controller must not overwrite them.
	cfg.Steering.Controller = "none"
	cfg.Steering.Target = tuneGoal

	ctx, stop := signalContext()
	defer stop()

	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	grid := optim.NewGridSearch([]string{plate}, [][]float64{optim.Linspace(tuneLo, tuneHi, tuneSteps)},
		optim.WithWorkers(runtime.NumCPU()))

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "tuning %s over [%g, %g] in %d steps for deflection %g...\n", plate, tuneLo, tuneHi, tuneSteps, tuneGoal)
	start := time.Now()

	best, score, err := grid.Search(ctx, optim.ChargeBuilder(cfg, experiment.WithLogger(quiet)), "target_error")
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "completed in %v\n", time.Since(start))
	fmt.Fprintf(out, "best charge: %s = %g C\n", plate, best[plate])
	fmt.Fprintf(out, "target error: %.6g\n", score)
	return nil
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	cfg.SampleEvery = 0

	plate := sweepPlate
	if plate == "" {
		plate = cfg.Steering.Plate
	}
	if plate == "" {
		return fmt.Errorf("no plate to sweep: pass --plate or set steering.plate")
	}

	ctx, stop := signalContext()
	defer stop()

	results, err := automation.RunSweep(ctx, &automation.ChargeSweep{
		Base:     cfg,
		Plate:    plate,
		ChargeLo: sweepLo,
		ChargeHi: sweepHi,
		NumSteps: sweepSteps,
	}, nil)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CHARGE\tHITS\tDEFLECTION\tSPOT")
	deflection := make([]float64, len(results))
	for i, r := range results {
		fmt.Fprintf(w, "%.3g\t%d\t%.6g\t%.6g\n", r.Charge, r.Hits, r.Deflection, r.SpotSize)
		deflection[i] = r.Deflection
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, asciigraph.Plot(deflection,
		asciigraph.Height(10),
		asciigraph.Caption(fmt.Sprintf("mean deflection vs %s charge", plate))))
	return nil
}

func runScenario(cmd *cobra.Command, args []string) error {
	scenario, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	results, err := automation.RunScenario(ctx, scenario, slog.Default())

	out := cmd.OutOrStdout()
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STEP\tSCENE\tTICKS\tHITS\tFAULTS\tDEFLECTION")
	for i, r := range results {
		fmt.Fprintf(w, "%d\t%s\t%d\t%d\t%d\t%.6g\n", i+1, r.Scene, r.Ticks, len(r.Hits), len(r.Faults), r.Metrics["mean_deflection"])
	}
	w.Flush()

	landed, faulted := automation.MonteCarloStats(results)
	fmt.Fprintf(out, "\n%d/%d steps landed particles, %d faulted\n", landed, len(results), faulted)
	return err
}

func benchScene(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	cfg.SampleEvery = 0

	registry := experiment.NewRegistry()
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "benchmarking %s (%d ticks)\n\n", cfg.Name, cfg.Ticks)
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "INTEGRATOR\tWORKERS\tTICKS\tTIME\tTICKS/SEC")

	for _, name := range registry.ListIntegrators() {
		for _, nw := range []int{1, 0} {
			c := cfg.Clone()
			c.Integrator = name
			c.Workers = nw

			exp, err := experiment.New(c, experiment.WithLogger(quiet))
			if err != nil {
				return err
			}

			start := time.Now()
			result, err := exp.Run(context.Background())
			if err != nil {
				return err
			}
			elapsed := time.Since(start)

			fmt.Fprintf(w, "%s\t%d\t%d\t%v\t%.0f\n",
				name, nw, result.Ticks, elapsed, float64(result.Ticks)/elapsed.Seconds())
		}
	}

	return w.Flush()
}

func compareIntegrators(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	names := args
	if len(names) == 0 {
		names = experiment.NewRegistry().ListIntegrators()
	}
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "comparing integrators for %s (dt=%g, ticks=%d)\n\n", cfg.Name, cfg.Dt, cfg.Ticks)
	fmt.Fprintf(out, "%-12s  %-8s  %-14s  %-14s  %-12s\n", "integrator", "hits", "deflection", "energy_drift", "time_ms")
	fmt.Fprintln(out, strings.Repeat("-", 68))

	for _, name := range names {
		c := cfg.Clone()
		c.Integrator = name

		exp, err := experiment.New(c, experiment.WithLogger(quiet))
		if err != nil {
			fmt.Fprintf(out, "%-12s  error: %v\n", name, err)
			continue
		}

		start := time.Now()
		result, err := exp.Run(context.Background())
		elapsed := time.Since(start)
		if err != nil {
			fmt.Fprintf(out, "%-12s  error: %v\n", name, err)
			continue
		}

		fmt.Fprintf(out, "%-12s  %8d  %14.6g  %14.3e  %12.2f\n", name, len(result.Hits),
			result.Metrics["mean_deflection"], result.Metrics["energy_drift"], float64(elapsed.Microseconds())/1000)
	}

	return nil
}

func exportWith(write func(io.Writer, *experiment.Experiment, *experiment.Result) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		exp, err := experiment.New(cfg, experiment.WithLogger(slog.Default()))
		if err != nil {
			return err
		}

		ctx, stop := signalContext()
		defer stop()

		result, err := exp.Run(ctx)
		if err != nil {
			return err
		}

		var w io.Writer = cmd.OutOrStdout()
		if outFile != "" {
			f, err := os.Create(outFile)
			if err != nil {
				return err
			}
			defer f.Close()
			w = f
		}

		if err := write(w, exp, result); err != nil {
			return err
		}
		if outFile != "" {
			slog.Info("exported", "file", outFile, "hits", len(result.Hits), "frames", len(result.Frames))
		}
		return nil
	}
}
