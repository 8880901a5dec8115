package main

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/chaoslab/dpsim/internal/analysis"
	"github.com/chaoslab/dpsim/internal/config"
	"github.com/chaoslab/dpsim/internal/dynamo"
	"github.com/chaoslab/dpsim/internal/export"
	"github.com/chaoslab/dpsim/internal/frames"
	"github.com/chaoslab/dpsim/internal/integrators"
	"github.com/chaoslab/dpsim/internal/metrics"
	"github.com/chaoslab/dpsim/internal/physics"
	"github.com/chaoslab/dpsim/internal/storage"
	"github.com/chaoslab/dpsim/internal/viz"
)

var (
	dataDir    string
	dt         float64
	duration   float64
	theta1     float64
	omega1     float64
	theta2     float64
	omega2     float64
	l1         float64
	l2         float64
	m1         float64
	m2         float64
	gravity    float64
	integrator string
	tolerance  float64
	deadline   time.Duration
	configFile string
	preset     string
	perturb    float64
	xAxis      int
	yAxis      int
	frameRate  int
	gifPath    string
	svgPath    string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "dpsim",
		Short: "double pendulum simulation lab",
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".dpsim", "data directory")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run a simulation",
		RunE:  runSimulation,
	}
	addRunFlags(runCmd)
	runCmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	runCmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot run results",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	phaseCmd := &cobra.Command{
		Use:   "phase [run_id]",
		Short: "phase space plot",
		Args:  cobra.ExactArgs(1),
		RunE:  phasePlot,
	}
	phaseCmd.Flags().IntVar(&xAxis, "x-axis", 0, "state index for x-axis")
	phaseCmd.Flags().IntVar(&yAxis, "y-axis", 1, "state index for y-axis")

	analyzeCmd := &cobra.Command{
		Use:   "analyze",
		Short: "chaos analysis: divergence and Lyapunov exponent",
		RunE:  analyzeChaos,
	}
	addRunFlags(analyzeCmd)
	analyzeCmd.Flags().Float64Var(&perturb, "perturb", 1e-4, "theta2 perturbation (rad)")

	compareCmd := &cobra.Command{
		Use:   "compare [integrator1] [integrator2] ...",
		Short: "compare integrators on the same run",
		Args:  cobra.MinimumNArgs(1),
		RunE:  compareIntegrators,
	}
	addRunFlags(compareCmd)

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		RunE: func(cmd *cobra.Command, args []string) error {
			names := config.ListPresets()
			sort.Strings(names)
			for _, p := range names {
				fmt.Println(p)
			}
			return nil
		},
	}

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export run data to CSV",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export run data to JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}

	animateCmd := &cobra.Command{
		Use:   "animate [run_id]",
		Short: "play back a run in the terminal",
		Args:  cobra.ExactArgs(1),
		RunE:  animateRun,
	}
	animateCmd.Flags().IntVar(&frameRate, "fps", 30, "frame rate")

	gifCmd := &cobra.Command{
		Use:   "gif [run_id]",
		Short: "render a run to an animated GIF",
		Args:  cobra.ExactArgs(1),
		RunE:  renderGIF,
	}
	gifCmd.Flags().StringVar(&gifPath, "out", "double_pendulum.gif", "output file")
	gifCmd.Flags().IntVar(&frameRate, "fps", 30, "frame rate")

	svgCmd := &cobra.Command{
		Use:   "svg [run_id]",
		Short: "render the bob trail to SVG",
		Args:  cobra.ExactArgs(1),
		RunE:  renderSVG,
	}
	svgCmd.Flags().StringVar(&svgPath, "out", "trail.svg", "output file")

	rootCmd.AddCommand(runCmd, listCmd, plotCmd, phaseCmd, analyzeCmd, compareCmd,
		presetsCmd, exportCSVCmd, exportJSONCmd, animateCmd, gifCmd, svgCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&dt, "dt", 0.01, "output sampling interval (s)")
	cmd.Flags().Float64Var(&duration, "time", 20.0, "duration (s)")
	cmd.Flags().Float64Var(&theta1, "theta1", math.Pi/2, "initial angle of arm 1 (rad)")
	cmd.Flags().Float64Var(&omega1, "omega1", 0.0, "initial angular velocity of arm 1 (rad/s)")
	cmd.Flags().Float64Var(&theta2, "theta2", math.Pi/2+0.1, "initial angle of arm 2 (rad)")
	cmd.Flags().Float64Var(&omega2, "omega2", 0.0, "initial angular velocity of arm 2 (rad/s)")
	cmd.Flags().Float64Var(&l1, "l1", physics.DefaultLength, "length of arm 1 (m)")
	cmd.Flags().Float64Var(&l2, "l2", physics.DefaultLength, "length of arm 2 (m)")
	cmd.Flags().Float64Var(&m1, "m1", physics.DefaultMass, "mass of bob 1 (kg)")
	cmd.Flags().Float64Var(&m2, "m2", physics.DefaultMass, "mass of bob 2 (kg)")
	cmd.Flags().Float64Var(&gravity, "g", physics.DefaultGravity, "gravitational acceleration (m/s^2)")
	cmd.Flags().StringVar(&integrator, "integrator", "rk45", "integrator (euler|rk4|rk45)")
	cmd.Flags().Float64Var(&tolerance, "tol", 1e-8, "error tolerance (rk45)")
	cmd.Flags().DurationVar(&deadline, "deadline", 0, "wall-clock limit for the run (0 = none)")
}

func getIntegrator(name string) (dynamo.Integrator, error) {
	switch name {
	case "euler":
		return integrators.NewEuler(), nil
	case "rk4":
		return integrators.NewRK4(), nil
	case "rk45":
		return integrators.NewRK45(), nil
	default:
		return nil, fmt.Errorf("unknown integrator: %s", name)
	}
}

// buildConfig merges preset, config file, and CLI flags in that order.
func buildConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()

	if preset != "" {
		p := config.GetPreset(preset)
		if p == nil {
			names := config.ListPresets()
			sort.Strings(names)
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, names)
		}
		cfg = p
	}

	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	// With no preset or file the flag defaults are the initial condition;
	// otherwise flags only override when set explicitly.
	bare := preset == "" && configFile == ""

	flagged := func(name string) bool { return cmd.Flags().Changed(name) }
	if flagged("dt") {
		cfg.Dt = dt
	}
	if flagged("time") {
		cfg.Duration = duration
	}
	if flagged("integrator") {
		cfg.Integrator = integrator
	}
	if flagged("tol") {
		cfg.Tolerance = tolerance
	}
	if flagged("deadline") {
		cfg.Deadline = deadline
	}
	if bare || flagged("theta1") {
		cfg.InitState.Theta1 = theta1
	}
	if bare || flagged("omega1") {
		cfg.InitState.Omega1 = omega1
	}
	if bare || flagged("theta2") {
		cfg.InitState.Theta2 = theta2
	}
	if bare || flagged("omega2") {
		cfg.InitState.Omega2 = omega2
	}
	if flagged("l1") {
		cfg.Params.L1 = l1
	}
	if flagged("l2") {
		cfg.Params.L2 = l2
	}
	if flagged("m1") {
		cfg.Params.M1 = m1
	}
	if flagged("m2") {
		cfg.Params.M2 = m2
	}
	if flagged("g") {
		cfg.Params.G = gravity
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	model, err := physics.NewDoublePendulum(cfg.ToParams())
	if err != nil {
		return err
	}

	integ, err := getIntegrator(cfg.Integrator)
	if err != nil {
		return err
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	sim := dynamo.New(model, integ)
	sim.AddMetric(metrics.NewEnergyDrift(model))
	sim.AddMetric(metrics.NewStability(100.0))

	fmt.Println("running double pendulum simulation...")
	start := time.Now()

	result, err := sim.Run(context.Background(), cfg.ToInitState(), cfg.ToRunConfig())
	if err != nil {
		var simErr *dynamo.SimulationError
		if errors.As(err, &simErr) && simErr.Partial != nil && len(simErr.Partial.States) > 0 {
			fmt.Printf("run failed at t=%.4f: %v (keeping %d partial samples)\n",
				simErr.Time, simErr.Wrapped, len(simErr.Partial.States))
			result = simErr.Partial
		} else {
			return err
		}
	}

	elapsed := time.Since(start)

	runID, err := st.Save(storage.RunMetadata{
		Params:     model.Params(),
		InitState:  cfg.ToInitState(),
		Dt:         cfg.Dt,
		Duration:   cfg.Duration,
		Integrator: cfg.Integrator,
	}, result)
	if err != nil {
		return err
	}

	fmt.Printf("completed in %v\n", elapsed)
	fmt.Printf("run id: %s\n", runID)
	fmt.Printf("samples: %d\n", len(result.States))
	fmt.Printf("energy drift: %.3e\n", result.EnergyDrift)
	fmt.Println("\nmetrics:")
	names := make([]string, 0, len(result.Metrics))
	for name := range result.Metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("  %s: %.6f\n", name, result.Metrics[name])
	}

	return nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTIME\tDURATION\tDT\tINTEG\tDRIFT")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%.2fs\t%.4fs\t%s\t%.2e\n",
			run.ID,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Duration,
			run.Dt,
			run.Integrator,
			run.Metrics["energy_drift"],
		)
	}

	return w.Flush()
}

var stateCaptions = []string{
	"theta1 (angle, arm 1)",
	"omega1 (angular velocity, arm 1)",
	"theta2 (angle, arm 2)",
	"omega2 (angular velocity, arm 2)",
}

func plotRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}

	states, _, err := st.LoadStates(args[0])
	if err != nil {
		return err
	}
	if len(states) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("samples: %d\n\n", len(states))

	for varIdx := 0; varIdx < len(states[0]); varIdx++ {
		data := make([]float64, len(states))
		for i := range states {
			data[i] = states[i][varIdx]
		}

		caption := fmt.Sprintf("x%d vs time", varIdx)
		if varIdx < len(stateCaptions) {
			caption = stateCaptions[varIdx]
		}

		graph := asciigraph.Plot(data,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(caption),
		)
		fmt.Println(graph)
		fmt.Println()
	}

	return nil
}

func phasePlot(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}

	states, _, err := st.LoadStates(args[0])
	if err != nil {
		return err
	}
	if len(states) == 0 {
		return fmt.Errorf("no data to plot")
	}

	raw := make([][]float64, len(states))
	for i, s := range states {
		raw[i] = s
	}

	portrait := analysis.NewPhasePortrait(raw, xAxis, yAxis)
	if portrait == nil {
		return fmt.Errorf("state dimension too small for selected axes")
	}

	fmt.Printf("phase space plot: %s\n", meta.ID)
	fmt.Printf("x-axis: x%d, y-axis: x%d\n\n", xAxis, yAxis)
	fmt.Println(portrait.ASCII(70, 20))

	return nil
}

func analyzeChaos(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	model, err := physics.NewDoublePendulum(cfg.ToParams())
	if err != nil {
		return err
	}
	integ, err := getIntegrator(cfg.Integrator)
	if err != nil {
		return err
	}

	x0 := cfg.ToInitState()

	fmt.Printf("divergence of two runs differing by %.1e rad in theta2\n\n", perturb)

	div := analysis.BobDivergence(model, integ, x0, perturb, cfg.Dt, cfg.Duration)

	graph := asciigraph.Plot(logSeries(div.Distance),
		asciigraph.Height(12),
		asciigraph.Width(80),
		asciigraph.Caption("log10 bob separation (m)"),
	)
	fmt.Println(graph)
	fmt.Println()

	fmt.Printf("initial separation: %.3e m\n", div.Initial)
	fmt.Printf("peak separation:    %.3e m (%.0fx)\n", div.Initial*div.MaxRatio(), div.MaxRatio())

	lambda := analysis.LyapunovExponent(model, integ, x0, cfg.Dt, cfg.Duration, perturb)
	fmt.Printf("largest Lyapunov exponent: %.4f /s", lambda)
	if lambda > 0 {
		fmt.Print("  (chaotic)")
	}
	fmt.Println()

	return nil
}

func logSeries(data []float64) []float64 {
	out := make([]float64, len(data))
	for i, v := range data {
		if v <= 0 {
			v = 1e-300
		}
		out[i] = math.Log10(v)
	}
	return out
}

func compareIntegrators(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	model, err := physics.NewDoublePendulum(cfg.ToParams())
	if err != nil {
		return err
	}
	x0 := cfg.ToInitState()

	fmt.Printf("comparing integrators (dt=%.4f, duration=%.1fs)\n\n", cfg.Dt, cfg.Duration)
	fmt.Printf("%-12s  %-14s  %-12s  %-10s\n", "integrator", "final theta1", "energy_drift", "time_ms")
	fmt.Println(strings.Repeat("-", 54))

	for _, name := range args {
		integ, err := getIntegrator(name)
		if err != nil {
			fmt.Printf("%-12s  error: %v\n", name, err)
			continue
		}

		sim := dynamo.New(model, integ)
		rc := cfg.ToRunConfig()
		rc.Adaptive = name == "rk45"

		start := time.Now()
		result, err := sim.Run(context.Background(), x0, rc)
		elapsed := time.Since(start)

		if err != nil {
			fmt.Printf("%-12s  error: %v\n", name, err)
			continue
		}

		last, _ := result.Last()
		fmt.Printf("%-12s  %14.6f  %12.2e  %10.2f\n",
			name, last[0], result.EnergyDrift, float64(elapsed.Microseconds())/1000)
	}

	return nil
}

func loadRun(runID string) (*storage.RunMetadata, []frames.Frame, []dynamo.State, []float64, error) {
	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	states, times, err := st.LoadStates(runID)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	if len(states) == 0 {
		return nil, nil, nil, nil, fmt.Errorf("run %s has no samples", runID)
	}

	model, err := physics.NewDoublePendulum(meta.Params)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	result := &dynamo.Result{States: states, Times: times}
	return meta, frames.FromResult(model, result), states, times, nil
}

func exportCSV(cmd *cobra.Command, args []string) error {
	_, fs, states, times, err := loadRun(args[0])
	if err != nil {
		return err
	}
	return storage.ExportCSV(os.Stdout, states, times, fs)
}

func exportJSON(cmd *cobra.Command, args []string) error {
	meta, fs, states, times, err := loadRun(args[0])
	if err != nil {
		return err
	}
	return storage.ExportJSON(os.Stdout, meta, states, times, fs)
}

func animateRun(cmd *cobra.Command, args []string) error {
	meta, fs, _, _, err := loadRun(args[0])
	if err != nil {
		return err
	}

	player := viz.NewPlayer(fs, "double pendulum "+meta.ID,
		viz.Reach(meta.Params.L1, meta.Params.L2), frameRate)

	p := tea.NewProgram(player)
	if _, err := p.Run(); err != nil {
		return err
	}
	return nil
}

func renderGIF(cmd *cobra.Command, args []string) error {
	meta, fs, _, _, err := loadRun(args[0])
	if err != nil {
		return err
	}

	// Keep the GIF near real time: skip frames when sampling outpaces fps.
	stride := 1
	if meta.Dt > 0 {
		stride = int(math.Round(1.0 / (meta.Dt * float64(frameRate))))
		if stride < 1 {
			stride = 1
		}
	}

	fmt.Printf("rendering %d frames to %s...\n", (len(fs)+stride-1)/stride, gifPath)
	if err := viz.RenderGIF(gifPath, fs, viz.Reach(meta.Params.L1, meta.Params.L2), frameRate, stride); err != nil {
		return err
	}
	fmt.Println("done")
	return nil
}

func renderSVG(cmd *cobra.Command, args []string) error {
	meta, fs, _, _, err := loadRun(args[0])
	if err != nil {
		return err
	}

	xs := make([]float64, len(fs))
	ys := make([]float64, len(fs))
	for i, f := range fs {
		xs[i], ys[i] = f.X2, f.Y2
	}

	canvas := viz.TrailCanvas(xs, ys, viz.Reach(meta.Params.L1, meta.Params.L2), 80, 40)
	svg := export.CanvasToSVG(canvas, 4.0)

	if err := os.WriteFile(svgPath, []byte(svg), 0644); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", svgPath)
	return nil
}
