package main

import (
	"context"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"weld/internal/diag"
	"weld/internal/diagfmt"
	"weld/internal/image"
	"weld/internal/loader"
	"weld/internal/merge"
	"weld/internal/metadata"
	"weld/internal/observ"
	"weld/internal/progress"
	"weld/internal/trace"
)

var mergeCmd = &cobra.Command{
	Use:   "merge [flags] <primary> [inputs...]",
	Short: "Merge module images into one",
	Long: `Merge module images into one. The first input is the primary assembly:
the output takes its identity, kind and entry point unless overridden.
Without arguments the inputs come from weld.toml.`,
	RunE: runMerge,
}

func init() {
	registerMergeFlags(mergeCmd.Flags())
}

func runMerge(cmd *cobra.Command, args []string) error {
	s, err := resolveMergeSettings(cmd.Flags(), args)
	if err != nil {
		return err
	}
	root := cmd.Root().PersistentFlags()
	maxDiagnostics, err := root.GetInt("max-diagnostics")
	if err != nil {
		return fmt.Errorf("failed to get max-diagnostics flag: %w", err)
	}
	showTimings, err := root.GetBool("timings")
	if err != nil {
		return fmt.Errorf("failed to get timings flag: %w", err)
	}
	quiet, err := root.GetBool("quiet")
	if err != nil {
		return fmt.Errorf("failed to get quiet flag: %w", err)
	}
	if err := configTracing(cmd, s); err != nil {
		return err
	}
	s.opts.MaxDiagnostics = maxDiagnostics
	s.opts.EnableTimings = showTimings

	mode, err := readUIMode(s.ui)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	ctx := cmd.Context()
	a := metadata.NewArena(metadata.Hints{Modules: uint(len(s.inputs))})
	bag := diag.NewBag(maxDiagnostics)
	cliTimer := observ.NewTimer()

	var res *merge.Result
	pipeline := func(sink progress.Sink) error {
		var err error
		res, err = mergePipeline(ctx, a, s, bag, cliTimer, sink)
		return err
	}
	if shouldUseTUI(mode, out, s.format) {
		names := make([]string, len(s.inputs))
		for i, in := range s.inputs {
			names[i] = loader.AssemblyName(in)
		}
		err = runWithUI(ctx, out, "weld "+s.output, names, pipeline)
	} else {
		err = pipeline(nil)
	}
	if err != nil {
		_ = printDiagnostics(out, bag, s.format, quiet)
		return err
	}

	if err := printDiagnostics(out, bag, s.format, quiet); err != nil {
		return err
	}
	if s.format == "json" {
		return nil
	}
	if !quiet {
		if err := printRenames(out, res); err != nil {
			return err
		}
		fmt.Fprintf(out, "wrote %s (%s, %d inputs)\n", s.output, a.Module(res.Target).Identity, len(res.Inputs))
	}
	if showTimings {
		printTimings(out, cliTimer.Report(), res.Timings)
	}
	return nil
}

// mergePipeline loads, merges and writes. Diagnostics of every step end
// up in bag; a fatal one is also returned.
func mergePipeline(ctx context.Context, a *metadata.Arena, s *mergeSettings, bag *diag.Bag, timer *observ.Timer, sink progress.Sink) (res *merge.Result, err error) {
	run := trace.Begin(trace.FromContext(ctx), trace.ScopeRun, "weld merge", 0)
	run.WithExtra("output", s.output)
	defer func() {
		if err != nil {
			run.End(err.Error())
			return
		}
		run.End("ok")
	}()
	ctx = trace.WithSpan(ctx, run)

	done := timer.Track("load")
	loaded, err := loadInputs(ctx, a, s, bag, sink)
	done("")
	if err != nil {
		if f, ok := diag.AsFatal(err); ok {
			bag.Add(f.Diagnostic())
		}
		return nil, err
	}

	inputs := loaded.Inputs
	opts := s.opts
	opts.Progress = sink
	if s.attrFile != "" {
		opts.AttributeFile = inputs[len(inputs)-1]
		inputs = inputs[:len(inputs)-1]
	}
	res, err = merge.Run(ctx, a, inputs, opts)
	bag.Merge(res.Bag)
	if err != nil {
		return nil, err
	}

	done = timer.Track("write")
	report := progress.Track(sink, "", progress.StageWrite)
	err = image.WriteFile(s.output, a, res.Target)
	report(err)
	done(s.output)
	if err != nil {
		if f, ok := diag.AsFatal(err); ok {
			bag.Add(f.Diagnostic())
		}
		return nil, err
	}
	return res, nil
}

// loadInputs loads the inputs and the attribute file, if any, as the last
// module of the returned input list.
func loadInputs(ctx context.Context, a *metadata.Arena, s *mergeSettings, bag *diag.Bag, sink progress.Sink) (*loader.Result, error) {
	paths := s.inputs
	if s.attrFile != "" {
		paths = append(append([]string(nil), paths...), s.attrFile)
	}
	return loader.Load(ctx, a, paths, loader.Options{Search: s.search, Jobs: s.jobs, Progress: sink}, diag.BagReporter{Bag: bag})
}

// configTracing applies [trace] from weld.toml when no --trace flag was
// given on the command line.
func configTracing(cmd *cobra.Command, s *mergeSettings) error {
	if s.traceOutput == "" && s.traceLevel == "" {
		return nil
	}
	flags := cmd.Root().PersistentFlags()
	if flags.Changed("trace") || flags.Changed("trace-level") || trace.FromContext(cmd.Context()).Enabled() {
		return nil
	}
	level := s.traceLevel
	if level == "" {
		level = "phase"
	}
	mode, _ := flags.GetString("trace-mode")
	ringSize, _ := flags.GetInt("trace-ring-size")
	heartbeat, _ := flags.GetDuration("trace-heartbeat")
	cleanup, err := startTracer(cmd, s.traceOutput, level, mode, ringSize, heartbeat)
	if err != nil {
		return err
	}
	prev := traceCleanup
	traceCleanup = func(failed bool) {
		cleanup(failed)
		if prev != nil {
			prev(failed)
		}
	}
	return nil
}

func printDiagnostics(w io.Writer, bag *diag.Bag, format string, quiet bool) error {
	if format == "json" {
		bag.Sort()
		return diagfmt.JSON(w, bag, diagfmt.JSONOpts{IncludeNotes: true})
	}
	opts := diagfmt.PrettyOpts{Color: colorEnabled(), ShowNotes: !quiet}
	if quiet {
		opts.MinSeverity = diag.SevWarning
	}
	if err := diagfmt.Pretty(w, bag, opts); err != nil {
		return err
	}
	if !quiet && bag.Len() > 0 {
		fmt.Fprintln(w, diagfmt.Counts(bag))
	}
	return nil
}

func printRenames(w io.Writer, res *merge.Result) error {
	if len(res.Renamed) == 0 {
		return nil
	}
	rows := make([][]string, 0, len(res.Renamed))
	for _, r := range res.Renamed {
		rows = append(rows, []string{r.Assembly, r.Old, r.New})
	}
	fmt.Fprintf(w, "renamed %d types:\n", len(res.Renamed))
	return diagfmt.Table(w, []string{"ASSEMBLY", "TYPE", "RENAMED TO"}, rows)
}

func printTimings(w io.Writer, cli observ.Report, engine *observ.Report) {
	report := cli
	if engine != nil {
		// фазы движка идут между load и write
		report = cli.Splice("load", *engine)
	}
	rows := make([][]string, 0, len(report.Phases)+1)
	for _, p := range report.Phases {
		rows = append(rows, []string{p.Name, fmt.Sprintf("%.2f ms", p.DurationMS), p.Note})
	}
	rows = append(rows, []string{"total", fmt.Sprintf("%.2f ms", report.TotalMS), ""})
	fmt.Fprintln(w, "timings:")
	_ = diagfmt.Table(w, nil, rows)
}

func colorEnabled() bool { return !color.NoColor }
