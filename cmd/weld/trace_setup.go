package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"weld/internal/trace"
)

// setupTracing reads the --trace* flags and attaches a tracer to the
// command context. The returned function flushes and closes it.
func setupTracing(cmd *cobra.Command) (func(failed bool), error) {
	flags := cmd.Root().PersistentFlags()

	traceOutput, err := flags.GetString("trace")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace flag: %w", err)
	}
	levelStr, err := flags.GetString("trace-level")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace-level flag: %w", err)
	}
	modeStr, err := flags.GetString("trace-mode")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace-mode flag: %w", err)
	}
	ringSize, err := flags.GetInt("trace-ring-size")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace-ring-size flag: %w", err)
	}
	heartbeatInterval, err := flags.GetDuration("trace-heartbeat")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace-heartbeat flag: %w", err)
	}
	return startTracer(cmd, traceOutput, levelStr, modeStr, ringSize, heartbeatInterval)
}

func startTracer(cmd *cobra.Command, output, levelStr, modeStr string, ringSize int, heartbeatInterval time.Duration) (func(failed bool), error) {
	level, err := trace.ParseLevel(levelStr)
	if err != nil {
		return nil, fmt.Errorf("invalid trace level: %w", err)
	}
	// --trace без уровня включает фазовый уровень
	if level == trace.LevelOff && output != "" {
		level = trace.LevelPhase
	}
	if level == trace.LevelOff {
		cmd.SetContext(trace.WithTracer(cmd.Context(), trace.Nop))
		return func(bool) {}, nil
	}
	if output == "" {
		output = "-"
	}
	mode, err := trace.ParseMode(modeStr)
	if err != nil {
		return nil, fmt.Errorf("invalid trace mode: %w", err)
	}

	tracer, err := trace.New(trace.Config{
		Level:      level,
		Mode:       mode,
		OutputPath: output,
		RingSize:   ringSize,
		Heartbeat:  heartbeatInterval,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create tracer: %w", err)
	}

	ctx := trace.WithTracer(cmd.Context(), tracer)
	cmd.SetContext(ctx)

	var heartbeat *trace.Heartbeat
	if heartbeatInterval > 0 {
		heartbeat = trace.StartHeartbeat(tracer, heartbeatInterval)
	}

	return func(failed bool) {
		if heartbeat != nil {
			heartbeat.Stop()
		}
		if failed && mode == trace.ModeRing {
			if err := dumpRing(tracer, output); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "trace: dump error: %v\n", err)
			}
		}
		if err := tracer.Flush(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "trace: flush error: %v\n", err)
		}
		if err := tracer.Close(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "trace: close error: %v\n", err)
		}
	}, nil
}

// dumpRing writes the ring buffer of tracer to output ("-" is stderr).
func dumpRing(tracer trace.Tracer, output string) error {
	ring, ok := trace.Ring(tracer)
	if !ok {
		return nil
	}
	format := trace.FormatText
	if ext := filepath.Ext(output); ext == ".ndjson" || ext == ".jsonl" {
		format = trace.FormatNDJSON
	}
	if output == "-" {
		return ring.Dump(os.Stderr, format)
	}
	f, err := os.Create(output)
	if err != nil {
		return err
	}
	if err := ring.Dump(f, format); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
