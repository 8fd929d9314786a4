package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"weld/internal/progress"
	"weld/internal/ui"
)

type uiMode string

const (
	uiModeAuto uiMode = "auto"
	uiModeOn   uiMode = "on"
	uiModeOff  uiMode = "off"
)

func readUIMode(value string) (uiMode, error) {
	switch strings.TrimSpace(strings.ToLower(value)) {
	case "", "auto":
		return uiModeAuto, nil
	case "on":
		return uiModeOn, nil
	case "off":
		return uiModeOff, nil
	default:
		return "", fmt.Errorf("invalid --ui value %q (expected auto|on|off)", value)
	}
}

// shouldUseTUI keeps the progress screen away from pipes and from json
// output, which must stay machine readable.
func shouldUseTUI(mode uiMode, out io.Writer, format string) bool {
	if format == "json" {
		return false
	}
	switch mode {
	case uiModeOn:
		return true
	case uiModeOff:
		return false
	default:
		f, ok := out.(*os.File)
		return ok && isTerminal(f)
	}
}

// runWithUI runs work in the background and renders its progress events
// until work returns.
func runWithUI(ctx context.Context, out io.Writer, title string, assemblies []string, work func(progress.Sink) error) error {
	events := make(chan progress.Event, 256)
	outcome := make(chan error, 1)
	go func() {
		err := work(progress.ChannelSink{Ch: events})
		close(events)
		outcome <- err
	}()

	program := tea.NewProgram(ui.NewProgressModel(title, assemblies, events),
		tea.WithOutput(out), tea.WithContext(ctx), tea.WithInput(nil))
	_, uiErr := program.Run()
	if uiErr != nil {
		// дочитываем события, чтобы work не заблокировался
		go func() {
			for range events {
			}
		}()
	}
	err := <-outcome
	if err == nil && uiErr != nil {
		return uiErr
	}
	return err
}
