package main

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"xpl/internal/check"
	"xpl/internal/ui"
)

type checkOutcome struct {
	results []check.Result
	err     error
}

// runCheckWithUI runs the check in the background while a progress view
// consumes its events.
func runCheckWithUI(ctx context.Context, title string, files []string, req check.Request) ([]check.Result, error) {
	events := make(chan check.Event, 256)
	outcomeCh := make(chan checkOutcome, 1)

	go func() {
		req.Progress = check.ChannelSink{Ch: events}
		results, err := check.Run(ctx, req)
		outcomeCh <- checkOutcome{results: results, err: err}
		close(events)
	}()

	model := ui.NewProgressModel(title, files, events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stderr))
	_, uiErr := program.Run()
	// a failed or interrupted UI stops reading
	go func() {
		for range events {
		}
	}()
	outcome := <-outcomeCh
	if uiErr != nil {
		return outcome.results, uiErr
	}
	return outcome.results, outcome.err
}
