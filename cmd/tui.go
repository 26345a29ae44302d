package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/oe/sunrain-sub001/internal/shared"
	"github.com/oe/sunrain-sub001/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive terminal browser over a live aggregation run.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, closer, err := shared.NewFileLogger(cmd.String("log-file"))
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.closers = append(r.closers, closer)
	r.SetLogger(fileLogger)

	if len(r.Sources()) == 0 {
		return fmt.Errorf("%w: no catalog credentials configured", shared.ErrMissingCredentials)
	}

	model := ui.NewModel(ctx, r.aggregator(true))
	p := tea.NewProgram(model, tea.WithContext(ctx))

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
