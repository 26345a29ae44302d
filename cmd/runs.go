package main

import (
	"context"
	"fmt"

	"github.com/oe/sunrain-sub001/internal/models"
	"github.com/urfave/cli/v3"
)

// Runs lists recorded aggregation runs, or shows one with --id.
func (r *Runner) Runs(ctx context.Context, cmd *cli.Command) error {
	ledger, err := r.Ledger()
	if err != nil {
		return err
	}

	if id := cmd.String("id"); id != "" {
		run, err := ledger.Get(ctx, id)
		if err != nil {
			return err
		}
		if cmd.Bool("json") {
			return r.writeJSON(run, true)
		}
		r.writeRun(run)
		return nil
	}

	runs, err := ledger.List(ctx, int(cmd.Int("limit")))
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		if runs == nil {
			runs = []*models.FetchRun{}
		}
		return r.writeJSON(runs, true)
	}

	if len(runs) == 0 {
		return r.writePlain("No runs recorded yet. Run 'sunrain fetch' first.\n")
	}

	r.writePlainHeader(fmt.Sprintf("Fetch runs (%d)", len(runs)))
	for _, run := range runs {
		r.writePlain("#%-4d %s  %-9s %3d records  %s\n",
			run.Sequence, run.StartedAt.Local().Format("2006-01-02 15:04:05"), run.Status, run.Output, run.ID())
	}
	return nil
}

func (r *Runner) writeRun(run *models.FetchRun) {
	r.writePlainHeader(fmt.Sprintf("Run #%d (%s)", run.Sequence, run.Status))
	r.writePlain("ID:         %s\n", run.ID())
	r.writePlain("Started:    %s\n", run.StartedAt.Local().Format("2006-01-02 15:04:05"))
	r.writePlain("Duration:   %s\n", run.Duration())
	r.writePlain("Merged:     %d\n", run.Merged)
	r.writePlain("Duplicates: %d\n", run.Duplicates)
	r.writePlain("Rejected:   %d\n", run.Rejected)
	r.writePlain("Output:     %d\n", run.Output)
	if run.Error != "" {
		r.writePlain("Error:      %s\n", run.Error)
	}
	r.writePlainln("Sources:")
	for _, s := range run.Sources {
		if s.Error != "" {
			r.writePlain("  ✗ %s: %s\n", string(s.Source), s.Error)
		} else {
			r.writePlain("  ✓ %s: %d records\n", string(s.Source), s.Count)
		}
	}
}
