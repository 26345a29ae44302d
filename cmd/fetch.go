package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/oe/sunrain-sub001/internal/classifier"
	"github.com/oe/sunrain-sub001/internal/formatter"
	"github.com/oe/sunrain-sub001/internal/models"
	"github.com/oe/sunrain-sub001/internal/services"
	"github.com/oe/sunrain-sub001/internal/shared"
	"github.com/oe/sunrain-sub001/internal/tasks"
	"github.com/urfave/cli/v3"
)

// searchRow is one catalog item with the classifier's verdict attached.
type searchRow struct {
	ID        string             `json:"id"`
	Type      models.ContentType `json:"type"`
	Title     string             `json:"title"`
	Curator   string             `json:"curator"`
	URL       string             `json:"url"`
	Relevant  bool               `json:"relevant"`
	Accepted  bool               `json:"accepted"`
	Quality   int                `json:"qualityScore"`
	Relevance int                `json:"relevanceScore"`
	Themes    models.Tags        `json:"themes"`
	Included  []string           `json:"included,omitempty"`
	Excluded  []string           `json:"excluded,omitempty"`
}

// Fetch runs the aggregation pipeline across every configured catalog and writes the ranked records.
func (r *Runner) Fetch(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	if timeout := cmd.Duration("timeout"); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	progress := make(chan tasks.ProgressUpdate, 16)
	logged := make(chan struct{})
	go func() {
		defer close(logged)
		for update := range progress {
			r.logger.Info(update.Message, "phase", update.Phase)
		}
	}()

	result, err := r.aggregator(!cmd.Bool("no-record")).Run(ctx, progress)
	close(progress)
	<-logged

	if err != nil {
		return fmt.Errorf("fetch failed: %w", err)
	}

	for _, src := range result.Sources {
		if src.Err != nil {
			r.logger.Warn("source unavailable, results are partial", "source", src.Name, "error", src.Err)
		}
	}

	r.logger.Info("fetch complete",
		"records", len(result.Records),
		"merged", result.Merged,
		"duplicates", len(result.Merges),
		"near_duplicates", len(result.Near),
		"rejected", len(result.Rejected),
	)

	path := cmd.String("output")
	if path == "" {
		return formatter.Write(r.output, result.Records, format)
	}

	written, err := formatter.WriteExport(result.Records, format, path)
	if err != nil {
		return err
	}
	return r.writePlain("✓ Wrote %d records to %s\n", len(result.Records), written)
}

// Search runs one query against one catalog and shows how the classifier judges each result.
func (r *Runner) Search(ctx context.Context, cmd *cli.Command) error {
	query := strings.TrimSpace(cmd.StringArg("query"))
	if query == "" {
		return fmt.Errorf("%w: query", shared.ErrMissingArgument)
	}

	name := cmd.String("source")
	src, ok := services.FindSource(r.Sources(), name)
	if !ok {
		return fmt.Errorf("%w: source %q is not configured", shared.ErrInvalidArgument, name)
	}

	var types []models.ContentType
	if kind := cmd.String("type"); kind != "" {
		t := models.ContentType(strings.ToLower(kind))
		if !t.Valid() {
			return fmt.Errorf("%w: type must be playlist or album, got %q", shared.ErrInvalidArgument, kind)
		}
		types = append(types, t)
	}

	if !src.Authenticate(ctx) {
		return fmt.Errorf("%w: %s", shared.ErrNotAuthenticated, src.Name())
	}

	r.logger.Info("searching", "source", src.Name(), "query", query)
	res, err := src.Search(ctx, query, types, int(cmd.Int("limit")))
	if err != nil {
		return err
	}

	cls := classifier.Default()
	rows := make([]searchRow, 0, len(res.Items))
	for _, item := range res.Items {
		a := cls.Assess(item)
		rows = append(rows, searchRow{
			ID:        src.Source().RecordID(item.Kind, item.ID),
			Type:      item.Kind,
			Title:     item.Name,
			Curator:   item.Curator,
			URL:       item.URL,
			Relevant:  a.Relevant,
			Accepted:  a.Accepted(item.Kind),
			Quality:   a.Scores.Quality,
			Relevance: a.Scores.Relevance,
			Themes:    a.Themes,
			Included:  a.Included,
			Excluded:  a.Excluded,
		})
	}

	if cmd.Bool("json") {
		return r.writeJSON(rows, true)
	}

	r.writePlainHeader(fmt.Sprintf("%s: %q (%d results)", src.Name(), query, len(rows)))
	for _, row := range rows {
		mark := "✗"
		if row.Accepted {
			mark = "✓"
		}
		r.writePlain("%s %s - %s [%s, score %d]\n", mark, row.Title, row.Curator, row.Type, row.Quality+row.Relevance)
		if len(row.Excluded) > 0 {
			r.writePlain("    excluded: %s\n", strings.Join(row.Excluded, ", "))
		} else if !row.Relevant {
			r.writePlain("    no therapeutic terms\n")
		}
	}
	return nil
}
