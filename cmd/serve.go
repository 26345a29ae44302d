package main

import (
	"context"
	"fmt"

	"github.com/oe/sunrain-sub001/internal/server"
	"github.com/urfave/cli/v3"
)

// Serve exposes the pipeline and the run ledger over HTTP until ctx is canceled.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	cfg := r.config.Server
	if host := cmd.String("host"); host != "" {
		cfg.Host = host
	}
	if port := cmd.Int("port"); port > 0 {
		cfg.Port = int(port)
	}

	var runs server.RunStore
	if ledger, err := r.Ledger(); err != nil {
		r.logger.Warn("run ledger unavailable, /api/runs will return 503", "error", err)
	} else {
		runs = ledger
	}

	sources := r.Sources()
	for _, src := range sources {
		if !src.Authenticate(ctx) {
			r.logger.Warn("source not authenticated at startup", "source", src.Name())
		}
	}

	router := server.NewRouter(r.aggregator(runs != nil), runs, sources, r.logger)
	srv := server.New(cfg.Addr(), router, r.logger)

	if err := srv.ListenAndServe(ctx); err != nil {
		return fmt.Errorf("server stopped: %w", err)
	}
	return nil
}
