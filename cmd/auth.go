package main

import (
	"context"
	"fmt"

	"github.com/oe/sunrain-sub001/internal/shared"
	"github.com/urfave/cli/v3"
)

// AuthStatus asks every configured catalog for a token and reports which ones are usable.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	sources := r.Sources()
	if len(sources) == 0 {
		return fmt.Errorf("%w: configure credentials.apple_music or credentials.spotify in %s",
			shared.ErrMissingCredentials, r.configPath)
	}

	r.logger.Info("checking catalog authentication", "sources", len(sources))

	ready := 0
	for _, src := range sources {
		if src.Authenticate(ctx) {
			ready++
			r.writePlain("✓ %s: authenticated\n", src.Name())
		} else {
			r.writePlain("✗ %s: not authenticated\n", src.Name())
		}
	}

	if ready == 0 {
		return fmt.Errorf("%w: no catalog could issue a token", shared.ErrAuthFailed)
	}
	return nil
}
