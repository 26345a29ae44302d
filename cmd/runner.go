package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/oe/sunrain-sub001/internal/dedupe"
	"github.com/oe/sunrain-sub001/internal/pacing"
	"github.com/oe/sunrain-sub001/internal/repositories"
	"github.com/oe/sunrain-sub001/internal/services"
	"github.com/oe/sunrain-sub001/internal/shared"
	"github.com/oe/sunrain-sub001/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	sources    []services.SourceClient
	db         *sql.DB
	ledger     *repositories.FetchRunRepository
	clock      pacing.Clock
	logger     *log.Logger
	output     io.Writer
	closers    []io.Closer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Sources    []services.SourceClient // skips building clients from credentials
	DB         *sql.DB                 // skips opening the configured database
	Clock      pacing.Clock
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		sources:    opts.Sources,
		db:         opts.DB,
		clock:      opts.Clock,
		logger:     opts.Logger,
		output:     opts.Output,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, fetchCommand, searchCommand, runsCommand, serveCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// Load reads the configuration named by --config and applies logging settings.
//
// A missing file falls back to defaults; an unreadable or invalid file is an error.
func (r *Runner) Load(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if path := cmd.String("config"); path != "" {
		r.configPath = path
	}

	if r.configPath != "" {
		if _, err := os.Stat(r.configPath); err == nil {
			config, err := shared.LoadConfig(r.configPath)
			if err != nil {
				return ctx, err
			}
			r.config = config
		} else {
			r.logger.Debug("config file not found, using defaults", "path", r.configPath)
		}
	}

	if file := r.config.Logging.File; file != "" {
		fileLogger, closer, err := shared.NewFileLogger(file)
		if err != nil {
			return ctx, err
		}
		r.closers = append(r.closers, closer)
		r.SetLogger(fileLogger)
	}

	level := shared.ParseLogLevel(r.config.Logging.Level)
	if cmd.Bool("verbose") {
		level = log.DebugLevel
	}
	shared.SetLogLevel(r.logger, level)

	return ctx, nil
}

// SetLogger replaces the logger. Sources built afterwards log through it.
func (r *Runner) SetLogger(logger *log.Logger) {
	if r.logger != nil {
		logger.SetLevel(r.logger.GetLevel())
	}
	r.logger = logger
}

// Sources returns the catalog clients, building them from credentials on first use.
func (r *Runner) Sources() []services.SourceClient {
	if r.sources == nil {
		r.sources = services.NewSources(r.config, r.logger, r.clock)
	}
	return r.sources
}

// Ledger opens the run database and applies pending migrations on first use.
func (r *Runner) Ledger() (*repositories.FetchRunRepository, error) {
	if r.ledger != nil {
		return r.ledger, nil
	}

	if r.db == nil {
		db, err := shared.NewDatabase(r.config.Database.Path)
		if err != nil {
			return nil, err
		}
		shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)
		r.db = db
		r.closers = append(r.closers, db)
	}

	if err := shared.RunMigrations(r.db); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	r.ledger = repositories.NewFetchRunRepository(r.db)
	return r.ledger, nil
}

// aggregator builds the pipeline. When record is set and the ledger opens, runs are recorded.
func (r *Runner) aggregator(record bool) *tasks.Aggregator {
	opts := []tasks.Option{
		tasks.WithLogger(r.logger),
		tasks.WithResolver(dedupe.NewResolver(r.config.Fetch.SimilarityThreshold, r.config.Fetch.NearDuplicateThreshold)),
	}

	if record {
		if ledger, err := r.Ledger(); err != nil {
			r.logger.Warn("run ledger unavailable, runs will not be recorded", "error", err)
		} else {
			opts = append(opts, tasks.WithRecorder(ledger))
		}
	}

	return tasks.NewAggregator(r.Sources(), opts...)
}

// Close releases the database and log files.
func (r *Runner) Close() error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	r.closers = nil
	return errors.Join(errs...)
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
