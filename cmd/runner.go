package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/ecwilsonaz/plexsage/internal/generator"
	"github.com/ecwilsonaz/plexsage/internal/repositories"
	"github.com/ecwilsonaz/plexsage/internal/services"
	"github.com/ecwilsonaz/plexsage/internal/shared"
	"github.com/ecwilsonaz/plexsage/internal/tasks"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer

	// source, llm and db are built from config on first use; tests inject
	// doubles through RunnerOpts instead.
	source services.MediaSource
	llm    services.LLMGateway
	db     *sql.DB
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
	Source     services.MediaSource
	LLM        services.LLMGateway
	DB         *sql.DB
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
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	return &Runner{
		config:     opts.Config,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		source:     opts.Source,
		llm:        opts.LLM,
		db:         opts.DB,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, libraryCommand, previewCommand, generateCommand, serveCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// openDatabase returns the injected database or opens the configured one.
// The returned closer is a no-op for injected databases.
func (r *Runner) openDatabase() (*sql.DB, func(), error) {
	if r.db != nil {
		return r.db, func() {}, nil
	}

	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return db, func() { db.Close() }, nil
}

func (r *Runner) mediaSource() (services.MediaSource, error) {
	if r.source != nil {
		return r.source, nil
	}
	if r.config.Plex.URL == "" || r.config.Plex.Token == "" {
		return nil, fmt.Errorf("%w: plex.url and plex.token must be set", shared.ErrMissingConfig)
	}
	return services.NewPlexService(r.config.Plex.URL, r.config.Plex.Token, r.config.Plex.MusicLibrary, r.httpClient), nil
}

func (r *Runner) llmGateway() (services.LLMGateway, error) {
	if r.llm != nil {
		return r.llm, nil
	}
	if r.config.LLM.APIKey == "" && r.config.LLM.BaseURL == "" {
		return nil, fmt.Errorf("%w: llm.api_key or llm.base_url must be set", shared.ErrMissingConfig)
	}
	return services.NewOpenAIService(r.config.LLM.BaseURL, r.config.LLM.APIKey, r.config.LLM.ModelGeneration, r.httpClient), nil
}

func (r *Runner) syncOptions() tasks.Options {
	return tasks.Options{
		BatchSize:    r.config.Sync.BatchSize,
		BatchTimeout: time.Duration(r.config.Sync.BatchTimeoutMS) * time.Millisecond,
		StaleAfter:   time.Duration(r.config.Sync.StaleAfterHrs) * time.Hour,
		RateLimit:    r.config.Sync.RateLimit,
	}
}

// orchestrator assembles the sync stack over an open database.
func (r *Runner) orchestrator(repo *repositories.CacheRepository) (*tasks.Orchestrator, error) {
	source, err := r.mediaSource()
	if err != nil {
		return nil, err
	}
	return tasks.NewOrchestrator(repo, source, r.logger, r.syncOptions()), nil
}

// pipeline assembles the generation stack over an open database.
func (r *Runner) pipeline(repo *repositories.CacheRepository) (*generator.Pipeline, error) {
	llm, err := r.llmGateway()
	if err != nil {
		return nil, err
	}
	return generator.NewPipeline(
		generator.NewFilterEngine(repo),
		generator.NewSampler(nil),
		generator.NewCostEstimator(r.config.LLM.Pricing),
		llm,
		r.logger,
	), nil
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
