package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/cloudmatch/internal/auth"
	"github.com/desertthunder/cloudmatch/internal/cloud"
	"github.com/desertthunder/cloudmatch/internal/imagecache"
	"github.com/desertthunder/cloudmatch/internal/matchlog"
	"github.com/desertthunder/cloudmatch/internal/metrics"
	"github.com/desertthunder/cloudmatch/internal/models"
	"github.com/desertthunder/cloudmatch/internal/server"
	"github.com/desertthunder/cloudmatch/internal/services"
	"github.com/desertthunder/cloudmatch/internal/shared"
	"github.com/desertthunder/cloudmatch/internal/tasks"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer

	api     *services.APIService
	cloud   services.CloudService
	metrics metrics.Recorder

	session *auth.Session
	store   *cloud.Store
	history *matchlog.Log
	matcher *tasks.Matcher
	images  *imagecache.Cache

	diagnostics *server.Server
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	API        *services.APIService
	Cloud      services.CloudService // defaults to NetEase over API
	Metrics    metrics.Recorder
	HTTPClient *http.Client
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
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	r := &Runner{
		configPath: opts.ConfigPath,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
	}
	r.wire(opts.Config, opts)
	return r
}

// wire builds the engine from cfg. Services passed in opts take precedence.
func (r *Runner) wire(cfg *shared.Config, opts RunnerOpts) {
	r.config = cfg

	r.metrics = opts.Metrics
	if r.metrics == nil {
		r.metrics = metrics.New(cfg.Metrics.Enabled)
	}

	r.api = opts.API
	if r.api == nil {
		r.api = services.NewAPIService(cfg.API.BaseURL, nil, services.APIOptions{
			Timeout:   cfg.API.Timeout(),
			RateLimit: cfg.API.RateLimit,
			Metrics:   r.metrics,
		})
	}

	r.cloud = opts.Cloud
	if r.cloud == nil {
		r.cloud = services.NewNetEaseService(r.api)
	}

	r.session = auth.NewSession(r.cloud, auth.Options{
		PollInterval: cfg.Login.PollInterval(),
		TicketTTL:    cfg.Login.TicketTTL(),
		Metrics:      r.metrics,
		Logger:       r.logger,
	})
	r.store = cloud.NewStore(r.cloud, cloud.Options{
		PageSize: cfg.Library.PageSize,
		Metrics:  r.metrics,
		Logger:   r.logger,
	})
	r.history = matchlog.New(cfg.MatchLog.Capacity)
	r.matcher = tasks.NewMatcher(r.cloud, r.store, r.history, r.session, tasks.MatcherOptions{
		Metrics: r.metrics,
		Logger:  r.logger,
	})
	r.images = imagecache.New(imagecache.NewHTTPFetcher(r.httpClient), imagecache.Options{
		SizeBytes:    cfg.ImageCache.SizeMB << 20,
		FetchTimeout: cfg.ImageCache.FetchTimeout(),
		Workers:      cfg.ImageCache.PrefetchWorkers,
		Metrics:      r.metrics,
		Logger:       r.logger,
	})

	r.session.OnLogin(r.loadFirstPage)
}

// loadFirstPage runs after every login so the library is ready when the
// login resolves.
func (r *Runner) loadFirstPage(ctx context.Context, _ models.Identity) error {
	res, err := r.store.Refresh(ctx)
	if err != nil {
		return fmt.Errorf("failed to load first page: %w", err)
	}
	r.session.RecordUsage(res.Usage)
	return nil
}

// SetLogger replaces the logger of the runner and everything it wired.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
	r.wire(r.config, RunnerOpts{API: r.api, Cloud: r.cloud, Metrics: r.metrics})
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, loginCommand, songsCommand, matchCommand, apiCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// Before loads the configuration named by --config, applies --debug and
// starts the diagnostics server when enabled.
func (r *Runner) Before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	path := cmd.String("config")
	if path != "" && path != r.configPath {
		if _, err := os.Stat(path); err == nil {
			cfg, err := shared.LoadConfig(path)
			if err != nil {
				return ctx, err
			}
			r.configPath = path
			r.wire(cfg, RunnerOpts{Cloud: r.injectedCloud()})
		} else if cmd.IsSet("config") {
			return ctx, fmt.Errorf("%w: %s", shared.ErrMissingConfig, path)
		}
	}

	level := shared.ParseLogLevel(r.config.Logging.Level)
	if cmd.Bool("debug") {
		level = log.DebugLevel
	}
	shared.SetLogLevel(r.logger, level)

	if r.config.Metrics.Enabled && r.diagnostics == nil {
		router := server.NewStatusRouter(r.health, r.metrics.Handler(), r.logger)
		srv, err := server.Start(r.config.Metrics.Addr, router, r.logger)
		if err != nil {
			return ctx, fmt.Errorf("failed to start diagnostics server: %w", err)
		}
		r.diagnostics = srv
	}
	return ctx, nil
}

// After stops the diagnostics server.
func (r *Runner) After(ctx context.Context, _ *cli.Command) error {
	if r.diagnostics == nil {
		return nil
	}
	err := r.diagnostics.Shutdown(context.WithoutCancel(ctx))
	r.diagnostics = nil
	if err != nil {
		r.logger.Warn("error shutting down diagnostics server", "error", err)
	}
	return nil
}

// injectedCloud keeps a non-NetEase service across config reloads.
func (r *Runner) injectedCloud() services.CloudService {
	if _, ok := r.cloud.(*services.NetEaseService); ok {
		return nil
	}
	return r.cloud
}

func (r *Runner) health() server.Health {
	snap := r.store.Snapshot()
	h := server.Health{
		Authenticated: r.session.Authenticated(),
		Page:          snap.Page.Number,
		TotalPages:    snap.Page.TotalPages(),
		Songs:         len(snap.Songs),
		LogEntries:    r.history.Len(),
		CachedImages:  int(r.images.Len()),
	}
	if id := r.session.Identity(); id != nil {
		h.User = id.Nickname
	}
	return h
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	output, err := shared.MarshalJSON(data, pretty)
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

func (r *Runner) writeBytes(data []byte) error {
	if _, err := r.output.Write(data); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
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

// exitCode maps an application error to a process exit status.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, shared.ErrNotImplemented):
		return 0
	case errors.Is(err, shared.ErrInvalidArgument), errors.Is(err, shared.ErrMissingArgument),
		errors.Is(err, shared.ErrInvalidInput), errors.Is(err, shared.ErrInvalidConfig):
		return 2
	default:
		return 1
	}
}
