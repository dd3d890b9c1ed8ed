package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/de-tools/airregi-sync/pkg/browser"
	"github.com/de-tools/airregi-sync/pkg/browser/headless"
	"github.com/de-tools/airregi-sync/pkg/runtime/terminal/export"
	"github.com/de-tools/airregi-sync/pkg/services/calendar"
	"github.com/de-tools/airregi-sync/pkg/services/config"
	"github.com/de-tools/airregi-sync/pkg/services/session"
	"github.com/de-tools/airregi-sync/pkg/services/workflow"
	"github.com/de-tools/airregi-sync/pkg/store/blob"
	"github.com/de-tools/airregi-sync/pkg/telemetry"
)

// ErrRunIncomplete is returned when a run went through but did not capture
// and store every expected file.
var ErrRunIncomplete = errors.New("extraction run incomplete")

// BrowserLauncher starts the engine a run drives.
type BrowserLauncher func(ctx context.Context, opts headless.Options) (browser.Page, error)

// LaunchHeadless is the production launcher.
func LaunchHeadless(ctx context.Context, opts headless.Options) (browser.Page, error) {
	return headless.Launch(ctx, opts)
}

type RunCmd struct {
	source   sourceFlags
	date     string
	policy   string
	timeout  time.Duration
	headless bool
	backend  string
	loginURL string
	salesURL string

	registry blob.Registry
	launch   BrowserLauncher
	reporter *export.Reporter
	now      func() time.Time
}

func NewRunCmd(registry blob.Registry, launch BrowserLauncher, reporter *export.Reporter) *cobra.Command {
	rc := &RunCmd{registry: registry, launch: launch, reporter: reporter, now: time.Now}
	cmd := &cobra.Command{
		Use:          "run",
		Short:        "Download the configured reports for one day and upload them",
		Args:         cobra.NoArgs,
		RunE:         rc.run,
		SilenceUsage: true,
	}

	rc.source.register(cmd)
	cmd.Flags().StringVar(&rc.date, "date", "", "Target day as YYYY-MM-DD (default today in JST)")
	cmd.Flags().StringVar(&rc.policy, "policy", "", "Report failure policy: fail-fast or continue")
	cmd.Flags().DurationVar(&rc.timeout, "timeout", 0, "Upper bound for the whole run")
	cmd.Flags().BoolVar(&rc.headless, "headless", true, "Run the browser without a window")
	cmd.Flags().StringVar(&rc.backend, "backend", "", "Storage backend: "+joinBackends(registry))
	cmd.Flags().StringVar(&rc.loginURL, "login-url", "", "Login page of the console")
	cmd.Flags().StringVar(&rc.salesURL, "product-sales-url", "", "Product sales view of the console")

	return cmd
}

// overrides collects the flags set on the command line, which win over every
// other configuration source.
func (rc *RunCmd) overrides(cmd *cobra.Command) map[string]any {
	flags := cmd.Flags()
	out := map[string]any{}
	set := func(flag, key string, value any) {
		if flags.Changed(flag) {
			out[key] = value
		}
	}
	set("date", "run.date", rc.date)
	set("policy", "run.policy", rc.policy)
	set("timeout", "run.timeout", rc.timeout)
	set("headless", "browser.headless", rc.headless)
	set("backend", "storage.backend", rc.backend)
	set("login-url", "console.login_url", rc.loginURL)
	set("product-sales-url", "console.product_sales_url", rc.salesURL)
	return out
}

func (rc *RunCmd) run(cmd *cobra.Command, _ []string) error {
	logger := newLogger(cmd.ErrOrStderr(), config.LoggerConfig{})
	ctx := logger.WithContext(cmd.Context())

	cfg, err := config.Load(ctx, rc.source.options(rc.overrides(cmd)))
	if err != nil {
		return err
	}
	logger = newLogger(cmd.ErrOrStderr(), cfg.Logger)
	ctx = logger.WithContext(ctx)

	if err := cfg.Validate(); err != nil {
		return err
	}
	runCtx, err := cfg.RunContext(rc.now())
	if err != nil {
		return err
	}

	shutdown, err := telemetry.Setup(ctx, cfg.Telemetry)
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdown(context.WithoutCancel(ctx)); err != nil {
			logger.Warn().Err(err).Msg("failed to flush traces")
		}
	}()

	store, err := rc.registry.Create(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to create %s storage: %w", cfg.Storage.Backend, err)
	}
	sessions, err := session.NewController(cfg.Session)
	if err != nil {
		return err
	}

	browserOpts := cfg.Browser.Options()
	runner := workflow.NewRunner(workflow.RunnerConfig{
		Policy:      cfg.Run.Policy,
		Fetch:       cfg.Fetch,
		ContainerID: cfg.Storage.ContainerID,
		StagingDir:  cfg.Run.StagingDir,
	}, workflow.Dependencies{
		Launch: func(ctx context.Context) (browser.Page, error) {
			return rc.launch(ctx, browserOpts)
		},
		Session:  sessions,
		Calendar: calendar.NewNavigator(cfg.Calendar),
		Store:    store,
		Now:      rc.now,
	})

	ctx, cancel := context.WithTimeout(ctx, cfg.Run.Timeout)
	defer cancel()

	logger.Info().
		Str("target_date", runCtx.TargetDate.String()).
		Str("backend", cfg.Storage.Backend).
		Int("reports", len(cfg.Catalog())).
		Msg("starting extraction")

	result, runErr := runner.Run(ctx, runCtx, cfg.Credentials(), cfg.Catalog())
	if err := rc.reporter.Handle(result); err != nil {
		logger.Warn().Err(err).Msg("failed to print run summary")
	}
	if runErr != nil {
		return runErr
	}
	if !result.Successful() {
		return ErrRunIncomplete
	}
	return nil
}

// newLogger builds the run logger. An empty config gives JSON at info level.
func newLogger(w io.Writer, cfg config.LoggerConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	if cfg.Format == "console" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

func joinBackends(registry blob.Registry) string {
	if registry == nil {
		return ""
	}
	return fmt.Sprint(registry.Backends())
}
