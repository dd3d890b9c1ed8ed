// Package config resolves the settings and secrets of a run from flags,
// environment, an optional .env file, an optional YAML file and an optional
// credentials profile file.
package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/de-tools/airregi-sync/pkg/browser/headless"
	"github.com/de-tools/airregi-sync/pkg/models/domain"
	"github.com/de-tools/airregi-sync/pkg/services/calendar"
	"github.com/de-tools/airregi-sync/pkg/services/report"
	"github.com/de-tools/airregi-sync/pkg/services/session"
	"github.com/de-tools/airregi-sync/pkg/store/blob"
	"github.com/de-tools/airregi-sync/pkg/telemetry"
)

const (
	DefaultProfile = "default"
	DefaultEnvFile = ".env"

	DefaultLoginURL        = "https://connect.airregi.jp/login?client_id=ARG"
	DefaultProductSalesURL = "https://airregi.jp/CLP//view/salesListByMenu/"
)

// envAliases are the variable names the job has always been deployed with.
var envAliases = map[string][]string{
	"console.identity":            {"AIRREGI_ID"},
	"console.secret":              {"AIRREGI_PASS"},
	"storage.container_id":        {"DRIVE_FOLDER_ID"},
	"storage.drive.client_id":     {"OAUTH_CLIENT_ID"},
	"storage.drive.client_secret": {"OAUTH_CLIENT_SECRET"},
	"storage.drive.refresh_token": {"OAUTH_REFRESH_TOKEN"},
}

type ConsoleConfig struct {
	Identity         string `mapstructure:"identity"`
	Secret           string `mapstructure:"secret"`
	domain.Endpoints `mapstructure:",squash"`
}

type BrowserConfig struct {
	Headless    bool   `mapstructure:"headless"`
	ExecPath    string `mapstructure:"exec_path"`
	UserAgent   string `mapstructure:"user_agent"`
	DownloadDir string `mapstructure:"download_dir"`
}

func (b BrowserConfig) Options() headless.Options {
	return headless.Options{
		Headless:    b.Headless,
		ExecPath:    b.ExecPath,
		UserAgent:   b.UserAgent,
		DownloadDir: b.DownloadDir,
	}
}

type RunConfig struct {
	Policy domain.FailurePolicy `mapstructure:"policy"`
	// Timeout bounds the whole run, teardown excluded.
	Timeout time.Duration `mapstructure:"timeout"`
	// Date backfills a past day (YYYY-MM-DD). Empty means today.
	Date       string `mapstructure:"date"`
	StagingDir string `mapstructure:"staging_dir"`
}

type LoggerConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type Config struct {
	Console   ConsoleConfig       `mapstructure:"console"`
	Storage   blob.Config         `mapstructure:"storage"`
	Browser   BrowserConfig       `mapstructure:"browser"`
	Session   session.Config      `mapstructure:"session"`
	Calendar  calendar.Config     `mapstructure:"calendar"`
	Fetch     report.Config       `mapstructure:"fetch"`
	Reports   []domain.ReportSpec `mapstructure:"reports"`
	Run       RunConfig           `mapstructure:"run"`
	Logger    LoggerConfig        `mapstructure:"logger"`
	Telemetry telemetry.Config    `mapstructure:"telemetry"`
}

type LoadOptions struct {
	ConfigFile string
	// EnvFile is loaded into the environment first. The default .env may be absent.
	EnvFile         string
	CredentialsFile string
	Profile         string
	// Overrides take precedence over every other source (command line flags).
	Overrides map[string]any
}

func setDefaults(v *viper.Viper) {
	sess := session.DefaultConfig()
	cal := calendar.DefaultConfig()
	fetch := report.DefaultConfig()

	v.SetDefault("console.identity", "")
	v.SetDefault("console.secret", "")
	v.SetDefault("console.login_url", DefaultLoginURL)
	v.SetDefault("console.product_sales_url", DefaultProductSalesURL)

	v.SetDefault("storage.backend", "drive")
	v.SetDefault("storage.container_id", "")
	v.SetDefault("storage.prefix", "")
	for _, key := range []string{
		"drive.client_id", "drive.client_secret", "drive.refresh_token", "drive.token_url", "drive.endpoint",
		"s3.profile", "s3.region", "s3.endpoint",
		"minio.endpoint", "minio.access_key", "minio.secret_key", "minio.region",
		"azure.account_url", "azure.connection_string",
	} {
		v.SetDefault("storage."+key, "")
	}
	v.SetDefault("storage.s3.use_path_style", false)
	v.SetDefault("storage.minio.use_ssl", true)

	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.exec_path", "")
	v.SetDefault("browser.user_agent", "")
	v.SetDefault("browser.download_dir", "")

	v.SetDefault("session.selectors.account", sess.Selectors.Account)
	v.SetDefault("session.selectors.password", sess.Selectors.Password)
	v.SetDefault("session.selectors.submit", sess.Selectors.Submit)
	v.SetDefault("session.selectors.account_menu", sess.Selectors.AccountMenu)
	v.SetDefault("session.selectors.logout_link", sess.Selectors.LogoutLink)
	v.SetDefault("session.landing_patterns", sess.LandingPatterns)
	v.SetDefault("session.element_timeout", sess.ElementTimeout)
	v.SetDefault("session.landing_timeout", sess.LandingTimeout)
	v.SetDefault("session.logout_timeout", sess.LogoutTimeout)

	v.SetDefault("calendar.selectors.input", cal.Selectors.Input)
	v.SetDefault("calendar.selectors.label", cal.Selectors.Label)
	v.SetDefault("calendar.selectors.next", cal.Selectors.Next)
	v.SetDefault("calendar.selectors.prev", cal.Selectors.Prev)
	v.SetDefault("calendar.selectors.grid", cal.Selectors.Grid)
	v.SetDefault("calendar.selectors.day_cell", cal.Selectors.DayCell)
	v.SetDefault("calendar.selectors.confirm", cal.Selectors.Confirm)
	v.SetDefault("calendar.selectors.overflow_class", cal.Selectors.OverflowClass)
	v.SetDefault("calendar.settle_delay", cal.SettleDelay)
	v.SetDefault("calendar.element_timeout", cal.ElementTimeout)
	v.SetDefault("calendar.max_steps", cal.MaxSteps)
	v.SetDefault("calendar.click_retries", cal.ClickRetries)
	v.SetDefault("calendar.retry_interval", cal.RetryInterval)

	v.SetDefault("fetch.element_timeout", fetch.ElementTimeout)
	v.SetDefault("fetch.download_timeout", fetch.DownloadTimeout)
	v.SetDefault("fetch.navigation_timeout", fetch.NavigationTimeout)

	v.SetDefault("run.policy", string(domain.PolicyFailFast))
	v.SetDefault("run.timeout", 15*time.Minute)
	v.SetDefault("run.date", "")
	v.SetDefault("run.staging_dir", "")

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")

	v.SetDefault("telemetry.otlp_endpoint", "")
	v.SetDefault("telemetry.service_name", telemetry.DefaultServiceName)
}

func bindEnv(v *viper.Viper) error {
	v.SetEnvPrefix("AIRREGI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, aliases := range envAliases {
		prefixed := "AIRREGI_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(append([]string{key}, append(aliases, prefixed)...)...); err != nil {
			return fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}
	return nil
}

func loadEnvFile(path string) error {
	optional := path == ""
	if optional {
		path = DefaultEnvFile
	}
	if err := godotenv.Load(path); err != nil {
		if optional && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

func Load(ctx context.Context, opts LoadOptions) (*Config, error) {
	logger := zerolog.Ctx(ctx)

	if err := loadEnvFile(opts.EnvFile); err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v)
	if err := bindEnv(v); err != nil {
		return nil, err
	}

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		logger.Debug().Str("path", opts.ConfigFile).Msg("config file loaded")
	}

	if opts.CredentialsFile != "" {
		profileName := opts.Profile
		if profileName == "" {
			profileName = DefaultProfile
		}
		registry, err := NewRegistry(opts.CredentialsFile)
		if err != nil {
			return nil, err
		}
		profile, err := registry.GetProfile(ctx, profileName)
		if err != nil {
			return nil, err
		}
		if err := v.MergeConfigMap(profile.settings()); err != nil {
			return nil, fmt.Errorf("failed to apply profile %s: %w", profileName, err)
		}
		logger.Debug().Str("profile", profileName).Msg("credentials profile applied")
	}

	for key, value := range opts.Overrides {
		v.Set(key, value)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}

func hint(key string) string {
	if aliases, ok := envAliases[key]; ok {
		return fmt.Sprintf("%s (%s)", key, aliases[0])
	}
	return key
}

// Validate fails with *domain.ConfigurationIncompleteError when a required
// value is missing, so nothing is launched with a half configured run.
func (c *Config) Validate() error {
	var missing []string
	req := func(key, value string) {
		if value == "" {
			missing = append(missing, hint(key))
		}
	}
	req("console.identity", c.Console.Identity)
	req("console.secret", c.Console.Secret)
	req("console.login_url", c.Console.LoginURL)
	for _, key := range c.Storage.Missing() {
		missing = append(missing, hint(key))
	}
	if len(c.Reports) == 0 {
		req("console.product_sales_url", c.Console.ProductSalesURL)
	}
	if len(missing) > 0 {
		return &domain.ConfigurationIncompleteError{Missing: missing}
	}

	switch c.Run.Policy {
	case domain.PolicyFailFast, domain.PolicyContinue:
	default:
		return fmt.Errorf("unknown failure policy %q, expected %s or %s", c.Run.Policy, domain.PolicyFailFast, domain.PolicyContinue)
	}

	if c.Run.Timeout <= 0 {
		return fmt.Errorf("run.timeout must be positive, got %s", c.Run.Timeout)
	}

	if err := report.ValidateCatalog(c.Catalog()); err != nil {
		return fmt.Errorf("invalid report catalog: %w", err)
	}
	if c.Run.Date != "" {
		if _, err := domain.ParseTargetDate(c.Run.Date); err != nil {
			return err
		}
	}
	return nil
}

// Catalog is the configured report list, or the default one.
func (c *Config) Catalog() []domain.ReportSpec {
	if len(c.Reports) > 0 {
		return c.Reports
	}
	return report.DefaultCatalog(c.Console.Endpoints)
}

func (c *Config) Credentials() domain.Credentials {
	return domain.Credentials{Identity: c.Console.Identity, Secret: c.Console.Secret}
}

// RunContext resolves the target date against now.
func (c *Config) RunContext(now time.Time) (domain.RunContext, error) {
	today := domain.NewTargetDate(now, domain.JST)
	target := today
	if c.Run.Date != "" {
		d, err := domain.ParseTargetDate(c.Run.Date)
		if err != nil {
			return domain.RunContext{}, err
		}
		if d.After(today) {
			return domain.RunContext{}, fmt.Errorf("target date %s is in the future", d)
		}
		target = d
	}
	return domain.RunContext{
		TargetDate: target,
		Today:      today,
		Endpoints:  c.Console.Endpoints,
	}, nil
}
