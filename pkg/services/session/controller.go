// Package session logs into the console and releases the session again.
package session

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/de-tools/airregi-sync/pkg/browser"
	"github.com/de-tools/airregi-sync/pkg/models/domain"
)

type Selectors struct {
	Account     string `mapstructure:"account"`
	Password    string `mapstructure:"password"`
	Submit      string `mapstructure:"submit"`
	AccountMenu string `mapstructure:"account_menu"`
	LogoutLink  string `mapstructure:"logout_link"`
}

type Config struct {
	Selectors Selectors `mapstructure:"selectors"`
	// LandingPatterns are regular expressions; reaching a URL matching any of them means logged in.
	LandingPatterns []string      `mapstructure:"landing_patterns"`
	ElementTimeout  time.Duration `mapstructure:"element_timeout"`
	LandingTimeout  time.Duration `mapstructure:"landing_timeout"`
	LogoutTimeout   time.Duration `mapstructure:"logout_timeout"`
}

func DefaultConfig() Config {
	return Config{
		Selectors: Selectors{
			Account:     "#account",
			Password:    "#password",
			Submit:      "input.primary",
			AccountMenu: "li.cmn-hdr-account",
			LogoutLink:  "a.cmn-hdr-logout-link",
		},
		LandingPatterns: []string{`/(view/top|dashboard)`},
		ElementTimeout:  60 * time.Second,
		LandingTimeout:  60 * time.Second,
		LogoutTimeout:   30 * time.Second,
	}
}

type Controller struct {
	cfg     Config
	landing *regexp.Regexp
}

func NewController(cfg Config) (*Controller, error) {
	if len(cfg.LandingPatterns) == 0 {
		return nil, fmt.Errorf("at least one landing pattern is required")
	}
	alternatives := make([]string, 0, len(cfg.LandingPatterns))
	for _, p := range cfg.LandingPatterns {
		if _, err := regexp.Compile(p); err != nil {
			return nil, fmt.Errorf("invalid landing pattern %q: %w", p, err)
		}
		alternatives = append(alternatives, "(?:"+p+")")
	}
	return &Controller{
		cfg:     cfg,
		landing: regexp.MustCompile(strings.Join(alternatives, "|")),
	}, nil
}

// Login authenticates sess with creds. Any failure is reported as
// domain.ErrAuthenticationFailed wrapping the cause.
func (c *Controller) Login(ctx context.Context, rc domain.RunContext, sess *Session, creds domain.Credentials) error {
	logger := zerolog.Ctx(ctx)
	page := sess.Page()
	sel := c.cfg.Selectors

	if err := page.Navigate(ctx, rc.Endpoints.LoginURL); err != nil {
		return fmt.Errorf("%w: open login page: %w", domain.ErrAuthenticationFailed, err)
	}
	if _, err := browser.WaitAndAct(ctx, page, sel.Account, browser.Fill(creds.Identity), c.cfg.ElementTimeout); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrAuthenticationFailed, err)
	}
	if _, err := browser.WaitAndAct(ctx, page, sel.Password, browser.Fill(creds.Secret), c.cfg.ElementTimeout); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrAuthenticationFailed, err)
	}
	if _, err := browser.WaitAndAct(ctx, page, sel.Submit, browser.Click(), c.cfg.ElementTimeout); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrAuthenticationFailed, err)
	}

	landingCtx, cancel := context.WithTimeout(ctx, c.cfg.LandingTimeout)
	defer cancel()

	url, err := page.WaitURL(landingCtx, c.landing)
	if err != nil {
		if ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w: landing page not reached within %s, still at %q",
				domain.ErrAuthenticationFailed, c.cfg.LandingTimeout, url)
		}
		return fmt.Errorf("%w: %w", domain.ErrAuthenticationFailed, err)
	}

	sess.identity = creds.Identity
	sess.live = true
	logger.Info().Str("url", url).Msg("logged in")
	return nil
}

// Logout is best effort and never fails the run. A confirmation that never
// shows up is logged as a warning.
func (c *Controller) Logout(ctx context.Context, sess *Session) domain.LogoutStatus {
	logger := zerolog.Ctx(ctx)
	page := sess.Page()
	sel := c.cfg.Selectors

	if _, err := browser.WaitAndAct(ctx, page, sel.AccountMenu, browser.Click(), c.cfg.ElementTimeout); err != nil {
		logger.Error().Err(err).Msg("failed to open account menu")
		return domain.LogoutFailed
	}
	if _, err := browser.WaitAndAct(ctx, page, sel.LogoutLink, browser.Click(), c.cfg.ElementTimeout); err != nil {
		logger.Error().Err(err).Msg("failed to click logout link")
		return domain.LogoutFailed
	}

	if err := browser.WaitFor(ctx, page, sel.Account, c.cfg.LogoutTimeout); err != nil {
		var notFound *domain.ElementNotFoundError
		if errors.As(err, &notFound) {
			logger.Warn().Err(fmt.Errorf("%w: %w", domain.ErrLogoutTimeout, err)).Msg("logout not confirmed, closing browser anyway")
			return domain.LogoutSkippedAfterTimeout
		}
		logger.Error().Err(err).Msg("failed to confirm logout")
		return domain.LogoutFailed
	}

	sess.live = false
	logger.Info().Msg("logged out")
	return domain.LogoutClean
}

// Teardown logs out a live session and then closes the engine, whatever the
// outcome of the logout. It ignores cancellation of ctx so it can run after
// the run deadline; each wait is bounded by its own timeout.
func (c *Controller) Teardown(ctx context.Context, sess *Session) domain.LogoutStatus {
	ctx = context.WithoutCancel(ctx)

	status := domain.LogoutNotAttempted
	if sess.Live() {
		status = c.Logout(ctx, sess)
	}
	if err := sess.Close(); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("failed to close browser")
	}
	return status
}
