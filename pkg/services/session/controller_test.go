package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/de-tools/airregi-sync/pkg/browser/browsertest"
	"github.com/de-tools/airregi-sync/pkg/models/domain"
)

const (
	loginURL = "https://connect.example.test/login?client_id=ARG"
	topURL   = "https://pos.example.test/CLP/view/top"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.ElementTimeout = 50 * time.Millisecond
	cfg.LandingTimeout = 50 * time.Millisecond
	cfg.LogoutTimeout = 50 * time.Millisecond
	return cfg
}

func testRunContext() domain.RunContext {
	today := domain.TargetDate{Year: 2024, Month: time.May, Day: 20}
	return domain.RunContext{
		TargetDate: today,
		Today:      today,
		Endpoints:  domain.Endpoints{LoginURL: loginURL},
	}
}

// fakeConsole accepts u/p. confirmLogout controls whether the logout link
// brings the login form back.
func fakeConsole(confirmLogout bool) *browsertest.Page {
	page := browsertest.New()

	var renderLogin func(p *browsertest.Page)
	renderLogin = func(p *browsertest.Page) {
		p.Set("#account", &browsertest.Element{})
		p.Set("#password", &browsertest.Element{})
		p.Set("input.primary", &browsertest.Element{OnClick: func(p *browsertest.Page) {
			if p.Value("#account") != "u" || p.Value("#password") != "p" {
				return
			}
			p.Load(topURL)
			p.Set("li.cmn-hdr-account", &browsertest.Element{OnClick: func(p *browsertest.Page) {
				p.Show("a.cmn-hdr-logout-link")
			}})
			p.Set("a.cmn-hdr-logout-link", &browsertest.Element{Hidden: true, OnClick: func(p *browsertest.Page) {
				if confirmLogout {
					p.Load(loginURL)
					renderLogin(p)
				}
			}})
		}})
	}
	page.Route(loginURL, renderLogin)
	return page
}

func newController(t *testing.T) *Controller {
	t.Helper()
	ctrl, err := NewController(testConfig())
	require.NoError(t, err)
	return ctrl
}

func TestLogin_ReachesLandingPage(t *testing.T) {
	// Given
	page := fakeConsole(true)
	sess := Open(page)
	ctrl := newController(t)

	// When
	err := ctrl.Login(context.Background(), testRunContext(), sess, domain.Credentials{Identity: "u", Secret: "p"})

	// Then
	require.NoError(t, err)
	assert.True(t, sess.Live())
	assert.Equal(t, "u", sess.Identity())
	url, _ := page.URL(context.Background())
	assert.Equal(t, topURL, url)
	assert.Equal(t, []string{"input.primary"}, page.Clicks())
}

func TestLogin_InvalidCredentials(t *testing.T) {
	page := fakeConsole(true)
	sess := Open(page)
	ctrl := newController(t)

	start := time.Now()
	err := ctrl.Login(context.Background(), testRunContext(), sess, domain.Credentials{Identity: "u", Secret: "wrong"})

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrAuthenticationFailed)
	assert.Contains(t, err.Error(), loginURL)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.False(t, sess.Live())
}

func TestLogin_MissingForm(t *testing.T) {
	page := browsertest.New()
	sess := Open(page)
	ctrl := newController(t)

	err := ctrl.Login(context.Background(), testRunContext(), sess, domain.Credentials{Identity: "u", Secret: "p"})

	assert.ErrorIs(t, err, domain.ErrAuthenticationFailed)
	var notFound *domain.ElementNotFoundError
	require.True(t, errors.As(err, &notFound))
	assert.Equal(t, "#account", notFound.Locator)
}

func TestTeardown(t *testing.T) {
	tests := []struct {
		name          string
		login         bool
		confirmLogout bool
		want          domain.LogoutStatus
	}{
		{name: "clean logout", login: true, confirmLogout: true, want: domain.LogoutClean},
		{name: "logout never confirmed", login: true, confirmLogout: false, want: domain.LogoutSkippedAfterTimeout},
		{name: "never logged in", login: false, want: domain.LogoutNotAttempted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := fakeConsole(tt.confirmLogout)
			sess := Open(page)
			ctrl := newController(t)
			ctx := context.Background()
			if tt.login {
				require.NoError(t, ctrl.Login(ctx, testRunContext(), sess, domain.Credentials{Identity: "u", Secret: "p"}))
			}

			status := ctrl.Teardown(ctx, sess)

			assert.Equal(t, tt.want, status)
			assert.Equal(t, 1, page.Closes())
			assert.False(t, sess.Live())

			// closing again does not reach the engine
			require.NoError(t, sess.Close())
			assert.Equal(t, 1, page.Closes())
		})
	}
}

func TestTeardown_AfterDeadline(t *testing.T) {
	page := fakeConsole(true)
	sess := Open(page)
	ctrl := newController(t)
	require.NoError(t, ctrl.Login(context.Background(), testRunContext(), sess, domain.Credentials{Identity: "u", Secret: "p"}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	status := ctrl.Teardown(ctx, sess)

	assert.Equal(t, domain.LogoutClean, status)
	assert.Equal(t, 1, page.Closes())
}

func TestNewController_RejectsBadPattern(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LandingPatterns = []string{"("}

	_, err := NewController(cfg)
	assert.Error(t, err)
}
