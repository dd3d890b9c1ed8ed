package session

import (
	"sync"

	"github.com/de-tools/airregi-sync/pkg/browser"
)

// Session is the authenticated context of one run. It owns the engine.
type Session struct {
	identity string
	page     browser.Page
	live     bool

	closeOnce sync.Once
	closeErr  error
}

// Open wraps a freshly launched engine. The session is not live until Login.
func Open(page browser.Page) *Session {
	return &Session{page: page}
}

func (s *Session) Page() browser.Page {
	return s.page
}

func (s *Session) Identity() string {
	return s.identity
}

// Live reports whether the console still considers the session logged in.
func (s *Session) Live() bool {
	return s.live
}

// Close closes the engine. Only the first call reaches it.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.live = false
		s.closeErr = s.page.Close()
	})
	return s.closeErr
}
