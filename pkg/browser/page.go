// Package browser defines the engine contract the extraction flow drives and
// the wait-then-act primitive every interaction goes through.
package browser

import (
	"context"
	"regexp"
)

// Download is a file transfer completed by the engine.
type Download struct {
	SuggestedFilename string
	Data              []byte
}

// Page is a single browsing tab. Implementations are not safe for concurrent
// use; the session is driven by one goroutine.
type Page interface {
	Navigate(ctx context.Context, url string) error
	// WaitVisible blocks until an element matching selector is visible or ctx is done.
	WaitVisible(ctx context.Context, selector string) error
	Click(ctx context.Context, selector string) error
	// ClickNth clicks the n-th (zero based, document order) element matching selector.
	ClickNth(ctx context.Context, selector string, n int) error
	Fill(ctx context.Context, selector, value string) error
	Text(ctx context.Context, selector string) (string, error)
	OuterHTML(ctx context.Context, selector string) (string, error)
	URL(ctx context.Context) (string, error)
	// WaitURL blocks until the current URL matches pattern and returns it.
	WaitURL(ctx context.Context, pattern *regexp.Regexp) (string, error)
	// ExpectDownload starts listening for a download, runs trigger and waits
	// for the download it caused to complete.
	ExpectDownload(ctx context.Context, trigger func(context.Context) error) (*Download, error)
	Close() error
}
