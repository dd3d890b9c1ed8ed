// Package headless implements browser.Page on a headless Chrome driven over
// the DevTools protocol.
package headless

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	cdpbrowser "github.com/chromedp/cdproto/browser"
	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog"

	"github.com/de-tools/airregi-sync/pkg/browser"
)

const urlPollInterval = 250 * time.Millisecond

type Options struct {
	Headless bool
	// ExecPath overrides the Chrome binary lookup.
	ExecPath  string
	UserAgent string
	// DownloadDir receives in-flight downloads. Defaults to a temporary directory.
	DownloadDir  string
	WindowWidth  int
	WindowHeight int
}

type downloadEvent struct {
	guid  string
	state cdpbrowser.DownloadProgressState
}

// Engine is one Chrome process with a single tab.
type Engine struct {
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc

	downloadDir   string
	ownsDir       bool
	mu            sync.Mutex
	suggested     map[string]string
	downloadEvent chan downloadEvent

	closeOnce sync.Once
	closeErr  error
}

// Launch starts Chrome. The engine lives until Close, independently of ctx
// cancellation, so teardown can still run after a run deadline.
func Launch(ctx context.Context, opts Options) (*Engine, error) {
	logger := zerolog.Ctx(ctx)

	downloadDir := opts.DownloadDir
	ownsDir := false
	if downloadDir == "" {
		dir, err := os.MkdirTemp("", "airregi-downloads-")
		if err != nil {
			return nil, fmt.Errorf("failed to create download directory: %w", err)
		}
		downloadDir = dir
		ownsDir = true
	} else if err := os.MkdirAll(downloadDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create download directory: %w", err)
	}

	width, height := opts.WindowWidth, opts.WindowHeight
	if width == 0 || height == 0 {
		width, height = 1366, 900
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.WindowSize(width, height),
	)
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}
	if opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(opts.UserAgent))
	}

	base := context.WithoutCancel(ctx)
	allocCtx, allocCancel := chromedp.NewExecAllocator(base, allocOpts...)
	tabCtx, cancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(format string, args ...any) {
			logger.Debug().Msgf(format, args...)
		}),
		chromedp.WithErrorf(func(format string, args ...any) {
			logger.Debug().Str("source", "cdp").Msgf(format, args...)
		}),
	)

	e := &Engine{
		ctx:           tabCtx,
		cancel:        cancel,
		allocCancel:   allocCancel,
		downloadDir:   downloadDir,
		ownsDir:       ownsDir,
		suggested:     make(map[string]string),
		downloadEvent: make(chan downloadEvent, 16),
	}

	chromedp.ListenTarget(tabCtx, e.onEvent)

	// the first Run allocates the browser, it has to use the engine context
	err := chromedp.Run(tabCtx,
		cdpbrowser.SetDownloadBehavior(cdpbrowser.SetDownloadBehaviorBehaviorAllowAndName).
			WithDownloadPath(downloadDir).
			WithEventsEnabled(true),
	)
	if err != nil {
		_ = e.Close()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	logger.Debug().Str("download_dir", downloadDir).Bool("headless", opts.Headless).Msg("browser started")
	return e, nil
}

func (e *Engine) onEvent(ev any) {
	switch ev := ev.(type) {
	case *cdpbrowser.EventDownloadWillBegin:
		e.mu.Lock()
		e.suggested[ev.GUID] = ev.SuggestedFilename
		e.mu.Unlock()
	case *cdpbrowser.EventDownloadProgress:
		if ev.State == cdpbrowser.DownloadProgressStateCompleted || ev.State == cdpbrowser.DownloadProgressStateCanceled {
			select {
			case e.downloadEvent <- downloadEvent{guid: ev.GUID, state: ev.State}:
			default:
			}
		}
	}
}

// scope derives a context of the tab that ends when ctx ends.
func (e *Engine) scope(ctx context.Context) (context.Context, context.CancelFunc) {
	var (
		c      context.Context
		cancel context.CancelFunc
	)
	if deadline, ok := ctx.Deadline(); ok {
		c, cancel = context.WithDeadline(e.ctx, deadline)
	} else {
		c, cancel = context.WithCancel(e.ctx)
	}
	stop := context.AfterFunc(ctx, cancel)
	return c, func() {
		stop()
		cancel()
	}
}

func (e *Engine) run(ctx context.Context, actions ...chromedp.Action) error {
	c, cancel := e.scope(ctx)
	defer cancel()
	return chromedp.Run(c, actions...)
}

func (e *Engine) Navigate(ctx context.Context, url string) error {
	return e.run(ctx, chromedp.Navigate(url))
}

func (e *Engine) WaitVisible(ctx context.Context, selector string) error {
	return e.run(ctx, chromedp.WaitVisible(selector, chromedp.ByQuery))
}

func (e *Engine) Click(ctx context.Context, selector string) error {
	return e.run(ctx, chromedp.Click(selector, chromedp.ByQuery, chromedp.NodeVisible))
}

func (e *Engine) ClickNth(ctx context.Context, selector string, n int) error {
	c, cancel := e.scope(ctx)
	defer cancel()

	var nodes []*cdp.Node
	if err := chromedp.Run(c, chromedp.Nodes(selector, &nodes, chromedp.ByQueryAll)); err != nil {
		return err
	}
	if n < 0 || n >= len(nodes) {
		return fmt.Errorf("node %d of %q does not exist (%d nodes)", n, selector, len(nodes))
	}
	return chromedp.Run(c, chromedp.MouseClickNode(nodes[n]))
}

func (e *Engine) Fill(ctx context.Context, selector, value string) error {
	return e.run(ctx,
		chromedp.Clear(selector, chromedp.ByQuery),
		chromedp.SendKeys(selector, value, chromedp.ByQuery),
	)
}

func (e *Engine) Text(ctx context.Context, selector string) (string, error) {
	var text string
	err := e.run(ctx, chromedp.Text(selector, &text, chromedp.ByQuery))
	return text, err
}

func (e *Engine) OuterHTML(ctx context.Context, selector string) (string, error) {
	var html string
	err := e.run(ctx, chromedp.OuterHTML(selector, &html, chromedp.ByQuery))
	return html, err
}

func (e *Engine) URL(ctx context.Context) (string, error) {
	var url string
	err := e.run(ctx, chromedp.Location(&url))
	return url, err
}

func (e *Engine) WaitURL(ctx context.Context, pattern *regexp.Regexp) (string, error) {
	ticker := time.NewTicker(urlPollInterval)
	defer ticker.Stop()

	var current string
	for {
		url, err := e.URL(ctx)
		if err == nil {
			current = url
			if pattern.MatchString(url) {
				return url, nil
			}
		}
		select {
		case <-ctx.Done():
			return current, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (e *Engine) ExpectDownload(ctx context.Context, trigger func(context.Context) error) (*browser.Download, error) {
	// drop events of downloads nobody waited for
	for drained := false; !drained; {
		select {
		case <-e.downloadEvent:
		default:
			drained = true
		}
	}

	if err := trigger(ctx); err != nil {
		return nil, err
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case ev := <-e.downloadEvent:
		if ev.state == cdpbrowser.DownloadProgressStateCanceled {
			return nil, fmt.Errorf("download %s was canceled by the browser", ev.guid)
		}
		path := filepath.Join(e.downloadDir, ev.guid)
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read completed download: %w", err)
		}
		_ = os.Remove(path)

		e.mu.Lock()
		name := e.suggested[ev.guid]
		delete(e.suggested, ev.guid)
		e.mu.Unlock()

		return &browser.Download{SuggestedFilename: name, Data: data}, nil
	}
}

// Close shuts the browser down. It is safe to call more than once.
func (e *Engine) Close() error {
	e.closeOnce.Do(func() {
		e.closeErr = chromedp.Cancel(e.ctx)
		e.cancel()
		e.allocCancel()
		if e.ownsDir {
			_ = os.RemoveAll(e.downloadDir)
		}
	})
	return e.closeErr
}

var _ browser.Page = (*Engine)(nil)
