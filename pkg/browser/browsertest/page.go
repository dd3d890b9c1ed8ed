// Package browsertest provides a scripted in-memory browser.Page for tests.
package browsertest

import (
	"context"
	"fmt"
	"html"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/de-tools/airregi-sync/pkg/browser"
)

const pollInterval = time.Millisecond

// Element is a node of the fake page, addressed by the selector it was set under.
type Element struct {
	Text   string
	HTML   string
	Hidden bool
	// OnClick runs after the click is recorded. It may mutate the page.
	OnClick func(p *Page)
	// Download is produced when the element is clicked during ExpectDownload.
	Download *browser.Download
}

// Page is a fake engine. Elements are looked up by exact selector string.
// Like the real engine, actions fail with the context error once ctx is done.
type Page struct {
	mu        sync.Mutex
	url       string
	elements  map[string][]*Element
	routes    map[string]func(p *Page)
	values    map[string]string
	events    []string
	closes    int
	expecting bool
	pending   *browser.Download

	// CloseErr is returned by Close.
	CloseErr error
}

func New() *Page {
	return &Page{
		elements: make(map[string][]*Element),
		routes:   make(map[string]func(p *Page)),
		values:   make(map[string]string),
	}
}

// Route registers the render function run when url is navigated to.
func (p *Page) Route(url string, render func(p *Page)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.routes[url] = render
}

// Set replaces the elements matching selector.
func (p *Page) Set(selector string, els ...*Element) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.elements[selector] = els
}

func (p *Page) Remove(selector string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.elements, selector)
}

// Show makes the first element under selector visible.
func (p *Page) Show(selector string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, el := range p.elements[selector] {
		el.Hidden = false
	}
}

// Load replaces the document: all elements are dropped and the URL changes.
// It does not run routes.
func (p *Page) Load(url string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.url = url
	p.elements = make(map[string][]*Element)
	p.events = append(p.events, "load:"+url)
}

// SetURL changes the URL without touching the document, like a client side route change.
func (p *Page) SetURL(url string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.url = url
}

func (p *Page) Value(selector string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.values[selector]
}

// Events lists navigations, fills and clicks in order, e.g. "click:#btnSearch".
func (p *Page) Events() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.events...)
}

// Clicks lists the selectors clicked, in order. ClickNth is recorded as "sel[n]".
func (p *Page) Clicks() []string {
	var clicks []string
	for _, ev := range p.Events() {
		if s, ok := strings.CutPrefix(ev, "click:"); ok {
			clicks = append(clicks, s)
		}
	}
	return clicks
}

func (p *Page) Closes() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closes
}

func (p *Page) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	p.url = url
	p.elements = make(map[string][]*Element)
	p.events = append(p.events, "navigate:"+url)
	render := p.routes[url]
	p.mu.Unlock()

	if render != nil {
		render(p)
	}
	return nil
}

func (p *Page) visible(selector string) *Element {
	for _, el := range p.elements[selector] {
		if !el.Hidden {
			return el
		}
	}
	return nil
}

func (p *Page) WaitVisible(ctx context.Context, selector string) error {
	return p.poll(ctx, func() bool {
		return p.visible(selector) != nil
	})
}

func (p *Page) poll(ctx context.Context, cond func() bool) error {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		p.mu.Lock()
		ok := cond()
		p.mu.Unlock()
		if ok {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (p *Page) Click(ctx context.Context, selector string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	el := p.visible(selector)
	if el == nil {
		p.mu.Unlock()
		return fmt.Errorf("no visible node matches %q", selector)
	}
	p.click(selector, el)
	return nil
}

func (p *Page) ClickNth(ctx context.Context, selector string, n int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	els := p.elements[selector]
	if n < 0 || n >= len(els) {
		p.mu.Unlock()
		return fmt.Errorf("node %d of %q does not exist (%d nodes)", n, selector, len(els))
	}
	p.click(fmt.Sprintf("%s[%d]", selector, n), els[n])
	return nil
}

// click must be called with p.mu held; it releases it before running OnClick.
func (p *Page) click(label string, el *Element) {
	p.events = append(p.events, "click:"+label)
	if el.Download != nil && p.expecting {
		d := *el.Download
		p.pending = &d
	}
	onClick := el.OnClick
	p.mu.Unlock()

	if onClick != nil {
		onClick(p)
	}
}

func (p *Page) Fill(ctx context.Context, selector, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.visible(selector) == nil {
		return fmt.Errorf("no visible node matches %q", selector)
	}
	p.values[selector] = value
	p.events = append(p.events, "fill:"+selector)
	return nil
}

func (p *Page) Text(_ context.Context, selector string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	els := p.elements[selector]
	if len(els) == 0 {
		return "", fmt.Errorf("no node matches %q", selector)
	}
	return els[0].Text, nil
}

func (p *Page) OuterHTML(_ context.Context, selector string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	els := p.elements[selector]
	if len(els) == 0 {
		return "", fmt.Errorf("no node matches %q", selector)
	}
	if els[0].HTML != "" {
		return els[0].HTML, nil
	}
	return "<div>" + html.EscapeString(els[0].Text) + "</div>", nil
}

func (p *Page) URL(_ context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.url, nil
}

func (p *Page) WaitURL(ctx context.Context, pattern *regexp.Regexp) (string, error) {
	var url string
	err := p.poll(ctx, func() bool {
		url = p.url
		return pattern.MatchString(p.url)
	})
	if err != nil {
		return url, err
	}
	return url, nil
}

func (p *Page) ExpectDownload(ctx context.Context, trigger func(context.Context) error) (*browser.Download, error) {
	p.mu.Lock()
	p.expecting = true
	p.pending = nil
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.expecting = false
		p.mu.Unlock()
	}()

	if err := trigger(ctx); err != nil {
		return nil, err
	}

	var d *browser.Download
	err := p.poll(ctx, func() bool {
		d = p.pending
		return d != nil
	})
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (p *Page) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closes++
	p.events = append(p.events, "close")
	return p.CloseErr
}

var _ browser.Page = (*Page)(nil)
