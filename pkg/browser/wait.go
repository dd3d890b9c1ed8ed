package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/de-tools/airregi-sync/pkg/models/domain"
)

// Action is performed on an element once it is visible.
type Action func(ctx context.Context, page Page, selector string) (string, error)

func Click() Action {
	return func(ctx context.Context, page Page, selector string) (string, error) {
		return "", page.Click(ctx, selector)
	}
}

func Fill(value string) Action {
	return func(ctx context.Context, page Page, selector string) (string, error) {
		return "", page.Fill(ctx, selector, value)
	}
}

func ReadText() Action {
	return func(ctx context.Context, page Page, selector string) (string, error) {
		return page.Text(ctx, selector)
	}
}

func ReadHTML() Action {
	return func(ctx context.Context, page Page, selector string) (string, error) {
		return page.OuterHTML(ctx, selector)
	}
}

// WaitAndAct waits up to timeout for locator to become visible and then
// performs action on it. A locator that never shows up yields
// *domain.ElementNotFoundError. There is no retry here; the act may navigate
// or re-render the page.
func WaitAndAct(ctx context.Context, page Page, locator string, action Action, timeout time.Duration) (string, error) {
	if err := WaitFor(ctx, page, locator, timeout); err != nil {
		return "", err
	}

	actCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	out, err := action(actCtx, page, locator)
	if err != nil {
		return "", fmt.Errorf("act on %q: %w", locator, err)
	}
	return out, nil
}

// WaitFor waits up to timeout for locator to become visible.
func WaitFor(ctx context.Context, page Page, locator string, timeout time.Duration) error {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := page.WaitVisible(waitCtx, locator); err != nil {
		if ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
			return &domain.ElementNotFoundError{Locator: locator, Timeout: timeout}
		}
		return fmt.Errorf("wait for %q: %w", locator, err)
	}
	return nil
}

// Settle pauses for d unless ctx ends first.
func Settle(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
