// Package calendar drives the month-stepping date range picker of the report views.
package calendar

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/de-tools/airregi-sync/pkg/browser"
	"github.com/de-tools/airregi-sync/pkg/models/domain"
)

var monthLabel = regexp.MustCompile(`(\d{4})\D+(\d{1,2})`)

// ParseMonthLabel extracts the displayed month from labels such as
// "2024年5月", "2024-05" or "2024/5".
func ParseMonthLabel(label string) (int, time.Month, error) {
	m := monthLabel.FindStringSubmatch(label)
	if m == nil {
		return 0, 0, fmt.Errorf("unrecognised month label %q", label)
	}
	year, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	if month < 1 || month > 12 {
		return 0, 0, fmt.Errorf("month out of range in label %q", label)
	}
	return year, time.Month(month), nil
}

type Selectors struct {
	Input   string `mapstructure:"input"`
	Label   string `mapstructure:"label"`
	Next    string `mapstructure:"next"`
	Prev    string `mapstructure:"prev"`
	Grid    string `mapstructure:"grid"`
	DayCell string `mapstructure:"day_cell"`
	Confirm string `mapstructure:"confirm"`
	// OverflowClass marks cells of the neighbouring months.
	OverflowClass string `mapstructure:"overflow_class"`
}

type Config struct {
	Selectors      Selectors     `mapstructure:"selectors"`
	SettleDelay    time.Duration `mapstructure:"settle_delay"`
	ElementTimeout time.Duration `mapstructure:"element_timeout"`
	MaxSteps       int           `mapstructure:"max_steps"`
	ClickRetries   int           `mapstructure:"click_retries"`
	RetryInterval  time.Duration `mapstructure:"retry_interval"`
}

func DefaultConfig() Config {
	return Config{
		Selectors: Selectors{
			Input:         "#dateRange",
			Label:         ".calendar-title",
			Next:          ".calendar-next",
			Prev:          ".calendar-prev",
			Grid:          ".calendar-grid",
			DayCell:       ".calendar-grid td.day",
			Confirm:       ".calendar-apply",
			OverflowClass: "is-other-month",
		},
		SettleDelay:    300 * time.Millisecond,
		ElementTimeout: 60 * time.Second,
		MaxSteps:       24,
		ClickRetries:   3,
		RetryInterval:  500 * time.Millisecond,
	}
}

type Navigator struct {
	cfg Config
}

func NewNavigator(cfg Config) *Navigator {
	if cfg.MaxSteps <= 0 {
		cfg.MaxSteps = DefaultConfig().MaxSteps
	}
	return &Navigator{cfg: cfg}
}

// SetRange selects target as both start and end of the picker range.
func (n *Navigator) SetRange(ctx context.Context, page browser.Page, target domain.TargetDate) error {
	sel := n.cfg.Selectors
	logger := zerolog.Ctx(ctx).With().Str("target", target.String()).Logger()

	if _, err := browser.WaitAndAct(ctx, page, sel.Input, browser.Click(), n.cfg.ElementTimeout); err != nil {
		return fmt.Errorf("open date picker: %w", err)
	}

	if err := n.seekMonth(ctx, page, target, logger); err != nil {
		return err
	}

	// first click sets the start bound, the second one the end bound
	for _, bound := range []string{"start", "end"} {
		if err := n.clickDay(ctx, page, target.Day); err != nil {
			return fmt.Errorf("select %s day: %w", bound, err)
		}
	}

	if _, err := browser.WaitAndAct(ctx, page, sel.Confirm, browser.Click(), n.cfg.ElementTimeout); err != nil {
		return fmt.Errorf("confirm date range: %w", err)
	}
	logger.Debug().Msg("date range set")
	return nil
}

func (n *Navigator) seekMonth(ctx context.Context, page browser.Page, target domain.TargetDate, logger zerolog.Logger) error {
	sel := n.cfg.Selectors
	steps := 0
	for {
		label, err := browser.WaitAndAct(ctx, page, sel.Label, browser.ReadText(), n.cfg.ElementTimeout)
		if err != nil {
			return &domain.CalendarSeekFailedError{Target: target, Steps: steps, Err: err}
		}

		year, month, parseErr := ParseMonthLabel(label)
		if parseErr == nil && target.SameMonth(year, month) {
			logger.Debug().Int("steps", steps).Str("label", label).Msg("target month displayed")
			return nil
		}
		if steps >= n.cfg.MaxSteps {
			return &domain.CalendarSeekFailedError{Target: target, Steps: steps, LastLabel: label, Err: parseErr}
		}
		steps++

		if parseErr != nil {
			// the label is re-rendered after each step, give it time
			logger.Debug().Err(parseErr).Msg("month label not readable yet")
		} else {
			control := sel.Next
			if target.MonthsUntil(year, month) < 0 {
				control = sel.Prev
			}
			if err := n.step(ctx, page, control); err != nil {
				return &domain.CalendarSeekFailedError{Target: target, Steps: steps, LastLabel: label, Err: err}
			}
		}

		if err := browser.Settle(ctx, n.cfg.SettleDelay); err != nil {
			return err
		}
	}
}

// step clicks a month control, retrying only while it cannot be found.
func (n *Navigator) step(ctx context.Context, page browser.Page, control string) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = n.cfg.RetryInterval
	policy.MaxElapsedTime = 0

	bounded := backoff.WithContext(backoff.WithMaxRetries(policy, uint64(max(n.cfg.ClickRetries, 0))), ctx)

	return backoff.Retry(func() error {
		_, err := browser.WaitAndAct(ctx, page, control, browser.Click(), n.cfg.ElementTimeout)
		var notFound *domain.ElementNotFoundError
		if err != nil && !errors.As(err, &notFound) {
			return backoff.Permanent(err)
		}
		return err
	}, bounded)
}

func (n *Navigator) clickDay(ctx context.Context, page browser.Page, day int) error {
	sel := n.cfg.Selectors

	grid, err := browser.WaitAndAct(ctx, page, sel.Grid, browser.ReadHTML(), n.cfg.ElementTimeout)
	if err != nil {
		return err
	}
	idx, err := DayCellIndex(grid, sel.DayCell, sel.OverflowClass, day)
	if err != nil {
		return err
	}

	clickCtx, cancel := context.WithTimeout(ctx, n.cfg.ElementTimeout)
	defer cancel()
	return page.ClickNth(clickCtx, sel.DayCell, idx)
}

// DayCellIndex returns the position, among the nodes matching cellSelector,
// of the cell showing day and not carrying overflowClass.
func DayCellIndex(gridHTML, cellSelector, overflowClass string, day int) (int, error) {
	doc, err := parseGrid(gridHTML)
	if err != nil {
		return 0, fmt.Errorf("parse calendar grid: %w", err)
	}

	idx := -1
	doc.Find(cellSelector).EachWithBreak(func(i int, s *goquery.Selection) bool {
		if overflowClass != "" && s.HasClass(overflowClass) {
			return true
		}
		if v, err := strconv.Atoi(strings.TrimSpace(s.Text())); err == nil && v == day {
			idx = i
			return false
		}
		return true
	})
	if idx < 0 {
		return 0, fmt.Errorf("day %d not found in calendar grid", day)
	}
	return idx, nil
}

var leadingTag = regexp.MustCompile(`^\s*<([a-zA-Z]+)`)

// parseGrid parses the grid markup. Table parts such as a bare <tbody> or <tr>
// are parsed inside a table, otherwise the parser drops their tags.
func parseGrid(gridHTML string) (*goquery.Document, error) {
	m := leadingTag.FindStringSubmatch(gridHTML)
	if m == nil {
		return goquery.NewDocumentFromReader(strings.NewReader(gridHTML))
	}
	switch atom.Lookup([]byte(strings.ToLower(m[1]))) {
	case atom.Tbody, atom.Thead, atom.Tfoot, atom.Tr, atom.Td, atom.Th, atom.Caption, atom.Colgroup, atom.Col:
	default:
		return goquery.NewDocumentFromReader(strings.NewReader(gridHTML))
	}

	nodes, err := html.ParseFragment(strings.NewReader(gridHTML), &html.Node{
		Type:     html.ElementNode,
		Data:     "table",
		DataAtom: atom.Table,
	})
	if err != nil {
		return nil, err
	}
	root := &html.Node{Type: html.DocumentNode}
	for _, n := range nodes {
		root.AppendChild(n)
	}
	return goquery.NewDocumentFromNode(root), nil
}
