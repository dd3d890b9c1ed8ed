package calendar

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/de-tools/airregi-sync/pkg/browser/browsertest"
	"github.com/de-tools/airregi-sync/pkg/models/domain"
)

// widget imitates the picker: leading cells of the previous month, the days
// of the displayed month, trailing cells of the next month.
type widget struct {
	mu       sync.Mutex
	year     int
	month    time.Month
	label    func(year int, month time.Month) string
	frozen   bool
	selected []string
}

func (w *widget) Selected() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.selected...)
}

func (w *widget) shift(p *browsertest.Page, months int) {
	w.mu.Lock()
	if !w.frozen {
		t := time.Date(w.year, w.month+time.Month(months), 1, 0, 0, 0, 0, time.UTC)
		w.year, w.month = t.Year(), t.Month()
	}
	w.mu.Unlock()
	w.render(p)
}

func (w *widget) render(p *browsertest.Page) {
	w.mu.Lock()
	year, month := w.year, w.month
	w.mu.Unlock()

	label := fmt.Sprintf("%d年%d月", year, month)
	if w.label != nil {
		label = w.label(year, month)
	}
	p.Set(".calendar-title", &browsertest.Element{Text: label})
	p.Set(".calendar-next", &browsertest.Element{OnClick: func(p *browsertest.Page) { w.shift(p, 1) }})
	p.Set(".calendar-prev", &browsertest.Element{OnClick: func(p *browsertest.Page) { w.shift(p, -1) }})
	p.Set(".calendar-apply", &browsertest.Element{})

	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	daysIn := first.AddDate(0, 1, -1).Day()
	prevDays := first.AddDate(0, 0, -1).Day()

	type cell struct {
		day      int
		overflow bool
	}
	var cells []cell
	for d := prevDays - 2; d <= prevDays; d++ {
		cells = append(cells, cell{d, true})
	}
	for d := 1; d <= daysIn; d++ {
		cells = append(cells, cell{d, false})
	}
	for d := 1; d <= 3; d++ {
		cells = append(cells, cell{d, true})
	}

	var html strings.Builder
	html.WriteString(`<table class="calendar-grid"><tbody><tr>`)
	els := make([]*browsertest.Element, 0, len(cells))
	for _, c := range cells {
		class := "day"
		if c.overflow {
			class += " is-other-month"
		}
		fmt.Fprintf(&html, `<td class="%s">%d</td>`, class, c.day)

		tag := fmt.Sprintf("%d-%02d-%02d", year, month, c.day)
		if c.overflow {
			tag = "overflow-" + tag
		}
		els = append(els, &browsertest.Element{Text: fmt.Sprint(c.day), OnClick: func(*browsertest.Page) {
			w.mu.Lock()
			w.selected = append(w.selected, tag)
			w.mu.Unlock()
		}})
	}
	html.WriteString(`</tr></tbody></table>`)

	p.Set(".calendar-grid", &browsertest.Element{HTML: html.String()})
	p.Set(".calendar-grid td.day", els...)
}

func newPicker(w *widget) *browsertest.Page {
	page := browsertest.New()
	page.Set("#dateRange", &browsertest.Element{OnClick: w.render})
	return page
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.SettleDelay = time.Millisecond
	cfg.ElementTimeout = 50 * time.Millisecond
	cfg.RetryInterval = time.Millisecond
	return cfg
}

func countClicks(clicks []string, selector string) int {
	n := 0
	for _, c := range clicks {
		if c == selector {
			n++
		}
	}
	return n
}

func TestSetRange_SeeksToTargetMonth(t *testing.T) {
	tests := []struct {
		name      string
		displayed domain.TargetDate
		target    domain.TargetDate
		next      int
		prev      int
	}{
		{
			name:      "forward",
			displayed: domain.TargetDate{Year: 2024, Month: time.March},
			target:    domain.TargetDate{Year: 2024, Month: time.May, Day: 15},
			next:      2,
		},
		{
			name:      "backward across a year",
			displayed: domain.TargetDate{Year: 2024, Month: time.May},
			target:    domain.TargetDate{Year: 2023, Month: time.November, Day: 30},
			prev:      6,
		},
		{
			name:      "same month",
			displayed: domain.TargetDate{Year: 2024, Month: time.May},
			target:    domain.TargetDate{Year: 2024, Month: time.May, Day: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Given
			w := &widget{year: tt.displayed.Year, month: tt.displayed.Month}
			page := newPicker(w)
			nav := NewNavigator(testConfig())

			// When
			err := nav.SetRange(context.Background(), page, tt.target)

			// Then
			require.NoError(t, err)
			clicks := page.Clicks()
			assert.Equal(t, tt.next, countClicks(clicks, ".calendar-next"))
			assert.Equal(t, tt.prev, countClicks(clicks, ".calendar-prev"))
			assert.Equal(t, []string{tt.target.String(), tt.target.String()}, w.Selected())
			assert.Equal(t, ".calendar-apply", clicks[len(clicks)-1])
		})
	}
}

func TestSetRange_SkipsOverflowCells(t *testing.T) {
	// May 2024 starts with April 28-30 and ends with June 1-3
	for _, day := range []int{1, 2, 29, 30} {
		t.Run(fmt.Sprint(day), func(t *testing.T) {
			w := &widget{year: 2024, month: time.May}
			page := newPicker(w)
			target := domain.TargetDate{Year: 2024, Month: time.May, Day: day}

			require.NoError(t, NewNavigator(testConfig()).SetRange(context.Background(), page, target))

			assert.Equal(t, []string{target.String(), target.String()}, w.Selected())
		})
	}
}

func TestSetRange_AcceptsLabelFormats(t *testing.T) {
	w := &widget{year: 2024, month: time.January, label: func(y int, m time.Month) string {
		return fmt.Sprintf("%d-%02d", y, m)
	}}
	page := newPicker(w)
	target := domain.TargetDate{Year: 2023, Month: time.December, Day: 31}

	require.NoError(t, NewNavigator(testConfig()).SetRange(context.Background(), page, target))
	assert.Equal(t, []string{"2023-12-31", "2023-12-31"}, w.Selected())
}

func TestSetRange_MalformedLabel(t *testing.T) {
	// Given a label that never becomes readable
	w := &widget{year: 2024, month: time.May, label: func(int, time.Month) string { return "読み込み中" }}
	page := newPicker(w)
	cfg := testConfig()
	cfg.MaxSteps = 5

	// When
	err := NewNavigator(cfg).SetRange(context.Background(), page, domain.TargetDate{Year: 2024, Month: time.May, Day: 3})

	// Then
	var seekErr *domain.CalendarSeekFailedError
	require.True(t, errors.As(err, &seekErr))
	assert.Equal(t, 5, seekErr.Steps)
	assert.Equal(t, "読み込み中", seekErr.LastLabel)
	assert.Empty(t, w.Selected())
	assert.Zero(t, countClicks(page.Clicks(), ".calendar-next"))
}

func TestSetRange_StopsAfterMaxSteps(t *testing.T) {
	w := &widget{year: 2024, month: time.May, frozen: true}
	page := newPicker(w)

	err := NewNavigator(testConfig()).SetRange(context.Background(), page, domain.TargetDate{Year: 2026, Month: time.May, Day: 3})

	var seekErr *domain.CalendarSeekFailedError
	require.True(t, errors.As(err, &seekErr))
	assert.Equal(t, 24, seekErr.Steps)
	assert.Equal(t, 24, countClicks(page.Clicks(), ".calendar-next"))
	assert.Equal(t, "2024年5月", seekErr.LastLabel)
}

func TestSetRange_RetriesMissingControl(t *testing.T) {
	// Given a next control that only shows up after a while
	w := &widget{year: 2024, month: time.April}
	page := newPicker(w)
	page.Set("#dateRange", &browsertest.Element{OnClick: func(p *browsertest.Page) {
		w.render(p)
		p.Remove(".calendar-next")
		time.AfterFunc(15*time.Millisecond, func() {
			p.Set(".calendar-next", &browsertest.Element{OnClick: func(p *browsertest.Page) { w.shift(p, 1) }})
		})
	}})
	cfg := testConfig()
	cfg.ElementTimeout = 5 * time.Millisecond
	cfg.ClickRetries = 20

	// When
	err := NewNavigator(cfg).SetRange(context.Background(), page, domain.TargetDate{Year: 2024, Month: time.May, Day: 9})

	// Then
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-05-09", "2024-05-09"}, w.Selected())
}

func TestSetRange_ControlNeverAppears(t *testing.T) {
	w := &widget{year: 2024, month: time.April}
	page := newPicker(w)
	page.Set("#dateRange", &browsertest.Element{OnClick: func(p *browsertest.Page) {
		w.render(p)
		p.Remove(".calendar-next")
	}})
	cfg := testConfig()
	cfg.ElementTimeout = 2 * time.Millisecond
	cfg.ClickRetries = 2

	err := NewNavigator(cfg).SetRange(context.Background(), page, domain.TargetDate{Year: 2024, Month: time.May, Day: 9})

	var seekErr *domain.CalendarSeekFailedError
	require.True(t, errors.As(err, &seekErr))
	var notFound *domain.ElementNotFoundError
	require.True(t, errors.As(err, &notFound))
	assert.Equal(t, ".calendar-next", notFound.Locator)
}

func TestParseMonthLabel(t *testing.T) {
	cases := []struct {
		label string
		year  int
		month time.Month
		ok    bool
	}{
		{"2024年5月", 2024, time.May, true},
		{"2024年12月", 2024, time.December, true},
		{"2024-05", 2024, time.May, true},
		{"2024/5", 2024, time.May, true},
		{" 2023 / 11 ", 2023, time.November, true},
		{"2024年13月", 0, 0, false},
		{"May 2024", 0, 0, false},
		{"", 0, 0, false},
	}
	for _, c := range cases {
		year, month, err := ParseMonthLabel(c.label)
		if !c.ok {
			assert.Error(t, err, c.label)
			continue
		}
		require.NoError(t, err, c.label)
		assert.Equal(t, c.year, year, c.label)
		assert.Equal(t, c.month, month, c.label)
	}
}

func TestDayCellIndex(t *testing.T) {
	grid := `<table class="calendar-grid"><tr>` +
		`<td class="day is-other-month">30</td>` +
		`<td class="day">1</td><td class="day"> 2 </td>` +
		`<td class="day is-other-month">1</td></tr></table>`

	idx, err := DayCellIndex(grid, ".calendar-grid td.day", "is-other-month", 1)
	require.NoError(t, err)
	assert.Equal(t, 1, idx)

	idx, err = DayCellIndex(grid, ".calendar-grid td.day", "is-other-month", 2)
	require.NoError(t, err)
	assert.Equal(t, 2, idx)

	_, err = DayCellIndex(grid, ".calendar-grid td.day", "is-other-month", 30)
	assert.Error(t, err)
}

func TestDayCellIndex_TableFragments(t *testing.T) {
	cells := `<td class="day is-other-month">30</td><td class="day">1</td><td class="day">2</td>`

	tests := []struct {
		name string
		grid string
	}{
		{name: "table", grid: `<table><tbody><tr>` + cells + `</tr></tbody></table>`},
		{name: "tbody", grid: `<tbody><tr>` + cells + `</tr></tbody>`},
		{name: "tbody with whitespace", grid: "\n  <TBODY><tr>" + cells + "</tr></TBODY>"},
		{name: "row", grid: `<tr>` + cells + `</tr>`},
		{name: "cells", grid: cells},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// When
			idx, err := DayCellIndex(tt.grid, "td.day", "is-other-month", 2)

			// Then
			require.NoError(t, err)
			assert.Equal(t, 2, idx)
		})
	}
}
