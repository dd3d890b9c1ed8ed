// Package report runs report recipes against the console and stages the
// files they produce.
package report

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/rs/zerolog"

	"github.com/de-tools/airregi-sync/pkg/browser"
	"github.com/de-tools/airregi-sync/pkg/models/domain"
)

type Config struct {
	ElementTimeout    time.Duration `mapstructure:"element_timeout"`
	DownloadTimeout   time.Duration `mapstructure:"download_timeout"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout"`
}

func DefaultConfig() Config {
	return Config{
		ElementTimeout:    60 * time.Second,
		DownloadTimeout:   120 * time.Second,
		NavigationTimeout: 60 * time.Second,
	}
}

// RangeSelector sets the date range of the current report view.
type RangeSelector interface {
	SetRange(ctx context.Context, page browser.Page, target domain.TargetDate) error
}

type Stager interface {
	Put(reportID, name string, data []byte) (domain.CapturedFile, error)
}

type Fetcher struct {
	cfg      Config
	page     browser.Page
	calendar RangeSelector
	staging  Stager
}

func NewFetcher(cfg Config, page browser.Page, calendar RangeSelector, staging Stager) *Fetcher {
	return &Fetcher{
		cfg:      cfg,
		page:     page,
		calendar: calendar,
		staging:  staging,
	}
}

// Fetch runs the steps of spec in order. Files staged before a failing step
// are returned along with a *domain.DownloadFailedError.
func (f *Fetcher) Fetch(ctx context.Context, rc domain.RunContext, spec domain.ReportSpec) ([]domain.CapturedFile, error) {
	logger := zerolog.Ctx(ctx).With().Str("report", spec.ID).Logger()
	vars := NewNameVars(spec, rc)

	var files []domain.CapturedFile
	for _, step := range spec.Steps {
		stepLogger := logger.With().Str("stage", step.StageName()).Str("kind", string(step.Kind)).Logger()
		stepCtx := stepLogger.WithContext(ctx)

		file, err := f.runStep(stepCtx, rc, spec, step, vars)
		if err != nil {
			stepLogger.Error().Err(err).Msg("report step failed")
			return files, &domain.DownloadFailedError{ReportID: spec.ID, Stage: step.StageName(), Err: err}
		}
		if file != nil {
			stepLogger.Info().Str("file", file.Name).Int64("size", file.Size).Msg("file captured")
			files = append(files, *file)
		}
	}
	return files, nil
}

func (f *Fetcher) runStep(ctx context.Context, rc domain.RunContext, spec domain.ReportSpec, step domain.Step, vars NameVars) (*domain.CapturedFile, error) {
	switch step.Kind {
	case domain.StepNavigate:
		navCtx, cancel := context.WithTimeout(ctx, f.cfg.NavigationTimeout)
		defer cancel()
		return nil, f.page.Navigate(navCtx, step.URL)

	case domain.StepClick:
		_, err := browser.WaitAndAct(ctx, f.page, step.Selector, browser.Click(), f.cfg.ElementTimeout)
		return nil, err

	case domain.StepWaitFor:
		return nil, browser.WaitFor(ctx, f.page, step.Selector, f.cfg.ElementTimeout)

	case domain.StepWaitURL:
		return nil, f.waitURL(ctx, step.Pattern)

	case domain.StepCalendar:
		if step.SkipWhenToday && rc.IsToday() {
			zerolog.Ctx(ctx).Debug().Msg("view defaults to today, calendar skipped")
			return nil, nil
		}
		return nil, f.calendar.SetRange(ctx, f.page, rc.TargetDate)

	case domain.StepDownload:
		return f.download(ctx, spec, step, vars)
	}
	return nil, fmt.Errorf("unknown step kind %q", step.Kind)
}

func (f *Fetcher) waitURL(ctx context.Context, pattern string) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return fmt.Errorf("invalid url pattern %q: %w", pattern, err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, f.cfg.NavigationTimeout)
	defer cancel()

	url, err := f.page.WaitURL(waitCtx, re)
	if err != nil {
		if ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("url did not match %q within %s, still at %q", pattern, f.cfg.NavigationTimeout, url)
		}
		return err
	}
	return nil
}

func (f *Fetcher) download(ctx context.Context, spec domain.ReportSpec, step domain.Step, vars NameVars) (*domain.CapturedFile, error) {
	name, err := RenderName(step.Output, vars)
	if err != nil {
		return nil, err
	}

	downloadCtx, cancel := context.WithTimeout(ctx, f.cfg.DownloadTimeout)
	defer cancel()

	dl, err := f.page.ExpectDownload(downloadCtx, func(ctx context.Context) error {
		_, err := browser.WaitAndAct(ctx, f.page, step.Selector, browser.Click(), f.cfg.ElementTimeout)
		return err
	})
	if err != nil {
		if ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("download of %s did not complete within %s: %w", name, f.cfg.DownloadTimeout, err)
		}
		return nil, err
	}

	zerolog.Ctx(ctx).Debug().Str("suggested", dl.SuggestedFilename).Str("file", name).Msg("download completed")

	file, err := f.staging.Put(spec.ID, name, dl.Data)
	if err != nil {
		return nil, err
	}
	return &file, nil
}
