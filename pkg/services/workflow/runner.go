// Package workflow drives one extraction run: login, report fetches, upload
// and teardown.
package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/de-tools/airregi-sync/pkg/browser"
	"github.com/de-tools/airregi-sync/pkg/models/domain"
	"github.com/de-tools/airregi-sync/pkg/services/report"
	"github.com/de-tools/airregi-sync/pkg/services/session"
	"github.com/de-tools/airregi-sync/pkg/store/blob"
	"github.com/de-tools/airregi-sync/pkg/store/staging"
)

const tracerName = "github.com/de-tools/airregi-sync/pkg/services/workflow"

// Launcher starts a browser engine for one run.
type Launcher func(ctx context.Context) (browser.Page, error)

type Dependencies struct {
	Launch   Launcher
	Session  *session.Controller
	Calendar report.RangeSelector
	Store    blob.Store
	Now      func() time.Time
}

type RunnerConfig struct {
	Policy      domain.FailurePolicy
	Fetch       report.Config
	ContainerID string
	StagingDir  string
}

type Runner struct {
	deps   Dependencies
	config RunnerConfig
	tracer trace.Tracer
}

func NewRunner(config RunnerConfig, deps Dependencies) *Runner {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if config.Policy == "" {
		config.Policy = domain.PolicyFailFast
	}
	return &Runner{
		deps:   deps,
		config: config,
		tracer: otel.Tracer(tracerName),
	}
}

// Run executes the reports in order. The returned error is set when the run
// was cut short (launch, login, a fail-fast report failure); a run that went
// through but is incomplete only shows in result.Successful.
func (r *Runner) Run(ctx context.Context, rc domain.RunContext, creds domain.Credentials, specs []domain.ReportSpec) (result *domain.RunResult, err error) {
	result = domain.NewRunResult(rc.TargetDate, specs)
	result.StartedAt = r.deps.Now()

	logger := zerolog.Ctx(ctx).With().Str("target_date", rc.TargetDate.String()).Logger()
	ctx = logger.WithContext(ctx)

	ctx, span := r.tracer.Start(ctx, "extraction.run", trace.WithAttributes(
		attribute.String("target_date", rc.TargetDate.String()),
		attribute.String("policy", string(r.config.Policy)),
		attribute.Int("reports", len(specs)),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	area, err := staging.New(r.config.StagingDir)
	if err != nil {
		r.finish(result)
		return result, err
	}
	defer func() {
		if cerr := area.Cleanup(); cerr != nil {
			logger.Warn().Err(cerr).Msg("failed to remove staging directory")
		}
	}()

	page, err := r.deps.Launch(ctx)
	if err != nil {
		r.finish(result)
		return result, fmt.Errorf("failed to launch browser: %w", err)
	}
	sess := session.Open(page)
	defer func() {
		result.Teardown = r.deps.Session.Teardown(ctx, sess)
		switch result.Teardown {
		case domain.LogoutClean:
			result.Enter(domain.StateLoggedOut)
		case domain.LogoutSkippedAfterTimeout, domain.LogoutFailed:
			result.Enter(domain.StateSkippedLogout)
		}
		r.finish(result)
		logger.Info().
			Str("teardown", string(result.Teardown)).
			Int("files", len(result.Files)).
			Bool("successful", result.Successful()).
			Msg("run finished")
	}()

	if err := r.login(ctx, rc, sess, creds); err != nil {
		logger.Error().Err(err).Msg("login failed")
		return result, err
	}
	result.Enter(domain.StateLoggedIn)

	if err := r.fetchAll(ctx, rc, page, area, specs, result); err != nil {
		return result, err
	}
	result.Enter(domain.StateReportsFetched)

	area.Seal()
	r.upload(ctx, area, result)
	result.Enter(domain.StateUploaded)
	return result, nil
}

func (r *Runner) finish(result *domain.RunResult) {
	result.Enter(domain.StateDone)
	result.FinishedAt = r.deps.Now()
}

func (r *Runner) login(ctx context.Context, rc domain.RunContext, sess *session.Session, creds domain.Credentials) error {
	ctx, span := r.tracer.Start(ctx, "extraction.login")
	defer span.End()

	if err := r.deps.Session.Login(ctx, rc, sess, creds); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "login failed")
		return err
	}
	return nil
}

// fetchAll returns an error only when the run has to stop.
func (r *Runner) fetchAll(ctx context.Context, rc domain.RunContext, page browser.Page, area *staging.Area, specs []domain.ReportSpec, result *domain.RunResult) error {
	fetcher := report.NewFetcher(r.config.Fetch, page, r.deps.Calendar, area)

	for _, spec := range specs {
		spanCtx, span := r.tracer.Start(ctx, "extraction.fetch", trace.WithAttributes(attribute.String("report", spec.ID)))
		files, err := fetcher.Fetch(spanCtx, rc, spec)
		span.SetAttributes(attribute.Int("files", len(files)))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "fetch failed")
		}
		span.End()

		result.Files = append(result.Files, files...)
		if err == nil {
			continue
		}

		result.Failures = append(result.Failures, domain.FetchFailure{ReportID: spec.ID, Err: err})
		if r.config.Policy == domain.PolicyFailFast {
			return err
		}
		if ctx.Err() != nil {
			return fmt.Errorf("run aborted: %w", ctx.Err())
		}
		zerolog.Ctx(ctx).Warn().Err(err).Str("report", spec.ID).Msg("report failed, continuing with the next one")
	}
	return nil
}

// upload stores every captured file independently of the others.
func (r *Runner) upload(ctx context.Context, area *staging.Area, result *domain.RunResult) {
	ctx, span := r.tracer.Start(ctx, "extraction.upload", trace.WithAttributes(attribute.Int("files", len(result.Files))))
	defer span.End()
	logger := zerolog.Ctx(ctx)

	for _, file := range result.Files {
		outcome := domain.UploadOutcome{File: file}

		data, err := area.Read(file)
		if err == nil {
			outcome.ID, err = r.deps.Store.Store(ctx, file.Name, data, r.config.ContainerID)
		}
		if err != nil {
			outcome.Err = &domain.StorageUnavailableError{Name: file.Name, Err: err}
			span.RecordError(outcome.Err)
			logger.Error().Err(err).Str("file", file.Name).Msg("failed to store file")
		} else {
			logger.Info().Str("file", file.Name).Str("id", outcome.ID).Msg("file stored")
		}
		result.Uploads = append(result.Uploads, outcome)
	}
}
