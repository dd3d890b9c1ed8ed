package domain

import (
	"fmt"
	"regexp"
)

type StepKind string

const (
	StepNavigate StepKind = "navigate"
	StepClick    StepKind = "click"
	StepWaitFor  StepKind = "wait_for"
	StepWaitURL  StepKind = "wait_url"
	StepCalendar StepKind = "calendar"
	StepDownload StepKind = "download"
)

// Step is one UI interaction of a report recipe.
type Step struct {
	Kind  StepKind `mapstructure:"kind"`
	Stage string   `mapstructure:"stage"`
	// URL is used by navigate steps.
	URL string `mapstructure:"url"`
	// Selector is used by click, wait_for and download steps.
	Selector string `mapstructure:"selector"`
	// Pattern is a regular expression matched against the page URL by wait_url steps.
	Pattern string `mapstructure:"pattern"`
	// Output is the file name template of a download step.
	Output string `mapstructure:"output"`
	// SkipWhenToday skips a calendar step when the target date is today,
	// for views that already default to the current day.
	SkipWhenToday bool `mapstructure:"skip_when_today"`
}

// StageName is the label reported when the step fails.
func (s Step) StageName() string {
	if s.Stage != "" {
		return s.Stage
	}
	return string(s.Kind)
}

func (s Step) Validate() error {
	switch s.Kind {
	case StepNavigate:
		if s.URL == "" {
			return fmt.Errorf("navigate step requires url")
		}
	case StepClick, StepWaitFor:
		if s.Selector == "" {
			return fmt.Errorf("%s step requires selector", s.Kind)
		}
	case StepWaitURL:
		if s.Pattern == "" {
			return fmt.Errorf("wait_url step requires pattern")
		}
		if _, err := regexp.Compile(s.Pattern); err != nil {
			return fmt.Errorf("wait_url step has invalid pattern %q: %w", s.Pattern, err)
		}
	case StepCalendar:
	case StepDownload:
		if s.Selector == "" {
			return fmt.Errorf("download step requires selector")
		}
	default:
		return fmt.Errorf("unknown step kind %q", s.Kind)
	}
	return nil
}

// ReportSpec is the static recipe of one downloadable report.
type ReportSpec struct {
	ID    string `mapstructure:"id"`
	Name  string `mapstructure:"name"`
	Steps []Step `mapstructure:"steps"`
}

// ExpectedFiles is the number of files a successful fetch of the report produces.
func (r ReportSpec) ExpectedFiles() int {
	n := 0
	for _, s := range r.Steps {
		if s.Kind == StepDownload {
			n++
		}
	}
	return n
}

func (r ReportSpec) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("report id is required")
	}
	if r.ExpectedFiles() == 0 {
		return fmt.Errorf("report %s has no download step", r.ID)
	}
	for i, s := range r.Steps {
		if err := s.Validate(); err != nil {
			return fmt.Errorf("report %s step %d: %w", r.ID, i, err)
		}
	}
	return nil
}

// CapturedFile is a completed download waiting in staging for upload.
type CapturedFile struct {
	Name     string
	ReportID string
	Path     string
	Size     int64
}
