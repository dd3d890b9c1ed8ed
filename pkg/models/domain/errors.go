package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrAuthenticationFailed is returned when the post-login landing page is never reached.
	ErrAuthenticationFailed = errors.New("authentication failed")
	// ErrStorageUnavailable wraps transport and auth failures of the storage collaborator.
	ErrStorageUnavailable = errors.New("storage unavailable")
	// ErrLogoutTimeout marks a logout whose confirmation never appeared. It is never fatal.
	ErrLogoutTimeout = errors.New("logout confirmation timed out")
)

// ConfigurationIncompleteError lists required settings that were not resolved.
type ConfigurationIncompleteError struct {
	Missing []string
}

func (e *ConfigurationIncompleteError) Error() string {
	return fmt.Sprintf("configuration incomplete, missing: %s", strings.Join(e.Missing, ", "))
}

// ElementNotFoundError is returned when a locator did not become visible in time.
type ElementNotFoundError struct {
	Locator string
	Timeout time.Duration
}

func (e *ElementNotFoundError) Error() string {
	return fmt.Sprintf("element %q not found within %s", e.Locator, e.Timeout)
}

// DownloadFailedError reports the stage of a report fetch that failed.
type DownloadFailedError struct {
	ReportID string
	Stage    string
	Err      error
}

func (e *DownloadFailedError) Error() string {
	return fmt.Sprintf("report %s failed at stage %s: %v", e.ReportID, e.Stage, e.Err)
}

func (e *DownloadFailedError) Unwrap() error {
	return e.Err
}

// CalendarSeekFailedError is returned when the month label never reaches the target month.
type CalendarSeekFailedError struct {
	Target    TargetDate
	Steps     int
	LastLabel string
	Err       error
}

func (e *CalendarSeekFailedError) Error() string {
	msg := fmt.Sprintf("calendar did not reach %04d-%02d after %d steps (last label %q)",
		e.Target.Year, int(e.Target.Month), e.Steps, e.LastLabel)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *CalendarSeekFailedError) Unwrap() error {
	return e.Err
}

// StorageUnavailableError is a failed store call for a single file.
type StorageUnavailableError struct {
	Name string
	Err  error
}

func (e *StorageUnavailableError) Error() string {
	return fmt.Sprintf("failed to store %s: %v", e.Name, e.Err)
}

func (e *StorageUnavailableError) Unwrap() []error {
	return []error{ErrStorageUnavailable, e.Err}
}
