package domain

import "time"

// RunState is a state of the extraction state machine.
type RunState string

const (
	StateInit           RunState = "init"
	StateLoggedIn       RunState = "logged_in"
	StateReportsFetched RunState = "reports_fetched"
	StateUploaded       RunState = "uploaded"
	StateLoggedOut      RunState = "logged_out"
	StateSkippedLogout  RunState = "skipped_logout"
	StateDone           RunState = "done"
)

type LogoutStatus string

const (
	LogoutNotAttempted        LogoutStatus = "not_attempted"
	LogoutClean               LogoutStatus = "clean"
	LogoutSkippedAfterTimeout LogoutStatus = "skipped_after_timeout"
	LogoutFailed              LogoutStatus = "failed"
)

// FailurePolicy decides what a report failure does to the remaining reports.
type FailurePolicy string

const (
	PolicyFailFast FailurePolicy = "fail-fast"
	PolicyContinue FailurePolicy = "continue"
)

type FetchFailure struct {
	ReportID string
	Err      error
}

type UploadOutcome struct {
	File CapturedFile
	ID   string
	Err  error
}

// RunResult is the aggregate outcome of one extraction run.
type RunResult struct {
	TargetDate TargetDate
	Expected   map[string]int
	Files      []CapturedFile
	Failures   []FetchFailure
	Uploads    []UploadOutcome
	Teardown   LogoutStatus
	States     []RunState
	StartedAt  time.Time
	FinishedAt time.Time
}

func NewRunResult(target TargetDate, specs []ReportSpec) *RunResult {
	expected := make(map[string]int, len(specs))
	for _, s := range specs {
		expected[s.ID] = s.ExpectedFiles()
	}
	return &RunResult{
		TargetDate: target,
		Expected:   expected,
		Teardown:   LogoutNotAttempted,
		States:     []RunState{StateInit},
	}
}

func (r *RunResult) Enter(s RunState) {
	r.States = append(r.States, s)
}

// State is the last state reached.
func (r *RunResult) State() RunState {
	return r.States[len(r.States)-1]
}

func (r *RunResult) FilesOf(reportID string) []CapturedFile {
	var files []CapturedFile
	for _, f := range r.Files {
		if f.ReportID == reportID {
			files = append(files, f)
		}
	}
	return files
}

func (r *RunResult) UploadFailures() []UploadOutcome {
	var failed []UploadOutcome
	for _, u := range r.Uploads {
		if u.Err != nil {
			failed = append(failed, u)
		}
	}
	return failed
}

// Successful is true when every report produced all of its files and every
// upload succeeded. The teardown status does not take part.
func (r *RunResult) Successful() bool {
	if len(r.Failures) > 0 || len(r.UploadFailures()) > 0 {
		return false
	}
	for id, n := range r.Expected {
		if len(r.FilesOf(id)) != n {
			return false
		}
	}
	return len(r.Uploads) == len(r.Files)
}
