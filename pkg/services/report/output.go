package report

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/de-tools/airregi-sync/pkg/models/domain"
)

// DefaultOutput names a downloaded file when its step has no template.
const DefaultOutput = "{{.Report}}_{{.Date}}.csv"

// NameVars are the fields available to output name templates.
type NameVars struct {
	// Report is the report name, or its id when it has none.
	Report string
	ID     string
	Date   string
	Start  string
	End    string
}

func NewNameVars(spec domain.ReportSpec, rc domain.RunContext) NameVars {
	name := spec.Name
	if name == "" {
		name = spec.ID
	}
	date := rc.TargetDate.Format()
	return NameVars{
		Report: name,
		ID:     spec.ID,
		Date:   date,
		Start:  date,
		End:    date,
	}
}

// RenderName executes an output name template.
func RenderName(pattern string, vars NameVars) (string, error) {
	if pattern == "" {
		pattern = DefaultOutput
	}
	tmpl, err := template.New("output").Option("missingkey=error").Parse(pattern)
	if err != nil {
		return "", fmt.Errorf("invalid output template %q: %w", pattern, err)
	}

	var b strings.Builder
	if err := tmpl.Execute(&b, vars); err != nil {
		return "", fmt.Errorf("failed to render output template %q: %w", pattern, err)
	}
	name := strings.TrimSpace(b.String())
	if name == "" {
		return "", fmt.Errorf("output template %q rendered an empty name", pattern)
	}
	return name, nil
}
