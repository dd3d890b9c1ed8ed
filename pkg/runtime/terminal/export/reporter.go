package export

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/template"
	"time"

	"github.com/de-tools/airregi-sync/pkg/models/domain"
)

type TableConfig struct {
	IDWidth     int
	NameWidth   int
	StepsWidth  int
	OutputWidth int
}

func DefaultTableConfig() TableConfig {
	return TableConfig{
		IDWidth:     16,
		NameWidth:   24,
		StepsWidth:  40,
		OutputWidth: 40,
	}
}

type Reporter struct {
	writer io.Writer
	config TableConfig
}

func NewReporter(writer io.Writer) *Reporter {
	if writer == nil {
		writer = os.Stdout
	}
	return &Reporter{
		writer: writer,
		config: DefaultTableConfig(),
	}
}

const runTemplate = `
Extraction of {{.TargetDate}}: {{if .Successful}}complete{{else}}incomplete{{end}}

States: {{states .States}}
Duration: {{duration .StartedAt .FinishedAt}}
Teardown: {{.Teardown}}

=== Files ===
{{range .Files}}{{.Name}} ({{.ReportID}}, {{.Size}} bytes)
{{else}}none
{{end}}
=== Uploads ===
{{range .Uploads}}{{if .Err}}FAILED {{.File.Name}}: {{.Err}}{{else}}{{.File.Name}} -> {{.ID}}{{end}}
{{else}}none
{{end}}{{if .Failures}}
=== Failed reports ===
{{range .Failures}}{{.ReportID}}: {{.Err}}
{{end}}{{end}}`

// Handle prints the summary of one run.
func (c *Reporter) Handle(result *domain.RunResult) error {
	funcMap := template.FuncMap{
		"states": func(states []domain.RunState) string {
			names := make([]string, len(states))
			for i, s := range states {
				names[i] = string(s)
			}
			return strings.Join(names, " -> ")
		},
		"duration": func(start, end time.Time) string {
			if start.IsZero() || end.IsZero() {
				return "-"
			}
			return end.Sub(start).Round(time.Millisecond).String()
		},
	}

	t, err := template.New("run").Funcs(funcMap).Parse(runTemplate)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}
	return t.Execute(c.writer, result)
}

// HandleCatalog prints the report catalog as a table.
func (c *Reporter) HandleCatalog(specs []domain.ReportSpec) error {
	funcMap := template.FuncMap{
		"formatRow": func(id, name, steps, output string) string {
			return fmt.Sprintf("| %-*s | %-*s | %-*s | %-*s |",
				c.config.IDWidth, id,
				c.config.NameWidth, name,
				c.config.StepsWidth, steps,
				c.config.OutputWidth, output)
		},
		"separator": func() string {
			return fmt.Sprintf("+%s+%s+%s+%s+",
				strings.Repeat("-", c.config.IDWidth+2),
				strings.Repeat("-", c.config.NameWidth+2),
				strings.Repeat("-", c.config.StepsWidth+2),
				strings.Repeat("-", c.config.OutputWidth+2))
		},
		"steps": func(spec domain.ReportSpec) string {
			kinds := make([]string, len(spec.Steps))
			for i, s := range spec.Steps {
				kinds[i] = s.StageName()
			}
			return strings.Join(kinds, ",")
		},
		"outputs": func(spec domain.ReportSpec) string {
			var outputs []string
			for _, s := range spec.Steps {
				if s.Kind != domain.StepDownload {
					continue
				}
				if s.Output == "" {
					outputs = append(outputs, "(default)")
				} else {
					outputs = append(outputs, s.Output)
				}
			}
			return strings.Join(outputs, ",")
		},
	}

	tmpl := `{{separator}}
{{formatRow "ID" "Name" "Steps" "Output"}}
{{separator}}
{{range .}}{{formatRow .ID .Name (steps .) (outputs .)}}
{{end}}{{separator}}
`

	t, err := template.New("catalog").Funcs(funcMap).Parse(tmpl)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}
	return t.Execute(c.writer, specs)
}
