package commands

import (
	"github.com/spf13/cobra"

	"github.com/de-tools/airregi-sync/pkg/runtime/terminal/export"
	"github.com/de-tools/airregi-sync/pkg/services/config"
	"github.com/de-tools/airregi-sync/pkg/services/report"
)

type ReportsCmd struct {
	source   sourceFlags
	reporter *export.Reporter
}

func NewReportsCmd(reporter *export.Reporter) *cobra.Command {
	rc := &ReportsCmd{reporter: reporter}
	cmd := &cobra.Command{
		Use:   "reports",
		Short: "List the reports a run downloads",
		Args:  cobra.NoArgs,
		RunE:  rc.run,
	}

	rc.source.register(cmd)

	return cmd
}

func (rc *ReportsCmd) run(cmd *cobra.Command, _ []string) error {
	logger := newLogger(cmd.ErrOrStderr(), config.LoggerConfig{Level: "warn"})
	ctx := logger.WithContext(cmd.Context())

	cfg, err := config.Load(ctx, rc.source.options(nil))
	if err != nil {
		return err
	}

	catalog := cfg.Catalog()
	if err := report.ValidateCatalog(catalog); err != nil {
		return err
	}
	return rc.reporter.HandleCatalog(catalog)
}
