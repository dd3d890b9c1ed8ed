package terminal

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/de-tools/airregi-sync/pkg/runtime/terminal/commands"
	"github.com/de-tools/airregi-sync/pkg/runtime/terminal/export"
	"github.com/de-tools/airregi-sync/pkg/store/blob"
)

// CLI represents the command-line interface
type CLI struct {
	registry blob.Registry
	launch   commands.BrowserLauncher
	reporter *export.Reporter
	rootCmd  *cobra.Command
}

// Options contain configuration for the CLI
type Options struct {
	Registry blob.Registry
	// Launch defaults to a local headless Chrome.
	Launch commands.BrowserLauncher
	Output io.Writer
}

// NewCLI creates a new CLI instance
func NewCLI(opts Options) *CLI {
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Launch == nil {
		opts.Launch = commands.LaunchHeadless
	}

	cli := &CLI{
		registry: opts.Registry,
		launch:   opts.Launch,
		reporter: export.NewReporter(opts.Output),
	}

	cli.rootCmd = cli.newRootCmd()
	return cli
}

func (cli *CLI) Execute() error {
	return cli.rootCmd.Execute()
}

// SetArgs replaces the command line, for tests.
func (cli *CLI) SetArgs(args []string) {
	cli.rootCmd.SetArgs(args)
}

func (cli *CLI) newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "airregi-sync",
		Short: "Daily sales report extraction from the Airレジ console",
	}

	cmd.AddCommand(commands.NewRunCmd(cli.registry, cli.launch, cli.reporter))
	cmd.AddCommand(commands.NewReportsCmd(cli.reporter))

	return cmd
}
