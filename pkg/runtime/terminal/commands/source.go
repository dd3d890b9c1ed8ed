package commands

import (
	"github.com/spf13/cobra"

	"github.com/de-tools/airregi-sync/pkg/services/config"
)

// sourceFlags locate the configuration sources shared by every command.
type sourceFlags struct {
	configFile      string
	envFile         string
	credentialsFile string
	profile         string
}

func (s *sourceFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&s.configFile, "config", "", "Path to a YAML configuration file")
	cmd.Flags().StringVar(&s.envFile, "env-file", "", "Path to a dotenv file (default .env when present)")
	cmd.Flags().StringVar(&s.credentialsFile, "credentials", "", "Path to an INI credentials file")
	cmd.Flags().StringVar(&s.profile, "profile", config.DefaultProfile, "Profile of the credentials file")
}

func (s *sourceFlags) options(overrides map[string]any) config.LoadOptions {
	return config.LoadOptions{
		ConfigFile:      s.configFile,
		EnvFile:         s.envFile,
		CredentialsFile: s.credentialsFile,
		Profile:         s.profile,
		Overrides:       overrides,
	}
}
