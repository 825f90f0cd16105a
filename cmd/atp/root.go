package main

import (
	"atp/internal/config"
	"atp/internal/logging"
	"atp/internal/version"

	"github.com/spf13/cobra"
)

var (
	// logLevelFlag is the CLI --log-level flag value
	logLevelFlag string
	// logFormatFlag is the CLI --log-format flag value
	logFormatFlag string
)

var rootCmd = &cobra.Command{
	Use:   "atp",
	Short: "ATP - Acceptance Test Procedure generator",
	Long: `ATP builds acceptance test procedure documents from declarative YAML
specifications. Tests receive stable hierarchical identifiers, cross-references
resolve by label, and content fingerprints track which procedures changed
since the last build.`,
	Version: version.Version,
}

func init() {
	rootCmd.SetVersionTemplate("ATP version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "",
		"Log level: debug, info, warn, or error (default from config)")
	rootCmd.PersistentFlags().StringVar(&logFormatFlag, "log-format", "",
		"Log format: human or json (default from config)")
}

// newLogger builds the logger for a command run.
// Precedence: CLI flag > config file > info/human.
func newLogger(cfg *config.Config) *logging.Logger {
	level := cfg.Logging.Level
	if logLevelFlag != "" {
		level = logLevelFlag
	}
	format := logging.HumanFormat
	f := cfg.Logging.Format
	if logFormatFlag != "" {
		f = logFormatFlag
	}
	if f == string(logging.JSONFormat) {
		format = logging.JSONFormat
	}

	return logging.NewLogger(logging.Config{
		Format: format,
		Level:  logging.ParseLevel(level),
	})
}
