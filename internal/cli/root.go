// Package cli implements the investigator command line.
package cli

import (
	"fmt"

	"doc-investigator/internal/common/config"
	"doc-investigator/internal/common/logger"
	"doc-investigator/internal/investigation"

	"github.com/spf13/cobra"
)

var (
	appVersion = "dev"
	appCommit  = "none"
	appDate    = "unknown"
)

// SetVersionInfo sets the version information injected via ldflags.
func SetVersionInfo(version, commit, date string) {
	appVersion = version
	appCommit = commit
	appDate = date
}

type rootOptions struct {
	configPath string
	// model replaces the HTTP model client when set.
	model investigation.Completer
}

func (o *rootOptions) loadConfig() (*config.Config, error) {
	if o.configPath != "" {
		return config.LoadFromFile(o.configPath)
	}
	return config.Load()
}

// newLogger builds the process logger. Commands that print results pass
// "stderr" so log lines stay out of their output.
func newLogger(cfg *config.Config, output string) logger.Logger {
	if output == "" {
		output = cfg.Logging.Output
	}
	return logger.NewZapAdapter(logger.NewWithOutput(cfg.Logging.Level, cfg.Logging.Format, output))
}

func newRootCmd(opts *rootOptions) *cobra.Command {
	root := &cobra.Command{
		Use:   "investigator",
		Short: "Answer questions about documents with an LLM and record human evaluations",
		Long: `investigator answers a prompt against a set of uploaded documents,
serves repeated requests from a content-addressed cache and records every
finished request, together with its human verdict, in the interaction log.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "config file (default: configs/config.yaml)")

	root.AddCommand(
		newServeCmd(opts),
		newAskCmd(opts),
		newMigrateCmd(opts),
		newExportCmd(opts),
		newRegistryCmd(),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "investigator %s\ncommit: %s\nbuilt:  %s\n", appVersion, appCommit, appDate)
		},
	}
}

// Execute runs the root command.
func Execute() error {
	return newRootCmd(&rootOptions{}).Execute()
}
