package cli

import (
	"fmt"

	"doc-investigator/internal/common/database"

	"github.com/spf13/cobra"
)

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the interaction log and cache schema",
	}

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSQL(opts, func(c *database.SQLClient) error {
				if err := database.RollbackMigrations(cmd.Context(), c, steps); err != nil {
					return err
				}
				return printVersion(cmd, c)
			})
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			RunE: func(cmd *cobra.Command, args []string) error {
				return withSQL(opts, func(c *database.SQLClient) error {
					if err := database.RunMigrations(cmd.Context(), c); err != nil {
						return err
					}
					return printVersion(cmd, c)
				})
			},
		},
		down,
		&cobra.Command{
			Use:   "version",
			Short: "Print the current schema version",
			RunE: func(cmd *cobra.Command, args []string) error {
				return withSQL(opts, func(c *database.SQLClient) error {
					return printVersion(cmd, c)
				})
			},
		},
	)
	return cmd
}

func withSQL(opts *rootOptions, fn func(*database.SQLClient) error) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	c, err := database.OpenSQL(cfg)
	if err != nil {
		return err
	}
	defer c.Close()
	return fn(c)
}

func printVersion(cmd *cobra.Command, c *database.SQLClient) error {
	v, err := database.MigrationVersion(cmd.Context(), c)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "schema version: %d\n", v)
	return nil
}
