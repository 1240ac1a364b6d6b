package cli

import (
	"fmt"
	"io"
	"os"

	"doc-investigator/internal/common/database"
	"doc-investigator/internal/interactionlog"

	"github.com/spf13/cobra"
)

func newExportCmd(opts *rootOptions) *cobra.Command {
	var format, outPath string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the interaction log as a spreadsheet",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSQL(opts, func(c *database.SQLClient) error {
				var w io.Writer = cmd.OutOrStdout()
				toFile := outPath != "" && outPath != "-"
				if toFile {
					f, err := os.Create(outPath)
					if err != nil {
						return fmt.Errorf("create %s: %w", outPath, err)
					}
					defer f.Close()
					w = f
				}

				n, err := interactionlog.Export(cmd.Context(), interactionlog.NewSQLLog(c), format, w)
				if err != nil {
					return err
				}
				if toFile {
					fmt.Fprintf(cmd.ErrOrStderr(), "exported %d interactions to %s\n", n, outPath)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&format, "format", interactionlog.FormatXLSX, "output format: xlsx or csv")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (default: stdout)")
	return cmd
}
