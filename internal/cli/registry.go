package cli

import (
	"fmt"

	"doc-investigator/pkg/registry"

	"github.com/spf13/cobra"
)

func newRegistryCmd() *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "registry",
		Short: "Validate and list the activity registry",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := loadRegistry(path)
			if err != nil {
				return err
			}
			if err := reg.Validate(); err != nil {
				return fmt.Errorf("invalid registry: %w", err)
			}

			out := cmd.OutOrStdout()
			for _, a := range reg.Activities {
				fmt.Fprintf(out, "%-34s %-22s %s\n", a.ID, a.TaskType, a.Version)
			}
			fmt.Fprintf(out, "Registry validation passed. Found %d activities.\n", len(reg.Activities))
			return nil
		},
	}
	cmd.Flags().StringVar(&path, "path", "", "registry file (default: built-in registry)")
	return cmd
}

func loadRegistry(path string) (*registry.ActivityRegistry, error) {
	if path == "" {
		return registry.Default()
	}
	reg, err := registry.LoadRegistry(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load registry: %w", err)
	}
	return reg, nil
}
