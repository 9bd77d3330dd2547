package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/veedy-dev/rockup/internal/installer"
)

func newEnsureCmd() *cobra.Command {
	var tag string
	var force bool

	cmd := &cobra.Command{
		Use:   "ensure",
		Short: "Install rockide if missing, or install a specific version",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			defer app.Close()

			path, err := app.installer.Install(cmd.Context(), installer.InstallOptions{
				Version:  tag,
				Force:    force,
				Progress: downloadBar("Downloading rockide"),
			})
			if err != nil {
				return err
			}

			installed := filepath.Base(filepath.Dir(path))
			fmt.Printf("\n%s %s%s%s\n  %s %s\n", green("✓"),
				bold("rockide"), bold("-"), bold(installed), cyan("path:"), path)
			return nil
		},
	}

	cmd.Flags().StringVar(&tag, "version", "", "Release tag to install (default: pinned or latest)")
	cmd.Flags().BoolVar(&force, "force", false, "Reinstall even when already present")
	return cmd
}
