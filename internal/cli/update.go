package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/veedy-dev/rockup/internal/domain"
	"github.com/veedy-dev/rockup/internal/installer"
)

func newUpdateCmd() *cobra.Command {
	var checkOnly bool

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Check for and install a newer rockide release",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			defer app.Close()

			ctx := cmd.Context()

			stop := withSpinner(ctx, "Checking for updates...")
			rel, newer, err := app.checker.CheckNow(ctx)
			stop()
			if err != nil {
				return err
			}

			current, _ := app.store.CurrentVersion()

			if !newer {
				fmt.Printf("%s rockide %s already up-to-date\n", dim("○"), bold(current))
				return nil
			}

			if checkOnly {
				if current == "" {
					fmt.Printf("%s rockide %s available (nothing installed)\n", yellow("↑"), bold(rel.Tag))
				} else {
					fmt.Printf("%s rockide %s available (installed: %s)\n", yellow("↑"), bold(rel.Tag), current)
				}
				return nil
			}

			if pin := app.cfg.PinnedVersion; pin != "" && !domain.SameTag(pin, rel.Tag) {
				fmt.Printf("%s rockide %s available, but version is pinned to %s\n",
					yellow("!"), bold(rel.Tag), bold(pin))
				return nil
			}

			path, err := app.installer.Install(ctx, installer.InstallOptions{
				Version:  rel.Tag,
				Progress: downloadBar(fmt.Sprintf("Downloading rockide %s", rel.Tag)),
			})
			if err != nil {
				return err
			}

			if current == "" {
				fmt.Printf("\n%s %s%s%s\n  %s %s\n", green("✓"),
					bold("rockide"), bold("-"), bold(rel.Tag), cyan("path:"), path)
			} else {
				fmt.Printf("\n%s %s%s%s → %s\n  %s %s\n", green("✓"),
					bold("rockide"), bold("@"), bold(current), bold(rel.Tag), cyan("path:"), path)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&checkOnly, "check", false, "Only report whether an update exists")
	return cmd
}
