package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newVersionsCmd() *cobra.Command {
	var remote bool
	var show int

	cmd := &cobra.Command{
		Use:   "versions",
		Short: "List installed rockide versions",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			defer app.Close()

			if remote {
				return listRemote(cmd, app, show)
			}

			versions, err := app.store.List()
			if err != nil {
				return err
			}

			if len(versions) == 0 {
				fmt.Printf("\n%s No versions installed\n", dim("○"))
				return nil
			}

			current, _ := app.store.CurrentVersion()

			fmt.Printf("Installed versions:\n\n")
			for _, v := range versions {
				line := fmt.Sprintf(" %s", bold(v.Tag))
				if v.BinaryPath == "" {
					line += fmt.Sprintf("  %s", red("(incomplete)"))
				} else if v.Tag == current {
					line += fmt.Sprintf("  %s", green("(active)"))
				}
				line += fmt.Sprintf("  %s", dim(v.InstalledAt.Format("2006-01-02 15:04")))
				fmt.Println(line)
			}

			if usage, err := app.store.DiskUsage(); err == nil {
				fmt.Printf("\n%s %s\n", cyan("disk:"), formatSize(usage))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&remote, "remote", false, "List the release catalog instead")
	cmd.Flags().IntVarP(&show, "show", "s", 20, "Shows first n releases with --remote")
	return cmd
}

func listRemote(cmd *cobra.Command, app *app, show int) error {
	stop := withSpinner(cmd.Context(), "Fetching releases...")
	releases, err := app.source.List(cmd.Context())
	stop()
	if err != nil {
		return err
	}

	if len(releases) == 0 {
		fmt.Printf("%s No releases found\n", dim("○"))
		return nil
	}

	size := min(len(releases), show)

	fmt.Printf("\nShowing %s of %s releases\n\n", green(size), green(len(releases)))

	for i := 0; i < size; i++ {
		rel := releases[i]
		line := fmt.Sprintf("%s %s", green("●"), bold(rel.Tag))
		if rel.Prerelease {
			line += fmt.Sprintf("  %s", yellow("(pre-release)"))
		}
		if _, ok := app.store.IsInstalled(rel.Tag); ok {
			line += fmt.Sprintf("  %s", green("(installed)"))
		}
		fmt.Println(line)
		if !rel.PublishedAt.IsZero() {
			fmt.Printf("  %s %s\n", cyan("published:"), rel.PublishedAt.Format("2006-01-02"))
		}
	}

	if len(releases) > size {
		fmt.Printf("\n%s %d more available, use %s to see all\n",
			dim("..."), len(releases)-size, cyan(fmt.Sprintf("--show %d", len(releases))))
	}

	return nil
}
