package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newPruneCmd() *cobra.Command {
	var keep int

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Remove rockide versions beyond the retention limit",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			defer app.Close()

			if keep <= 0 {
				keep = app.cfg.Keep
			}

			before, err := app.store.List()
			if err != nil {
				return err
			}
			usageBefore, _ := app.store.DiskUsage()

			var protect []string
			if current, ok := app.store.CurrentVersion(); ok {
				protect = append(protect, current)
			}

			result, err := app.store.Prune(keep, protect...)
			if err != nil {
				return fmt.Errorf("failed to prune: %w", err)
			}

			after, err := app.store.List()
			if err != nil {
				return err
			}

			remaining := make(map[string]bool, len(after))
			for _, v := range after {
				remaining[v.Tag] = true
			}

			var pruned int
			for _, v := range before {
				if remaining[v.Tag] {
					continue
				}
				if err := app.state.DiscardInstall(v.Tag); err != nil {
					app.logger.Warn("journal cleanup failed", "tag", v.Tag, "error", err)
				}
				fmt.Printf("%s %s removed\n", green("✓"), bold(v.Tag))
				pruned++
			}
			for _, sp := range result.Skipped {
				fmt.Printf("%s %s %s\n", yellow("!"), sp.Path, dim("(in use, left in place)"))
			}

			if pruned == 0 && len(result.Skipped) == 0 {
				fmt.Printf("%s Nothing to prune\n", dim("○"))
				return nil
			}

			usageAfter, _ := app.store.DiskUsage()
			fmt.Printf("\n%s Pruned %d version(s) (%s freed)\n",
				green("✓"), pruned, formatSize(usageBefore-usageAfter))
			return nil
		},
	}

	cmd.Flags().IntVarP(&keep, "keep", "k", 0, "How many versions to keep (default: from config)")
	return cmd
}
