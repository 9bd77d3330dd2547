package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/veedy-dev/rockup/internal/domain"
)

func newRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <tag>...",
		Short: "Remove installed rockide versions",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			defer app.Close()

			var failed int
			for _, tag := range args {
				canonical := canonicalTag(app, tag)

				result, err := app.store.RemoveVersion(tag)
				if err != nil {
					fmt.Printf("%s %s: %v\n", red("✗"), tag, err)
					failed++
					continue
				}

				if len(result.Skipped) > 0 {
					for _, sp := range result.Skipped {
						fmt.Printf("%s %s %s\n", yellow("!"), sp.Path, dim("(in use, left in place)"))
					}
					continue
				}

				if err := app.state.DiscardInstall(canonical); err != nil {
					app.logger.Warn("journal cleanup failed", "tag", canonical, "error", err)
				}
				fmt.Printf("%s %s removed\n", green("✓"), bold(canonical))
			}

			if failed > 0 {
				return fmt.Errorf("failed to remove %d version(s)", failed)
			}
			return nil
		},
	}
}

// canonicalTag maps a user-typed tag onto the directory name it matches, so
// the install journal is keyed consistently.
func canonicalTag(app *app, tag string) string {
	versions, err := app.store.List()
	if err != nil {
		return tag
	}
	for _, v := range versions {
		if domain.SameTag(v.Tag, tag) {
			return v.Tag
		}
	}
	return tag
}
