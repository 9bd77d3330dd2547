package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCurrentCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "current",
		Short: "Print the installed rockide version",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			defer app.Close()

			tag, ok := app.store.CurrentVersion()
			if !ok {
				fmt.Printf("%s rockide is not installed, run %s\n", dim("○"), cyan("rockup ensure"))
				return nil
			}
			fmt.Println(tag)
			return nil
		},
	}
}
