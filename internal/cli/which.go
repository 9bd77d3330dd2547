package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newWhichCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "which",
		Short: "Print the path of the active rockide binary",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			defer app.Close()

			path, ok := app.store.ActiveBinary()
			if !ok {
				fmt.Printf("%s rockide is not installed, run %s\n", dim("○"), cyan("rockup ensure"))
				return nil
			}
			fmt.Println(path)
			return nil
		},
	}
}
