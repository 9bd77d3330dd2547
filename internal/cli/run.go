package cli

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/spf13/cobra"
	"github.com/veedy-dev/rockup/internal/installer"
)

const resolveTimeout = 2 * time.Minute

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [args...]",
		Short: "Run the active rockide binary, installing it first if needed",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			defer app.Close()

			ctx := cmd.Context()

			if app.cfg.CheckUpdates && app.checker.HasUpdate(ctx) {
				if app.cfg.AutoUpdate {
					if _, err := app.installer.Install(ctx, installer.InstallOptions{
						Progress: downloadBar("Updating rockide"),
					}); err != nil {
						app.logger.Warn("update failed, running installed version", "error", err)
					}
				} else {
					fmt.Printf("%s rockide %s available, run %s\n",
						yellow("↑"), bold(app.checker.LastSeen()), cyan("rockup update"))
				}
			}

			path, ok := app.store.ActiveBinary()
			if !ok {
				stop := withSpinner(ctx, "Installing rockide...")
				path, err = app.installer.Resolve(ctx, resolveTimeout)
				stop()
				if err != nil {
					return err
				}
				if path == "" {
					return fmt.Errorf("rockide install still in progress, try again shortly")
				}
			}

			bin := exec.Command(path, args...)
			bin.Stdin = os.Stdin
			bin.Stdout = os.Stdout
			bin.Stderr = os.Stderr

			err = bin.Run()
			var exitErr *exec.ExitError
			if errors.As(err, &exitErr) {
				app.Close()
				os.Exit(exitErr.ExitCode())
			}
			return err
		},
	}

	cmd.Flags().SetInterspersed(false)
	return cmd
}
