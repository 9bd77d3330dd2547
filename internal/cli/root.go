package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/veedy-dev/rockup/internal/archive"
	"github.com/veedy-dev/rockup/internal/config"
	"github.com/veedy-dev/rockup/internal/domain"
	"github.com/veedy-dev/rockup/internal/installer"
	"github.com/veedy-dev/rockup/internal/platform"
	"github.com/veedy-dev/rockup/internal/release"
	"github.com/veedy-dev/rockup/internal/state"
	"github.com/veedy-dev/rockup/internal/store"
	"github.com/veedy-dev/rockup/internal/transfer"
	"github.com/veedy-dev/rockup/internal/updates"
	"github.com/veedy-dev/rockup/internal/version"
)

var verbose bool

func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := &cobra.Command{
		Use:          "rockup",
		Short:        "Installer and updater for the rockide language server",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Log component activity to stderr")
	rootCmd.AddCommand(
		newEnsureCmd(),
		newUpdateCmd(),
		newWhichCmd(),
		newCurrentCmd(),
		newVersionsCmd(),
		newRemoveCmd(),
		newPruneCmd(),
		newRunCmd(),
		newVersionCmd(),
	)
	return rootCmd.ExecuteContext(ctx)
}

// app wires the components a command needs. Each command builds one and
// closes it when done.
type app struct {
	cfg       *config.Config
	logger    domain.Logger
	source    domain.Source
	store     *store.VersionStore
	state     *state.SQLiteState
	installer *installer.Installer
	checker   *updates.Checker
}

func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := newLogger(verbose)
	plat := platform.Detect()
	product := domain.Product{
		Owner:  cfg.Product.Owner,
		Repo:   cfg.Product.Repo,
		Binary: cfg.Product.Binary,
	}

	source := release.NewGitHub(product, cfg.Endpoint, cfg.Timeout())

	st, err := store.New(cfg.RootDir, plat.ExeName(product.Binary), cfg.OverridePath, logger)
	if err != nil {
		return nil, err
	}

	db, err := state.NewSQLite(cfg.StateDBPath(), cfg.ManifestPath(), logger)
	if err != nil {
		return nil, err
	}

	ins := installer.New(
		source,
		transfer.New("rockup/"+version.Version, logger),
		archive.New(),
		st,
		db,
		installer.Options{
			Product:  product,
			Platform: plat,
			Keep:     cfg.Keep,
			Pinned:   cfg.PinnedVersion,
			Logger:   logger,
		})

	return &app{
		cfg:       cfg,
		logger:    logger,
		source:    source,
		store:     st,
		state:     db,
		installer: ins,
		checker:   updates.NewChecker(source, st, db, updates.CheckInterval, logger),
	}, nil
}

func (a *app) Close() {
	if err := a.state.Close(); err != nil {
		a.logger.Warn("closing state store", "error", err)
	}
}
