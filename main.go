// Command library manages the books, users and checkouts tables of a small
// library. Without a subcommand it starts the interactive menu.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"library-records/internal/config"
	"library-records/internal/logging"
	"library-records/internal/shell"
	"library-records/library"
)

func main() {
	if err := mainImpl(); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "library: %v\n", err)
		os.Exit(1)
	}
}

func mainImpl() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return newRootCmd().ExecuteContext(ctx)
}

// app holds the flags shared by every command and what open builds from them.
type app struct {
	configPath string
	basePath   string
	logDir     string
	logLevel   string

	cfg    *config.Config
	logger *slog.Logger
	closer io.Closer
	lm     *library.LibraryManager
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "library",
		Short:         "Manage the books, users and checkouts tables",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.open(); err != nil {
				return err
			}
			defer a.close()
			err := shell.New(a.lm, cmd.InOrStdin(), cmd.OutOrStdout(), a.logger).Run()
			if err != nil {
				a.logger.Error("session aborted", "err", err)
			}
			return err
		},
	}
	f := root.PersistentFlags()
	f.StringVar(&a.configPath, "config", "", "YAML config file (default "+config.DefaultFile+" when present)")
	f.StringVar(&a.basePath, "base-path", "", "Directory holding assets/ and logs/")
	f.StringVar(&a.logDir, "log-dir", "", "Log directory")
	f.StringVar(&a.logLevel, "log-level", "", "Console log level (debug, info, warn, error)")

	root.AddCommand(newExportCmd(a), newSchemaCmd())
	return root
}

// open loads the configuration, applies the flags on top of it and builds
// the logger and the tables.
func (a *app) open() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.basePath != "" {
		cfg.BasePath = a.basePath
	}
	if a.logDir != "" {
		cfg.LogDir = a.logDir
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}
	logDir, err := cfg.ResolvedLogDir()
	if err != nil {
		return err
	}
	logger, closer, err := logging.New(logging.Options{Dir: logDir, Level: cfg.LogLevel})
	if err != nil {
		return err
	}
	paths, err := cfg.Paths()
	if err != nil {
		closer.Close()
		return err
	}
	logger.Debug("tables", "books", paths.Books, "users", paths.Users, "checkouts", paths.Checkouts)
	a.cfg, a.logger, a.closer = cfg, logger, closer
	a.lm = library.NewLibraryManager(paths, logger)
	return nil
}

func (a *app) close() {
	if a.closer != nil {
		a.closer.Close()
	}
}
