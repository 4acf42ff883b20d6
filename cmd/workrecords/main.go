package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/urfave/cli/v3"

	"workrecords/internal/adapter/sqlstore"
	"workrecords/internal/app"
	"workrecords/internal/config"
	"workrecords/internal/migrate"
	"workrecords/internal/usecase"
)

func main() {
	root := &cli.Command{
		Name:  "workrecords",
		Usage: "Work record adapter over a hierarchical activity store",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Usage: "optional YAML config file; environment variables override it", Sources: cli.EnvVars("WORKRECORDS_CONFIG")},
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "enable debug logging"},
		},
		Commands: []*cli.Command{
			serveCommand(),
			migrateCommand(),
			catalogCommand(),
			recordsCommand(),
			envCommand(),
		},
	}
	if err := root.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// setup loads configuration and builds the logger the rest of the command uses.
func setup(cmd *cli.Command) (config.Config, *slog.Logger, error) {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return cfg, nil, fmt.Errorf("load config: %w", err)
	}
	logger := newLogger(cfg.Log, cmd.Bool("verbose"))
	slog.SetDefault(logger)
	return cfg, logger, nil
}

func newLogger(c config.Log, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if err := level.UnmarshalText([]byte(c.Level)); err != nil {
		level = slog.LevelInfo
	}
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(c.Format, "json") {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP API",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "addr", Usage: "listen address, overrides HTTP_ADDR"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, logger, err := setup(cmd)
			if err != nil {
				return err
			}
			if addr := cmd.String("addr"); addr != "" {
				cfg.HTTP.Addr = addr
			}

			ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			application, err := app.New(ctx, logger, cfg)
			if err != nil {
				return fmt.Errorf("initialize app: %w", err)
			}
			defer application.Close()

			srv := application.HTTPServer(cfg.HTTP.Addr)
			errCh := make(chan error, 1)
			go func() {
				logger.Info("listening", slog.String("addr", srv.Addr))
				errCh <- srv.ListenAndServe()
			}()

			select {
			case <-ctx.Done():
				logger.Info("shutting down")
			case err := <-errCh:
				if err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("graceful shutdown failed", slog.String("error", err.Error()))
				return err
			}
			return nil
		},
	}
}

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Apply pending schema migrations to the backend",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, logger, err := setup(cmd)
			if err != nil {
				return err
			}
			store, err := sqlstore.Open(ctx, sqlstore.Options{
				URL:      cfg.Backend.URL,
				Username: cfg.Backend.Username,
				Password: cfg.Backend.Password,
			}, logger)
			if err != nil {
				return err
			}
			defer store.Close()
			return migrate.Run(ctx, store.DB(), store.Dialect().Goose, logger)
		},
	}
}

func catalogCommand() *cli.Command {
	flags := func(extra ...cli.Flag) []cli.Flag {
		return append([]cli.Flag{
			&cli.StringFlag{Name: "id", Required: true, Usage: "path segment of the new object"},
			&cli.StringFlag{Name: "name", Required: true},
		}, extra...)
	}

	withCatalog := func(fn func(ctx context.Context, cat *usecase.Catalog, cmd *cli.Command) error) cli.ActionFunc {
		return func(ctx context.Context, cmd *cli.Command) error {
			cfg, logger, err := setup(cmd)
			if err != nil {
				return err
			}
			application, err := app.New(ctx, logger, cfg)
			if err != nil {
				return fmt.Errorf("initialize app: %w", err)
			}
			defer application.Close()
			if err := fn(ctx, application.Catalog(), cmd); err != nil {
				if usecase.IsDuplicate(err) {
					return fmt.Errorf("%s exists already", cmd.String("id"))
				}
				return err
			}
			return nil
		}
	}

	return &cli.Command{
		Name:  "catalog",
		Usage: "Maintain the customer groups, projects and resources records refer to",
		Commands: []*cli.Command{
			{
				Name:  "add-group",
				Usage: "Create a customer project group",
				Flags: flags(),
				Action: withCatalog(func(ctx context.Context, cat *usecase.Catalog, cmd *cli.Command) error {
					p, err := cat.AddCustomerGroup(ctx, cmd.String("id"), cmd.String("name"))
					if err == nil {
						fmt.Println(p)
					}
					return err
				}),
			},
			{
				Name:  "add-project",
				Usage: "Create a project, optionally filed under a customer group",
				Flags: flags(&cli.StringFlag{Name: "group", Usage: "customer group id"}),
				Action: withCatalog(func(ctx context.Context, cat *usecase.Catalog, cmd *cli.Command) error {
					p, err := cat.AddProject(ctx, cmd.String("id"), cmd.String("name"), cmd.String("group"))
					if err == nil {
						fmt.Println(p)
					}
					return err
				}),
			},
			{
				Name:  "add-resource",
				Usage: "Create a bookable resource",
				Flags: flags(),
				Action: withCatalog(func(ctx context.Context, cat *usecase.Catalog, cmd *cli.Command) error {
					p, err := cat.AddResource(ctx, cmd.String("id"), cmd.String("name"))
					if err == nil {
						fmt.Println(p)
					}
					return err
				}),
			},
		},
	}
}

func envCommand() *cli.Command {
	return &cli.Command{
		Name:  "env",
		Usage: "Describe the supported environment variables",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			fmt.Println(config.Usage())
			return nil
		},
	}
}
