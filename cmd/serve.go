package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/krshsl/praxis/interviewer/repository"
	"github.com/krshsl/praxis/interviewer/services"
	"github.com/spf13/cobra"
)

func serve(config *services.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "start the http and websocket server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			db, err := openDatabase(ctx, config)
			if err != nil {
				return err
			}
			defer db.Close()

			repo := repository.NewGORMRepository(db.DB)
			if err := repo.AutoMigrate(); err != nil {
				return fmt.Errorf("failed to migrate database: %w", err)
			}
			if config.Database.Seed {
				if err := services.NewDatabaseSeeder(repo).SeedDatabase(ctx); err != nil {
					slog.Error("Failed to seed database", "error", err)
				}
			}

			server, err := services.NewServer(ctx, config, db)
			if err != nil {
				return err
			}
			return server.Run(ctx)
		},
	}
}

func openDatabase(ctx context.Context, config *services.Config) (*repository.Database, error) {
	if config.Database.URL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	return repository.Open(ctx, repository.Options{
		URL:          config.Database.URL,
		LogLevel:     config.Database.LogLevel,
		MaxIdleConns: config.Database.MaxIdleConns,
		MaxOpenConns: config.Database.MaxOpenConns,
	})
}
