package cmd

import (
	"fmt"
	"log/slog"

	"github.com/krshsl/praxis/interviewer/repository"
	"github.com/krshsl/praxis/interviewer/services"
	"github.com/spf13/cobra"
)

func migrate(config *services.Config) *cobra.Command {
	var seed bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			db, err := openDatabase(ctx, config)
			if err != nil {
				return err
			}
			defer db.Close()

			repo := repository.NewGORMRepository(db.DB)
			if err := repo.AutoMigrate(); err != nil {
				return fmt.Errorf("failed to migrate database: %w", err)
			}
			slog.Info("Database schema is up to date")

			if seed {
				return services.NewDatabaseSeeder(repo).SeedDatabase(ctx)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&seed, "seed", false, "create demo users and resumes")
	return cmd
}
