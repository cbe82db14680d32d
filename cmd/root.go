package cmd

import (
	"log/slog"
	"os"

	"github.com/krshsl/praxis/interviewer/services"
	"github.com/spf13/cobra"
)

func Root(config *services.Config) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "interviewer",
		Short:         "AI mock interview backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
				Level: services.ParseLogLevel(config.Log.Level),
			}))
			slog.SetDefault(logger)
		},
	}
	rootCmd.AddCommand(serve(config))
	rootCmd.AddCommand(migrate(config))
	return rootCmd
}
