package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/krshsl/praxis/interviewer/cmd"
	"github.com/krshsl/praxis/interviewer/services"
)

func main() {
	cfg := services.LoadConfig()

	root := cmd.Root(cfg)
	if err := root.ExecuteContext(context.Background()); err != nil {
		slog.Error("Command failed", "error", err)
		os.Exit(1)
	}
}
