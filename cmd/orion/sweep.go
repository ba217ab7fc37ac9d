package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/LogoMakerApp-IA/New-orion-Repository/internal/config"
	"github.com/LogoMakerApp-IA/New-orion-Repository/internal/maintenance"
	"github.com/LogoMakerApp-IA/New-orion-Repository/internal/store"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Delete stale guest accounts and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load configuration: %w", err)
		}

		repo, err := store.NewSQLite(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("initialize database: %w", err)
		}
		defer func() {
			if closeErr := repo.Close(); closeErr != nil {
				slog.Error("Failed to close repository", "error", closeErr)
			}
		}()

		ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
		defer cancel()
		maintenance.NewSweeper(repo, cfg.GuestTTL, nil).Sweep(ctx)
		return nil
	},
}
