// Orion - Animated Conversational Agent Server
package main

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "orion",
	Short: "Orion conversational agent server",
	Long: "Orion runs the animated conversational agent: the interaction\n" +
		"state machine, the response protocol, and the session transport.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
		slog.SetDefault(logger)

		if err := godotenv.Load(); err != nil {
			slog.Info("No .env file found, using environment variables")
		}
	},
}

func main() {
	rootCmd.AddCommand(serveCmd, sweepCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
