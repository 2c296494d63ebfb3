package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/JoJeongHyeon/gongja-mailservice/internal/config"
)

const (
	modeConsole = "console"
	modeEmail   = "email"
	modeServe   = "serve"
)

var (
	mode    string
	envFile string
)

var rootCmd = &cobra.Command{
	Use:   "gongja",
	Short: "Confucian counseling for everyday worries",
	Long: `gongja reads a worry, finds what of 仁 it lacks and answers with advice
grounded in a passage of the Analects.

Modes:
  console  interactive counseling on this terminal (default)
  email    answer worry emails received in the last day, then exit
  serve    HTTP API and NATS worry intake until interrupted`,
	SilenceUsage: true,
	Args:         cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		switch mode {
		case modeConsole, modeEmail, modeServe:
		default:
			return fmt.Errorf("unknown mode %q (want console, email or serve)", mode)
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger := setupLogging(cfg.LogLevel, cfg.LogFile)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return run(ctx, mode, cfg, logger)
	},
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "Env file to load (default: .env when present)")
	rootCmd.Flags().StringVarP(&mode, "mode", "m", modeConsole, "Run mode: console, email or serve")
	rootCmd.AddCommand(corpusCmd)
}

func loadConfig() (*config.Config, error) {
	if envFile != "" {
		return config.Load(envFile)
	}
	return config.Load()
}
