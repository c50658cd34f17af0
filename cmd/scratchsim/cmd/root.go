// Package cmd provides the command-line interface of scratchsim.
package cmd

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "scratchsim",
	Short: "scratchsim runs discrete-event network scenarios.",
	Long: `scratchsim runs network scenarios described in YAML on a ` +
		`discrete-event scheduler and reports per-flow statistics.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		cfg = loadConfig()

		level, _ := cmd.Flags().GetString("log-level")
		if level == "" {
			level = cfg.LogLevel
		}

		return setupLogger(level)
	},
}

var (
	cfg    config
	logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		With().Timestamp().Logger()
)

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	_ = godotenv.Load()

	err := rootCmd.Execute()
	if err != nil {
		atexit.Exit(1)
	}

	atexit.Exit(0)
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "",
		"Log level: debug, info, warn or error. "+
			"Defaults to $"+envLogLevel+" or info.")
}

func setupLogger(level string) error {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return err
	}

	if lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	logger = logger.Level(lvl)

	return nil
}
