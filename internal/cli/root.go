package cli

import (
	"os"

	"driving-quiz-service/internal/config"
	"driving-quiz-service/internal/logging"
	"github.com/spf13/cobra"
)

var (
	port       string
	configPath string
)

// Execute runs the CLI.
func Execute() error {
	logger := logging.New(os.Getenv("ENVIRONMENT"))
	if err := config.LoadDotEnv(".env"); err != nil {
		logger.LogError(err, "failed to load .env")
	}
	err := newRootCmd(logger).Execute()
	if err != nil {
		logger.LogError(err, "command failed")
	}
	return err
}

func newRootCmd(logger logging.Logger) *cobra.Command {
	envPort := os.Getenv("PORT")
	envConfig := os.Getenv("CONFIG_PATH")
	if envConfig == "" {
		envConfig = "config/config.yaml"
	}

	cmd := &cobra.Command{
		Use:          "quiz-service",
		Short:        "Driving-school quiz progress service",
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&port, "port", envPort, "port to listen on (overrides config)")
	cmd.PersistentFlags().StringVar(&configPath, "config", envConfig, "path to YAML config")
	cmd.AddCommand(NewStartCmd(&configPath, &port, logger))
	cmd.AddCommand(NewMigrateCmd(&configPath, logger))
	cmd.AddCommand(NewImportCmd(&configPath, logger))
	return cmd
}
