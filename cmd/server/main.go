package main

import (
	"fmt"
	"log/slog"
	"os"

	"task-marketplace-api/internal/config"
	"task-marketplace-api/internal/database"

	"github.com/spf13/cobra"
	"gorm.io/gorm/logger"
)

var envFiles []string

var rootCmd = &cobra.Command{
	Use:           "marketplace",
	Short:         "Task marketplace API",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		db, err := database.Open(cfg.Database.DSN, logger.Warn)
		if err != nil {
			return err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	},
}

func init() {
	rootCmd.PersistentFlags().StringSliceVar(&envFiles, "env-file", nil, "dotenv files to load before reading the environment")
	rootCmd.AddCommand(serveCmd, migrateCmd)
}

// loadConfig reads the configuration and installs the JSON logger at the
// configured level.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(envFiles...)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.Log.Level})))
	return cfg, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}
