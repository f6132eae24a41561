package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/wfunc/gombiful/config"
	"github.com/wfunc/gombiful/logger"
)

var (
	configPath string
	logLevel   string
	cfg        *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "gombiful",
	Short: "Multiplayer song timeline game server",
	Long:  `WebSocket game server for the song timeline party game. Commands: serve, migrate, catalog.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.LoadConfig(configPath)
		if err != nil {
			return fmt.Errorf("config: %w", err)
		}
		if logLevel != "" {
			cfg.Log.Level = logLevel
		}
		return logger.Init(cfg.Log.Level, cfg.Log.Development)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Sync()
	},
	RunE:         runServe, // default: same as "gombiful serve"
	SilenceUsage: true,
}

func addGlobalFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&configPath, "config", "c", ".", "directory holding config.yaml, or the file itself")
	fs.StringVar(&logLevel, "log-level", "", "override log.level (debug, info, warn, error)")
}

func init() {
	addGlobalFlags(rootCmd.PersistentFlags())
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(catalogCmd)
}

// Execute runs the root command and returns the error (for main to log.Fatal).
func Execute() error {
	return rootCmd.Execute()
}
