package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tabwarden/tabwarden/internal/config"
	"github.com/tabwarden/tabwarden/internal/logger"
)

var (
	cfgFile string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "tabwarden",
	Short: "Tabwarden session classifier",
	Long: `Tabwarden turns a snapshot of open browser tabs into a classified
session, then holds it behind the launchpad until every item is resolved.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cmd)
		if err != nil {
			return err
		}

		logger.Setup(cfg.Server.LogLevel, cfg.Server.LogFormat)
		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.tabwarden/config.yaml)")
	rootCmd.PersistentFlags().String("server.log_level", config.DefaultLogLevel, "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("engines.default", config.DefaultEngineDefault, "default model engine")
	rootCmd.PersistentFlags().String("store.data_dir", "", "data directory (default is $HOME/.tabwarden)")
}
