/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ssargent/pcapidx/pkg/config"
)

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	Long: `Write a configuration file with default settings.

The file goes to --config, or to ~/.config/pcapidx/config.yaml when no path
is given. An existing file is kept unless --force is set.

Examples:
  pcapidx init
  pcapidx init --config ./pcapidx.yaml --store catalog --compression zstd`,
	// init must work before any valid config exists
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		store, _ := cmd.Flags().GetString("store")
		compression, _ := cmd.Flags().GetString("compression")
		force, _ := cmd.Flags().GetBool("force")

		if configPath == "" {
			configPath = config.GetDefaultConfigPath()
		}

		out := cmd.OutOrStdout()
		if config.ConfigExists(configPath) && !force {
			fmt.Fprintf(out, "Config already exists at %s. Use --force to overwrite.\n", configPath)
			return nil
		}

		cfg := config.DefaultConfig()
		if store != "" {
			cfg.Index.Store = store
		}
		if compression != "" {
			cfg.Index.Compression = compression
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		if err := config.SaveConfig(cfg, configPath); err != nil {
			return err
		}

		fmt.Fprintf(out, "Config written to %s\n", configPath)
		fmt.Fprintf(out, "Store: %s, compression: %s\n", cfg.Index.Store, cfg.Index.Compression)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().String("compression", "", "Table compression: none, zstd or snappy")
	initCmd.Flags().Bool("force", false, "Overwrite an existing config file")
}
