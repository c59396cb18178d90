/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"

	"github.com/ssargent/pcapidx/pkg/config"
	"github.com/ssargent/pcapidx/pkg/di"
	"github.com/ssargent/pcapidx/pkg/logging"
	"github.com/ssargent/pcapidx/pkg/pcapindex"
)

// container is built from the loaded config before each command runs
var container *di.Container

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "pcapidx",
	Short: "pcapidx - random access for pcap captures",
	Long: `pcapidx builds an offset table for a classic pcap capture and uses it to
read any record by position without scanning the file.

Tables are kept in a sidecar file next to the capture (<capture>.offset.index)
or in a pebble catalog, and are rebuilt when missing, corrupt or stale.`,
	SilenceUsage:      true,
	PersistentPreRunE: setupContainer,
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		stats, _ := cmd.Flags().GetBool("stats")
		if !stats || container == nil {
			return nil
		}
		return dumpStats(cmd)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	closeContainer()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Config file (default ~/.config/pcapidx/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error (overrides config)")
	rootCmd.PersistentFlags().String("store", "", "Table store: sidecar or catalog (overrides config)")
	rootCmd.PersistentFlags().String("sidecar", "", "Explicit sidecar path for the offset table")
	rootCmd.PersistentFlags().Bool("stats", false, "Print metrics after the command")
}

func setupContainer(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger, err := logging.New(logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	}, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	closeContainer()
	container, err = di.NewContainer(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to set up: %w", err)
	}
	return nil
}

// loadConfig reads the config file if there is one and applies flag overrides.
// An explicit --config must exist.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	configPath, _ := cmd.Flags().GetString("config")

	cfg := config.DefaultConfig()
	switch {
	case configPath != "":
		loaded, err := config.LoadConfig(configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	case config.ConfigExists(config.GetDefaultConfigPath()):
		loaded, err := config.LoadConfig(config.GetDefaultConfigPath())
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.Logging.Level = level
	}
	if store, _ := cmd.Flags().GetString("store"); store != "" {
		cfg.Index.Store = store
	}
	return cfg, nil
}

func closeContainer() {
	if container != nil {
		container.Close()
		container = nil
	}
}

// openOptions returns the open policy shared by the read commands
func openOptions(cmd *cobra.Command) pcapindex.Options {
	sidecar, _ := cmd.Flags().GetString("sidecar")
	return pcapindex.Options{SidecarPath: sidecar, Fallback: true}
}

// openCapture opens path through the container's opener
func openCapture(cmd *cobra.Command, path string) (*pcapindex.Reader, error) {
	r, err := container.GetOpener().OpenWithOptions(path, openOptions(cmd))
	if err != nil {
		return nil, fmt.Errorf("error opening %s: %w", path, err)
	}
	return r, nil
}

func dumpStats(cmd *cobra.Command) error {
	families, err := container.GetRegistry().Gather()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out)
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(out, mf); err != nil {
			return err
		}
	}
	return nil
}
