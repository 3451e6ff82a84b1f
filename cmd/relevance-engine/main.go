// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the relevance-engine CLI.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/relevance-engine/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// rootCmd is the base command for the relevance-engine CLI.
var rootCmd = &cobra.Command{
	Use:   "relevance-engine",
	Short: "Semantic retrieval and multi-factor ranking over documentation, issues and code",
	Long: `relevance-engine builds per-source semantic indexes from a document corpus,
searches them, and ranks already-fetched result sets from documentation pages,
issue-tracker tickets and source files with cross-source correlation.

Indexes are persisted under <data_dir>/index/relevance.db. Settings come from
relevance-engine.yaml, RELEVANCE_ENGINE_* environment variables and flags.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger, err := newLogger(cfg.Log)
		if err != nil {
			return err
		}
		slog.SetDefault(logger)
		appConfig = cfg
		return nil
	},
}

// appConfig is the validated configuration, set before any subcommand runs.
var appConfig types.Config

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./relevance-engine.yaml or ~/.config/relevance-engine/config.yaml)")
	rootCmd.PersistentFlags().String("data-dir", "", "base directory for persisted indexes (overrides data_dir)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")
	viper.BindPFlag("data_dir", rootCmd.PersistentFlags().Lookup("data-dir"))
	viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("relevance-engine")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "relevance-engine"))
		}
	}

	defaults := types.DefaultConfig()
	viper.SetDefault("data_dir", defaults.DataDir)
	viper.SetDefault("workers", defaults.Workers)
	viper.SetDefault("log.level", defaults.Log.Level)
	viper.SetDefault("log.format", defaults.Log.Format)

	viper.SetEnvPrefix("RELEVANCE_ENGINE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// loadConfig overlays viper settings on the defaults and validates the
// result.
func loadConfig() (types.Config, error) {
	cfg := types.DefaultConfig()
	if err := viper.Unmarshal(&cfg); err != nil {
		return types.Config{}, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return types.Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg types.LogConfig) (*slog.Logger, error) {
	var level slog.Level
	if cfg.Level != "" {
		if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
	}
	opts := &slog.HandlerOptions{Level: level}

	switch strings.ToLower(cfg.Format) {
	case "json":
		return slog.New(slog.NewJSONHandler(os.Stderr, opts)), nil
	case "text", "":
		return slog.New(slog.NewTextHandler(os.Stderr, opts)), nil
	default:
		return nil, fmt.Errorf("unsupported log format %q: use text or json", cfg.Format)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
