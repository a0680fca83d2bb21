// Package main is the entry point for the grader CLI: schema management and
// offline extraction and scoring with the same pipeline the API serves.
package main

import (
	"fmt"
	"os"
	"strings"

	_ "github.com/joho/godotenv/autoload"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"aigrader/internal/config"
	"aigrader/internal/logger"
)

// rootCmd is the base command for the grader CLI.
var rootCmd = &cobra.Command{
	Use:   "grader",
	Short: "Answer key grading tools",
	Long: `grader manages the grading database and runs the grading pipeline
offline. Settings come from the same environment variables as the API
server; flags and GRADER_* variables override them.`,
	SilenceUsage: true,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./grader.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level override (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("encoder", "", "encoder provider override (openai, hashing)")
	rootCmd.PersistentFlags().String("encoder-endpoint", "", "OpenAI-compatible embeddings endpoint override")

	for _, name := range []string{"log-level", "encoder", "encoder-endpoint"} {
		_ = viper.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name))
	}
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("grader")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
	}

	viper.SetEnvPrefix("GRADER")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// loadConfig reads the environment configuration and applies CLI overrides.
func loadConfig() *config.AppConfig {
	cfg := config.Load()
	if v := viper.GetString("log-level"); v != "" {
		cfg.LogLevel = v
	}
	if v := viper.GetString("encoder"); v != "" {
		cfg.Encoder.Provider = strings.ToLower(v)
	}
	if v := viper.GetString("encoder-endpoint"); v != "" {
		cfg.Encoder.Endpoint = v
	}
	return cfg
}

// newLogger logs to stderr so command output on stdout stays machine-readable.
func newLogger(cfg *config.AppConfig) (*zap.Logger, error) {
	return logger.NewWithSyncer(cfg.LogLevel, logger.LoadLocation(cfg.Timezone), zapcore.Lock(os.Stderr))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
