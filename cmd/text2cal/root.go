package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile  string
	logLevel string
	version  = "dev" // Set via build flags
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "text2cal",
	Short: "Turn on-screen text into Google Calendar events",
	Long: `text2cal captures a region of an image or screen, recognizes the
text with a vision model, extracts the event it describes, and produces a
prefilled Google Calendar link.

Features:
  - OCR via OpenAI, Gemini, Claude, or Google Cloud Vision
  - Event extraction via OpenAI, Gemini, or Claude
  - Model discovery and API key validation per provider
  - Persisted provider selections and cached model lists`,
	SilenceUsage:  true,
	SilenceErrors: true,
	Version:       version,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.text2cal.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "console", "log format (console, json)")
	rootCmd.PersistentFlags().String("settings", "", "settings store file (default is $HOME/.text2cal-settings.json)")

	// Bind flags to viper
	_ = viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("log_format", rootCmd.PersistentFlags().Lookup("log-format"))
	_ = viper.BindPFlag("settings_file", rootCmd.PersistentFlags().Lookup("settings"))
}

func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			os.Exit(1)
		}

		// Search config in home directory with name ".text2cal" (without extension)
		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".text2cal")
	}

	// Read environment variables with TEXT2CAL prefix
	viper.SetEnvPrefix("TEXT2CAL")
	viper.AutomaticEnv()

	// If a config file is found, read it in
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}
