package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/DigitumDei/WellnessWingman-sub001/internal/utils"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "wellnesswingman",
	Short: "Photo and notes health journal with background LLM analysis",
	Long: `WellnessWingman stores meal, exercise and sleep captures, analyses them
with the configured LLM provider in the background and builds daily summaries.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() (utils.Config, error) {
	return utils.LoadConfig(configPath)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "Path to the YAML config file")
}
