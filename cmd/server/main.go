// Package main implements the skillforge command. It serves the SkillForge
// API, which personalizes training courses for groups of employees with an
// LLM, applies database migrations and issues operator access tokens.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "skillforge",
	Short: "Personalized training course generation service",
	Long: `SkillForge generates personalized training courses for every employee of a
department or position, in the background, with an LLM.

Configuration is read from config.yaml (or --config) and SKILLFORGE_*
environment variables, which take precedence.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file (default ./config.yaml)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
