package cmd

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	logLevel         string // Log verbosity level
	configFile       string // Optional run configuration file
	defaultsFilePath string // Parameter presets
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "etas-sim",
	Short: "ETAS earthquake catalog simulator",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
			logrus.Fatalf("Failed to load .env: %v", err)
		}
		v, err := newViper(cmd)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		level, err := logrus.ParseLevel(v.GetString("log"))
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", v.GetString("log"))
		}
		logrus.SetLevel(level)
	},
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "warn", "Log level (trace, debug, info, warn, error, fatal, panic)")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Run configuration file (YAML, TOML or JSON); flags and ETAS_* variables override it")
	rootCmd.PersistentFlags().StringVar(&defaultsFilePath, "defaults", "defaults.yaml", "Parameter presets file")

	rootCmd.AddCommand(simulateCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(presetsCmd)
}
