package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/codefionn/linechat/internal/config"
)

var (
	configFile string
	logLevel   string
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "linechat",
	Short: "Line-based multi-user chat router and terminal client",
	Long: `linechat is a small real-time chat service.

  linechat serve   run the router other participants connect to
  linechat join    open the terminal chat view against a router

Inside the chat view, type a line and press Enter to send it. Up and down
arrows scroll the history. "/nick <name>" changes your nickname and "/quit"
leaves.`,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Configuration file (JSON, or TOML with a .toml extension)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error, none")

	rootCmd.AddCommand(serveCmd, joinCmd, versionCmd)
}

// loadConfig reads the config file, then environment, then the shared flags
func loadConfig() (*config.Config, string, error) {
	path := configFile
	if path == "" {
		path = config.GetConfigPath()
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load config: %w", err)
	}
	cfg.ApplyEnv()

	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	return cfg, path, nil
}
