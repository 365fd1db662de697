package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/codefionn/linechat/internal/chatclient"
	"github.com/codefionn/linechat/internal/logger"
	"github.com/codefionn/linechat/internal/tui"
)

var joinCmd = &cobra.Command{
	Use:   "join [address]",
	Short: "Open the terminal chat view",
	Long: `Connect to a router and open the chat view.

The address defaults to the client.server_addr config value. Logs go to a
file because the terminal belongs to the chat view.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runJoin,
}

func runJoin(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	if len(args) == 1 {
		cfg.Client.ServerAddr = args[0]
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if err := logger.Init(logger.ParseLevel(cfg.LogLevel), cfg.Client.LogPath); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Global().Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGHUP)
	defer stop()

	conn, err := chatclient.Dial(ctx, &cfg.Client, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	terminal, err := tui.OpenTerminal(os.Stdin, os.Stdout)
	if err != nil {
		conn.Close()
		return err
	}

	err = chatclient.New(conn, terminal).Run(ctx)
	if restoreErr := terminal.Restore(); restoreErr != nil {
		logger.Warn("Failed to restore terminal: %v", restoreErr)
	}
	if err != nil {
		logger.Error("Chat session ended: %v", err)
	}
	return err
}
