package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/codefionn/linechat/internal/chatserver"
	"github.com/codefionn/linechat/internal/config"
	"github.com/codefionn/linechat/internal/consts"
	"github.com/codefionn/linechat/internal/logger"
	"github.com/codefionn/linechat/internal/pidfile"
	"github.com/codefionn/linechat/internal/pprof"
)

var (
	serveAddr    string
	serveWSAddr  string
	servePIDFile string
	serveProfile pprof.Config
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the chat router",
	Long: `Run the chat router until interrupted.

Clients connect over plain TCP and speak newline-delimited text. With
--ws-addr the same protocol is also offered over WebSocket at /ws, one line
per text frame.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", fmt.Sprintf("TCP listen address (default %q)", consts.DefaultListenAddr))
	serveCmd.Flags().StringVar(&serveWSAddr, "ws-addr", "", "WebSocket listen address (disabled when empty)")
	serveCmd.Flags().StringVar(&servePIDFile, "pidfile", "", "Write the process ID to this file")
	serveCmd.Flags().StringVar(&serveProfile.HTTPAddr, "pprof-addr", "", "Serve /debug/pprof on this address")
	serveCmd.Flags().StringVar(&serveProfile.CPUProfile, "cpu-profile", "", "Write a CPU profile to this file")
	serveCmd.Flags().StringVar(&serveProfile.HeapProfile, "heap-profile", "", "Write a heap profile to this file on exit")
	serveCmd.Flags().StringVar(&serveProfile.GoroutineProfile, "goroutine-profile", "", "Write a goroutine profile to this file on exit")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, cfgPath, err := loadConfig()
	if err != nil {
		return err
	}
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}
	if serveWSAddr != "" {
		cfg.Server.WebSocketAddr = serveWSAddr
	}
	if servePIDFile != "" {
		cfg.Server.PIDFile = servePIDFile
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if err := logger.Init(logger.ParseLevel(cfg.LogLevel), cfg.Server.LogPath); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Global().Close()

	if cfg.Server.PIDFile != "" {
		pf := pidfile.New(cfg.Server.PIDFile)
		if err := pf.Acquire(); err != nil {
			return err
		}
		defer func() {
			if err := pf.Remove(); err != nil {
				logger.Warn("%v", err)
			}
		}()
	}

	if serveProfile.Enabled() {
		profiler := pprof.NewHandler(serveProfile)
		if err := profiler.Start(); err != nil {
			return err
		}
		defer func() {
			if err := profiler.Stop(); err != nil {
				logger.Warn("Profiling: %v", err)
			}
		}()
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := chatserver.NewServer(&cfg.Server)
	if err := srv.Start(ctx); err != nil {
		return err
	}
	printBanner(cmd.OutOrStdout(), srv)

	g, gctx := errgroup.WithContext(ctx)
	watchCtx, stopWatching := context.WithCancel(gctx)

	g.Go(func() error {
		defer stopWatching()
		<-srv.Done()
		return srv.Err()
	})

	watcher, err := config.NewWatcher(cfgPath, 200*time.Millisecond, func(next *config.Config) {
		// --log-level wins over the file
		if logLevel != "" {
			return
		}
		level := logger.ParseLevel(next.LogLevel)
		logger.SetGlobalLevel(level)
		logger.Info("Log level set to %s", level)
	})
	switch {
	case err == nil:
		g.Go(func() error { return watcher.Run(watchCtx) })
	case configFile == "":
		logger.Debug("Not watching default config: %v", err)
	default:
		logger.Warn("Config changes will not be picked up: %v", err)
	}

	return g.Wait()
}

func printBanner(w io.Writer, srv *chatserver.Server) {
	title := color.New(color.FgCyan, color.Bold)
	title.Fprintf(w, "linechat %s\n", version)
	fmt.Fprintf(w, "  tcp        %s\n", color.GreenString(srv.Addr().String()))
	if ws := srv.WebSocketAddr(); ws != nil {
		fmt.Fprintf(w, "  websocket  %s\n", color.GreenString("ws://%s%s", ws, consts.WebSocketPath))
	}
	fmt.Fprintln(w, color.HiBlackString("Press Ctrl+C to stop."))
}
