// Package termhostdcmd implements the termhostd daemon's command tree.
// It is kept separate from cmd/termhostd so it can be driven directly
// by tests (e2etests uses it as a testscript.RunMain command).
package termhostdcmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"termhost/internal/config"
	"termhost/internal/termhost"
	"termhost/internal/version"
	"termhost/internal/wstransport"
)

// Main runs the termhostd command tree against os.Args, returning the
// process exit code.
func Main() int {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func NewRootCmd() *cobra.Command {
	var (
		configPath string
		socket     string
		listen     string
		maxSess    int
	)

	cmd := &cobra.Command{
		Use:   "termhostd",
		Short: "Run the termhost session host daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if socket != "" {
				cfg.SocketPath = socket
			}
			if listen != "" {
				cfg.Listen = listen
			}
			if maxSess > 0 {
				cfg.MaxSessions = maxSess
			}
			return runDaemon(cfg)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "path to config.yaml (default ~/.termhost/config.yaml)")
	cmd.Flags().StringVar(&socket, "socket", "", "Unix socket path (overrides config)")
	cmd.Flags().StringVar(&listen, "listen", "", "WebSocket listen address, e.g. :7681 (overrides config)")
	cmd.Flags().IntVar(&maxSess, "max-sessions", 0, "maximum concurrent sessions (overrides config)")

	cmd.AddCommand(newVersionCmd())
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the termhostd version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println(version.DisplayVersion())
			return nil
		},
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFrom(path)
	}
	return config.Load()
}

func runDaemon(cfg *config.Config) error {
	opts := termhost.HostOptions{
		MaxSessions:    cfg.MaxSessions,
		ReaperInterval: cfg.ReaperInterval,
		StateDir:       config.ConfigDir(),
		SocketPath:     cfg.SocketPath,
	}

	var httpServer *http.Server
	if cfg.Listen != "" {
		wsListener := wstransport.NewListener()
		opts.WS = wsListener

		mux := http.NewServeMux()
		mux.Handle("/attach", wsListener.Handler())
		httpServer = &http.Server{Addr: cfg.Listen, Handler: mux}
		go func() {
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				fmt.Fprintf(os.Stderr, "termhostd: http server: %v\n", err)
			}
		}()
	}

	host := termhost.NewHost(opts)
	if err := host.Start(); err != nil {
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	if httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		httpServer.Shutdown(ctx)
	}
	host.Stop()
	return nil
}
