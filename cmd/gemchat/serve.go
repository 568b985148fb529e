package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"gemchat/internal/logger"
	"gemchat/internal/render"
	"gemchat/internal/server"
	"gemchat/pkg/chattypes"

	"github.com/spf13/cobra"
)

// serveCmd exposes the chat over a local JSON API
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the chat as a local HTTP JSON API",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().String("listen", "", "Listen address [default: 127.0.0.1:8080]")
}

func runServe(cmd *cobra.Command, _ []string) error {
	notices := logger.NewStyledLogger(cmd.ErrOrStderr(), "Server")
	a, err := openApp(cfg, func(_ *render.Renderer) chattypes.Notifier {
		return chattypes.NotifierFunc(func(level chattypes.NoticeLevel, title, text string) {
			if level == chattypes.NoticeError {
				notices.Error(title, "detail", text)
				return
			}
			notices.Info(title, "detail", text)
		})
	})
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	srv := server.New(server.Options{
		Controller:     a.ctrl,
		Store:          a.store,
		RequestTimeout: cfg.RequestTimeout,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return srv.ListenAndServe(ctx, cfg.Listen)
}
