package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"gemchat/internal/chat"
	"gemchat/internal/config"
	"gemchat/internal/gemini"
	"gemchat/internal/logger"
	"gemchat/internal/render"
	"gemchat/internal/session"
	"gemchat/internal/storage"
	"gemchat/pkg/chattypes"
)

// app holds the wired components for one command invocation.
type app struct {
	kv       storage.Store
	store    *session.Store
	ctrl     *chat.Controller
	renderer *render.Renderer
	capture  *gemini.Capture
}

// newNotifier builds the notifier for a command once the renderer exists.
type newNotifier func(r *render.Renderer) chattypes.Notifier

// openApp wires storage, the session store, the Gemini client and the controller from cfg.
func openApp(cfg *config.Config, notifier newNotifier) (*app, error) {
	renderer, err := render.New(render.Options{Style: cfg.RenderStyle, WordWrap: cfg.WordWrap})
	if err != nil {
		return nil, err
	}

	kv, err := storage.Open(cfg.Store, cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	store := session.NewStore(kv, session.Defaults{
		APIKey:        cfg.APIKey,
		Model:         cfg.Model,
		ContextLength: cfg.ContextLength,
	})

	opts := gemini.Options{BaseURL: cfg.BaseURL}
	var capture *gemini.Capture
	if cfg.DebugHTTP {
		capture = gemini.NewCapture()
		opts.Capture = capture
	}

	var n chattypes.Notifier
	if notifier != nil {
		n = notifier(renderer)
	}
	ctrl, err := chat.New(chat.Config{
		Store:     store,
		Completer: gemini.NewClient(opts),
		Notifier:  n,
	})
	if err != nil {
		_ = kv.Close()
		return nil, err
	}

	return &app{kv: kv, store: store, ctrl: ctrl, renderer: renderer, capture: capture}, nil
}

// logCapture writes the last captured exchange at debug level.
func (a *app) logCapture() {
	if a.capture == nil {
		return
	}
	if data := a.capture.Last(); data != "" {
		logger.Debug("HTTP exchange", "data", data)
	}
}

// Close releases the store.
func (a *app) Close() error {
	a.logCapture()
	return a.kv.Close()
}

// confirmPrompt asks a y/N question on in. yes skips the prompt.
func confirmPrompt(in io.Reader, out io.Writer, yes bool, question string) bool {
	if yes {
		return true
	}
	_, _ = fmt.Fprintf(out, "%s [y/N]: ", question)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}
