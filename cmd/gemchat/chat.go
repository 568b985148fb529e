package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"gemchat/internal/logger"
	"gemchat/internal/render"
	"gemchat/internal/shell"
	"gemchat/internal/version"
	"gemchat/pkg/chattypes"

	"github.com/spf13/cobra"
)

// sendCmd sends one message to the active session and prints the reply
var sendCmd = &cobra.Command{
	Use:   "send <message...>",
	Short: "Send one message and print the reply",
	Long: `Send a message to the active session and print the reply.
Use "-" to read the message from standard input.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSend,
}

func init() {
	sendCmd.Flags().Bool("raw", false, "Print the reply without markdown rendering")
	sendCmd.Flags().StringP("session", "s", "", "Send to this session instead of the active one")
}

func runChat(cmd *cobra.Command, _ []string) error {
	logger.Info("Starting gemchat", "version", version.GetBaseVersion())

	a, err := openApp(cfg, func(r *render.Renderer) chattypes.Notifier {
		return shell.NewNotifier(cmd.OutOrStdout(), r)
	})
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	sh, err := shell.New(shell.Options{
		Controller:     a.ctrl,
		Store:          a.store,
		Renderer:       a.renderer,
		RequestTimeout: cfg.RequestTimeout,
		WorkDir:        loader.Paths().WorkDir,
	})
	if err != nil {
		return err
	}
	sh.Run()
	return nil
}

func runSend(cmd *cobra.Command, args []string) error {
	content, err := messageContent(cmd.InOrStdin(), args)
	if err != nil {
		return err
	}

	a, err := openApp(cfg, func(r *render.Renderer) chattypes.Notifier {
		return shell.NewNotifier(cmd.ErrOrStderr(), r)
	})
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	if name, _ := cmd.Flags().GetString("session"); name != "" {
		if err := a.ctrl.SwitchSession(name); err != nil {
			return err
		}
	}

	ctx := context.Background()
	if cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.RequestTimeout)
		defer cancel()
	}

	reply, err := a.ctrl.Submit(ctx, content)
	if err != nil {
		return err
	}

	if raw, _ := cmd.Flags().GetBool("raw"); raw {
		_, err = fmt.Fprintln(cmd.OutOrStdout(), reply.Content)
		return err
	}
	rendered, err := a.renderer.Markdown(reply.Content)
	if err != nil {
		rendered = reply.Content + "\n"
	}
	_, err = fmt.Fprint(cmd.OutOrStdout(), rendered)
	return err
}

// messageContent joins args, or reads in when the only argument is "-".
func messageContent(in io.Reader, args []string) (string, error) {
	if len(args) == 1 && args[0] == "-" {
		if in == nil {
			in = os.Stdin
		}
		data, err := io.ReadAll(in)
		if err != nil {
			return "", fmt.Errorf("read message from stdin: %w", err)
		}
		return string(data), nil
	}
	return strings.Join(args, " "), nil
}
