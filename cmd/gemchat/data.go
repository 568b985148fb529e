package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gemchat/internal/chat"
	"gemchat/internal/render"
	"gemchat/internal/shell"
	"gemchat/internal/transcript"
	"gemchat/pkg/chattypes"

	"github.com/spf13/cobra"
)

// exportCmd writes the whole session collection to a JSON file
var exportCmd = &cobra.Command{
	Use:   "export [path|-]",
	Short: "Export every session to a JSON file",
	Long: `Export the stored session collection verbatim.
The default file name is gemini_chat_history_<active session>.json; "-" writes to standard output.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cfg, nil)
		if err != nil {
			return err
		}
		defer func() { _ = a.Close() }()

		blob, err := a.store.Export()
		if err != nil {
			return err
		}

		if len(args) == 1 && args[0] == "-" {
			_, err = cmd.OutOrStdout().Write(blob)
			return err
		}
		path := filepath.Join(loader.Paths().WorkDir, a.store.ExportFileName())
		if len(args) == 1 {
			path = args[0]
		}
		if err := os.WriteFile(path, blob, 0600); err != nil {
			return fmt.Errorf("failed to write export: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Exported to %s\n", path)
		return nil
	},
}

// importCmd replaces the session collection from a JSON file
var importCmd = &cobra.Command{
	Use:   "import <path|->",
	Short: "Replace every session from a JSON export",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			blob []byte
			err  error
		)
		if args[0] == "-" {
			blob, err = io.ReadAll(cmd.InOrStdin())
		} else {
			blob, err = os.ReadFile(args[0])
		}
		if err != nil {
			return fmt.Errorf("failed to read import file: %w", err)
		}

		a, err := openApp(cfg, func(r *render.Renderer) chattypes.Notifier {
			return shell.NewNotifier(cmd.ErrOrStderr(), r)
		})
		if err != nil {
			return err
		}
		defer func() { _ = a.Close() }()

		yes, _ := cmd.Flags().GetBool("yes")
		if args[0] == "-" {
			// stdin carries the blob, so there is nothing left to answer a prompt
			yes = true
		}
		intent := chat.DecideImport(confirmPrompt(cmd.InOrStdin(), cmd.OutOrStdout(), yes, "Importing replaces every saved session. Continue?"), blob)
		if intent.IsNone() {
			fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
			return nil
		}
		if err := a.ctrl.Apply(intent); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Imported. Active session: %s\n", a.ctrl.SessionName())
		return nil
	},
}

// transcriptCmd writes one session as json, yaml or markdown
var transcriptCmd = &cobra.Command{
	Use:   "transcript [session]",
	Short: "Write a session transcript as json, yaml or md",
	Long: `Write one session (the active one by default) as a transcript.
Use --output - to print to standard output.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cfg, nil)
		if err != nil {
			return err
		}
		defer func() { _ = a.Close() }()

		name := a.ctrl.SessionName()
		if len(args) == 1 {
			name = args[0]
		}
		sess, err := a.store.Load(name)
		if err != nil {
			return err
		}

		format, _ := cmd.Flags().GetString("format")
		output, _ := cmd.Flags().GetString("output")
		if output == "-" {
			exporter, err := transcript.NewExporter(format)
			if err != nil {
				return err
			}
			return exporter.Export(sess, cmd.OutOrStdout())
		}

		path, err := transcript.WriteFile(sess, format, loader.Paths().WorkDir, output)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Transcript written to %s\n", path)
		return nil
	},
}

func init() {
	importCmd.Flags().BoolP("yes", "y", false, "Skip the confirmation prompt")
	transcriptCmd.Flags().StringP("format", "f", "md", "Transcript format (json|yaml|md)")
	transcriptCmd.Flags().StringP("output", "o", "", "Output path, or - for standard output")
}
