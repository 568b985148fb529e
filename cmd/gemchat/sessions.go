package main

import (
	"fmt"
	"strings"

	"gemchat/internal/chat"

	"github.com/spf13/cobra"
)

// sessionsCmd groups the session management commands
var sessionsCmd = &cobra.Command{
	Use:     "sessions",
	Aliases: []string{"session"},
	Short:   "Manage saved sessions",
	Long:    `List, select, create, rename and delete saved chat sessions.`,
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved sessions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := openApp(cfg, nil)
		if err != nil {
			return err
		}
		defer func() { _ = a.Close() }()

		infos, err := a.store.List()
		if err != nil {
			return err
		}
		_, err = fmt.Fprint(cmd.OutOrStdout(), a.renderer.Sessions(infos))
		return err
	},
}

var sessionsUseCmd = &cobra.Command{
	Use:   "use <name>",
	Short: "Make a saved session active",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cfg, nil)
		if err != nil {
			return err
		}
		defer func() { _ = a.Close() }()

		if err := a.ctrl.SwitchSession(args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Active session: %s\n", a.ctrl.SessionName())
		return nil
	},
}

var sessionsNewCmd = &cobra.Command{
	Use:   "new <name>",
	Short: "Create an empty session and make it active",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cfg, nil)
		if err != nil {
			return err
		}
		defer func() { _ = a.Close() }()

		if err := a.ctrl.NewSession(strings.Join(args, " ")); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Active session: %s\n", a.ctrl.SessionName())
		return nil
	},
}

var sessionsRenameCmd = &cobra.Command{
	Use:   "rename [old] <new>",
	Short: "Rename a session (the active one when old is omitted)",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cfg, nil)
		if err != nil {
			return err
		}
		defer func() { _ = a.Close() }()

		if len(args) == 1 {
			if err := a.ctrl.Rename(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Renamed active session to %s\n", a.ctrl.SessionName())
			return nil
		}
		renamed, err := a.store.Rename(args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Renamed %s to %s\n", args[0], renamed.Name)
		return nil
	},
}

var sessionsDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a saved session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cfg, nil)
		if err != nil {
			return err
		}
		defer func() { _ = a.Close() }()

		yes, _ := cmd.Flags().GetBool("yes")
		confirmed := confirmPrompt(cmd.InOrStdin(), cmd.OutOrStdout(), yes, fmt.Sprintf("Delete session %q?", args[0]))
		intent := chat.DecideDeleteSession(confirmed, args[0])
		if intent.IsNone() {
			fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
			return nil
		}
		if err := a.ctrl.Apply(intent); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s. Active session: %s\n", args[0], a.ctrl.SessionName())
		return nil
	},
}

var sessionsResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Empty the default session and make it active",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := openApp(cfg, nil)
		if err != nil {
			return err
		}
		defer func() { _ = a.Close() }()

		yes, _ := cmd.Flags().GetBool("yes")
		intent := chat.DecideReset(confirmPrompt(cmd.InOrStdin(), cmd.OutOrStdout(), yes, "Empty the default session?"))
		if intent.IsNone() {
			fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
			return nil
		}
		return a.ctrl.Apply(intent)
	},
}

var sessionsPurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete every saved session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := openApp(cfg, nil)
		if err != nil {
			return err
		}
		defer func() { _ = a.Close() }()

		yes, _ := cmd.Flags().GetBool("yes")
		if !confirmPrompt(cmd.InOrStdin(), cmd.OutOrStdout(), yes, "Delete all chat history?") {
			fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
			return nil
		}
		if err := a.store.Purge(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "All chat history has been deleted.")
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{sessionsDeleteCmd, sessionsResetCmd, sessionsPurgeCmd} {
		c.Flags().BoolP("yes", "y", false, "Skip the confirmation prompt")
	}
	sessionsCmd.AddCommand(sessionsListCmd, sessionsUseCmd, sessionsNewCmd, sessionsRenameCmd,
		sessionsDeleteCmd, sessionsResetCmd, sessionsPurgeCmd)
}
