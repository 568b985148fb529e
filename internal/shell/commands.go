package shell

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gemchat/internal/chat"
	"gemchat/internal/config"
	"gemchat/internal/transcript"
	"gemchat/pkg/chattypes"
)

type command struct {
	name    string
	aliases []string
	help    string
	usage   string
	minArgs int
	run     func(con Console, args []string) error
}

func (s *Shell) buildCommands() []command {
	return []command{
		{name: "history", aliases: []string{"h"}, help: "show the active conversation", usage: "history", run: s.cmdHistory},
		{name: "resend", help: "send message N again", usage: "resend <index>", minArgs: 1, run: s.cmdResend},
		{name: "delete", aliases: []string{"rm"}, help: "delete message N", usage: "delete <index>", minArgs: 1, run: s.cmdDelete},
		{name: "copy", help: "copy message N to the clipboard", usage: "copy <index>", minArgs: 1, run: s.cmdCopy},
		{name: "clear", help: "clear the active conversation", usage: "clear", run: s.cmdClear},
		{name: "sessions", aliases: []string{"ls"}, help: "list saved sessions", usage: "sessions", run: s.cmdSessions},
		{name: "use", help: "switch to a saved session", usage: "use <name>", minArgs: 1, run: s.cmdUse},
		{name: "new", help: "start a session; without a name, reset the default session", usage: "new [name]", run: s.cmdNew},
		{name: "rename", help: "rename the active session", usage: "rename <name>", minArgs: 1, run: s.cmdRename},
		{name: "drop", help: "delete a saved session", usage: "drop <name>", minArgs: 1, run: s.cmdDrop},
		{name: "export", help: "save all sessions to a JSON file", usage: "export [path]", run: s.cmdExport},
		{name: "import", help: "replace all sessions from a JSON file", usage: "import <path>", minArgs: 1, run: s.cmdImport},
		{name: "transcript", help: "write the active session as json, yaml or md", usage: "transcript [json|yaml|md] [path]", run: s.cmdTranscript},
		{name: "model", help: "show or set the model", usage: "model [id]", run: s.cmdModel},
		{name: "context", help: "show or set how many messages are sent as context", usage: "context [n]", run: s.cmdContext},
		{name: "key", help: "set the API key; '-' removes the stored key", usage: "key [api-key|-]", run: s.cmdKey},
	}
}

// messageAt parses an index argument against the active history.
func (s *Shell) messageAt(arg string) (int, chattypes.Message, error) {
	index, err := strconv.Atoi(arg)
	if err != nil {
		return 0, chattypes.Message{}, fmt.Errorf("invalid message index %q", arg)
	}
	history := s.ctrl.History()
	if index < 0 || index >= len(history) {
		return 0, chattypes.Message{}, fmt.Errorf("%w: %d", chat.ErrIndexOutOfRange, index)
	}
	return index, history[index], nil
}

func (s *Shell) cmdHistory(con Console, _ []string) error {
	con.Println(s.renderer.History(s.ctrl.History()))
	return nil
}

func (s *Shell) cmdResend(con Console, args []string) error {
	_, msg, err := s.messageAt(args[0])
	if err != nil {
		return err
	}
	s.send(con, msg.Content, true)
	return nil
}

func (s *Shell) cmdDelete(con Console, args []string) error {
	index, _, err := s.messageAt(args[0])
	if err != nil {
		return err
	}
	confirmed := confirm(con, fmt.Sprintf("Delete message %d?", index))
	return s.ctrl.Apply(chat.DecideDeleteMessage(confirmed, index))
}

func (s *Shell) cmdCopy(con Console, args []string) error {
	_, msg, err := s.messageAt(args[0])
	if err != nil {
		return err
	}
	if err := s.copyText(msg.Content); err != nil {
		return fmt.Errorf("failed to copy to clipboard: %w", err)
	}
	con.Println(s.renderer.Notice(chattypes.NoticeSuccess, "Copied", "The message has been copied to the clipboard."))
	return nil
}

func (s *Shell) cmdClear(con Console, _ []string) error {
	confirmed := confirm(con, "Clear the conversation?")
	return s.ctrl.Apply(chat.DecideClear(confirmed))
}

func (s *Shell) cmdSessions(con Console, _ []string) error {
	infos, err := s.store.List()
	if err != nil {
		return err
	}
	con.Println(s.renderer.Sessions(infos))
	return nil
}

func (s *Shell) cmdUse(con Console, args []string) error {
	if err := s.ctrl.SwitchSession(args[0]); err != nil {
		return err
	}
	con.Println(s.renderer.Notice(chattypes.NoticeInfo, "Session", s.ctrl.SessionName()))
	con.Println(s.renderer.History(s.ctrl.History()))
	return nil
}

func (s *Shell) cmdNew(con Console, args []string) error {
	if len(args) == 0 {
		confirmed := confirm(con, "Start over? The default session will be emptied.")
		if err := s.ctrl.Apply(chat.DecideReset(confirmed)); err != nil {
			return err
		}
	} else if err := s.ctrl.NewSession(strings.Join(args, " ")); err != nil {
		return err
	}
	con.Println(s.renderer.Notice(chattypes.NoticeInfo, "Session", s.ctrl.SessionName()))
	return nil
}

func (s *Shell) cmdRename(con Console, args []string) error {
	if err := s.ctrl.Rename(strings.Join(args, " ")); err != nil {
		return err
	}
	con.Println(s.renderer.Notice(chattypes.NoticeSuccess, "Renamed", s.ctrl.SessionName()))
	return nil
}

func (s *Shell) cmdDrop(con Console, args []string) error {
	name := strings.Join(args, " ")
	confirmed := confirm(con, fmt.Sprintf("Delete session %q?", name))
	if err := s.ctrl.Apply(chat.DecideDeleteSession(confirmed, name)); err != nil {
		return err
	}
	if confirmed {
		con.Println(s.renderer.Notice(chattypes.NoticeInfo, "Session", s.ctrl.SessionName()))
	}
	return nil
}

func (s *Shell) cmdExport(con Console, args []string) error {
	blob, err := s.store.Export()
	if err != nil {
		return err
	}
	path := filepath.Join(s.workDir, s.store.ExportFileName())
	if len(args) > 0 {
		path = args[0]
	}
	if err := os.WriteFile(path, blob, 0600); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}
	con.Println(s.renderer.Notice(chattypes.NoticeSuccess, "Exported", path))
	return nil
}

func (s *Shell) cmdImport(con Console, args []string) error {
	blob, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read import file: %w", err)
	}
	confirmed := confirm(con, "Importing replaces every saved session. Continue?")
	if err := s.ctrl.Apply(chat.DecideImport(confirmed, blob)); err != nil {
		return err
	}
	if confirmed {
		con.Println(s.renderer.History(s.ctrl.History()))
	}
	return nil
}

func (s *Shell) cmdTranscript(con Console, args []string) error {
	format := "md"
	if len(args) > 0 {
		format = args[0]
	}
	path := ""
	if len(args) > 1 {
		path = args[1]
	}

	sess := chattypes.Session{Name: s.ctrl.SessionName(), History: s.ctrl.History()}
	written, err := transcript.WriteFile(sess, format, s.workDir, path)
	if err != nil {
		return err
	}
	con.Println(s.renderer.Notice(chattypes.NoticeSuccess, "Transcript", written))
	return nil
}

func (s *Shell) cmdModel(con Console, args []string) error {
	if len(args) > 0 {
		if err := s.store.SetModel(args[0]); err != nil {
			return err
		}
	}
	current := s.store.Model()
	for _, m := range chattypes.ModelCatalog {
		marker := " "
		if m.ID == current {
			marker = "*"
		}
		con.Printf("%s %-26s %s\n", marker, m.ID, m.DisplayName)
	}
	if !chattypes.IsKnownModel(current) {
		con.Printf("* %s\n", current)
	}
	return nil
}

func (s *Shell) cmdContext(con Console, args []string) error {
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid context length %q", args[0])
		}
		if err := s.store.SetContextLength(n); err != nil {
			return err
		}
	}
	con.Printf("Context length: %d (choices: %s)\n", s.store.ContextLength(), contextChoices())
	return nil
}

func contextChoices() string {
	parts := make([]string, 0, len(chattypes.ContextLengthChoices))
	for _, n := range chattypes.ContextLengthChoices {
		parts = append(parts, strconv.Itoa(n))
	}
	return strings.Join(parts, ", ")
}

func (s *Shell) cmdKey(con Console, args []string) error {
	if len(args) > 0 {
		key := args[0]
		if key == "-" {
			key = ""
		}
		if err := s.store.SetAPIKey(key); err != nil {
			return err
		}
	}
	key := s.store.APIKey()
	if key == "" {
		con.Println(s.renderer.Notice(chattypes.NoticeInfo, "API key", "not set"))
		return nil
	}
	con.Println(s.renderer.Notice(chattypes.NoticeInfo, "API key", config.MaskSecret(key)))
	return nil
}
