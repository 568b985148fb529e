package shell

import (
	"errors"
	"strings"

	"gemchat/internal/chat"
	"gemchat/internal/logger"
	"gemchat/internal/session"
	"gemchat/pkg/chattypes"
)

// ProcessInput sends a line to the model as typed and prints the reply.
func (s *Shell) ProcessInput(con Console, line string) {
	if strings.TrimSpace(line) == "" {
		return
	}
	s.send(con, line, false)
}

func (s *Shell) send(con Console, content string, resend bool) {
	ctx, cancel := s.completionContext()
	defer cancel()

	stop := con.Busy("Waiting for Gemini")
	var (
		reply chattypes.Message
		err   error
	)
	if resend {
		reply, err = s.ctrl.Resend(ctx, content)
	} else {
		reply, err = s.ctrl.Submit(ctx, content)
	}
	stop()

	if err != nil {
		s.fail(con, err)
		return
	}
	con.Println(s.renderer.Message(len(s.ctrl.History())-1, reply))
}

func (s *Shell) runCommand(con Console, cmd command, args []string) {
	if len(args) < cmd.minArgs {
		con.Println(s.renderer.Notice(chattypes.NoticeInfo, "Usage", cmd.usage))
		return
	}
	if err := cmd.run(con, args); err != nil {
		s.fail(con, err)
	}
}

// fail prints err unless the controller already surfaced it as a notice.
func (s *Shell) fail(con Console, err error) {
	if chat.Notified(err) {
		logger.Debug("Error already reported", "error", err)
		return
	}
	if errors.Is(err, session.ErrNothingToExport) {
		con.Println(s.renderer.Notice(chattypes.NoticeInfo, "Nothing to export", "There is no saved chat history yet."))
		return
	}
	logger.Debug("Command failed", "error", err)
	con.Println(s.renderer.Notice(chattypes.NoticeError, "Error", err.Error()))
}

// confirm asks a yes/no question; only an explicit yes counts.
func confirm(con Console, question string) bool {
	return con.MultiChoice([]string{"Yes", "No"}, question) == 0
}
