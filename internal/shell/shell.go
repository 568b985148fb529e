// Package shell provides the interactive chat REPL.
// Lines starting with a known command are dispatched through ishell; every
// other line is sent to the model exactly as typed.
package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"gemchat/internal/chat"
	"gemchat/internal/logger"
	"gemchat/internal/render"
	"gemchat/internal/session"
	"gemchat/internal/version"
	"gemchat/pkg/chattypes"

	"github.com/abiosoft/ishell/v2"
	"github.com/abiosoft/readline"
	"github.com/atotto/clipboard"
	"github.com/flynn-archive/go-shlex"
)

// Console is the part of an ishell context the commands need.
type Console interface {
	Println(val ...interface{})
	Printf(format string, val ...interface{})
	MultiChoice(options []string, text string) int
	// Busy shows a waiting indicator until the returned func is called.
	Busy(label string) func()
}

// Options configure a Shell.
type Options struct {
	Controller *chat.Controller
	Store      *session.Store
	Renderer   *render.Renderer

	// RequestTimeout bounds each completion. Zero means no limit.
	RequestTimeout time.Duration

	// CopyText writes to the system clipboard. Defaults to clipboard.WriteAll.
	CopyText func(string) error

	// WorkDir is where export and transcript files are written.
	WorkDir string
}

// Shell is the chat REPL.
type Shell struct {
	ctrl     *chat.Controller
	store    *session.Store
	renderer *render.Renderer
	timeout  time.Duration
	copyText func(string) error
	workDir  string
	commands []command
}

// New creates a Shell.
func New(opts Options) (*Shell, error) {
	if opts.Controller == nil || opts.Store == nil || opts.Renderer == nil {
		return nil, fmt.Errorf("shell requires a controller, a store and a renderer")
	}
	if opts.CopyText == nil {
		opts.CopyText = clipboard.WriteAll
	}
	if opts.WorkDir == "" {
		opts.WorkDir = "."
	}

	s := &Shell{
		ctrl:     opts.Controller,
		store:    opts.Store,
		renderer: opts.Renderer,
		timeout:  opts.RequestTimeout,
		copyText: opts.CopyText,
		workDir:  opts.WorkDir,
	}
	s.commands = s.buildCommands()
	return s, nil
}

// Install registers every command on sh and routes unknown input to the model.
func (s *Shell) Install(sh *ishell.Shell) {
	for _, cmd := range s.commands {
		cmd := cmd
		sh.AddCmd(&ishell.Cmd{
			Name:     cmd.name,
			Aliases:  cmd.aliases,
			Help:     cmd.help,
			LongHelp: cmd.usage,
			Func: func(c *ishell.Context) {
				s.runCommand(ishellConsole{c}, cmd, c.Args)
			},
		})
	}
	sh.NotFound(func(c *ishell.Context) {
		s.ProcessInput(ishellConsole{c}, strings.Join(c.RawArgs, " "))
	})
}

// isCommand reports whether word names a command, an alias or an ishell builtin.
func (s *Shell) isCommand(word string) bool {
	switch word {
	case "help", "exit", "quit":
		return true
	}
	for _, cmd := range s.commands {
		if cmd.name == word {
			return true
		}
		for _, alias := range cmd.aliases {
			if alias == word {
				return true
			}
		}
	}
	return false
}

// Dispatch handles one input line. Command lines are tokenized and passed to
// process; anything else goes to the model untouched. It returns true when the
// user asked to quit.
func (s *Shell) Dispatch(con Console, line string, process func(args ...string) error) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}
	if !s.isCommand(fields[0]) {
		s.ProcessInput(con, line)
		return false
	}
	if fields[0] == "exit" || fields[0] == "quit" {
		return true
	}

	args, err := shlex.Split(line)
	if err != nil {
		con.Println(s.renderer.Notice(chattypes.NoticeError, "Error", fmt.Sprintf("could not parse command: %v", err)))
		return false
	}
	if err := process(args...); err != nil {
		s.fail(con, err)
	}
	return false
}

// Run starts the REPL and blocks until the user exits.
func (s *Shell) Run() {
	sh := ishell.New()
	sh.SetPrompt("gemini> ")
	s.Install(sh)

	sh.Println(fmt.Sprintf("%s - chat with Gemini", version.GetFormattedVersion()))
	sh.Println("Type a message to send it, 'help' for commands or 'exit' to quit.")
	sh.Println(fmt.Sprintf("Session: %s", s.ctrl.SessionName()))
	if history := s.ctrl.History(); len(history) > 0 {
		sh.Print(s.renderer.History(history))
	}

	logger.Debug("Shell started", "session", s.ctrl.SessionName())
	defer sh.Close()
	con := ishellConsole{sh}
	for {
		line, err := sh.ReadLineErr()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if errors.Is(err, io.EOF) {
			return
		}
		if err != nil {
			logger.Error("Reading input failed", "error", err)
			return
		}
		if s.Dispatch(con, line, sh.Process) {
			return
		}
	}
}

func (s *Shell) completionContext() (context.Context, context.CancelFunc) {
	if s.timeout > 0 {
		return context.WithTimeout(context.Background(), s.timeout)
	}
	return context.WithCancel(context.Background())
}

// ishellActions is what both *ishell.Shell and *ishell.Context offer.
type ishellActions interface {
	Println(val ...interface{})
	Printf(format string, val ...interface{})
	MultiChoice(options []string, text string) int
	ProgressBar() ishell.ProgressBar
}

// ishellConsole adapts an ishell shell or context to Console.
type ishellConsole struct {
	ishellActions
}

func (c ishellConsole) Busy(label string) func() {
	bar := c.ProgressBar()
	bar.Indeterminate(true)
	bar.Prefix(label + " ")
	bar.Start()
	return func() {
		bar.Stop()
	}
}
