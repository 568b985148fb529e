package shell

import (
	"fmt"
	"io"
	"sync"

	"gemchat/internal/render"
	"gemchat/pkg/chattypes"
)

// Notifier prints controller notices to a terminal.
type Notifier struct {
	mu       sync.Mutex
	out      io.Writer
	renderer *render.Renderer
}

// NewNotifier writes rendered notices to out.
func NewNotifier(out io.Writer, renderer *render.Renderer) *Notifier {
	return &Notifier{out: out, renderer: renderer}
}

// Notify implements chattypes.Notifier.
func (n *Notifier) Notify(level chattypes.NoticeLevel, title, text string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	_, _ = fmt.Fprintln(n.out, n.renderer.Notice(level, title, text))
}
