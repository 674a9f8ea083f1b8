package cli

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
)

// ThinkingIndicator animates a spinner on stderr while the model is silent.
// Stop is idempotent so the session can clear it on the first token without
// tracking whether it already did.
type ThinkingIndicator struct {
	out  io.Writer
	mu   sync.Mutex
	stop chan struct{}
}

// NewThinkingIndicator builds an indicator writing to stderr.
func NewThinkingIndicator() *ThinkingIndicator {
	return &ThinkingIndicator{out: os.Stderr}
}

// Start begins animating. No-op if already running.
func (t *ThinkingIndicator) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stop != nil {
		return
	}
	t.stop = make(chan struct{})
	go t.spin(t.stop)
}

// Stop halts the animation and erases the spinner line.
func (t *ThinkingIndicator) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stop == nil {
		return
	}
	close(t.stop)
	t.stop = nil
	fmt.Fprint(t.out, "\r\033[K")
}

func (t *ThinkingIndicator) spin(stop chan struct{}) {
	frames := spinner.Dot.Frames
	ticker := time.NewTicker(spinner.Dot.FPS)
	defer ticker.Stop()

	i := 0
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			fmt.Fprintf(t.out, "\r%s %s", frames[i%len(frames)], dimStyle.Render("thinking..."))
			i++
		}
	}
}
