package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

var spinnerFrames = [...]string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

const spinnerInterval = 80 * time.Millisecond

// spinner animates a progress message on stderr while a slow step runs.
// It stops on Stop or when its context is done.
type spinner struct {
	w    io.Writer
	msg  string
	stop chan struct{}
	done chan struct{}
	once sync.Once
}

// startSpinner starts a spinner on stderr. Nothing is drawn when stderr is
// not a terminal, so redirected logs of a serve process stay clean.
func startSpinner(ctx context.Context, msg string) *spinner {
	var w io.Writer
	if isatty.IsTerminal(os.Stderr.Fd()) {
		w = os.Stderr
	}
	return spinTo(ctx, w, msg)
}

// spinTo starts a spinner drawing to w. A nil w draws nothing.
func spinTo(ctx context.Context, w io.Writer, msg string) *spinner {
	s := &spinner{w: w, msg: msg, stop: make(chan struct{}), done: make(chan struct{})}
	go s.run(ctx)
	return s
}

func (s *spinner) run(ctx context.Context) {
	defer close(s.done)
	t := time.NewTicker(spinnerInterval)
	defer t.Stop()
	for i := 0; ; i++ {
		select {
		case <-t.C:
			s.draw(spinnerFrames[i%len(spinnerFrames)])
			continue
		case <-ctx.Done():
		case <-s.stop:
		}
		s.draw("")
		return
	}
}

// draw renders frame, or clears the line when frame is empty.
func (s *spinner) draw(frame string) {
	if s.w == nil {
		return
	}
	if frame == "" {
		fmt.Fprintf(s.w, "\r%s\r", strings.Repeat(" ", lipgloss.Width(s.msg)+2))
		return
	}
	fmt.Fprintf(s.w, "\r%s %s", styleSpinner.Render(frame), StyleDim.Render(s.msg))
}

// Stop clears the line and waits for the animation to end. Calling it more
// than once is fine.
func (s *spinner) Stop() {
	s.once.Do(func() { close(s.stop) })
	<-s.done
}

// Fail stops the spinner and reports msg as a failure.
func (s *spinner) Fail(st status, msg string) {
	s.Stop()
	st.fail("%s", msg)
}
