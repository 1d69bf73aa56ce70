package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/fatih/color"
)

// RunHandler renders run progress to a terminal. The final answer is
// rendered as markdown.
type RunHandler struct {
	mu       sync.Mutex
	out      io.Writer
	spinner  *spinner
	renderer *glamour.TermRenderer
	planned  int
}

// NewRunHandler creates a handler that writes to stdout with a spinner.
func NewRunHandler() *RunHandler {
	h := NewWriterHandler(os.Stdout)
	if !color.NoColor {
		h.spinner = newSpinner(os.Stdout)
	}
	return h
}

// NewWriterHandler creates a handler that writes plain progress lines to w.
func NewWriterHandler(w io.Writer) *RunHandler {
	renderer, _ := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	return &RunHandler{out: w, renderer: renderer}
}

func (h *RunHandler) Progress(text string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stopSpinner()
	subtleColor.Fprintf(h.out, "%s\n", text)
}

func (h *RunHandler) User(text string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	headerColor.Fprintf(h.out, "\n=== Request ===\n")
	userColor.Fprintf(h.out, "%s\n\n", text)
}

func (h *RunHandler) PlanningTask(id string, label string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.planned++
	fmt.Fprintf(h.out, "  %d. %s ", h.planned, truncate(label, 100))
	subtleColor.Fprintf(h.out, "[%s]\n", id)
}

func (h *RunHandler) UsingTool(name string, inputs string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	line := fmt.Sprintf("Calling %s", toolColor.Sprint(name))
	if inputs != "" {
		line += subtleColor.Sprintf(" (%s)", truncate(inputs, 80))
	}
	if h.spinner != nil {
		h.spinner.Start(line + "...")
		return
	}
	fmt.Fprintln(h.out, line)
}

func (h *RunHandler) ToolResult(name string, outputs string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stopSpinner()
	successColor.Fprint(h.out, "✓ ")
	fmt.Fprintf(h.out, "%s ", toolColor.Sprint(name))
	subtleColor.Fprintf(h.out, "%s\n", truncate(outputs, 200))
}

func (h *RunHandler) Error(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stopSpinner()
	failureColor.Fprintf(h.out, "✗ %v\n", err)
}

func (h *RunHandler) Response(text string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stopSpinner()

	rendered := text
	if h.renderer != nil {
		if out, err := h.renderer.Render(text); err == nil {
			rendered = out
		}
	}
	// Glamour adds leading/trailing newlines - trim them
	rendered = strings.TrimSpace(rendered)

	responseLabel.Fprintf(h.out, "\n=== Answer ===\n")
	fmt.Fprintf(h.out, "%s\n\n", rendered)
}

func (h *RunHandler) stopSpinner() {
	if h.spinner != nil {
		h.spinner.Stop()
	}
}

// spinner handles the loading animation
type spinner struct {
	out     io.Writer
	frames  []string
	stop    chan struct{}
	stopped chan struct{}
	mu      sync.Mutex
	running bool
}

func newSpinner(out io.Writer) *spinner {
	return &spinner{
		out:    out,
		frames: []string{"◐", "◓", "◑", "◒"},
	}
}

func (s *spinner) Start(message string) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.stop = make(chan struct{})
	s.stopped = make(chan struct{})
	s.mu.Unlock()

	go func() {
		defer close(s.stopped)
		i := 0
		for {
			select {
			case <-s.stop:
				fmt.Fprint(s.out, "\r\033[K") // Clear line
				return
			default:
				fmt.Fprintf(s.out, "\r%s %s", subtleColor.Sprint(s.frames[i%len(s.frames)]), message)
				i++
				time.Sleep(80 * time.Millisecond)
			}
		}
	}()
}

func (s *spinner) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	close(s.stop)
	<-s.stopped
}
