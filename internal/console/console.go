package console

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/practice-sem-2/chat-client/internal/models"
	usecase "github.com/practice-sem-2/chat-client/internal/usecases"
)

type styles struct {
	author   lipgloss.Style
	own      lipgloss.Style
	meta     lipgloss.Style
	hint     lipgloss.Style
	editing  lipgloss.Style
	header   lipgloss.Style
	notices  map[models.NoticeLevel]lipgloss.Style
	disabled lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) styles {
	return styles{
		author:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("75")),
		own:      r.NewStyle().Bold(true).Foreground(lipgloss.Color("114")),
		meta:     r.NewStyle().Foreground(lipgloss.Color("242")),
		hint:     r.NewStyle().Foreground(lipgloss.Color("245")).Italic(true),
		editing:  r.NewStyle().Foreground(lipgloss.Color("220")),
		header:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("231")).Background(lipgloss.Color("24")).Padding(0, 1),
		disabled: r.NewStyle().Foreground(lipgloss.Color("241")).Strikethrough(true),
		notices: map[models.NoticeLevel]lipgloss.Style{
			models.NoticeSuccess: r.NewStyle().Foreground(lipgloss.Color("42")),
			models.NoticeWarning: r.NewStyle().Foreground(lipgloss.Color("214")),
			models.NoticeDanger:  r.NewStyle().Bold(true).Foreground(lipgloss.Color("196")),
		},
	}
}

// Console renders a conversation as lines on a terminal. Rendering is called
// from the sync goroutines as well as from the command loop.
type Console struct {
	mu     sync.Mutex
	out    io.Writer
	in     *bufio.Scanner
	lines  chan string
	start  sync.Once
	done   chan struct{}
	stop   sync.Once
	viewer string
	title  string
	st     styles

	busy     bool
	disabled bool
}

func New(in io.Reader, out io.Writer, viewer, title string) *Console {
	return &Console{
		out:    out,
		in:     bufio.NewScanner(in),
		done:   make(chan struct{}),
		viewer: viewer,
		title:  title,
		st:     newStyles(lipgloss.NewRenderer(out)),
	}
}

// Lines streams input lines. A single goroutine owns the scanner so that
// confirmations and commands share one ordered stream.
func (c *Console) Lines() <-chan string {
	c.start.Do(func() {
		c.lines = make(chan string)
		go func() {
			defer close(c.lines)
			for c.in.Scan() {
				select {
				case c.lines <- c.in.Text():
				case <-c.done:
					return
				}
			}
		}()
	})
	return c.lines
}

// Close stops delivering input lines. A read already blocked on the
// underlying reader ends with it.
func (c *Console) Close() {
	c.stop.Do(func() {
		close(c.done)
	})
}

// ReadLine returns the next input line; ok is false once input is exhausted.
func (c *Console) ReadLine() (string, bool) {
	line, ok := <-c.Lines()
	return line, ok
}

func (c *Console) println(lines ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, l := range lines {
		_, _ = fmt.Fprintln(c.out, l)
	}
}

func (c *Console) RenderMessages(entries []usecase.Entry) {
	lines := make([]string, 0, len(entries)+1)
	lines = append(lines, c.st.header.Render(fmt.Sprintf("%s (%d messages)", c.title, len(entries))))
	for _, e := range entries {
		lines = append(lines, c.formatEntry(e))
	}
	c.println(lines...)
}

func (c *Console) AppendMessage(entry usecase.Entry) {
	c.println(c.formatEntry(entry))
}

func (c *Console) RemoveMessage(messageID int64) {
	c.println(c.st.meta.Render(fmt.Sprintf("#%d removed", messageID)))
}

func (c *Console) OpenEditor(messageID int64, draft string) {
	c.println(
		c.st.editing.Render(fmt.Sprintf("editing #%d: %s", messageID, Clean(draft))),
		c.st.hint.Render("type the new text and press enter, or /cancel"),
	)
}

func (c *Console) CloseEditor(messageID int64, display string) {
	c.println(c.st.meta.Render(fmt.Sprintf("#%d", messageID)) + " " + Clean(display))
}

func (c *Console) Notify(notice models.Notice) {
	style, ok := c.st.notices[notice.Level]
	if !ok {
		style = c.st.meta
	}
	c.println(style.Render(fmt.Sprintf("[%s] %s", notice.Level, Clean(notice.Text))))
}

func (c *Console) SetSendBusy(busy bool) {
	c.mu.Lock()
	c.busy = busy
	c.mu.Unlock()
}

func (c *Console) DisableSend() {
	c.mu.Lock()
	c.disabled = true
	c.mu.Unlock()
	c.println(c.st.disabled.Render("sending is disabled"))
}

// SendState reports whether a send is running and whether sending was disabled.
func (c *Console) SendState() (busy, disabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busy, c.disabled
}

func (c *Console) Confirm(prompt string) bool {
	c.println(c.st.editing.Render(prompt + " [y/N]"))
	line, ok := c.ReadLine()
	if !ok {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}

func (c *Console) RenderRoster(entries []models.RosterEntry) {
	lines := make([]string, 0, len(entries)+1)
	lines = append(lines, c.st.header.Render(fmt.Sprintf("members (%d)", len(entries))))
	for _, e := range entries {
		lines = append(lines, RosterLine(e))
	}
	c.println(lines...)
}

func (c *Console) RenderActions(menu models.ActionMenu) {
	actions := MenuCommands(menu)
	if len(actions) == 0 {
		c.println(c.st.hint.Render(fmt.Sprintf("no actions for %s", Clean(menu.Username))))
		return
	}
	c.println(c.st.hint.Render(fmt.Sprintf("%s: %s", Clean(menu.Username), strings.Join(actions, " "))))
}

func (c *Console) formatEntry(e usecase.Entry) string {
	m := e.Message
	author := c.st.author
	if c.viewer != "" && m.Author == c.viewer {
		author = c.st.own
	}

	var b strings.Builder
	b.WriteString(c.st.meta.Render(fmt.Sprintf("#%d %s", m.ID, Clean(m.SentAt))))
	b.WriteString(" ")
	b.WriteString(author.Render(Clean(m.Author)))
	b.WriteString(": ")
	b.WriteString(Clean(m.Body))
	if a, ok := m.Attachment(); ok {
		if m.Body != "" {
			b.WriteString(" ")
		}
		b.WriteString(AttachmentLabel(a))
	}
	if hints := EntryCommands(e); len(hints) > 0 {
		b.WriteString(" ")
		b.WriteString(c.st.hint.Render("(" + strings.Join(hints, ", ") + ")"))
	}
	return b.String()
}
