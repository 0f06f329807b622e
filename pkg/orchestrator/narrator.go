package orchestrator

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"golang.org/x/term"

	"github.com/liliang-cn/mcp-orchestrator/pkg/mcp"
)

const (
	ruleWidth    = 70
	defaultWidth = 100
)

var styles = struct {
	title   lipgloss.Style
	header  lipgloss.Style
	success lipgloss.Style
	error   lipgloss.Style
	warning lipgloss.Style
	dim     lipgloss.Style
	tool    lipgloss.Style
}{
	title:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86")),
	header:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("38")),
	success: lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
	error:   lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
	warning: lipgloss.NewStyle().Foreground(lipgloss.Color("226")),
	dim:     lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
	tool:    lipgloss.NewStyle().Foreground(lipgloss.Color("99")),
}

// Narrator prints the console narration of a run.
type Narrator struct {
	w     io.Writer
	color bool
	width int
}

// NewNarrator writes to w. Colour and width detection apply only when w is
// a terminal.
func NewNarrator(w io.Writer) *Narrator {
	n := &Narrator{w: w, width: defaultWidth}
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		n.color = true
		if width, _, err := term.GetSize(int(f.Fd())); err == nil && width > 0 {
			n.width = width
		}
	}
	return n
}

func (n *Narrator) render(style lipgloss.Style, s string) string {
	if !n.color {
		return s
	}
	return style.Render(s)
}

func (n *Narrator) printf(format string, args ...any) {
	fmt.Fprintf(n.w, format, args...)
}

// Rule prints a horizontal separator made of ch.
func (n *Narrator) Rule(ch string) {
	n.printf("%s\n", n.render(styles.dim, strings.Repeat(ch, ruleWidth)))
}

// Banner prints a framed title.
func (n *Narrator) Banner(title string, subtitle ...string) {
	n.Rule("=")
	n.printf("%s\n", n.render(styles.title, title))
	for _, s := range subtitle {
		n.printf("%s\n", n.render(styles.dim, s))
	}
	n.Rule("=")
	n.printf("\n")
}

// Section prints a step heading.
func (n *Narrator) Section(title string) {
	n.printf("\n%s\n", n.render(styles.header, title))
	n.Rule("=")
}

// Info prints a plain line.
func (n *Narrator) Info(format string, args ...any) {
	n.printf("%s\n", fmt.Sprintf(format, args...))
}

// Success prints a line marked as done.
func (n *Narrator) Success(format string, args ...any) {
	n.printf("%s\n", n.render(styles.success, "✓ "+fmt.Sprintf(format, args...)))
}

// Warn prints a warning line.
func (n *Narrator) Warn(format string, args ...any) {
	n.printf("%s\n", n.render(styles.warning, "! "+fmt.Sprintf(format, args...)))
}

// Fail prints a failure line.
func (n *Narrator) Fail(format string, args ...any) {
	n.printf("%s\n", n.render(styles.error, "✗ "+fmt.Sprintf(format, args...)))
}

// Block prints text under a sub-heading between rules.
func (n *Narrator) Block(heading, text string) {
	n.printf("\n%s\n", n.render(styles.header, heading))
	n.Rule("-")
	n.printf("%s\n", strings.TrimRight(text, "\n"))
}

// Tools prints a numbered tool listing for one endpoint. Descriptions are
// cut to a single line that fits the terminal.
func (n *Narrator) Tools(endpoint string, tools []mcp.Tool) {
	n.printf("%s\n", n.render(styles.header, fmt.Sprintf("%s server (%d tools):", strings.ToUpper(endpoint), len(tools))))
	for i, t := range tools {
		prefix := fmt.Sprintf("   %d. %s: ", i+1, t.Name)
		desc := firstLine(t.Description)
		if avail := n.width - runewidth.StringWidth(prefix); avail > 10 {
			desc = runewidth.Truncate(desc, avail, "…")
		}
		n.printf("   %d. %s: %s\n", i+1, n.render(styles.tool, t.Name), desc)
	}
	n.printf("\n")
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return s
}
