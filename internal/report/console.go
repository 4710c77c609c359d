package report

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"

	"wasmut.dev/pkg/wasmut/internal/result"
)

var (
	killedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))  // green
	aliveStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))  // red
	timeoutStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))  // yellow
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))  // yellow
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))  // dim gray, matches the TUI's zero-value dimming
	scoreStyle   = lipgloss.NewStyle().Bold(true)
)

func outcomeLabel(o result.Outcome) string {
	switch o {
	case result.Killed:
		return killedStyle.Render("KILLED")
	case result.Alive:
		return aliveStyle.Render("ALIVE")
	case result.Timeout:
		return timeoutStyle.Render("TIMEOUT")
	case result.ErrorOutcome:
		return errorStyle.Render("ERROR")
	default:
		return string(o)
	}
}

// ConsoleReporter writes the plain-text summary: one line per executed
// (non-Skipped) mutant, then outcome counters and the mutation score.
type ConsoleReporter struct {
	w        io.Writer
	rewriter *PathRewriter
}

func NewConsoleReporter(w io.Writer, rewriter *PathRewriter) *ConsoleReporter {
	return &ConsoleReporter{w: w, rewriter: rewriter}
}

// Report writes every non-Skipped entry (sorted by candidate id) followed
// by the summary, matching the deterministic report-order invariant.
func (c *ConsoleReporter) Report(entries []result.Entry) error {
	for _, e := range SortedByID(entries) {
		if e.Outcome == result.Skipped {
			continue
		}
		if err := c.printEntry(e); err != nil {
			return fmt.Errorf("report: write console entry: %w", err)
		}
	}
	return c.printSummary(entries)
}

func (c *ConsoleReporter) printEntry(e result.Entry) error {
	cand := e.Candidate
	location := ""
	path := c.rewriter.Rewrite(cand.File)
	if cand.File != "" {
		location = fmt.Sprintf("%s:%d:%d", path, cand.Line, cand.Column)
	} else if cand.Function != "" {
		location = cand.Function
	}

	if _, err := fmt.Fprintf(c.w, "%s\n%s: %s\n", location, outcomeLabel(e.Outcome), cand.Description); err != nil {
		return err
	}

	if cand.File != "" {
		if line, ok := sourceLine(path, cand.Line); ok {
			fmt.Fprintf(c.w, "%s\n", dimStyle.Render(line))
			if cand.Column > 0 {
				fmt.Fprintf(c.w, "%s^\n", spaces(cand.Column))
			}
		}
	}
	_, err := fmt.Fprintln(c.w)
	return err
}

func (c *ConsoleReporter) printSummary(entries []result.Entry) error {
	sc := scoreOf(entries)

	if _, err := fmt.Fprintln(c.w); err != nil {
		return err
	}
	rows := []struct {
		label string
		n     int
	}{
		{"Alive", sc.Alive},
		{"Timeout", sc.Timeout},
		{"Error", sc.Error},
		{"Killed", sc.Killed},
		{"Skipped", sc.Skipped},
	}
	for _, r := range rows {
		if _, err := fmt.Fprintf(c.w, "%30s: %d\n", r.label, r.n); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(c.w, "%30s: %s\n", "Mutation score", scoreStyle.Render(fmt.Sprintf("%.1f%%", sc.Percent)))
	return err
}

func spaces(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = ' '
	}
	return string(b)
}

// sourceLine returns the 1-indexed lineNr of file, or ok=false if the file
// or that line can't be read (a source file moved since the compile, a
// debug-info line number past EOF).
func sourceLine(file string, lineNr int) (string, bool) {
	f, err := os.Open(file)
	if err != nil {
		return "", false
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	n := 0
	for scanner.Scan() {
		n++
		if n == lineNr {
			return scanner.Text(), true
		}
	}
	return "", false
}
