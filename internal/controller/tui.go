package controller

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"wasmut.dev/pkg/wasmut/internal/discovery"
	"wasmut.dev/pkg/wasmut/internal/result"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	dimLabel    = lipgloss.NewStyle().Foreground(lipgloss.Color("8")) // faint ANSI gray
	killedLabel = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	aliveLabel  = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
)

// TUI implements UI with a Bubble Tea progress bar for an interactive
// terminal: a single running bar plus live outcome counters, since
// internal/engine has no per-mutant hook to narrate individual starts
// and completions.
type TUI struct {
	output  io.Writer
	program *tea.Program
	done    chan struct{}
}

// NewTUI creates a TUI writing to output.
func NewTUI(output io.Writer) *TUI {
	return &TUI{output: output}
}

func (t *TUI) Start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m := newProgressModel()
	t.program = tea.NewProgram(m, tea.WithOutput(t.output), tea.WithContext(ctx))
	t.done = make(chan struct{})
	go func() {
		defer close(t.done)
		_, _ = t.program.Run()
	}()
	return nil
}

func (t *TUI) Close(ctx context.Context) {
	if t.program != nil {
		t.program.Send(quitMsg{})
	}
}

func (t *TUI) Wait(ctx context.Context) {
	if t.done == nil {
		return
	}
	select {
	case <-t.done:
	case <-ctx.Done():
	}
}

func (t *TUI) DisplayDiscovery(ctx context.Context, candidates []discovery.Candidate) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if t.program != nil {
		t.program.Send(discoveryMsg{stats: fileStatsFromCandidates(candidates), total: len(candidates)})
	}
	return nil
}

func (t *TUI) DisplayProgress(ctx context.Context, completed, total int) {
	if ctx.Err() != nil || t.program == nil {
		return
	}
	t.program.Send(progressMsg{completed: completed, total: total})
}

func (t *TUI) DisplayScore(ctx context.Context, score result.Score) {
	if ctx.Err() != nil || t.program == nil {
		return
	}
	t.program.Send(scoreMsg{score: score})
}

type discoveryMsg struct {
	stats []FileStat
	total int
}

type progressMsg struct {
	completed, total int
}

type scoreMsg struct {
	score result.Score
}

type quitMsg struct{}

// progressModel is the Bubble Tea model backing TUI: a single progress
// bar plus the discovered file list and, once available, the final score.
type progressModel struct {
	bar       progress.Model
	stats     []FileStat
	total     int
	completed int
	score     *result.Score
	width     int
	quitting  bool
}

func newProgressModel() progressModel {
	return progressModel{bar: progress.New(progress.WithDefaultGradient())}
}

func (m progressModel) Init() tea.Cmd {
	return nil
}

func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.bar.Width = msg.Width - 4
		if m.bar.Width < 10 {
			m.bar.Width = 10
		}
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		}
		return m, nil

	case discoveryMsg:
		m.stats = msg.stats
		m.total = msg.total
		return m, nil

	case progressMsg:
		m.completed = msg.completed
		m.total = msg.total
		return m, nil

	case scoreMsg:
		m.score = &msg.score
		return m, tea.Quit

	case quitMsg:
		m.quitting = true
		return m, tea.Quit
	}
	return m, nil
}

func (m progressModel) View() string {
	var b strings.Builder

	b.WriteString(headerStyle.Render("wasmut"))
	b.WriteString("\n\n")

	if len(m.stats) > 0 && m.score == nil {
		fmt.Fprintf(&b, "%d candidate(s) across %d file(s)\n\n", m.total, len(m.stats))
	}

	percent := 0.0
	if m.total > 0 {
		percent = float64(m.completed) / float64(m.total)
	}
	b.WriteString(m.bar.ViewAs(percent))
	fmt.Fprintf(&b, "  %d/%d\n", m.completed, m.total)

	if m.score != nil {
		b.WriteString("\n")
		fmt.Fprintf(&b, "%s %d  %s %d  timeout %d  error %d  skipped %d\n",
			killedLabel.Render("killed"), m.score.Killed,
			aliveLabel.Render("alive"), m.score.Alive,
			m.score.Timeout, m.score.Error, m.score.Skipped)
		fmt.Fprintf(&b, "mutation score: %s\n", headerStyle.Render(fmt.Sprintf("%.1f%%", m.score.Percent)))
	} else if m.total == 0 {
		b.WriteString(dimLabel.Render("discovering candidates...") + "\n")
	}

	if !m.quitting && m.score == nil {
		b.WriteString(dimLabel.Render("\nq: quit\n"))
	}

	return b.String()
}
