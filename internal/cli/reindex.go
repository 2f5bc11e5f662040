package cli

import (
	"context"
	"fmt"
	"time"

	"charm.land/bubbles/v2/progress"
	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/ashahq/sessionscout/internal/index"
)

const pollInterval = 200 * time.Millisecond

// Theme holds the color scheme for the progress display.
type Theme struct {
	Status  lipgloss.Color
	Success lipgloss.Color
	Error   lipgloss.Color
	Hint    lipgloss.Color
}

var defaultTheme = Theme{
	Status:  lipgloss.Color("#5FAFD7"), // light blue
	Success: lipgloss.Color("#00D787"), // green
	Error:   lipgloss.Color("#FF005F"), // red
	Hint:    lipgloss.Color("#6C6C6C"), // dim gray
}

func (t Theme) statusStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Status)
}

func (t Theme) completedStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Success).Bold(true)
}

func (t Theme) errorStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Error).Bold(true)
}

func (t Theme) hintStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Hint).Italic(true)
}

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Rebuild the semantic session index",
	Long: `Reload the session corpus and rebuild the embedding index. Unchanged
corpora are detected by content hash and skipped.`,
	Run: func(cmd *cobra.Command, args []string) {
		if vecIndex == nil {
			exitWithError("no embedding backend configured, nothing to index")
		}
		if err := runReindexProgress(context.Background()); err != nil {
			exitWithError("reindex failed: %v", err)
		}
	},
}

// tickMsg triggers polling the index status.
type tickMsg time.Time

// buildDoneMsg carries the build outcome.
type buildDoneMsg struct{ err error }

// reindexModel is the bubbletea model for the index build.
type reindexModel struct {
	status   index.Status
	progress progress.Model
	theme    Theme
	done     bool
	quitting bool
	err      error
}

func newReindexModel() reindexModel {
	prog := progress.New(
		progress.WithDefaultBlend(),
		progress.WithWidth(40),
	)
	return reindexModel{
		progress: prog,
		theme:    defaultTheme,
	}
}

// Init returns the initial command (start polling).
func (m reindexModel) Init() tea.Cmd {
	return tea.Batch(
		tickCmd(),
		m.progress.Init(),
	)
}

// Update handles messages and returns the updated model.
func (m reindexModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyPressMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.quitting = true
			return m, tea.Quit
		}

	case tickMsg:
		m.status = vecIndex.Status()
		return m, tickCmd()

	case buildDoneMsg:
		m.done = true
		m.err = msg.err
		m.status = vecIndex.Status()
		return m, tea.Quit

	case progress.FrameMsg:
		var cmd tea.Cmd
		m.progress, cmd = m.progress.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View renders the progress display.
func (m reindexModel) View() tea.View {
	return tea.NewView(m.renderContent())
}

func (m reindexModel) renderContent() string {
	if m.done || m.quitting {
		return m.finalView()
	}

	var pct float64
	if m.status.BatchTotal > 0 {
		pct = float64(m.status.BatchesDone) / float64(m.status.BatchTotal)
	}

	status := m.theme.statusStyle().Render("[indexing]")
	progressBar := m.progress.ViewAs(pct)
	counts := fmt.Sprintf("%d/%d batches", m.status.BatchesDone, m.status.BatchTotal)
	hint := m.theme.hintStyle().Render("Press Ctrl+C to cancel")

	return fmt.Sprintf("%s %s %s\n%s\n", status, progressBar, counts, hint)
}

func (m reindexModel) finalView() string {
	if m.quitting {
		return m.theme.hintStyle().Render("\nReindex cancelled.\n")
	}
	if m.err != nil {
		return m.theme.errorStyle().Render(fmt.Sprintf("\n✗ Reindex failed: %s\n", m.err))
	}
	return m.theme.completedStyle().Render(
		fmt.Sprintf("✓ Indexed %d sessions\n", m.status.Size))
}

func tickCmd() tea.Cmd {
	return tea.Tick(pollInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// runReindexProgress rebuilds the index while showing batch progress.
func runReindexProgress(ctx context.Context) error {
	buildCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(newReindexModel())

	go func() {
		p.Send(buildDoneMsg{err: assistant.Rebuild(buildCtx)})
	}()

	finalModel, err := p.Run()
	if err != nil {
		return fmt.Errorf("progress UI error: %w", err)
	}

	if m, ok := finalModel.(reindexModel); ok {
		if m.quitting {
			return nil
		}
		return m.err
	}
	return nil
}
