package cli

import (
	"context"
	"fmt"
	"strings"

	"charm.land/bubbles/v2/progress"
	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/lipgloss"

	"github.com/danja/semem-sub000/internal/search"
)

// Theme holds the color scheme for interactive output.
type Theme struct {
	Status     lipgloss.Color
	Success    lipgloss.Color
	Error      lipgloss.Color
	Hint       lipgloss.Color
	ProgressBg lipgloss.Color
}

// defaultTheme provides default colors.
var defaultTheme = Theme{
	Status:     lipgloss.Color("#5FAFD7"), // light blue
	Success:    lipgloss.Color("#00D787"), // green
	Error:      lipgloss.Color("#FF005F"), // red
	Hint:       lipgloss.Color("#6C6C6C"), // dim gray
	ProgressBg: lipgloss.Color("#3A3A3A"), // dark gray
}

// Style functions for dynamic theming
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

// passMsg carries one completed relaxation pass.
type passMsg search.PassRecord

// searchDoneMsg carries the finished outcome.
type searchDoneMsg struct {
	outcome search.SearchOutcome
	err     error
}

// searchModel is the bubbletea model for live search progress.
type searchModel struct {
	cancel    context.CancelFunc
	maxPasses int
	passes    []search.PassRecord
	progress  progress.Model
	theme     Theme
	outcome   search.SearchOutcome
	err       error
	done      bool
	quitting  bool
}

// newSearchModel creates a progress model for at most maxPasses passes.
func newSearchModel(cancel context.CancelFunc, maxPasses int) searchModel {
	// Create progress bar with color blend
	prog := progress.New(
		progress.WithDefaultBlend(),
		progress.WithWidth(40),
	)
	if maxPasses < 1 {
		maxPasses = 1
	}

	return searchModel{
		cancel:    cancel,
		maxPasses: maxPasses,
		progress:  prog,
		theme:     defaultTheme,
	}
}

// Init returns the initial command.
func (m searchModel) Init() tea.Cmd {
	return m.progress.Init()
}

// Update handles messages and returns the updated model.
func (m searchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyPressMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			// Cancel the search; the engine reports a canceled outcome
			// which arrives as searchDoneMsg and quits the program.
			m.quitting = true
			m.cancel()
			return m, nil
		}

	case passMsg:
		m.passes = append(m.passes, search.PassRecord(msg))
		return m, nil

	case searchDoneMsg:
		m.outcome = msg.outcome
		m.err = msg.err
		m.done = true
		return m, tea.Quit

	case progress.FrameMsg:
		// Update progress bar animation
		var cmd tea.Cmd
		m.progress, cmd = m.progress.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View renders the progress display.
func (m searchModel) View() tea.View {
	return tea.NewView(m.renderContent())
}

// renderContent builds the display string. The final result list is
// printed by the command after the program exits, so the done state
// renders nothing.
func (m searchModel) renderContent() string {
	if m.done {
		return ""
	}

	var b strings.Builder
	for _, p := range m.passes {
		line := fmt.Sprintf("pass %d/%d  threshold %.3f  found %d  kept %d",
			p.Pass, m.maxPasses, p.Threshold, p.Found, p.Kept)
		b.WriteString(m.theme.statusStyle().Render(line))
		b.WriteByte('\n')
	}

	pct := float64(len(m.passes)) / float64(m.maxPasses)
	if pct > 1 {
		pct = 1
	}
	b.WriteString(m.progress.ViewAs(pct))
	b.WriteByte('\n')

	if m.quitting {
		b.WriteString(m.theme.hintStyle().Render("Canceling..."))
	} else {
		b.WriteString(m.theme.hintStyle().Render("Searching... press Ctrl+C to cancel"))
	}
	b.WriteByte('\n')
	return b.String()
}

// runQueryProgress renders pass progress while exec runs in the
// background and returns the outcome once the engine finishes. cancel
// is invoked when the user interrupts; exec is expected to observe the
// canceled context and return promptly.
func runQueryProgress(cancel context.CancelFunc, maxPasses int, exec func(onPass func(search.PassRecord)) (search.SearchOutcome, error)) (search.SearchOutcome, error) {
	p := tea.NewProgram(newSearchModel(cancel, maxPasses))

	go func() {
		outcome, err := exec(func(rec search.PassRecord) {
			p.Send(passMsg(rec))
		})
		p.Send(searchDoneMsg{outcome: outcome, err: err})
	}()

	final, err := p.Run()
	if err != nil {
		return search.SearchOutcome{}, fmt.Errorf("progress UI error: %w", err)
	}

	m, ok := final.(searchModel)
	if !ok {
		return search.SearchOutcome{}, fmt.Errorf("unexpected progress model type %T", final)
	}
	return m.outcome, m.err
}
