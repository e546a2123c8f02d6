// Package tui is the interactive terminal picker: choose a race, choose a
// candidate, render the report and show where it was written.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/seenimoa/votereport/internal/dataset"
	"github.com/seenimoa/votereport/internal/report"
	"github.com/seenimoa/votereport/internal/tally"
	"github.com/seenimoa/votereport/pkg/models"
	"github.com/seenimoa/votereport/pkg/utils"
)

type step int

const (
	stepRaces step = iota
	stepCandidates
	stepRendering
	stepDone
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	boxStyle     = lipgloss.NewStyle().Padding(1, 2)
)

// raceItem adapts a loaded race to list.Item.
type raceItem struct {
	race       models.Race
	candidates int
}

func (i raceItem) Title() string { return i.race.Key }
func (i raceItem) Description() string {
	return fmt.Sprintf("%d candidates · %s records", i.candidates, utils.FormatVotes(len(i.race.Records)))
}
func (i raceItem) FilterValue() string { return i.race.Key }

// candidateItem adapts a candidate name to list.Item.
type candidateItem string

func (i candidateItem) Title() string       { return string(i) }
func (i candidateItem) Description() string { return "" }
func (i candidateItem) FilterValue() string { return string(i) }

// renderedMsg carries the outcome of a render back to Update.
type renderedMsg struct {
	path    string
	doc     *report.Document
	elapsed time.Duration
	err     error
}

// Model is the picker state machine.
type Model struct {
	cache  *dataset.Cache
	cfg    report.ReportConfig
	outDir string
	logger *zap.Logger

	step       step
	races      list.Model
	candidates list.Model
	spinner    spinner.Model

	race      models.Race
	candidate string
	result    renderedMsg

	width, height int
}

// New builds the picker over the cache's current snapshot.
func New(cache *dataset.Cache, cfg report.ReportConfig, outDir string, logger *zap.Logger) Model {
	if logger == nil {
		logger = zap.NewNop()
	}

	items := make([]list.Item, 0)
	for _, r := range cache.Races() {
		items = append(items, raceItem{race: r, candidates: len(tally.Candidates(r.Records))})
	}

	races := newList("Select a race", items)
	races.SetFilteringEnabled(false)

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return Model{
		cache:      cache,
		cfg:        cfg,
		outDir:     outDir,
		logger:     logger,
		step:       stepRaces,
		races:      races,
		candidates: newList("Select a candidate", nil),
		spinner:    sp,
		width:      80,
		height:     24,
	}
}

func newList(title string, items []list.Item) list.Model {
	d := list.NewDefaultDelegate()
	d.ShowDescription = title == "Select a race"
	l := list.New(items, d, 80, 20)
	l.Title = title
	l.SetShowHelp(true)
	l.SetShowStatusBar(true)
	l.Styles.Title = titleStyle
	return l
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.races.SetSize(msg.Width, msg.Height-4)
		m.candidates.SetSize(msg.Width, msg.Height-4)
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		if m.filtering() {
			break
		}
		switch msg.String() {
		case "q":
			if m.step != stepRendering {
				return m, tea.Quit
			}
		case "esc":
			switch m.step {
			case stepCandidates:
				m.step = stepRaces
				return m, nil
			case stepDone:
				m.step = stepCandidates
				return m, nil
			}
		case "enter":
			return m.choose()
		}

	case spinner.TickMsg:
		if m.step == stepRendering {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil

	case renderedMsg:
		m.result = msg
		m.step = stepDone
		return m, nil
	}

	var cmd tea.Cmd
	switch m.step {
	case stepRaces:
		m.races, cmd = m.races.Update(msg)
	case stepCandidates:
		m.candidates, cmd = m.candidates.Update(msg)
	}
	return m, cmd
}

func (m Model) filtering() bool {
	return m.step == stepCandidates && m.candidates.FilterState() == list.Filtering
}

// choose advances on Enter.
func (m Model) choose() (tea.Model, tea.Cmd) {
	switch m.step {
	case stepRaces:
		it, ok := m.races.SelectedItem().(raceItem)
		if !ok {
			return m, nil
		}
		m.race = it.race
		names := tally.Candidates(it.race.Records)
		items := make([]list.Item, len(names))
		for i, n := range names {
			items[i] = candidateItem(n)
		}
		m.candidates = newList(fmt.Sprintf("%s: select a candidate", it.race.Key), items)
		m.candidates.SetSize(m.width, m.height-4)
		m.step = stepCandidates
		return m, nil

	case stepCandidates:
		it, ok := m.candidates.SelectedItem().(candidateItem)
		if !ok {
			return m, nil
		}
		m.candidate = string(it)
		m.step = stepRendering
		return m, tea.Batch(m.spinner.Tick, m.render(m.race, m.candidate))

	case stepDone:
		return m, tea.Quit
	}
	return m, nil
}

// render composes and writes the report off the UI goroutine.
func (m Model) render(race models.Race, candidate string) tea.Cmd {
	cfg, outDir, logger := m.cfg, m.outDir, m.logger
	return func() tea.Msg {
		start := time.Now()
		doc, err := report.Generate(race, candidate, cfg)
		if err != nil {
			logger.Warn("report failed", zap.String("race", race.Key), zap.String("candidate", candidate), zap.Error(err))
			return renderedMsg{err: err, elapsed: time.Since(start)}
		}
		path, err := doc.WriteTo(outDir)
		if err != nil {
			return renderedMsg{err: err, elapsed: time.Since(start)}
		}
		logger.Info("report written", zap.String("path", path), zap.Int("pages", doc.Pages))
		return renderedMsg{path: path, doc: doc, elapsed: time.Since(start)}
	}
}

// View renders the current step.
func (m Model) View() string {
	switch m.step {
	case stepRaces:
		return m.racesView()
	case stepCandidates:
		return m.candidates.View()
	case stepRendering:
		return boxStyle.Render(fmt.Sprintf("%s Generating report for %s (%s)...",
			m.spinner.View(), m.candidate, m.race.Key))
	default:
		return boxStyle.Render(m.resultView())
	}
}

func (m Model) racesView() string {
	var b strings.Builder
	errs := m.cache.Errors()
	if len(m.races.Items()) == 0 {
		b.WriteString(errorStyle.Render("No race could be loaded."))
		b.WriteString("\n")
	} else {
		b.WriteString(m.races.View())
	}
	if len(errs) > 0 {
		b.WriteString("\n")
		for _, e := range errs {
			b.WriteString(errorStyle.Render("✗ " + e.Message()))
			b.WriteString("\n")
		}
	}
	return b.String()
}

func (m Model) resultView() string {
	r := m.result
	if r.err != nil {
		return errorStyle.Render(r.err.Error()) + "\n\n" +
			mutedStyle.Render("esc: pick another candidate · q: quit")
	}
	lines := []string{
		successStyle.Render("✓ Report ready"),
		"",
		fmt.Sprintf("File:   %s", r.path),
		fmt.Sprintf("Pages:  %d", r.doc.Pages),
		fmt.Sprintf("Size:   %s", utils.FormatBytes(r.doc.Size())),
		fmt.Sprintf("Time:   %s", report.FormatDuration(r.elapsed)),
		"",
		mutedStyle.Render("esc: pick another candidate · enter/q: quit"),
	}
	return strings.Join(lines, "\n")
}

// Run starts the picker full screen and blocks until the user quits.
func Run(cache *dataset.Cache, cfg report.ReportConfig, outDir string, logger *zap.Logger) error {
	p := tea.NewProgram(New(cache, cfg, outDir, logger), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
