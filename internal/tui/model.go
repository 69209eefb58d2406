package tui

import (
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/ppiankov/gcsspectre/internal/models"
)

// mode represents the current UI interaction mode.
type mode int

const (
	modeNormal mode = iota
	modeSearch
	modeFilterMatch
)

const defaultTableHeight = 15

// Model is the top-level Bubble Tea model for the review TUI.
type Model struct {
	// Data (immutable after init)
	run        *models.Run
	trend      *models.TrendSummary
	allEntries []entry

	// UI state
	table       table.Model
	searchInput textinput.Model
	help        help.Model
	filtered    []entry
	filters     filterState
	sortBy      sortField
	mode        mode
	matchCursor int
	width       int
	height      int
	statusMsg   string
	hideDetail  bool

	// clipboard keeps the last copied text; copyOut receives the OSC 52 sequence.
	clipboard string
	copyOut   io.Writer
}

// New creates a new TUI model from a run.
func New(run *models.Run, trend *models.TrendSummary) Model {
	entries := buildEntries(run.Report)
	sortEntries(entries, sortByMatch)

	ti := textinput.New()
	ti.Placeholder = "search..."
	ti.CharLimit = 64

	return Model{
		run:         run,
		trend:       trend,
		allEntries:  entries,
		filtered:    entries,
		table:       newTable(buildRows(entries), defaultTableHeight),
		searchInput: ti,
		help:        help.New(),
		sortBy:      sortByMatch,
		mode:        modeNormal,
		width:       80,
		height:      24,
		copyOut:     os.Stdout,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.table.SetWidth(msg.Width)
		m.fitTable()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	switch m.mode {
	case modeSearch:
		m.searchInput, cmd = m.searchInput.Update(msg)
		return m, cmd
	default:
		m.table, cmd = m.table.Update(msg)
		return m, cmd
	}
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.mode {
	case modeSearch:
		return m.handleSearchKey(msg)
	case modeFilterMatch:
		return m.handleFilterMatchKey(msg)
	default:
		return m.handleNormalKey(msg)
	}
}

func (m Model) handleNormalKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, keys.Search):
		m.mode = modeSearch
		m.searchInput.Focus()
		return m, textinput.Blink
	case key.Matches(msg, keys.Match):
		m.mode = modeFilterMatch
		m.matchCursor = 0
		return m, nil
	case key.Matches(msg, keys.ErrorsOnly):
		m.filters.ErrorsOnly = !m.filters.ErrorsOnly
		m.rebuildTable()
		m.statusMsg = ""
		if m.filters.ErrorsOnly {
			m.statusMsg = "Filter: errors"
		}
		return m, nil
	case key.Matches(msg, keys.Detail):
		m.hideDetail = !m.hideDetail
		m.fitTable()
		return m, nil
	case key.Matches(msg, keys.Sort):
		m.sortBy = (m.sortBy + 1) % sortField(sortFieldCount)
		m.rebuildTable()
		m.statusMsg = fmt.Sprintf("Sort: %s", sortFieldName(m.sortBy))
		return m, nil
	case key.Matches(msg, keys.CopyRow):
		m.copySelected()
		return m, nil
	case key.Matches(msg, keys.CopyFix):
		m.copyFix()
		return m, nil
	case key.Matches(msg, keys.Clear):
		m.filters = filterState{}
		m.searchInput.SetValue("")
		m.statusMsg = ""
		m.rebuildTable()
		return m, nil
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m Model) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.filters.SearchText = m.searchInput.Value()
		m.mode = modeNormal
		m.searchInput.Blur()
		m.rebuildTable()
		return m, nil
	case "esc":
		m.mode = modeNormal
		m.searchInput.Blur()
		m.searchInput.SetValue("")
		return m, nil
	}

	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	return m, cmd
}

func (m Model) handleFilterMatchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if m.matchCursor > 0 {
			m.matchCursor--
		}
	case "down", "j":
		if m.matchCursor < len(matchChoices) {
			m.matchCursor++
		}
	case "enter":
		if m.matchCursor == 0 {
			m.filters.Match = ""
		} else {
			m.filters.Match = matchChoices[m.matchCursor-1]
		}
		m.mode = modeNormal
		m.rebuildTable()
		if m.filters.Match != "" {
			m.statusMsg = fmt.Sprintf("Filter: %s", m.filters.Match)
		} else {
			m.statusMsg = ""
		}
	case "esc":
		m.mode = modeNormal
	}
	return m, nil
}

// fitTable gives the table whatever height the header, detail panel and
// footer leave free.
func (m *Model) fitTable() {
	h := m.height - headerHeight - 3
	if !m.hideDetail {
		h -= detailHeight
	}
	if h < 3 {
		h = 3
	}
	m.table.SetHeight(h)
}

func (m *Model) rebuildTable() {
	filtered := applyFilters(m.allEntries, m.filters)
	sortEntries(filtered, m.sortBy)
	m.filtered = filtered
	m.table.SetRows(buildRows(filtered))
	if m.table.Cursor() >= len(filtered) {
		m.table.SetCursor(0)
	}
}

func (m *Model) selected() *entry {
	cursor := m.table.Cursor()
	if cursor < 0 || cursor >= len(m.filtered) {
		return nil
	}
	return &m.filtered[cursor]
}

// copySelected writes the selected row to the clipboard via OSC 52.
func (m *Model) copySelected() {
	e := m.selected()
	if e == nil {
		m.statusMsg = "Nothing to copy"
		return
	}
	m.copy(fmt.Sprintf("[%s] %s/%s: %s", e.Row.ExposureMatch, e.Row.ProjectID, e.Row.BucketName, e.Row.Permissions), "Copied!")
}

// copyFix copies the gcloud commands that remove the selected bucket's
// public bindings.
func (m *Model) copyFix() {
	e := m.selected()
	if e == nil {
		m.statusMsg = "Nothing to copy"
		return
	}
	cmds := remediationCommands(e.Finding)
	if len(cmds) == 0 {
		m.statusMsg = "No public bindings on " + e.Row.BucketName
		return
	}
	m.copy(strings.Join(cmds, "\n"), fmt.Sprintf("Copied %d command(s)", len(cmds)))
}

func (m *Model) copy(text, status string) {
	m.clipboard = text
	m.statusMsg = status
	fmt.Fprintf(m.copyOut, "\033]52;c;%s\a", base64.StdEncoding.EncodeToString([]byte(text)))
}

// remediationCommands lists one remove-iam-policy-binding call per exposed
// (role, member) pair.
func remediationCommands(f models.BucketFinding) []string {
	var cmds []string
	for _, b := range f.ExposedBindings {
		for _, member := range b.Members {
			cmds = append(cmds, fmt.Sprintf("gcloud storage buckets remove-iam-policy-binding gs://%s --member=%s --role=%s",
				f.BucketName, member, b.Role))
		}
	}
	return cmds
}

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder

	var sparkline []int
	if m.trend != nil {
		sparkline = m.trend.ExposedSparkline
	}
	b.WriteString(renderHeader(m.run.Summary, m.run.Trend, sparkline, m.width))
	b.WriteString("\n")

	if m.mode == modeSearch {
		b.WriteString(styleSearchPrompt.Render("/ "))
		b.WriteString(m.searchInput.View())
		b.WriteString("\n")
	}

	if m.mode == modeFilterMatch {
		b.WriteString(m.renderMatchFilter())
		b.WriteString("\n")
	}

	b.WriteString(m.table.View())
	b.WriteString("\n")

	if !m.hideDetail {
		b.WriteString(renderDetail(m.selected(), m.width))
		b.WriteString("\n")
	}

	b.WriteString(m.renderFooter())

	return b.String()
}

func (m *Model) renderMatchFilter() string {
	var b strings.Builder
	b.WriteString("Filter by exposure match:\n")

	options := []string{"All"}
	for _, c := range matchChoices {
		options = append(options, string(c))
	}
	for i, opt := range options {
		cursor := "  "
		if i == m.matchCursor {
			cursor = "> "
		}
		b.WriteString(fmt.Sprintf("%s%s\n", cursor, opt))
	}
	return b.String()
}

func (m *Model) renderFooter() string {
	left := m.help.ShortHelpView(keys.ShortHelp())
	right := fmt.Sprintf("%d/%d buckets", len(m.filtered), len(m.allEntries))

	if m.statusMsg != "" {
		right = m.statusMsg + "  " + right
	}

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}

	return styleFooter.Render(left + strings.Repeat(" ", gap) + right)
}

// Run starts the Bubble Tea program. Called from the review command.
func Run(run *models.Run, trend *models.TrendSummary) error {
	p := tea.NewProgram(New(run, trend), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
