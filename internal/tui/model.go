package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/lorekeep/lorekeep/internal/domain"
)

// SearchPort is the console-facing subset of the retrieval engine.
type SearchPort interface {
	Search(ctx context.Context, knowledgeBaseID string, query string, settings domain.RetrievalSettings) (domain.SearchOutput, error)
}

// Model is the Bubble Tea model for the search console. A query ranks the
// whole corpus once; the view walks an ever-growing prefix of that ranking.
type Model struct {
	engine          SearchPort
	knowledgeBaseID string
	pageStep        int

	input    textinput.Model
	viewport viewport.Model

	results  []domain.SearchResult
	visible  int
	cursor   int
	metadata string
	summary  string
	status   string
	ready    bool
}

// New creates a console model bound to one knowledge base. pageStep is the
// number of additional results each load-more reveals.
func New(engine SearchPort, knowledgeBaseID string, pageStep int, summary string) Model {
	if pageStep < 1 {
		pageStep = domain.DefaultTopK
	}

	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Type query and press Enter"
	ti.Focus()
	ti.CharLimit = 0

	vp := viewport.New(0, 0)

	return Model{
		engine:          engine,
		knowledgeBaseID: knowledgeBaseID,
		pageStep:        pageStep,
		input:           ti,
		viewport:        vp,
		summary:         summary,
		status:          "Ready. Type to search, tab loads more results.",
	}
}

func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key and window events and updates the view state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true

		_, rh := resultBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()

		reserved := 3 + qh + 1 // header, summary, status, query frame, spacer

		vh := msg.Height - reserved
		if vh < 3 {
			vh = 3
		}

		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, vh-rh)
		m.viewport.SetContent(m.renderResults())

		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}

		switch msg.String() {
		case "enter":
			query := strings.TrimSpace(m.input.Value())
			if query == "" {
				return m, nil
			}

			return m.runSearch(query), nil
		case "tab":
			if m.visible < len(m.results) {
				m.visible = min(m.visible+m.pageStep, len(m.results))
				m.status = m.pageStatus()
				m.viewport.SetContent(m.renderResults())
			}

			return m, nil
		case "down":
			if m.visible > 0 {
				m.cursor = (m.cursor + 1) % m.visible
				m.viewport.SetContent(m.renderResults())
			}

			return m, nil
		case "up":
			if m.visible > 0 {
				m.cursor = (m.cursor - 1 + m.visible) % m.visible
				m.viewport.SetContent(m.renderResults())
			}

			return m, nil
		}
	}

	var cmd tea.Cmd

	m.input, cmd = m.input.Update(msg)

	return m, cmd
}

func (m Model) runSearch(query string) Model {
	output, err := m.engine.Search(context.Background(), m.knowledgeBaseID, query, domain.RetrievalSettings{})
	if err != nil {
		m.status = "Error: " + err.Error()
		m.results = nil
		m.visible = 0
		m.cursor = 0
		m.metadata = ""
		m.viewport.SetContent(m.renderResults())

		return m
	}

	m.results = output.Results
	m.visible = min(m.pageStep, len(m.results))
	m.cursor = 0
	m.metadata = fmt.Sprintf("request %s  %.2fs  ~%d tokens", output.RequestID, output.ElapsedSeconds, output.TokenEstimate)
	m.status = m.pageStatus()
	m.viewport.SetContent(m.renderResults())

	return m
}

func (m Model) pageStatus() string {
	if len(m.results) == 0 {
		return "No matches. " + m.metadata
	}

	status := fmt.Sprintf("Showing %d of %d results. %s", m.visible, len(m.results), m.metadata)
	if m.visible < len(m.results) {
		status += "  (tab for more)"
	}

	return status
}

// View renders the console layout.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	header := headerStyle.Render("Lorekeep Search")
	summary := summaryStyle.Render(m.summary)
	results := resultBoxStyle.Render(m.viewport.View())
	input := queryBoxStyle.Render(m.input.View())
	status := statusStyle.Render(m.status)

	return header + "\n" + summary + "\n" + results + "\n" + input + "\n" + status
}

func (m Model) renderResults() string {
	page := domain.VisibleResults(m.results, m.visible)
	if len(page) == 0 {
		return "No results yet."
	}

	var b strings.Builder

	for i, r := range page {
		line := fmt.Sprintf("%2d. %.3f  %s #%d", i+1, r.Score, r.SourceFileName, r.ChunkIndex)
		if i == m.cursor {
			line = selectedStyle.Render("> " + line)
		} else {
			line = "  " + line
		}

		b.WriteString(line)
		b.WriteString("\n")
	}

	if m.cursor < len(page) {
		b.WriteString("\n")
		b.WriteString(page[m.cursor].Chunk.Text)
		b.WriteString("\n")
	}

	return b.String()
}

var (
	headerStyle    = lipgloss.NewStyle().Bold(true)
	summaryStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	selectedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	resultBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)
