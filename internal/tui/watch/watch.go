// Package watch is a small terminal monitor for the arbor daemon: a live
// table of active environments plus the tail of the reclaim/resolve event
// stream, polled over the HTTP API.
package watch

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	pollInterval = 2 * time.Second
	eventLogSize = 8
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("229"))
)

type environmentRow struct {
	ID           string         `json:"id"`
	CodebaseID   string         `json:"codebase_id"`
	WorkflowType string         `json:"workflow_type"`
	WorkflowID   string         `json:"workflow_id"`
	BranchName   string         `json:"branch_name"`
	WorkingPath  string         `json:"working_path"`
	CreatedAt    time.Time      `json:"created_at"`
	Metadata     map[string]any `json:"metadata"`
}

type hubEvent struct {
	ID   int64           `json:"id"`
	Type string          `json:"type"`
	At   time.Time       `json:"at"`
	Data json.RawMessage `json:"data"`
}

type envsMsg []environmentRow
type eventsMsg []hubEvent
type tickMsg time.Time
type errMsg error

// Model is the BubbleTea model for `arbor watch`.
type Model struct {
	apiURL string
	apiKey string

	table     table.Model
	eventLog  []hubEvent
	lastEvent int64
	lastTick  time.Time
	lastError string
	width     int
}

func New(apiURL, apiKey string) *Model {
	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "ID", Width: 10},
			{Title: "CODEBASE", Width: 14},
			{Title: "WORKFLOW", Width: 20},
			{Title: "BRANCH", Width: 24},
			{Title: "AGE", Width: 8},
		}),
		table.WithFocused(true),
		table.WithHeight(12),
	)
	styles := table.DefaultStyles()
	styles.Header = headerStyle
	t.SetStyles(styles)

	return &Model{apiURL: apiURL, apiKey: apiKey, table: t}
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		m.fetchEnvironments(),
		tea.Tick(pollInterval, func(t time.Time) tea.Msg { return tickMsg(t) }),
		tea.EnterAltScreen,
	)
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
	case tickMsg:
		m.lastTick = time.Time(msg)
		return m, tea.Batch(
			m.fetchEnvironments(),
			m.fetchEvents(),
			tea.Tick(pollInterval, func(t time.Time) tea.Msg { return tickMsg(t) }),
		)
	case envsMsg:
		m.lastError = ""
		rows := make([]table.Row, 0, len(msg))
		for _, env := range msg {
			rows = append(rows, table.Row{
				shorten(env.ID, 10),
				env.CodebaseID,
				env.WorkflowType + "/" + shorten(env.WorkflowID, 12),
				env.BranchName,
				shortDuration(time.Since(env.CreatedAt)),
			})
		}
		m.table.SetRows(rows)
	case eventsMsg:
		for _, ev := range msg {
			if ev.ID <= m.lastEvent {
				continue
			}
			m.lastEvent = ev.ID
			m.eventLog = append(m.eventLog, ev)
		}
		if len(m.eventLog) > eventLogSize {
			m.eventLog = m.eventLog[len(m.eventLog)-eventLogSize:]
		}
	case errMsg:
		m.lastError = msg.Error()
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m *Model) View() string {
	out := titleStyle.Render("arbor — isolated environments") + "\n\n"
	out += m.table.View() + "\n\n"

	out += headerStyle.Render("Recent events") + "\n"
	if len(m.eventLog) == 0 {
		out += dimStyle.Render("  (none)") + "\n"
	}
	for _, ev := range m.eventLog {
		out += fmt.Sprintf("  %s %s %s\n",
			dimStyle.Render(ev.At.Local().Format("15:04:05")), ev.Type,
			dimStyle.Render(shorten(string(ev.Data), 60)))
	}

	if m.lastError != "" {
		out += "\n" + errorStyle.Render("error: "+m.lastError) + "\n"
	}
	out += "\n" + dimStyle.Render("q to quit")
	return out
}

func (m *Model) fetchEnvironments() tea.Cmd {
	return func() tea.Msg {
		var envs []environmentRow
		if err := m.getJSON("/v1/environments", &envs); err != nil {
			return errMsg(err)
		}
		return envsMsg(envs)
	}
}

// fetchEvents polls the hub's ring buffer snapshot; the SSE stream is for
// long-lived adapter clients, polling is enough for a status screen.
func (m *Model) fetchEvents() tea.Cmd {
	since := m.lastEvent
	return func() tea.Msg {
		var evs []hubEvent
		if err := m.getJSON(fmt.Sprintf("/v1/events/recent?since=%d", since), &evs); err != nil {
			return errMsg(err)
		}
		return eventsMsg(evs)
	}
}

func (m *Model) getJSON(path string, out any) error {
	req, err := http.NewRequest(http.MethodGet, m.apiURL+path, nil)
	if err != nil {
		return err
	}
	if m.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+m.apiKey)
	}
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: HTTP %d", path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func shorten(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}

func shortDuration(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	}
}
