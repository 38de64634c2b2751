// Package tui is the terminal dashboard over the release-session store:
// a session list with a detail pane, create/delete modals, and an auth
// status line, updated live from the poller through store subscription.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/releasekit/releasekit-go/pkg/auth"
	"github.com/releasekit/releasekit-go/pkg/backend"
	"github.com/releasekit/releasekit-go/pkg/syncstore"
)

// — state ———————————————————————————————————————————————————————————————————

type appState int

const (
	stateNormal appState = iota
	stateNewSession
	stateDeleteConfirm
)

// — styles ——————————————————————————————————————————————————————————————————

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")).
			MarginLeft(2)

	dimStyle  = lipgloss.NewStyle().Faint(true)
	boldStyle = lipgloss.NewStyle().Bold(true)
	errStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	okStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	warnStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))

	helpStyle = lipgloss.NewStyle().
			Faint(true).
			PaddingLeft(2)

	detailHeadStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205"))

	labelStyle = lipgloss.NewStyle().Faint(true)

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("205")).
			Padding(1, 3).
			Width(58)

	deleteModalStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("196")).
				Padding(1, 3).
				Width(58)
)

// — spinner —————————————————————————————————————————————————————————————————

var spinnerFrames = []string{"|", "/", "-", "\\"}

type tickMsg struct{}

func tickCmd() tea.Cmd {
	return tea.Tick(120*time.Millisecond, func(time.Time) tea.Msg {
		return tickMsg{}
	})
}

// — messages ————————————————————————————————————————————————————————————————

type storeChangedMsg struct{}

type refreshedMsg struct {
	err error
}

type sessionCreatedMsg struct {
	session backend.Session
	err     error
}

type sessionDeletedMsg struct {
	err error
}

// — list item ———————————————————————————————————————————————————————————————

type sessionItem struct {
	s           backend.Session
	spinnerChar string
}

func (i sessionItem) Title() string {
	var indicator string
	switch i.s.Status {
	case backend.SessionGenerating:
		indicator = i.spinnerChar
	case backend.SessionReady:
		indicator = "●"
	case backend.SessionExported:
		indicator = "✓"
	default:
		indicator = " "
	}
	return indicator + " " + i.s.Name
}

func (i sessionItem) Description() string {
	return i.s.RepoFullName + "  " + i.s.BaseRef + ".." + i.s.HeadRef
}

func (i sessionItem) FilterValue() string { return i.s.Name }

// — model ———————————————————————————————————————————————————————————————————

// Model is the root bubbletea model.
type Model struct {
	store *syncstore.Store
	authM *auth.Manager
	sub   <-chan struct{}

	list     list.Model
	sessions []backend.Session
	width    int
	height   int
	loading  bool
	err      error

	state        appState
	inputs       []textinput.Model
	focusIdx     int
	inputErr     string
	spinnerFrame int
}

const (
	fieldName = iota
	fieldRepo
	fieldBase
	fieldHead
	fieldCount
)

// New builds the dashboard over an already-bootstrapped store and auth
// manager. sub must come from store.Subscribe.
func New(store *syncstore.Store, authM *auth.Manager, sub <-chan struct{}) Model {
	delegate := list.NewDefaultDelegate()

	l := list.New([]list.Item{}, delegate, 0, 0)
	l.Title = "Release Sessions"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.SetShowHelp(false)
	l.Styles.Title = titleStyle

	inputs := make([]textinput.Model, fieldCount)
	placeholders := [fieldCount]string{
		"e.g. 2.14 release",
		"e.g. acme/widget",
		"e.g. v2.13.0",
		"e.g. main",
	}
	for i := range inputs {
		ti := textinput.New()
		ti.Placeholder = placeholders[i]
		ti.CharLimit = 120
		inputs[i] = ti
	}

	return Model{
		store:   store,
		authM:   authM,
		sub:     sub,
		list:    l,
		loading: true,
		inputs:  inputs,
	}
}

// — commands ————————————————————————————————————————————————————————————————

func waitForStoreCmd(sub <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-sub
		return storeChangedMsg{}
	}
}

func refreshCmd(store *syncstore.Store) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return refreshedMsg{err: store.Refresh(ctx)}
	}
}

func createSessionCmd(store *syncstore.Store, req backend.CreateSessionRequest) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		session, err := store.CreateSession(ctx, req)
		return sessionCreatedMsg{session: session, err: err}
	}
}

func deleteSessionCmd(store *syncstore.Store, id string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return sessionDeletedMsg{err: store.DeleteSession(ctx, id)}
	}
}

// buildItems rebuilds the list items with the current spinner frame.
func (m *Model) buildItems() {
	char := spinnerFrames[m.spinnerFrame]
	items := make([]list.Item, len(m.sessions))
	for i, s := range m.sessions {
		items[i] = sessionItem{s: s, spinnerChar: char}
	}
	m.list.SetItems(items)
}

func (m *Model) syncFromStore() {
	m.sessions = m.store.Sessions()
	syncstore.SortByCreated(m.sessions)
	m.buildItems()
}

// — tea.Model ———————————————————————————————————————————————————————————————

func (m Model) Init() tea.Cmd {
	return tea.Batch(refreshCmd(m.store), waitForStoreCmd(m.sub), tickCmd())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		lw, lh := m.listDimensions()
		m.list.SetSize(lw, lh)
		return m, nil

	case tickMsg:
		m.spinnerFrame = (m.spinnerFrame + 1) % len(spinnerFrames)
		if !m.loading && m.err == nil {
			m.buildItems()
		}
		return m, tickCmd()

	case storeChangedMsg:
		m.syncFromStore()
		return m, waitForStoreCmd(m.sub)

	case refreshedMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.syncFromStore()
		return m, nil

	case sessionCreatedMsg:
		if msg.err != nil {
			m.inputErr = msg.err.Error()
			return m, nil
		}
		m.state = stateNormal
		m.inputErr = ""
		m.resetInputs()
		m.syncFromStore()
		return m, nil

	case sessionDeletedMsg:
		m.state = stateNormal
		if msg.err != nil {
			m.inputErr = msg.err.Error()
			return m, nil
		}
		m.inputErr = ""
		m.syncFromStore()
		return m, nil
	}

	switch m.state {
	case stateNewSession:
		return m.updateNewSession(msg)
	case stateDeleteConfirm:
		return m.updateDeleteConfirm(msg)
	default:
		return m.updateNormal(msg)
	}
}

func (m Model) updateNormal(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "r":
			m.loading = true
			return m, refreshCmd(m.store)
		case "n":
			m.state = stateNewSession
			m.inputErr = ""
			m.resetInputs()
			m.inputs[fieldName].Focus()
			m.focusIdx = fieldName
			return m, textinput.Blink
		case "d":
			if m.selectedSession() != nil {
				m.state = stateDeleteConfirm
				m.inputErr = ""
			}
			return m, nil
		case "s":
			if m.authM.State().Status == auth.StatusAuthenticated {
				m.authM.SignOut()
			}
			return m, nil
		case "enter":
			// The detail pane already tracks the selection.
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) updateNewSession(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			m.state = stateNormal
			m.inputErr = ""
			m.resetInputs()
			return m, nil
		case "tab", "down":
			m.focusField((m.focusIdx + 1) % fieldCount)
			return m, textinput.Blink
		case "shift+tab", "up":
			m.focusField((m.focusIdx + fieldCount - 1) % fieldCount)
			return m, textinput.Blink
		case "enter":
			req := backend.CreateSessionRequest{
				Name:         strings.TrimSpace(m.inputs[fieldName].Value()),
				RepoFullName: strings.TrimSpace(m.inputs[fieldRepo].Value()),
				BaseRef:      strings.TrimSpace(m.inputs[fieldBase].Value()),
				HeadRef:      strings.TrimSpace(m.inputs[fieldHead].Value()),
			}
			if req.RepoFullName == "" || req.BaseRef == "" || req.HeadRef == "" {
				m.inputErr = "repository, base ref and head ref are required"
				return m, nil
			}
			m.inputErr = ""
			return m, createSessionCmd(m.store, req)
		}
	}
	var cmd tea.Cmd
	m.inputs[m.focusIdx], cmd = m.inputs[m.focusIdx].Update(msg)
	return m, cmd
}

func (m Model) updateDeleteConfirm(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "esc", "n", "N":
			m.state = stateNormal
			m.inputErr = ""
			return m, nil
		case "enter", "y", "Y":
			s := m.selectedSession()
			if s == nil {
				m.state = stateNormal
				return m, nil
			}
			return m, deleteSessionCmd(m.store, s.ID)
		}
	}
	return m, nil
}

func (m *Model) resetInputs() {
	for i := range m.inputs {
		m.inputs[i].Reset()
		m.inputs[i].Blur()
	}
	m.focusIdx = fieldName
}

func (m *Model) focusField(idx int) {
	m.inputs[m.focusIdx].Blur()
	m.focusIdx = idx
	m.inputs[idx].Focus()
}

// — view ————————————————————————————————————————————————————————————————————

func (m Model) View() string {
	if m.width == 0 {
		return ""
	}

	if m.loading {
		return lipgloss.NewStyle().Padding(1, 2).Render("Loading sessions…")
	}

	if m.err != nil {
		return lipgloss.NewStyle().Padding(1, 2).Render(
			fmt.Sprintf("Error: %v\n\nPress r to retry, q to quit.", m.err),
		)
	}

	body := lipgloss.JoinHorizontal(lipgloss.Top, m.list.View(), m.renderDetail())
	base := lipgloss.JoinVertical(lipgloss.Left, body, m.renderStatusLine(), m.renderHelp())

	switch m.state {
	case stateNewSession:
		return m.renderCreateModalOver(base)
	case stateDeleteConfirm:
		return m.renderDeleteConfirmOver(base)
	}
	return base
}

// — layout helpers ——————————————————————————————————————————————————————————

func (m Model) listDimensions() (width, height int) {
	return m.width / 3, m.height - 3
}

func (m Model) renderDetail() string {
	lw, _ := m.listDimensions()
	dw := m.width - lw
	dh := m.height - 3

	style := lipgloss.NewStyle().
		Border(lipgloss.NormalBorder(), false, false, false, true).
		PaddingLeft(3).
		PaddingRight(2).
		Width(dw - 1).
		Height(dh)

	contentWidth := (dw - 1) - 3 - 2

	s := m.selectedSession()
	if s == nil {
		return style.Render(dimStyle.Render("No sessions yet — press n to create one"))
	}

	row := func(lbl, val string) string {
		return labelStyle.Render(lbl) + val + "\n"
	}

	sep := dimStyle.Render(strings.Repeat("─", max(contentWidth, 1)))

	var b strings.Builder
	b.WriteString(detailHeadStyle.Render(s.Name) + "\n\n")
	b.WriteString(row("Repo     ", s.RepoFullName))
	b.WriteString(row("Range    ", s.BaseRef+".."+s.HeadRef))
	b.WriteString(row("Status   ", statusLabel(s.Status)))
	b.WriteString(row("Created  ", s.CreatedAt.Local().Format("2006-01-02 15:04")))
	if s.Stats.PRCount > 0 || s.Stats.CommitCount > 0 {
		b.WriteString(row("Scope    ", fmt.Sprintf("%d PRs · %d commits · %d files",
			s.Stats.PRCount, s.Stats.CommitCount, s.Stats.FileCount)))
	}
	b.WriteString("\n" + sep + "\n\n")

	if len(s.Jobs) == 0 {
		b.WriteString(dimStyle.Render("No jobs yet") + "\n")
	} else {
		for _, job := range s.Jobs {
			b.WriteString(renderJob(job))
		}
	}

	return style.Render(b.String())
}

func renderJob(job backend.Job) string {
	name := fmt.Sprintf("%-24s", job.Type)
	switch job.Status {
	case backend.JobCompleted:
		return labelStyle.Render(name) + okStyle.Render("✓ done") + "\n"
	case backend.JobFailed:
		line := labelStyle.Render(name) + errStyle.Render("✗ failed")
		if job.Error != "" {
			line += dimStyle.Render("  " + job.Error)
		}
		return line + "\n"
	case backend.JobRunning:
		return labelStyle.Render(name) + warnStyle.Render(fmt.Sprintf("⏳ %d%%", job.Progress)) + "\n"
	default:
		return labelStyle.Render(name) + dimStyle.Render("pending") + "\n"
	}
}

func statusLabel(status backend.SessionStatus) string {
	switch status {
	case backend.SessionGenerating:
		return warnStyle.Render("generating")
	case backend.SessionReady:
		return okStyle.Render("ready")
	case backend.SessionExported:
		return okStyle.Render("exported")
	default:
		return dimStyle.Render(string(status))
	}
}

func (m Model) renderStatusLine() string {
	state := m.authM.State()
	var text string
	switch state.Status {
	case auth.StatusChecking:
		text = dimStyle.Render("auth: checking…")
	case auth.StatusAuthenticated:
		who := "signed in"
		if state.User != nil {
			who = state.User.Login
		}
		if state.Provisional {
			text = warnStyle.Render("auth: " + who + " (verifying)")
		} else {
			text = okStyle.Render("auth: " + who)
		}
	default:
		if state.Err != "" {
			text = errStyle.Render("auth: signed out — " + state.Err)
		} else {
			text = dimStyle.Render("auth: signed out")
		}
	}
	return helpStyle.Render(text)
}

func (m Model) renderHelp() string {
	var text string
	switch m.state {
	case stateNewSession:
		text = "Tab next field   Enter create   Esc cancel"
	case stateDeleteConfirm:
		text = "y/Enter confirm   n/Esc cancel"
	default:
		text = "↑/↓ navigate   n new   d delete   r refresh   s sign out   q quit"
	}
	sep := dimStyle.Render(strings.Repeat("─", max(m.width, 1)))
	return sep + "\n" + helpStyle.Render(text)
}

func (m Model) renderCreateModalOver(base string) string {
	labels := [fieldCount]string{"Name", "Repository", "Base ref", "Head ref"}

	var b strings.Builder
	b.WriteString(boldStyle.Render("New Release Session") + "\n\n")
	for i := range m.inputs {
		b.WriteString(labels[i] + "\n")
		b.WriteString(m.inputs[i].View() + "\n")
	}
	if m.inputErr != "" {
		b.WriteString("\n" + errStyle.Render(m.inputErr) + "\n")
	}
	b.WriteString("\n" + dimStyle.Render("Generates notes, hotspots and a test plan for the range"))

	modal := modalStyle.Render(b.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal,
		lipgloss.WithWhitespaceBackground(lipgloss.Color("0")),
	)
}

func (m Model) renderDeleteConfirmOver(base string) string {
	s := m.selectedSession()
	var b strings.Builder
	b.WriteString(errStyle.Render("Delete Session") + "\n\n")
	if s != nil {
		b.WriteString(labelStyle.Render("Name     ") + s.Name + "\n")
		b.WriteString(labelStyle.Render("Repo     ") + s.RepoFullName + "\n\n")
		if s.Status == backend.SessionGenerating {
			b.WriteString(warnStyle.Render("⚠  Generation is still running") + "\n\n")
		}
	}
	b.WriteString("This removes the session and all its artifacts.\n")
	if m.inputErr != "" {
		b.WriteString("\n" + errStyle.Render(m.inputErr) + "\n")
	}
	b.WriteString("\n" + dimStyle.Render("y/Enter to confirm · Esc/n to cancel"))

	modal := deleteModalStyle.Render(b.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal,
		lipgloss.WithWhitespaceBackground(lipgloss.Color("0")),
	)
}

func (m Model) selectedSession() *backend.Session {
	if len(m.sessions) == 0 {
		return nil
	}
	idx := m.list.Index()
	if idx < 0 || idx >= len(m.sessions) {
		return nil
	}
	return &m.sessions[idx]
}
