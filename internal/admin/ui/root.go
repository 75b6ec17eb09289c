package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/notepid/lapgame/internal/admin/app"
)

type screen int

const (
	screenHome screen = iota
	screenSettings
	screenUsers
	screenLeaderboard
)

// subModel is a screen the root menu hands control to.
type subModel interface {
	Update(msg tea.Msg) tea.Cmd
	View() string
	SetSize(w, h int)
	Finished() bool
}

type rootModel struct {
	app *app.App

	width  int
	height int

	active screen

	homeList list.Model
	current  subModel
}

type menuItem struct {
	title string
	desc  string
	to    screen
}

func (m menuItem) Title() string       { return m.title }
func (m menuItem) Description() string { return m.desc }
func (m menuItem) FilterValue() string { return m.title }

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	hintStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

func NewRootModel(a *app.App) tea.Model {
	items := []list.Item{
		menuItem{title: "Server Settings", desc: "Edit name, operator, MOTD and lobby room", to: screenSettings},
		menuItem{title: "Users", desc: "Manage logins", to: screenUsers},
		menuItem{title: "Leaderboard", desc: "Scores from the last saved snapshot", to: screenLeaderboard},
		menuItem{title: "Quit", desc: "Exit", to: -1},
	}

	l := list.New(items, list.NewDefaultDelegate(), 0, 0)
	l.Title = "Lap Game Admin"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.SetShowHelp(true)

	return &rootModel{
		app:      a,
		active:   screenHome,
		homeList: l,
	}
}

func (m *rootModel) Init() tea.Cmd {
	return nil
}

func (m *rootModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.homeList.SetSize(msg.Width, msg.Height-2)
		if m.current != nil {
			m.current.SetSize(msg.Width, msg.Height)
		}
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
	}

	if m.active == screenHome || m.current == nil {
		return m.updateHome(msg)
	}

	cmd := m.current.Update(msg)
	if m.current.Finished() {
		m.active = screenHome
		m.current = nil
	}
	return m, cmd
}

func (m *rootModel) updateHome(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	m.homeList, cmd = m.homeList.Update(msg)

	if msg, ok := msg.(tea.KeyMsg); ok && msg.String() == "enter" {
		if it, ok := m.homeList.SelectedItem().(menuItem); ok {
			if it.to == -1 {
				return m, tea.Quit
			}
			m.activate(it.to)
			return m, nil
		}
	}
	return m, cmd
}

func (m *rootModel) activate(s screen) {
	m.active = s
	switch s {
	case screenSettings:
		m.current = newSettingsModel(m.app)
	case screenUsers:
		m.current = newUsersModel(m.app)
	case screenLeaderboard:
		m.current = newLeaderboardModel(m.app)
	default:
		m.current = nil
		m.active = screenHome
		return
	}
	m.current.SetSize(m.width, m.height)
}

func (m *rootModel) View() string {
	if m.active == screenHome {
		return m.homeList.View()
	}
	if m.current == nil {
		return titleStyle.Render("Unknown screen") + "\n" + fmt.Sprint(m.active)
	}
	return m.current.View()
}

// errorView renders a screen error with the way back.
func errorView(screen string, err error) string {
	return errStyle.Render(screen+" error: ") + err.Error() + "\n\n" + hintStyle.Render("Press Enter/Esc to go back.")
}
