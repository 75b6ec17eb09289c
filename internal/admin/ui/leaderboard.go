package ui

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/notepid/lapgame/internal/account"
	"github.com/notepid/lapgame/internal/admin/app"
)

const leaderboardSize = 50

type leaderboardModel struct {
	app *app.App

	width  int
	height int

	done bool

	table table.Model
	total int
	err   error
}

var tableBorder = lipgloss.NewStyle().
	BorderStyle(lipgloss.NormalBorder()).
	BorderForeground(lipgloss.Color("240"))

func newLeaderboardModel(a *app.App) *leaderboardModel {
	m := &leaderboardModel{app: a}
	m.reload()
	return m
}

func (m *leaderboardModel) reload() {
	standings, total, err := m.app.Standings(leaderboardSize)
	if err != nil {
		m.err = err
		return
	}
	m.err = nil
	m.total = total
	m.table = newStandingsTable(standings, m.height)
}

func newStandingsTable(standings []account.Standing, height int) table.Model {
	columns := []table.Column{
		{Title: "#", Width: 4},
		{Title: "Player", Width: 20},
		{Title: "Account", Width: 10},
		{Title: "Score", Width: 10},
		{Title: "Level", Width: 6},
		{Title: "Rank", Width: 22},
	}
	t := table.New(
		table.WithColumns(columns),
		table.WithRows(standingRows(standings)),
		table.WithFocused(true),
		table.WithHeight(tableHeight(height)),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.BorderStyle(lipgloss.NormalBorder()).BorderBottom(true).Bold(true)
	s.Selected = s.Selected.Foreground(lipgloss.Color("229")).Background(lipgloss.Color("57"))
	t.SetStyles(s)
	return t
}

func standingRows(standings []account.Standing) []table.Row {
	rows := make([]table.Row, 0, len(standings))
	for _, st := range standings {
		rows = append(rows, table.Row{
			strconv.Itoa(st.Position),
			st.DisplayName,
			st.ID,
			strconv.FormatInt(st.Score, 10),
			strconv.Itoa(st.Level),
			st.Rank,
		})
	}
	return rows
}

func tableHeight(h int) int {
	if h-8 < 5 {
		return 5
	}
	return h - 8
}

func (m *leaderboardModel) SetSize(w, h int) {
	m.width, m.height = w, h
	if m.err == nil {
		m.table.SetHeight(tableHeight(h))
	}
}

func (m *leaderboardModel) Finished() bool { return m.done }

func (m *leaderboardModel) Update(msg tea.Msg) tea.Cmd {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "esc", "q":
			m.done = true
			return nil
		case "r":
			m.reload()
			return nil
		case "enter":
			if m.err != nil {
				m.done = true
				return nil
			}
		}
	}
	if m.err != nil {
		return nil
	}
	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return cmd
}

func (m *leaderboardModel) View() string {
	if m.err != nil {
		return errorView("Leaderboard", m.err)
	}
	header := titleStyle.Render("Leaderboard") +
		hintStyle.Render(fmt.Sprintf("  %d accounts in the %s snapshot", m.total, m.app.Config.Storage.Backend))
	return header + "\n" + tableBorder.Render(m.table.View()) + "\n" + hintStyle.Render("(r to reload, esc to go back)")
}
