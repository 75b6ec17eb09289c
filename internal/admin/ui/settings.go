package ui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/notepid/lapgame/internal/admin/app"
	"github.com/notepid/lapgame/internal/db"
)

type settingsModel struct {
	app *app.App

	width  int
	height int

	done bool

	form *huh.Form
	err  error

	name     string
	operator string
	motd     string
	lobby    string
	save     bool
}

func newSettingsModel(a *app.App) *settingsModel {
	m := &settingsModel{app: a}

	settings, err := a.DB.GetSettings()
	if err != nil {
		m.err = err
		return m
	}

	m.name = settings.Name
	m.operator = settings.Operator
	m.motd = settings.MOTD
	m.lobby = settings.Lobby

	m.form = buildSettingsForm(m)
	return m
}

func buildSettingsForm(m *settingsModel) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Server name").Value(&m.name).Validate(nonEmpty("name")),
			huh.NewInput().Title("Operator").Value(&m.operator).Validate(nonEmpty("operator")),
			huh.NewText().Title("Message of the day").Value(&m.motd).CharLimit(400),
			huh.NewInput().Title("Lobby room").Value(&m.lobby).Validate(roomName),
		),
		huh.NewGroup(
			huh.NewConfirm().Title("Save changes?").Value(&m.save),
		),
	)
}

func (m *settingsModel) SetSize(w, h int) {
	m.width, m.height = w, h
}

func (m *settingsModel) Finished() bool { return m.done }

func (m *settingsModel) Update(msg tea.Msg) tea.Cmd {
	if key, ok := msg.(tea.KeyMsg); ok {
		if m.err != nil {
			switch key.String() {
			case "esc", "q", "enter":
				m.done = true
			}
			return nil
		}
		if key.String() == "esc" {
			m.done = true
			return nil
		}
	}
	if m.err != nil {
		return nil
	}

	updated, cmd := m.form.Update(msg)
	f, ok := updated.(*huh.Form)
	if !ok {
		m.err = fmt.Errorf("internal error: unexpected form model type")
		return nil
	}
	m.form = f

	switch m.form.State {
	case huh.StateCompleted:
		if m.save {
			settings := &db.Settings{
				Name:     strings.TrimSpace(m.name),
				Operator: strings.TrimSpace(m.operator),
				MOTD:     strings.TrimSpace(m.motd),
				Lobby:    strings.ToLower(strings.TrimSpace(m.lobby)),
			}
			if err := m.app.DB.UpdateSettings(settings); err != nil {
				m.err = err
				return nil
			}
		}
		m.done = true
		return nil
	case huh.StateAborted:
		m.done = true
		return nil
	}

	return cmd
}

func (m *settingsModel) View() string {
	if m.err != nil {
		return errorView("Settings", m.err)
	}
	return m.form.View() + "\n\n" + hintStyle.Render("(esc to go back)")
}

func nonEmpty(field string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s cannot be empty", field)
		}
		return nil
	}
}

// roomName accepts a single word of letters, digits, '-' or '_'.
func roomName(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return fmt.Errorf("room cannot be empty")
	}
	for _, r := range s {
		ok := r == '-' || r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
		if !ok {
			return fmt.Errorf("room may only use letters, digits, '-' and '_'")
		}
	}
	return nil
}
