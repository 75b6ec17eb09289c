package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/notepid/lapgame/internal/admin/app"
	"github.com/notepid/lapgame/internal/user"
)

type usersModel struct {
	app *app.App

	width  int
	height int

	done bool

	state usersState

	list list.Model
	err  error

	selected *user.User

	form *huh.Form

	createUsername string
	createPassword string
	createSave     bool

	newPassword string
	pwConfirm   string
	pwSave      bool

	deleteConfirm bool
}

type usersState int

const (
	usersStateList usersState = iota
	usersStateDetail
	usersStateCreate
	usersStateResetPassword
	usersStateDelete
)

type userItem struct {
	id    int
	title string
	desc  string
	kind  string
}

func (i userItem) Title() string       { return i.title }
func (i userItem) Description() string { return i.desc }
func (i userItem) FilterValue() string { return i.title }

func newUsersModel(a *app.App) *usersModel {
	m := &usersModel{app: a, state: usersStateList}
	m.reloadList()
	return m
}

func (m *usersModel) SetSize(w, h int) {
	m.width, m.height = w, h
	m.list.SetSize(w, h-2)
}

func (m *usersModel) Finished() bool { return m.done }

func (m *usersModel) Update(msg tea.Msg) tea.Cmd {
	if m.err != nil {
		if key, ok := msg.(tea.KeyMsg); ok {
			switch key.String() {
			case "esc", "q", "enter":
				m.err = nil
				m.state = usersStateList
				m.form = nil
				m.selected = nil
				m.reloadList()
			}
		}
		return nil
	}

	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "q":
			if m.state == usersStateList && !m.list.SettingFilter() {
				m.done = true
				return nil
			}
		case "esc":
			if !m.list.SettingFilter() {
				m.back()
				return nil
			}
		}
	}

	switch m.state {
	case usersStateList:
		return m.updateList(msg)
	case usersStateDetail:
		return m.updateDetail(msg)
	default:
		return m.updateForm(msg)
	}
}

func (m *usersModel) updateList(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)

	if key, ok := msg.(tea.KeyMsg); ok && key.String() == "enter" {
		it, ok := m.list.SelectedItem().(userItem)
		if !ok {
			return cmd
		}
		if it.kind == "create" {
			m.startCreate()
			return nil
		}

		u, err := m.app.Users.GetByID(it.id)
		if err != nil {
			m.err = err
			return nil
		}
		m.selected = u
		m.state = usersStateDetail
		m.list = newActionList(m.width, m.height)
		return nil
	}
	return cmd
}

func (m *usersModel) updateDetail(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)

	if key, ok := msg.(tea.KeyMsg); ok && key.String() == "enter" {
		it, ok := m.list.SelectedItem().(userItem)
		if !ok {
			return cmd
		}
		switch it.kind {
		case "reset_password":
			m.startResetPassword()
		case "delete":
			m.startDelete()
		case "back":
			m.back()
		}
		return nil
	}
	return cmd
}

func (m *usersModel) updateForm(msg tea.Msg) tea.Cmd {
	if m.form == nil {
		m.err = fmt.Errorf("internal error: form not initialized")
		return nil
	}
	updated, cmd := m.form.Update(msg)
	f, ok := updated.(*huh.Form)
	if !ok {
		m.err = fmt.Errorf("internal error: unexpected form model type")
		return nil
	}
	m.form = f
	if m.form.State != huh.StateCompleted {
		return cmd
	}

	switch m.state {
	case usersStateCreate:
		if m.createSave {
			if _, err := m.app.Users.Create(m.createUsername, m.createPassword); err != nil {
				m.err = err
				return nil
			}
		}
		m.toList()
	case usersStateResetPassword:
		if m.pwSave && m.selected != nil {
			if err := m.app.Users.UpdatePassword(m.selected.ID, m.newPassword); err != nil {
				m.err = err
				return nil
			}
		}
		m.toDetail()
	case usersStateDelete:
		if m.deleteConfirm && m.selected != nil {
			if err := m.app.Users.Delete(m.selected.ID); err != nil {
				m.err = err
				return nil
			}
			m.toList()
			return nil
		}
		m.toDetail()
	}
	return nil
}

func (m *usersModel) View() string {
	if m.err != nil {
		return errorView("Users", m.err)
	}

	switch m.state {
	case usersStateList:
		return m.list.View() + "\n" + hintStyle.Render("(q to quit, enter to select)")
	case usersStateDetail:
		if m.selected == nil {
			return "No user selected\n\n" + hintStyle.Render("(esc to go back)")
		}
		return titleStyle.Render("User: "+m.selected.Username) + "\n" + userMeta(m.selected) + "\n" +
			m.list.View() + "\n" + hintStyle.Render("(esc to go back)")
	default:
		return m.form.View() + "\n\n" + hintStyle.Render("(esc to go back)")
	}
}

func userMeta(u *user.User) string {
	last := "never"
	if u.LastLoginAt != nil {
		last = u.LastLoginAt.Local().Format("2006-01-02 15:04")
	}
	return fmt.Sprintf("Game account: %s\nLogins: %d\nLast login: %s\nCreated: %s\n",
		u.AccountID(), u.TotalLogins, last, u.CreatedAt.Local().Format("2006-01-02"))
}

func (m *usersModel) reloadList() {
	users, err := m.app.Users.List()
	if err != nil {
		m.err = err
		return
	}

	items := make([]list.Item, 0, len(users)+1)
	items = append(items, userItem{title: "+ Create new user", desc: "Add a login", kind: "create"})
	for _, u := range users {
		desc := fmt.Sprintf("%s • logins %d", u.AccountID(), u.TotalLogins)
		items = append(items, userItem{id: u.ID, title: u.Username, desc: desc, kind: "user"})
	}

	m.list = list.New(items, list.NewDefaultDelegate(), m.width, m.height-2)
	m.list.SetShowStatusBar(false)
	m.list.SetFilteringEnabled(true)
	m.list.SetShowHelp(true)
	m.list.Title = "Users"
}

func newActionList(w, h int) list.Model {
	items := []list.Item{
		userItem{title: "Reset password", desc: "Set a new password", kind: "reset_password"},
		userItem{title: "Delete login", desc: "Remove the login; the game account stays", kind: "delete"},
		userItem{title: "Back", desc: "Return to users list", kind: "back"},
	}
	l := list.New(items, list.NewDefaultDelegate(), w, h-8)
	l.Title = "Actions"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.SetShowHelp(true)
	return l
}

func (m *usersModel) startCreate() {
	m.state = usersStateCreate
	m.createUsername = ""
	m.createPassword = ""
	m.createSave = true
	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Username").Value(&m.createUsername).Validate(func(s string) error {
				if err := user.ValidateUsername(s); err != nil {
					return err
				}
				if m.app.Users.Exists(s) {
					return user.ErrUsernameTaken
				}
				return nil
			}),
			huh.NewInput().Title("Password").EchoMode(huh.EchoModePassword).Value(&m.createPassword).Validate(user.ValidatePassword),
		),
		huh.NewGroup(
			huh.NewConfirm().Title("Create user?").Value(&m.createSave),
		),
	)
}

func (m *usersModel) startResetPassword() {
	m.state = usersStateResetPassword
	m.newPassword = ""
	m.pwConfirm = ""
	m.pwSave = true
	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("New password").EchoMode(huh.EchoModePassword).Value(&m.newPassword).Validate(user.ValidatePassword),
			huh.NewInput().Title("Confirm password").EchoMode(huh.EchoModePassword).Value(&m.pwConfirm).Validate(func(s string) error {
				if s != m.newPassword {
					return fmt.Errorf("passwords do not match")
				}
				return nil
			}),
		),
		huh.NewGroup(
			huh.NewConfirm().Title("Reset password?").Value(&m.pwSave),
		),
	)
}

func (m *usersModel) startDelete() {
	m.state = usersStateDelete
	m.deleteConfirm = false
	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Delete %s?", m.selected.Username)).
				Description("The score stays in the account snapshot.").
				Value(&m.deleteConfirm),
		),
	)
}

func (m *usersModel) back() {
	switch m.state {
	case usersStateList:
		m.done = true
	case usersStateDetail:
		m.toList()
	default:
		m.toDetail()
	}
}

func (m *usersModel) toList() {
	m.state = usersStateList
	m.selected = nil
	m.form = nil
	m.reloadList()
}

func (m *usersModel) toDetail() {
	m.refreshSelected()
	m.state = usersStateDetail
	m.form = nil
	m.list = newActionList(m.width, m.height)
}

func (m *usersModel) refreshSelected() {
	if m.selected == nil {
		return
	}
	u, err := m.app.Users.GetByID(m.selected.ID)
	if err == nil {
		m.selected = u
	}
}
