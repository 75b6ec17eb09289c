package node

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/notepid/lapgame/internal/chat"
	"github.com/notepid/lapgame/internal/db"
	"github.com/notepid/lapgame/internal/terminal"
	"github.com/notepid/lapgame/internal/user"
)

const (
	maxLoginAttempts = 3
	maxBlankPrompts  = 10
)

var errTooManyAttempts = errors.New("too many failed logins")

// SettingsSource provides the current server identity.
type SettingsSource interface {
	GetSettings() (*db.Settings, error)
}

// Node is one connected session.
type Node struct {
	ID        int
	Term      *terminal.Terminal
	ConnectAt time.Time
	Remote    string

	// Dependencies injected from main.
	Users    *user.Repo
	Broker   *chat.Broker
	Handler  chat.Handler
	Settings SettingsSource

	mu        sync.Mutex
	userName  string
	accountID string
	room      string

	closeOnce sync.Once
}

// NewNode creates a new node for the given terminal.
func NewNode(id int, term *terminal.Terminal, remoteAddr string) *Node {
	return &Node{
		ID:        id,
		Term:      term,
		ConnectAt: time.Now(),
		Remote:    remoteAddr,
	}
}

func (n *Node) identity() (name, accountID, room string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.userName, n.accountID, n.room
}

func (n *Node) setIdentity(name, accountID, room string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.userName, n.accountID, n.room = name, accountID, room
}

// Run drives the session: banner, login or registration, then the lobby.
func (n *Node) Run(ctx context.Context, mgr *Manager) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Node %d panic: %v", n.ID, r)
		}
		n.Disconnect()
		mgr.Remove(n.ID)
		log.Printf("Node %d disconnected (%s)", n.ID, n.Remote)
	}()

	log.Printf("Node %d connected from %s", n.ID, n.Remote)

	settings := n.settings()
	n.banner(settings)

	u, err := n.login()
	if err != nil {
		if errors.Is(err, errTooManyAttempts) {
			n.Term.SendLn("Too many failed attempts. Goodbye.")
		}
		return
	}
	log.Printf("Node %d: %s logged in", n.ID, u.Username)

	n.setIdentity(u.Username, u.AccountID(), settings.Lobby)
	err = chat.RunRoomSession(ctx, chat.RoomSessionConfig{
		Term:      n.Term,
		Broker:    n.Broker,
		Handler:   n.Handler,
		NodeID:    n.ID,
		UserName:  u.Username,
		AccountID: u.AccountID(),
		Room:      settings.Lobby,
	})
	if err != nil {
		log.Printf("Node %d room session error: %v", n.ID, err)
	}
	n.Term.SendLn("Goodbye!")
}

func (n *Node) settings() *db.Settings {
	fallback := &db.Settings{Name: "Lap Game", Lobby: "lobby"}
	if n.Settings == nil {
		return fallback
	}
	s, err := n.Settings.GetSettings()
	if err != nil {
		log.Printf("Node %d: Warning: %v", n.ID, err)
		return fallback
	}
	if s.Lobby == "" {
		s.Lobby = fallback.Lobby
	}
	return s
}

func (n *Node) banner(s *db.Settings) {
	t := n.Term
	t.Cls()
	t.SendLn(t.Colorize(terminal.FgBrightCyan, "  "+s.Name))
	if s.Operator != "" {
		t.SendLn(t.Colorize(terminal.FgGray, "  Operator: "+s.Operator))
	}
	if s.MOTD != "" {
		t.SendLn("")
		t.SendLn(t.Colorize(terminal.FgYellow, "  "+s.MOTD))
	}
	t.SendLn("")
}

// login authenticates an existing user or registers a new one.
func (n *Node) login() (*user.User, error) {
	blanks := 0
	for attempt := 0; attempt < maxLoginAttempts; attempt++ {
		name, err := n.Term.Ask("Username (or NEW): ", 20)
		if err != nil {
			return nil, err
		}
		name = strings.TrimSpace(name)
		if name == "" {
			blanks++
			if blanks >= maxBlankPrompts {
				break
			}
			attempt--
			continue
		}
		if strings.EqualFold(name, "new") {
			u, err := n.register()
			if err == nil {
				return u, nil
			}
			if !isUserError(err) {
				return nil, err
			}
			n.Term.SendLn(n.Term.Colorize(terminal.FgBrightRed, "  "+err.Error()))
			continue
		}

		pw, err := n.Term.AskPassword("Password: ", 64)
		if err != nil {
			return nil, err
		}
		u, err := n.Users.Authenticate(name, pw)
		if errors.Is(err, user.ErrInvalidCredentials) {
			n.Term.SendLn(n.Term.Colorize(terminal.FgBrightRed, "  Invalid login."))
			continue
		}
		if err != nil {
			return nil, err
		}
		n.Term.SendLn(n.Term.Colorize(terminal.FgBrightGreen, fmt.Sprintf("  Welcome back, %s! Logins: %d", u.Username, u.TotalLogins)))
		return u, nil
	}
	return nil, errTooManyAttempts
}

func (n *Node) register() (*user.User, error) {
	name, err := n.Term.Ask("Choose a username: ", 20)
	if err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if err := user.ValidateUsername(name); err != nil {
		return nil, err
	}
	if n.Users.Exists(name) {
		return nil, user.ErrUsernameTaken
	}

	pw, err := n.Term.AskPassword("Choose a password: ", 64)
	if err != nil {
		return nil, err
	}
	confirm, err := n.Term.AskPassword("Repeat password: ", 64)
	if err != nil {
		return nil, err
	}
	if pw != confirm {
		return nil, errPasswordMismatch
	}
	ok, err := n.Term.YesNo(fmt.Sprintf("Create login %s?", name))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errRegistrationCancelled
	}

	u, err := n.Users.Create(name, pw)
	if err != nil {
		return nil, err
	}
	log.Printf("Node %d: registered %s", n.ID, u.Username)
	n.Term.SendLn(n.Term.Colorize(terminal.FgBrightGreen, "  Account created. Welcome, "+u.Username+"!"))
	return u, nil
}

var (
	errPasswordMismatch      = errors.New("passwords do not match")
	errRegistrationCancelled = errors.New("registration cancelled")
)

func isUserError(err error) bool {
	return errors.Is(err, user.ErrInvalidUsername) ||
		errors.Is(err, user.ErrUsernameTaken) ||
		errors.Is(err, user.ErrWeakPassword) ||
		errors.Is(err, errPasswordMismatch) ||
		errors.Is(err, errRegistrationCancelled)
}

// Disconnect closes the node connection.
func (n *Node) Disconnect() {
	n.closeOnce.Do(func() {
		if n.Term != nil {
			n.Term.Close()
		}
	})
}
