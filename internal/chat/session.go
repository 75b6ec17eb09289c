package chat

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/notepid/lapgame/internal/bot"
)

// Terminal is the minimal terminal interface needed to run a room session.
// *terminal.Terminal satisfies this interface.
type Terminal interface {
	Cls() error
	SendLn(s string) error
	GetLine(maxLen int) (string, error)
}

// Handler answers chat lines. *bot.Engine satisfies this interface.
type Handler interface {
	Handle(ctx context.Context, ev bot.Event) bot.Response
	Greeting(name string) string
}

// RoomSessionConfig configures an interactive game room session.
type RoomSessionConfig struct {
	Term      Terminal
	Broker    *Broker
	Handler   Handler
	NodeID    int
	UserName  string
	AccountID string
	Room      string
	Now       func() time.Time // defaults to time.Now in UTC
}

const maxLineLen = 200

// RunRoomSession runs one player's session in a room until they quit or
// the terminal fails. Every line goes through the handler first; lines the
// spam guard rejects are not relayed to the room.
func RunRoomSession(ctx context.Context, cfg RoomSessionConfig) error {
	if cfg.Term == nil || cfg.Broker == nil || cfg.Handler == nil {
		return fmt.Errorf("room session: terminal, broker and handler are required")
	}
	if cfg.Room == "" {
		cfg.Room = "lobby"
	}
	if cfg.UserName == "" {
		cfg.UserName = "Unknown"
	}
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}

	broker := cfg.Broker
	term := cfg.Term
	room := cfg.Room

	sub := broker.Subscribe(cfg.NodeID, cfg.UserName, cfg.AccountID)
	broker.JoinRoom(cfg.NodeID, room)
	broker.SendToRoom(cfg.NodeID, cfg.UserName, room, fmt.Sprintf("*** %s has joined ***", cfg.UserName))

	_ = term.Cls()
	_ = term.SendLn("  Room: " + room)
	_ = term.SendLn("  " + cfg.Handler.Greeting(cfg.UserName))
	_ = term.SendLn("  @name <text> replies to a player. /withdraw /upgrade /who /quit")
	_ = term.SendLn("  ---------------------------------------------")
	_ = term.SendLn("")

	done := make(chan struct{})
	go func() {
		for {
			select {
			case msg := <-sub.Ch:
				_ = term.SendLn("\r" + formatMessage(msg))
			case <-done:
				return
			}
		}
	}()

	var cleanupOnce sync.Once
	cleanup := func() {
		cleanupOnce.Do(func() {
			close(done)
			broker.LeaveRoom(cfg.NodeID)
			broker.Unsubscribe(cfg.NodeID)
		})
	}
	defer cleanup()

	for {
		line, err := term.GetLine(maxLineLen)
		if err != nil {
			break
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		switch strings.ToLower(line) {
		case "/quit", "/q":
			broker.SendToRoom(cfg.NodeID, cfg.UserName, room, fmt.Sprintf("*** %s has left ***", cfg.UserName))
			_ = term.SendLn("")
			_ = term.SendLn("  Left " + room + ".")
			return nil
		case "/who":
			_ = term.SendLn("  In " + room + ": " + strings.Join(broker.RoomMembers(room), ", "))
			continue
		case "/withdraw":
			post(cfg, term, "", cfg.Handler.Handle(ctx, cfg.event("", "", bot.ActionWithdraw)))
			continue
		case "/upgrade":
			post(cfg, term, "", cfg.Handler.Handle(ctx, cfg.event("", "", bot.ActionUpgrade)))
			continue
		}

		text, target := line, ""
		if strings.HasPrefix(line, "@") {
			name, rest, _ := strings.Cut(line[1:], " ")
			id, ok := broker.FindInRoom(room, name)
			if !ok {
				_ = term.SendLn(fmt.Sprintf("  No one called %s is here.", name))
			}
			target, text = id, strings.TrimSpace(rest)
		}

		resp := cfg.Handler.Handle(ctx, cfg.event(text, target, ""))
		post(cfg, term, line, resp)
	}
	return nil
}

func (cfg RoomSessionConfig) event(text, target string, action bot.Action) bot.Event {
	return bot.Event{
		SenderID:      cfg.AccountID,
		DisplayName:   cfg.UserName,
		Text:          text,
		ReplyTargetID: target,
		Room:          cfg.Room,
		Action:        action,
		Now:           cfg.Now(),
	}
}

// post relays the player's line and the game's reply. Spam replies go to
// the sender only and the line itself is dropped.
func post(cfg RoomSessionConfig, term Terminal, line string, resp bot.Response) {
	if resp.Spam() {
		_ = term.SendLn("  *** " + resp.Text)
		return
	}
	if line != "" {
		cfg.Broker.SendToRoom(cfg.NodeID, cfg.UserName, cfg.Room, line)
		_ = term.SendLn(fmt.Sprintf("  <%s> %s", cfg.UserName, line))
	}
	if resp.Text != "" {
		cfg.Broker.Announce(cfg.Room, resp.Text)
	}
	if len(resp.Actions) > 0 {
		var hints []string
		for _, a := range resp.Actions {
			hints = append(hints, "/"+actionCommand(a))
		}
		_ = term.SendLn("  Actions: " + strings.Join(hints, "  "))
	}
}

func actionCommand(a bot.Action) string {
	switch a {
	case bot.ActionWithdraw:
		return "withdraw"
	case bot.ActionUpgrade:
		return "upgrade"
	}
	return string(a)
}

func formatMessage(msg Message) string {
	prefix := fmt.Sprintf("  <%s> ", msg.FromUser)
	switch {
	case msg.Private:
		prefix = "  [notice] "
	case msg.System:
		prefix = "  *** "
	}
	lines := strings.Split(msg.Text, "\n")
	for i := range lines {
		lines[i] = prefix + lines[i]
	}
	return strings.Join(lines, "\r\n")
}
