// Package chat routes room messages and private notices between sessions.
package chat

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"

	"github.com/notepid/lapgame/internal/account"
)

// Message is one line delivered to a session.
type Message struct {
	FromNodeID int // 0 for the server itself
	FromUser   string
	Room       string
	Text       string
	System     bool // announcements and game replies
	Private    bool // a notice for this session only
}

// Subscriber receives chat messages for one session.
type Subscriber struct {
	NodeID    int
	UserName  string
	AccountID string
	Room      string // "" when not in a room
	Ch        chan Message
}

const subscriberBuffer = 32

// Broker routes messages between sessions.
type Broker struct {
	mu          sync.RWMutex
	subscribers map[int]*Subscriber
}

// NewBroker creates a message broker.
func NewBroker() *Broker {
	return &Broker{subscribers: make(map[int]*Subscriber)}
}

// Subscribe registers a session to receive messages.
func (b *Broker) Subscribe(nodeID int, userName, accountID string) *Subscriber {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := &Subscriber{
		NodeID:    nodeID,
		UserName:  userName,
		AccountID: accountID,
		Ch:        make(chan Message, subscriberBuffer),
	}
	b.subscribers[nodeID] = sub
	return sub
}

// Unsubscribe removes a session.
func (b *Broker) Unsubscribe(nodeID int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	// The channel stays open: senders may hold a snapshot of subscribers.
	delete(b.subscribers, nodeID)
}

// JoinRoom moves a session into room.
func (b *Broker) JoinRoom(nodeID int, room string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if sub, ok := b.subscribers[nodeID]; ok {
		sub.Room = room
	}
}

// LeaveRoom takes a session out of its room.
func (b *Broker) LeaveRoom(nodeID int) {
	b.JoinRoom(nodeID, "")
}

// SendToRoom sends a chat line to everyone in room except the sender.
func (b *Broker) SendToRoom(fromNodeID int, fromUser, room, text string) {
	b.deliver(Message{FromNodeID: fromNodeID, FromUser: fromUser, Room: room, Text: text},
		func(s *Subscriber) bool { return s.Room == room && s.NodeID != fromNodeID })
}

// Announce posts a server message to everyone in room.
func (b *Broker) Announce(room, text string) {
	b.deliver(Message{Room: room, Text: text, System: true},
		func(s *Subscriber) bool { return s.Room == room })
}

// Broadcast posts a server message to every session.
func (b *Broker) Broadcast(text string) {
	b.deliver(Message{Text: text, System: true}, func(*Subscriber) bool { return true })
}

func (b *Broker) deliver(msg Message, match func(*Subscriber) bool) {
	b.mu.RLock()
	var subs []*Subscriber
	for _, sub := range b.subscribers {
		if match(sub) {
			subs = append(subs, sub)
		}
	}
	b.mu.RUnlock()

	dropped := 0
	for _, sub := range subs {
		select {
		case sub.Ch <- msg:
		default:
			dropped++
		}
	}
	if dropped > 0 {
		log.Printf("Chat: dropped %d messages (room=%q, slow subscribers)", dropped, msg.Room)
	}
}

// Notify sends a private notice to every session playing accountID. It
// fails with account.ErrDelivery when the player is offline or every one of
// their buffers is full.
func (b *Broker) Notify(ctx context.Context, accountID, text string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("notify %s: %w: %w", accountID, account.ErrDelivery, err)
	}

	b.mu.RLock()
	var subs []*Subscriber
	for _, sub := range b.subscribers {
		if sub.AccountID == accountID {
			subs = append(subs, sub)
		}
	}
	b.mu.RUnlock()

	if len(subs) == 0 {
		return fmt.Errorf("notify %s: offline: %w", accountID, account.ErrDelivery)
	}
	delivered := 0
	for _, sub := range subs {
		select {
		case sub.Ch <- Message{Text: text, System: true, Private: true}:
			delivered++
		default:
		}
	}
	if delivered == 0 {
		return fmt.Errorf("notify %s: buffer full: %w", accountID, account.ErrDelivery)
	}
	return nil
}

// ActiveRooms returns the rooms with at least one member, sorted.
func (b *Broker) ActiveRooms() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	seen := make(map[string]bool)
	var rooms []string
	for _, sub := range b.subscribers {
		if sub.Room != "" && !seen[sub.Room] {
			seen[sub.Room] = true
			rooms = append(rooms, sub.Room)
		}
	}
	sort.Strings(rooms)
	return rooms
}

// RoomMembers returns the user names in room, sorted.
func (b *Broker) RoomMembers(room string) []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var members []string
	for _, sub := range b.subscribers {
		if sub.Room == room {
			members = append(members, sub.UserName)
		}
	}
	sort.Strings(members)
	return members
}

// FindInRoom resolves a user name in room to its account id.
func (b *Broker) FindInRoom(room, userName string) (string, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, sub := range b.subscribers {
		if sub.Room == room && strings.EqualFold(sub.UserName, userName) {
			return sub.AccountID, true
		}
	}
	return "", false
}

// OnlineUser describes one connected session.
type OnlineUser struct {
	NodeID   int
	UserName string
	Room     string
}

// ListOnline returns every subscribed session ordered by node id.
func (b *Broker) ListOnline() []OnlineUser {
	b.mu.RLock()
	defer b.mu.RUnlock()

	users := make([]OnlineUser, 0, len(b.subscribers))
	for _, sub := range b.subscribers {
		users = append(users, OnlineUser{NodeID: sub.NodeID, UserName: sub.UserName, Room: sub.Room})
	}
	sort.Slice(users, func(i, j int) bool { return users[i].NodeID < users[j].NodeID })
	return users
}
