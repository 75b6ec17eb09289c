package reward

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"
)

// WindowConfig tunes reward windows.
type WindowConfig struct {
	Every    time.Duration // how often windows open
	Duration time.Duration // how long a window stays open
	Bonus    int64
}

// DefaultWindowConfig returns the stock reward window settings.
func DefaultWindowConfig() WindowConfig {
	return WindowConfig{
		Every:    12 * time.Minute,
		Duration: 60 * time.Second,
		Bonus:    15,
	}
}

type roomWindow struct {
	closesAt time.Time
	open     bool
}

// Windows tracks one reward window per room. The first claimant in a room
// wins that room's window; other rooms are unaffected.
type Windows struct {
	mu    sync.Mutex
	cfg   WindowConfig
	rooms map[string]*roomWindow
}

// NewWindows creates an empty window set.
func NewWindows(cfg WindowConfig) *Windows {
	return &Windows{
		cfg:   cfg,
		rooms: make(map[string]*roomWindow),
	}
}

// Bonus returns the points a window is worth.
func (w *Windows) Bonus() int64 {
	return w.cfg.Bonus
}

// Open opens room's window at now. It reports false if one is already open.
func (w *Windows) Open(room string, now time.Time) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	rw := w.rooms[room]
	if rw == nil {
		rw = &roomWindow{}
		w.rooms[room] = rw
	}
	if rw.open && now.Before(rw.closesAt) {
		return false
	}
	rw.open = true
	rw.closesAt = now.Add(w.cfg.Duration)
	return true
}

// IsOpen reports whether room has an unclaimed window at now.
func (w *Windows) IsOpen(room string, now time.Time) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	rw := w.rooms[room]
	return rw != nil && rw.open && now.Before(rw.closesAt)
}

// TryWin closes room's window if it is open at now and reports whether the
// caller won it. At most one caller wins each window.
func (w *Windows) TryWin(room string, now time.Time) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	rw := w.rooms[room]
	if rw == nil || !rw.open {
		return false
	}
	rw.open = false
	return now.Before(rw.closesAt)
}

// RoomLister returns the rooms that currently have members.
type RoomLister interface {
	ActiveRooms() []string
}

// Announcer posts a system message to a room.
type Announcer interface {
	Announce(room, text string)
}

// RunWindows opens a window in every active room on the configured
// cadence until ctx is cancelled.
func (w *Windows) RunWindows(ctx context.Context, rooms RoomLister, announcer Announcer) {
	if w.cfg.Every <= 0 {
		return
	}
	ticker := time.NewTicker(w.cfg.Every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case t := <-ticker.C:
			w.openAll(t.UTC(), rooms, announcer)
		}
	}
}

func (w *Windows) openAll(now time.Time, rooms RoomLister, announcer Announcer) {
	opened := 0
	for _, room := range rooms.ActiveRooms() {
		if !w.Open(room, now) {
			continue
		}
		opened++
		announcer.Announce(room, fmt.Sprintf(
			"Reward window open! The first to say the claim word in the next %s wins %d points.",
			w.cfg.Duration.Round(time.Second), w.cfg.Bonus))
	}
	if opened > 0 {
		log.Printf("Reward: opened %d reward windows", opened)
	}
}
