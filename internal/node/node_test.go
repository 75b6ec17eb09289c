package node

import (
	"context"
	"io"
	"net"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notepid/lapgame/internal/bot"
	"github.com/notepid/lapgame/internal/chat"
	"github.com/notepid/lapgame/internal/db"
	"github.com/notepid/lapgame/internal/terminal"
	"github.com/notepid/lapgame/internal/user"
)

type echoHandler struct{}

func (echoHandler) Greeting(name string) string { return "Welcome to the track, " + name }

func (echoHandler) Handle(ctx context.Context, ev bot.Event) bot.Response {
	return bot.Response{Kind: bot.KindIgnored}
}

// runScripted runs a node against a scripted client and returns everything
// the client saw.
func runScripted(t *testing.T, database *db.DB, script string) string {
	t.Helper()
	server, client := net.Pipe()

	mgr := NewManager(4)
	id, ok := mgr.Acquire()
	require.True(t, ok)

	n := NewNode(id, terminal.New(server, 80, 24, false), "pipe")
	n.Users = user.NewRepo(database.DB)
	n.Broker = chat.NewBroker()
	n.Handler = echoHandler{}
	n.Settings = database
	mgr.Add(n)

	out := make(chan string, 1)
	go func() {
		b, _ := io.ReadAll(client)
		out <- string(b)
	}()
	go func() {
		client.Write([]byte(script))
	}()

	done := make(chan struct{})
	go func() {
		n.Run(context.Background(), mgr)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("node did not finish")
	}
	client.Close()
	assert.Equal(t, 0, mgr.Count(), "node removed itself")
	return <-out
}

func openDB(t *testing.T) *db.DB {
	t.Helper()
	database, err := db.Open(filepath.Join(t.TempDir(), "node.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return database
}

func TestNodeRegistersAndEntersLobby(t *testing.T) {
	database := openDB(t)

	out := runScripted(t, database, "NEW\rbob\rsecret1\rsecret1\ry/quit\r")

	assert.Contains(t, out, "Lap Game")
	assert.Contains(t, out, "Be nice. Claim often.")
	assert.Contains(t, out, "Account created. Welcome, bob!")
	assert.Contains(t, out, "Room: lobby")
	assert.Contains(t, out, "Welcome to the track, bob")
	assert.Contains(t, out, "Goodbye!")
	assert.NotContains(t, out, "secret1", "passwords are masked")

	assert.True(t, user.NewRepo(database.DB).Exists("bob"))
}

func TestNodeGivesUpAfterFailedLogins(t *testing.T) {
	database := openDB(t)

	out := runScripted(t, database, "ghost\rx\rghost\rx\rghost\rx\r")

	assert.Equal(t, 3, strings.Count(out, "Invalid login."))
	assert.Contains(t, out, "Too many failed attempts.")
	assert.NotContains(t, out, "Room:")
}

func TestNodeRejectsMismatchedPasswords(t *testing.T) {
	database := openDB(t)

	out := runScripted(t, database, "NEW\rcarol\rsecret1\rsecret2\rNEW\rcarol\rsecret1\rsecret1\ry/q\r")

	assert.Contains(t, out, "passwords do not match")
	assert.Contains(t, out, "Welcome to the track, carol")
}

func TestNodeGivesUpOnBlankUsernames(t *testing.T) {
	database := openDB(t)

	out := runScripted(t, database, strings.Repeat("\r", maxBlankPrompts))

	assert.Equal(t, maxBlankPrompts, strings.Count(out, "Username (or NEW): "))
	assert.Contains(t, out, "Too many failed attempts.")
	assert.NotContains(t, out, "Room:")
}
