package db

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenSeedsSettings(t *testing.T) {
	database, err := Open(filepath.Join(t.TempDir(), "lapgame.db"))
	require.NoError(t, err)
	defer database.Close()

	s, err := database.GetSettings()
	require.NoError(t, err)
	assert.Equal(t, "Lap Game", s.Name)
	assert.Equal(t, "lobby", s.Lobby)
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lapgame.db")

	first, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, first.UpdateSettings(&Settings{Name: "Track", Operator: "sam", MOTD: "go", Lobby: "pit"}))
	require.NoError(t, first.Close())

	second, err := Open(path)
	require.NoError(t, err)
	defer second.Close()

	var applied int
	require.NoError(t, second.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&applied))
	assert.Equal(t, len(migrations), applied)

	s, err := second.GetSettings()
	require.NoError(t, err)
	assert.Equal(t, "Track", s.Name)
	assert.Equal(t, "pit", s.Lobby)
}

func TestUpdateSettingsDefaultsLobby(t *testing.T) {
	database, err := Open(filepath.Join(t.TempDir(), "lapgame.db"))
	require.NoError(t, err)
	defer database.Close()

	require.NoError(t, database.UpdateSettings(&Settings{Name: "Lap Game", Operator: "op", Lobby: "  "}))

	s, err := database.GetSettings()
	require.NoError(t, err)
	assert.Equal(t, "lobby", s.Lobby)
}
