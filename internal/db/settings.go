package db

import (
	"fmt"
	"strings"
)

// Settings are the operator-editable server identity values.
type Settings struct {
	Name     string
	Operator string
	MOTD     string
	Lobby    string // room new sessions join
}

// GetSettings loads the server settings row.
func (db *DB) GetSettings() (*Settings, error) {
	var s Settings
	err := db.QueryRow("SELECT name, operator, motd, lobby FROM server_settings WHERE id = 1").Scan(
		&s.Name,
		&s.Operator,
		&s.MOTD,
		&s.Lobby,
	)
	if err != nil {
		return nil, fmt.Errorf("load server settings: %w", err)
	}
	return &s, nil
}

// UpdateSettings stores new server settings.
func (db *DB) UpdateSettings(s *Settings) error {
	lobby := strings.TrimSpace(s.Lobby)
	if lobby == "" {
		lobby = "lobby"
	}
	_, err := db.Exec(
		"UPDATE server_settings SET name = ?, operator = ?, motd = ?, lobby = ? WHERE id = 1",
		s.Name,
		s.Operator,
		s.MOTD,
		lobby,
	)
	if err != nil {
		return fmt.Errorf("update server settings: %w", err)
	}
	return nil
}
