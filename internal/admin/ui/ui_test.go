package ui

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/notepid/lapgame/internal/account"
)

func TestRoomName(t *testing.T) {
	for _, ok := range []string{"lobby", "race-track", "pit_2"} {
		assert.NoError(t, roomName(ok), ok)
	}
	for _, bad := range []string{"", "  ", "two words", "café"} {
		assert.Error(t, roomName(bad), bad)
	}
}

func TestStandingRows(t *testing.T) {
	rows := standingRows([]account.Standing{
		{Position: 1, ID: "u2", DisplayName: "bob", Score: 1200, Level: 3, Rank: "Vagrant"},
	})
	assert.Len(t, rows, 1)
	assert.Equal(t, []string{"1", "bob", "u2", "1200", "3", "Vagrant"}, []string(rows[0]))
}

func TestTableHeightHasFloor(t *testing.T) {
	assert.Equal(t, 5, tableHeight(0))
	assert.Equal(t, 32, tableHeight(40))
}
