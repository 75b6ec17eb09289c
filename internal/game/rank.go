// Package game holds the pure rules of the lap game: level and rank
// derivation, cooldown gating and capped accrual. Nothing here keeps state;
// every function takes the relevant timestamps explicitly.
package game

// Level table constants.
const (
	ScorePerLevel   = 500
	MaxLevel        = 60
	RankBucketWidth = 5
)

// Ranks is the ordered rank ladder. Each label covers RankBucketWidth levels;
// levels past the end of the ladder keep the last label.
var Ranks = []string{
	"Vagrant",
	"Soldier",
	"Knight",
	"Commander",
	"Cult Commander",
	"Cult Ruler",
	"Continental Ruler",
	"King of the Sky Lands",
	"Incarnation",
	"True Sama",
	"Absolute Sama",
	"God",
	"Greater God",
	"Holy Universe God",
}

// LevelOf returns the level for a score. Negative scores count as zero.
func LevelOf(score int64) int {
	if score < 0 {
		score = 0
	}
	level := 1 + score/ScorePerLevel
	if level > MaxLevel {
		return MaxLevel
	}
	return int(level)
}

// RankOf returns the rank label for a level.
func RankOf(level int) string {
	if level < 1 {
		level = 1
	}
	idx := (level - 1) / RankBucketWidth
	if idx > len(Ranks)-1 {
		idx = len(Ranks) - 1
	}
	return Ranks[idx]
}

// Standing returns both level and rank for a score.
func Standing(score int64) (int, string) {
	level := LevelOf(score)
	return level, RankOf(level)
}
