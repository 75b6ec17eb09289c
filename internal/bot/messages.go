package bot

import (
	"fmt"
	"strings"
	"time"

	"github.com/notepid/lapgame/internal/account"
)

// Greeting is shown when a player joins a room.
func (e *Engine) Greeting(name string) string {
	return fmt.Sprintf("Welcome, %s! Type '%s' to earn points or '%s' for commands.",
		name, first(e.cfg.Keywords.Claim), first(e.cfg.Keywords.Help))
}

func (e *Engine) helpText() string {
	k := e.cfg.Keywords
	var b strings.Builder
	b.WriteString("Commands:\n")
	fmt.Fprintf(&b, "  %-14s claim points (once every %s)\n", first(k.Claim), formatWait(e.store.Rules().ClaimInterval))
	fmt.Fprintf(&b, "  %-14s your score, level and rank\n", strings.Join(k.Status, ", "))
	fmt.Fprintf(&b, "  %-14s top %d players\n", first(k.Top), e.cfg.TopN)
	fmt.Fprintf(&b, "  %-14s your accrual device\n", first(k.Miner))
	fmt.Fprintf(&b, "  %-14s give points to the player you are replying to\n", first(k.Give)+" <n>")
	fmt.Fprintf(&b, "  %-14s this text", first(k.Help))
	return b.String()
}

func claimText(name string, res account.ClaimResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: +%d points! Score: %d", name, res.Amount, res.Score)
	if res.StreakBonus > 0 {
		fmt.Fprintf(&b, " (streak bonus +%d on claim #%d)", res.StreakBonus, res.ClaimCount)
	}
	if res.LeveledUp {
		fmt.Fprintf(&b, "\nLevel up! %s is now level %d, %s.", name, res.Level, res.Rank)
	}
	return b.String()
}

func windowWinText(name string, bonus int64, acc account.Account, leveled bool) string {
	s := fmt.Sprintf("%s won the reward window! +%d points. Score: %d", name, bonus, acc.Score)
	if leveled {
		s += fmt.Sprintf("\nLevel up! %s is now level %d, %s.", name, acc.Level, acc.Rank)
	}
	return s
}

func statusText(acc account.Account) string {
	return fmt.Sprintf("%s: score %d, level %d, rank %s, claims %d, device level %d",
		nameOf(acc), acc.Score, acc.Level, acc.Rank, acc.ClaimCount, acc.DeviceLevel)
}

func topText(rows []account.Standing) string {
	if len(rows) == 0 {
		return "No players yet."
	}
	var b strings.Builder
	b.WriteString("Top players:")
	for _, r := range rows {
		name := r.DisplayName
		if name == "" {
			name = r.ID
		}
		fmt.Fprintf(&b, "\n%d. %s - %d points (level %d, %s)", r.Position, name, r.Score, r.Level, r.Rank)
	}
	return b.String()
}

func deviceText(v account.DeviceView) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Accrual device level %d: %d/%d stored, +%d every %s.",
		v.Level, v.Stored, v.Capacity, v.Rate, formatWait(v.Interval))
	if v.NextLevel > 0 {
		fmt.Fprintf(&b, " Upgrade to level %d costs %d (you have %d).", v.NextLevel, v.UpgradeCost, v.Score)
	} else {
		b.WriteString(" Fully upgraded.")
	}
	return b.String()
}

func upgradeText(res account.UpgradeResult) string {
	switch {
	case res.Success:
		return fmt.Sprintf("Device upgraded to level %d for %d points. Score: %d", res.NewLevel, res.Cost, res.Score)
	case res.Reason == account.ReasonMaxLevel:
		return "Your device is already at the maximum level."
	default:
		return fmt.Sprintf("Upgrade costs %d points; you have %d.", res.Cost, res.Score)
	}
}

func nameOf(acc account.Account) string {
	if acc.DisplayName != "" {
		return acc.DisplayName
	}
	return acc.ID
}

// formatWait renders d rounded up to the second, e.g. "4m 30s".
func formatWait(d time.Duration) string {
	if d <= 0 {
		return "0s"
	}
	secs := int64((d + time.Second - 1) / time.Second)
	h, m, s := secs/3600, (secs%3600)/60, secs%60

	var parts []string
	if h > 0 {
		parts = append(parts, fmt.Sprintf("%dh", h))
	}
	if m > 0 {
		parts = append(parts, fmt.Sprintf("%dm", m))
	}
	if s > 0 {
		parts = append(parts, fmt.Sprintf("%ds", s))
	}
	return strings.Join(parts, " ")
}
