package bot

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notepid/lapgame/internal/account"
	"github.com/notepid/lapgame/internal/reward"
	"github.com/notepid/lapgame/internal/spam"
)

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

type harness struct {
	store   *account.Store
	guard   *spam.Guard
	windows *reward.Windows
	engine  *Engine
	sent    chan string
}

type chanNotifier chan string

func (c chanNotifier) Notify(ctx context.Context, id, text string) error {
	c <- id + ": " + text
	return nil
}

func newHarness(t *testing.T, cfg Config) *harness {
	t.Helper()
	rules := account.DefaultRules()
	rules.StreakEvery = 0
	h := &harness{
		store:   account.NewStore(rules),
		guard:   spam.NewGuard(spam.Config{}),
		windows: reward.NewWindows(reward.DefaultWindowConfig()),
		sent:    make(chan string, 8),
	}
	h.engine = NewEngine(h.store, h.guard, cfg, Options{Windows: h.windows, Notifier: chanNotifier(h.sent)})
	return h
}

func (h *harness) say(id, text string, at time.Time) Response {
	return h.engine.Handle(context.Background(), Event{
		SenderID:    id,
		DisplayName: strings.ToUpper(id),
		Text:        text,
		Room:        "lobby",
		Now:         at,
	})
}

func TestParseKeywords(t *testing.T) {
	k := DefaultKeywords()
	tests := []struct {
		in   string
		cmd  command
		args string
	}{
		{"lap", cmdClaim, ""},
		{"  LAP ", cmdClaim, ""},
		{"lap now please", cmdClaim, "now please"},
		{"lapper", cmdNone, ""},
		{"me", cmdStatus, ""},
		{"Stats", cmdStatus, ""},
		{"top", cmdTop, ""},
		{"miner", cmdMiner, ""},
		{"give 10", cmdGive, "10"},
		{"give", cmdGive, ""},
		{"help", cmdHelp, ""},
		{"hello there", cmdNone, ""},
		{"", cmdNone, ""},
	}
	for _, tc := range tests {
		cmd, args := k.parse(tc.in)
		assert.Equal(t, tc.cmd, cmd, "parse(%q)", tc.in)
		assert.Equal(t, tc.args, args, "parse(%q)", tc.in)
	}
}

func TestClaimScenario(t *testing.T) {
	h := newHarness(t, DefaultConfig())

	r := h.say("u1", "lap", t0)
	assert.Equal(t, KindOK, r.Kind)
	assert.Contains(t, r.Text, "Score: 1")

	r = h.say("u1", "lap", t0.Add(4*time.Minute))
	assert.Equal(t, KindRejected, r.Kind)
	assert.Contains(t, r.Text, "1m")

	r = h.say("u1", "lap", t0.Add(5*time.Minute))
	assert.Equal(t, KindOK, r.Kind)
	assert.Contains(t, r.Text, "Score: 2")
}

func TestStatusAndTop(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	h.say("u1", "lap", t0)

	r := h.say("u1", "me", t0.Add(time.Second))
	assert.Equal(t, KindOK, r.Kind)
	assert.Contains(t, r.Text, "U1: score 1, level 1, rank Vagrant")

	h.say("u2", "hello", t0.Add(2*time.Second))
	r = h.say("u2", "top", t0.Add(3*time.Second))
	assert.Equal(t, KindOK, r.Kind)
	lines := strings.Split(r.Text, "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[1], "1. U1 - 1 points")
	assert.Contains(t, lines[2], "2. U2 - 0 points")
}

func TestUnknownTextPolicy(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	r := h.say("u1", "good morning", t0)
	assert.Equal(t, KindIgnored, r.Kind)
	assert.Empty(t, r.Text)

	// The account is still created on first contact.
	_, err := h.store.Get("u1")
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.ReplyUnknown = true
	h = newHarness(t, cfg)
	r = h.say("u1", "good morning", t0)
	assert.Equal(t, KindOK, r.Kind)
	assert.Contains(t, r.Text, "Commands:")
}

func TestSpamBlocksBeforeAccountLookup(t *testing.T) {
	h := newHarness(t, DefaultConfig())

	var last Response
	for i := 0; i < 8; i++ {
		last = h.say("u1", "lap", t0.Add(time.Duration(i)*100*time.Millisecond))
		assert.False(t, last.Spam())
	}
	r := h.say("u1", "lap", t0.Add(900*time.Millisecond))
	assert.Equal(t, KindSpamJustBlocked, r.Kind)
	assert.Contains(t, r.Text, "30s")

	r = h.say("u1", "lap", t0.Add(10*time.Second))
	assert.Equal(t, KindSpamBlocked, r.Kind)

	// A blocked stranger never gets an account.
	for i := 0; i < 12; i++ {
		h.guard.Check("ghost", t0)
	}
	r = h.say("ghost", "lap", t0)
	assert.Equal(t, KindSpamBlocked, r.Kind)
	_, err := h.store.Get("ghost")
	assert.ErrorIs(t, err, account.ErrNotFound)
}

func TestGive(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	_, err := h.store.GetOrCreate("a", "A")
	require.NoError(t, err)
	_, _, err = h.store.AwardBonus("a", 50)
	require.NoError(t, err)
	_, err = h.store.GetOrCreate("b", "B")
	require.NoError(t, err)

	give := func(target, text string) Response {
		return h.engine.Handle(context.Background(), Event{
			SenderID: "a", DisplayName: "A", Text: text, ReplyTargetID: target, Room: "lobby", Now: t0,
		})
	}

	r := give("b", "give 20")
	assert.Equal(t, KindOK, r.Kind)
	assert.Equal(t, "A sent 20 points to B. Score: 30", r.Text)
	select {
	case msg := <-h.sent:
		assert.Equal(t, "b: A sent you 20 points. Score: 20", msg)
	case <-time.After(2 * time.Second):
		t.Fatal("receiver was not notified")
	}

	tests := []struct {
		name   string
		target string
		text   string
		want   string
	}{
		{"no target", "", "give 5", "Reply to a player"},
		{"not a number", "b", "give lots", "Usage: give"},
		{"zero", "b", "give 0", "Usage: give"},
		{"self", "a", "give 5", "yourself"},
		{"too much", "b", "give 31", "enough points"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := give(tc.target, tc.text)
			assert.Equal(t, KindRejected, r.Kind)
			assert.Contains(t, r.Text, tc.want)
		})
	}

	a, _ := h.store.Get("a")
	b, _ := h.store.Get("b")
	assert.Equal(t, int64(30), a.Score)
	assert.Equal(t, int64(20), b.Score)
}

func TestMinerActions(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	interval := h.store.Rules().AccrualInterval

	r := h.say("u1", "miner", t0)
	assert.Equal(t, KindOK, r.Kind)
	assert.Contains(t, r.Text, "0/12 stored")
	assert.Equal(t, []Action{ActionUpgrade}, r.Actions)

	r = h.say("u1", "miner", t0.Add(3*interval))
	assert.Contains(t, r.Text, "3/12 stored")
	assert.Equal(t, []Action{ActionWithdraw, ActionUpgrade}, r.Actions)

	press := func(a Action, at time.Time) Response {
		return h.engine.Handle(context.Background(), Event{SenderID: "u1", Action: a, Now: at})
	}

	r = press(ActionWithdraw, t0.Add(3*interval))
	assert.Equal(t, KindOK, r.Kind)
	assert.Equal(t, "Withdrew 3 points. Score: 3", r.Text)

	r = press(ActionWithdraw, t0.Add(3*interval))
	assert.Equal(t, KindRejected, r.Kind)

	r = press(ActionUpgrade, t0.Add(3*interval))
	assert.Equal(t, KindRejected, r.Kind)
	assert.Contains(t, r.Text, "costs 50")

	_, _, err := h.store.AwardBonus("u1", 100)
	require.NoError(t, err)
	r = press(ActionUpgrade, t0.Add(3*interval))
	assert.Equal(t, KindOK, r.Kind)
	assert.Contains(t, r.Text, "level 2")

	r = press("dance", t0)
	assert.Equal(t, KindRejected, r.Kind)
}

func TestRewardWindowWinnerSkipsClaim(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	require.True(t, h.windows.Open("lobby", t0))

	r := h.say("u1", "lap", t0.Add(time.Second))
	assert.Equal(t, KindOK, r.Kind)
	assert.Contains(t, r.Text, "won the reward window")

	acc, err := h.store.Get("u1")
	require.NoError(t, err)
	assert.Equal(t, int64(15), acc.Score)
	assert.Equal(t, int64(0), acc.ClaimCount)

	// The window is gone; the next claimant gets an ordinary claim.
	r = h.say("u2", "lap", t0.Add(2*time.Second))
	assert.Contains(t, r.Text, "+1 points")
}

func TestZeroBonusWindowFallsBackToClaim(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	h.windows = reward.NewWindows(reward.WindowConfig{Every: time.Minute, Duration: time.Minute})
	h.engine = NewEngine(h.store, h.guard, DefaultConfig(), Options{Windows: h.windows})
	require.True(t, h.windows.Open("lobby", t0))

	r := h.say("u1", "lap", t0.Add(time.Second))
	assert.Equal(t, KindOK, r.Kind)
	assert.Contains(t, r.Text, "+1 points")

	acc, err := h.store.Get("u1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), acc.Score)
	assert.True(t, h.windows.IsOpen("lobby", t0.Add(time.Second)), "window is left untouched")
}

func TestMissingSender(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	r := h.engine.Handle(context.Background(), Event{Text: "lap", Now: t0})
	assert.Equal(t, KindError, r.Kind)
	assert.Equal(t, 0, h.store.Len())
}

func TestFormatWait(t *testing.T) {
	assert.Equal(t, "1m", formatWait(time.Minute))
	assert.Equal(t, "1s", formatWait(300*time.Millisecond))
	assert.Equal(t, "4m 30s", formatWait(4*time.Minute+30*time.Second))
	assert.Equal(t, "1h 5m", formatWait(65*time.Minute))
	assert.Equal(t, "0s", formatWait(-time.Second))
}
