// Package bot turns chat lines into game operations and formats the replies.
// It is transport-neutral: the chat layer hands it an Event and renders the
// Response.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/notepid/lapgame/internal/account"
	"github.com/notepid/lapgame/internal/reward"
	"github.com/notepid/lapgame/internal/spam"
)

// Action names a control the transport renders next to a response.
type Action string

const (
	ActionWithdraw Action = "withdraw-accrual"
	ActionUpgrade  Action = "upgrade-device"
)

// Kind classifies a response.
type Kind string

const (
	KindOK              Kind = "ok"
	KindRejected        Kind = "rejected"
	KindSpamJustBlocked Kind = "spam_just_blocked"
	KindSpamBlocked     Kind = "spam_blocked"
	KindIgnored         Kind = "ignored"
	KindError           Kind = "error"
)

// Event is one inbound chat line or action press.
type Event struct {
	SenderID      string
	DisplayName   string
	Text          string
	ReplyTargetID string // account the sender is replying to, if any
	Room          string
	Action        Action // set instead of Text when a control was pressed
	Now           time.Time
}

// Response is what the transport should post back.
type Response struct {
	Text    string
	Actions []Action
	Kind    Kind
}

// Spam reports whether the response came from the spam guard.
func (r Response) Spam() bool {
	return r.Kind == KindSpamJustBlocked || r.Kind == KindSpamBlocked
}

// Config tunes command handling.
type Config struct {
	Keywords     Keywords
	TopN         int
	ReplyUnknown bool // answer unrecognized text with help
}

// DefaultConfig returns the stock command settings.
func DefaultConfig() Config {
	return Config{
		Keywords: DefaultKeywords(),
		TopN:     5,
	}
}

// Options are optional collaborators.
type Options struct {
	Windows  *reward.Windows // reward windows; nil disables them
	Notifier reward.Notifier // transfer confirmations to the receiver
}

const notifyTimeout = 5 * time.Second

// Engine dispatches events against the account store.
type Engine struct {
	store    *account.Store
	guard    *spam.Guard
	windows  *reward.Windows
	notifier reward.Notifier
	cfg      Config
}

// NewEngine creates a command engine.
func NewEngine(store *account.Store, guard *spam.Guard, cfg Config, opts Options) *Engine {
	if cfg.TopN <= 0 {
		cfg.TopN = 5
	}
	return &Engine{
		store:    store,
		guard:    guard,
		windows:  opts.Windows,
		notifier: opts.Notifier,
		cfg:      cfg,
	}
}

// Handle processes one event. The spam guard runs before any account is
// looked up, so throttled senders never touch account state.
func (e *Engine) Handle(ctx context.Context, ev Event) Response {
	now := ev.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}
	if ev.SenderID == "" {
		return e.errorResponse(fmt.Errorf("event without sender: %w", account.ErrNotFound))
	}

	switch e.guard.Check(ev.SenderID, now) {
	case spam.JustBlocked:
		return Response{
			Kind: KindSpamJustBlocked,
			Text: fmt.Sprintf("%s, you're sending messages too fast! Muted for %s.", displayOr(ev), formatWait(e.guard.BlockedUntil(ev.SenderID).Sub(now))),
		}
	case spam.StillBlocked:
		return Response{
			Kind: KindSpamBlocked,
			Text: fmt.Sprintf("%s, you are muted for another %s.", displayOr(ev), formatWait(e.guard.BlockedUntil(ev.SenderID).Sub(now))),
		}
	}

	acc, err := e.store.GetOrCreate(ev.SenderID, ev.DisplayName)
	if err != nil {
		return e.errorResponse(err)
	}

	if ev.Action != "" {
		return e.handleAction(acc, ev.Action, now)
	}

	cmd, args := e.cfg.Keywords.parse(ev.Text)
	switch cmd {
	case cmdClaim:
		return e.claim(acc, ev.Room, now)
	case cmdStatus:
		return Response{Kind: KindOK, Text: statusText(acc)}
	case cmdTop:
		return Response{Kind: KindOK, Text: topText(e.store.Top(e.cfg.TopN))}
	case cmdMiner:
		return e.miner(acc, now)
	case cmdGive:
		return e.give(ctx, acc, ev.ReplyTargetID, args, now)
	case cmdHelp:
		return Response{Kind: KindOK, Text: e.helpText()}
	}

	if e.cfg.ReplyUnknown {
		return Response{Kind: KindOK, Text: e.helpText()}
	}
	return Response{Kind: KindIgnored}
}

func (e *Engine) claim(acc account.Account, room string, now time.Time) Response {
	name := nameOf(acc)
	if e.windows != nil && e.windows.Bonus() > 0 && room != "" && e.windows.TryWin(room, now) {
		updated, leveled, err := e.store.AwardBonus(acc.ID, e.windows.Bonus())
		if err != nil {
			return e.errorResponse(err)
		}
		log.Printf("Bot: %s won the reward window in %s", acc.ID, room)
		return Response{Kind: KindOK, Text: windowWinText(name, e.windows.Bonus(), updated, leveled)}
	}

	res, err := e.store.Claim(acc.ID, now)
	if errors.Is(err, account.ErrRateLimited) {
		return Response{
			Kind: KindRejected,
			Text: fmt.Sprintf("%s, please wait %s before claiming again.", name, formatWait(res.Remaining)),
		}
	}
	if err != nil {
		return e.errorResponse(err)
	}
	return Response{Kind: KindOK, Text: claimText(name, res)}
}

func (e *Engine) miner(acc account.Account, now time.Time) Response {
	view, err := e.store.InteractDevice(acc.ID, now)
	if err != nil {
		return e.errorResponse(err)
	}
	resp := Response{Kind: KindOK, Text: deviceText(view)}
	if view.Stored > 0 {
		resp.Actions = append(resp.Actions, ActionWithdraw)
	}
	if view.NextLevel > 0 {
		resp.Actions = append(resp.Actions, ActionUpgrade)
	}
	return resp
}

func (e *Engine) handleAction(acc account.Account, action Action, now time.Time) Response {
	switch action {
	case ActionWithdraw:
		amount, updated, err := e.store.WithdrawDevice(acc.ID, now)
		if err != nil {
			return e.errorResponse(err)
		}
		if amount == 0 {
			return Response{Kind: KindRejected, Text: "Nothing stored yet. Check back later."}
		}
		return Response{Kind: KindOK, Text: fmt.Sprintf("Withdrew %d points. Score: %d", amount, updated.Score)}

	case ActionUpgrade:
		res, err := e.store.UpgradeDevice(acc.ID, now)
		if err != nil {
			return e.errorResponse(err)
		}
		kind := KindOK
		if !res.Success {
			kind = KindRejected
		}
		return Response{Kind: kind, Text: upgradeText(res)}
	}
	return Response{Kind: KindRejected, Text: fmt.Sprintf("Unknown action %q.", action)}
}

func (e *Engine) give(ctx context.Context, acc account.Account, target, args string, now time.Time) Response {
	if target == "" {
		return e.errorResponse(account.ErrNoTarget)
	}
	amount, err := strconv.ParseInt(args, 10, 64)
	if err != nil {
		return e.errorResponse(account.ErrInvalidAmount)
	}

	rec, err := e.store.Transfer(acc.ID, target, amount, now)
	if err != nil {
		return e.errorResponse(err)
	}

	toName := target
	if to, err := e.store.Get(target); err == nil {
		toName = nameOf(to)
	}
	log.Printf("Bot: transfer %s: %s -> %s, %d points", rec.ID, rec.From, rec.To, rec.Amount)

	if e.notifier != nil {
		text := fmt.Sprintf("%s sent you %d points. Score: %d", nameOf(acc), rec.Amount, rec.ToScore)
		go e.notify(ctx, rec.To, text)
	}
	return Response{
		Kind: KindOK,
		Text: fmt.Sprintf("%s sent %d points to %s. Score: %d", nameOf(acc), rec.Amount, toName, rec.FromScore),
	}
}

func (e *Engine) notify(ctx context.Context, id, text string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()
	if err := e.notifier.Notify(ctx, id, text); err != nil {
		log.Printf("Bot: notify %s: %v", id, err)
	}
}

// errorResponse maps an error category to what the player sees.
func (e *Engine) errorResponse(err error) Response {
	switch {
	case errors.Is(err, account.ErrInvalidAmount):
		return Response{Kind: KindRejected, Text: fmt.Sprintf("Usage: %s <positive amount>, as a reply to another player.", first(e.cfg.Keywords.Give))}
	case errors.Is(err, account.ErrSelfTransfer):
		return Response{Kind: KindRejected, Text: "You can't give points to yourself."}
	case errors.Is(err, account.ErrNoTarget):
		return Response{Kind: KindRejected, Text: "Reply to a player (@name) to give them points."}
	case errors.Is(err, account.ErrValidation):
		return Response{Kind: KindRejected, Text: "That request is not valid."}
	case errors.Is(err, account.ErrInsufficientFunds):
		return Response{Kind: KindRejected, Text: "You don't have enough points for that."}
	case errors.Is(err, account.ErrRateLimited):
		return Response{Kind: KindRejected, Text: "Not yet, try again later."}
	case errors.Is(err, account.ErrNotFound):
		log.Printf("Bot: %v", err)
		return Response{Kind: KindError, Text: "Unknown player."}
	}
	log.Printf("Bot: unexpected error: %v", err)
	return Response{Kind: KindError, Text: "Something went wrong. Please try again."}
}

func displayOr(ev Event) string {
	if ev.DisplayName != "" {
		return ev.DisplayName
	}
	return ev.SenderID
}
