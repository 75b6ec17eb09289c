package reward

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notepid/lapgame/internal/account"
)

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

type fakeNotifier struct {
	mu      sync.Mutex
	fail    map[string]bool
	sent    map[string][]string
	onEnter func()
}

func newFakeNotifier(failing ...string) *fakeNotifier {
	f := &fakeNotifier{fail: map[string]bool{}, sent: map[string][]string{}}
	for _, id := range failing {
		f.fail[id] = true
	}
	return f
}

func (f *fakeNotifier) Notify(ctx context.Context, id, text string) error {
	if f.onEnter != nil {
		f.onEnter()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail[id] {
		return errors.New("offline")
	}
	f.sent[id] = append(f.sent[id], text)
	return nil
}

func (f *fakeNotifier) recipients() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []string
	for id := range f.sent {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func newStore(t *testing.T, ids ...string) *account.Store {
	t.Helper()
	s := account.NewStore(account.DefaultRules())
	for _, id := range ids {
		_, err := s.GetOrCreate(id, id)
		require.NoError(t, err)
	}
	return s
}

func TestSweepRewardsEveryone(t *testing.T) {
	s := newStore(t, "a", "b", "c")
	n := newFakeNotifier()
	sch := NewScheduler(s, n, DefaultConfig())

	stats := sch.Sweep(context.Background(), t0)
	assert.Equal(t, SweepStats{Checked: 3, Rewarded: 3}, stats)
	assert.Equal(t, []string{"a", "b", "c"}, n.recipients())

	acc, err := s.Get("b")
	require.NoError(t, err)
	assert.Equal(t, int64(20), acc.Score)
	assert.Equal(t, t0, acc.LastPeriodicRewardTime)
	assert.Contains(t, n.sent["b"][0], "+20")
}

func TestSweepRespectsInterval(t *testing.T) {
	s := newStore(t, "a")
	sch := NewScheduler(s, nil, DefaultConfig())

	assert.Equal(t, 1, sch.Sweep(context.Background(), t0).Rewarded)
	assert.Equal(t, 0, sch.Sweep(context.Background(), t0.Add(29*time.Minute)).Rewarded)
	assert.Equal(t, 1, sch.Sweep(context.Background(), t0.Add(30*time.Minute)).Rewarded)

	acc, err := s.Get("a")
	require.NoError(t, err)
	assert.Equal(t, int64(40), acc.Score)
}

func TestSweepDeliveryFailureIsolated(t *testing.T) {
	s := newStore(t, "a", "b", "c")
	n := newFakeNotifier("b")
	sch := NewScheduler(s, n, DefaultConfig())

	stats := sch.Sweep(context.Background(), t0)
	assert.Equal(t, 3, stats.Rewarded)
	assert.Equal(t, 1, stats.Undelivered)
	assert.Equal(t, []string{"a", "c"}, n.recipients())

	// The failed notice does not undo the reward.
	acc, err := s.Get("b")
	require.NoError(t, err)
	assert.Equal(t, int64(20), acc.Score)
}

func TestSweepNotifiesWithoutHoldingLocks(t *testing.T) {
	s := newStore(t, "a")
	n := newFakeNotifier()
	// A notifier that reads the store would deadlock if the sweep held
	// the account lock while notifying.
	n.onEnter = func() {
		_, err := s.Claim("a", t0)
		assert.NoError(t, err)
	}
	sch := NewScheduler(s, n, DefaultConfig())

	done := make(chan struct{})
	go func() {
		sch.Sweep(context.Background(), t0)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("sweep blocked while notifying")
	}

	acc, err := s.Get("a")
	require.NoError(t, err)
	assert.Equal(t, int64(21), acc.Score)
}

func TestRunInvokesHooks(t *testing.T) {
	s := newStore(t, "a")
	cfg := Config{Cadence: time.Hour, FirstDelay: time.Millisecond, Interval: time.Minute, Bonus: 1}
	sch := NewScheduler(s, nil, cfg)

	fired := make(chan time.Time, 1)
	sch.OnTick(func(now time.Time) {
		select {
		case fired <- now:
		default:
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sch.Run(ctx)

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("hook never ran")
	}
	acc, err := s.Get("a")
	require.NoError(t, err)
	assert.Equal(t, int64(1), acc.Score)
}

func TestWindowFirstClaimantWins(t *testing.T) {
	w := NewWindows(DefaultWindowConfig())

	assert.False(t, w.TryWin("lobby", t0), "no window yet")
	require.True(t, w.Open("lobby", t0))
	assert.False(t, w.Open("lobby", t0.Add(time.Second)), "already open")
	assert.True(t, w.IsOpen("lobby", t0.Add(time.Second)))

	assert.True(t, w.TryWin("lobby", t0.Add(10*time.Second)))
	assert.False(t, w.TryWin("lobby", t0.Add(11*time.Second)))
	assert.False(t, w.IsOpen("lobby", t0.Add(11*time.Second)))
}

func TestWindowExpires(t *testing.T) {
	w := NewWindows(DefaultWindowConfig())
	require.True(t, w.Open("lobby", t0))
	assert.False(t, w.TryWin("lobby", t0.Add(time.Minute)))

	// Expired windows can reopen.
	assert.True(t, w.Open("lobby", t0.Add(12*time.Minute)))
}

func TestWindowsArePerRoom(t *testing.T) {
	w := NewWindows(DefaultWindowConfig())
	require.True(t, w.Open("lobby", t0))
	require.True(t, w.Open("cellar", t0))

	assert.True(t, w.TryWin("lobby", t0.Add(time.Second)))
	assert.True(t, w.IsOpen("cellar", t0.Add(time.Second)))
	assert.True(t, w.TryWin("cellar", t0.Add(2*time.Second)))
	assert.False(t, w.TryWin("elsewhere", t0))
}

func TestWindowSingleWinnerUnderRace(t *testing.T) {
	w := NewWindows(DefaultWindowConfig())
	require.True(t, w.Open("lobby", t0))

	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if w.TryWin("lobby", t0.Add(time.Second)) {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, winners)
}

type staticRooms []string

func (r staticRooms) ActiveRooms() []string { return r }

type recordingAnnouncer struct {
	rooms []string
}

func (a *recordingAnnouncer) Announce(room, text string) {
	a.rooms = append(a.rooms, room)
}

func TestOpenAllAnnouncesOnce(t *testing.T) {
	w := NewWindows(DefaultWindowConfig())
	ann := &recordingAnnouncer{}

	w.openAll(t0, staticRooms{"lobby", "cellar"}, ann)
	w.openAll(t0.Add(time.Second), staticRooms{"lobby", "cellar"}, ann)
	assert.Equal(t, []string{"lobby", "cellar"}, ann.rooms)
}
