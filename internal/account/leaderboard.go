package account

import "sort"

// Standing is one leaderboard row.
type Standing struct {
	Position    int
	ID          string
	DisplayName string
	Score       int64
	Level       int
	Rank        string
}

// Top returns the n highest scores, best first. Equal scores keep creation
// order so repeated calls on unchanged data agree.
func (s *Store) Top(n int) []Standing {
	if n <= 0 {
		return nil
	}
	accs := s.Snapshot()
	sort.SliceStable(accs, func(i, j int) bool { return accs[i].Score > accs[j].Score })
	if len(accs) > n {
		accs = accs[:n]
	}

	out := make([]Standing, len(accs))
	for i, a := range accs {
		out[i] = Standing{
			Position:    i + 1,
			ID:          a.ID,
			DisplayName: a.DisplayName,
			Score:       a.Score,
			Level:       a.Level,
			Rank:        a.Rank,
		}
	}
	return out
}
