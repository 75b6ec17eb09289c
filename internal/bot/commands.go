package bot

import "strings"

// Keywords are the words players type to run commands. Matching is
// case-insensitive; a keyword matches the whole line or a line that starts
// with the keyword followed by a space.
type Keywords struct {
	Claim  []string
	Status []string
	Top    []string
	Miner  []string
	Give   []string
	Help   []string
}

// DefaultKeywords returns the stock command words.
func DefaultKeywords() Keywords {
	return Keywords{
		Claim:  []string{"lap"},
		Status: []string{"me", "stats"},
		Top:    []string{"top"},
		Miner:  []string{"miner"},
		Give:   []string{"give"},
		Help:   []string{"help"},
	}
}

type command int

const (
	cmdNone command = iota
	cmdClaim
	cmdStatus
	cmdTop
	cmdMiner
	cmdGive
	cmdHelp
)

func (c command) String() string {
	switch c {
	case cmdClaim:
		return "claim"
	case cmdStatus:
		return "status"
	case cmdTop:
		return "top"
	case cmdMiner:
		return "miner"
	case cmdGive:
		return "give"
	case cmdHelp:
		return "help"
	}
	return "none"
}

// parse maps a line of chat to a command and whatever follows the keyword.
func (k Keywords) parse(text string) (command, string) {
	line := strings.ToLower(strings.TrimSpace(text))
	if line == "" {
		return cmdNone, ""
	}

	table := []struct {
		cmd   command
		words []string
	}{
		{cmdClaim, k.Claim},
		{cmdStatus, k.Status},
		{cmdTop, k.Top},
		{cmdMiner, k.Miner},
		{cmdGive, k.Give},
		{cmdHelp, k.Help},
	}
	for _, row := range table {
		for _, w := range row.words {
			w = strings.ToLower(strings.TrimSpace(w))
			if w == "" {
				continue
			}
			if line == w {
				return row.cmd, ""
			}
			if strings.HasPrefix(line, w+" ") {
				return row.cmd, strings.TrimSpace(line[len(w)+1:])
			}
		}
	}
	return cmdNone, ""
}

// first returns the first keyword in words, for help text.
func first(words []string) string {
	for _, w := range words {
		if w = strings.TrimSpace(w); w != "" {
			return w
		}
	}
	return "?"
}
