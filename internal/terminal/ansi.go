package terminal

// ANSI SGR sequences used by session screens.
const (
	Reset = "\033[0m"

	FgGray        = "\033[37m"
	FgBrightRed   = "\033[1;31m"
	FgBrightGreen = "\033[1;32m"
	FgYellow      = "\033[1;33m"
	FgBrightCyan  = "\033[1;36m"
)

// ClearScreen returns the ANSI clear-screen sequence and homes the cursor.
func ClearScreen() string {
	return "\033[2J\033[1;1H"
}
