package terminal

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"
)

// Terminal provides line-oriented I/O over a raw connection. It writes
// CRLF line endings and serializes writes, so a session may print incoming
// chat from one goroutine while another reads input.
type Terminal struct {
	rwc         io.ReadWriteCloser
	Width       int
	Height      int
	ANSIEnabled bool

	wmu sync.Mutex

	// echoControl asks the client to stop or resume local echo.
	echoControl func(on bool) error
}

// New creates a new Terminal wrapping the given ReadWriteCloser.
func New(rwc io.ReadWriteCloser, width, height int, ansiEnabled bool) *Terminal {
	return &Terminal{
		rwc:         rwc,
		Width:       width,
		Height:      height,
		ANSIEnabled: ansiEnabled,
	}
}

// SetEchoControl registers a callback for enabling/disabling echo behavior.
func (t *Terminal) SetEchoControl(fn func(on bool) error) {
	t.echoControl = fn
}

// Close closes the underlying connection.
func (t *Terminal) Close() error {
	return t.rwc.Close()
}

// Send writes raw text to the terminal.
func (t *Terminal) Send(data string) error {
	t.wmu.Lock()
	defer t.wmu.Unlock()
	_, err := io.WriteString(t.rwc, data)
	return err
}

// SendLn writes a line of text followed by CR+LF.
func (t *Terminal) SendLn(text string) error {
	return t.Send(text + "\r\n")
}

// Cls clears the screen.
func (t *Terminal) Cls() error {
	if t.ANSIEnabled {
		return t.Send(ClearScreen())
	}
	return t.Send(strings.Repeat("\r\n", 24))
}

// Colorize wraps s in an ANSI color when the terminal supports it.
func (t *Terminal) Colorize(color, s string) string {
	if !t.ANSIEnabled {
		return s
	}
	return color + s + Reset
}

// ReadByte reads a single byte from the terminal.
func (t *Terminal) ReadByte() (byte, error) {
	buf := make([]byte, 1)
	if _, err := io.ReadFull(t.rwc, buf); err != nil {
		return 0, err
	}
	return buf[0], nil
}

// GetKey waits for and returns a single keypress.
func (t *Terminal) GetKey() (byte, error) {
	return t.ReadByte()
}

// GetLine reads a line of up to maxLen characters, echoing as it goes.
// Input is decoded as UTF-8; backspace removes a whole character.
func (t *Terminal) GetLine(maxLen int) (string, error) {
	return t.readLine(maxLen, func(r rune) string { return string(r) })
}

// GetPassword reads a line without echo, showing an asterisk per character.
func (t *Terminal) GetPassword(maxLen int) (string, error) {
	if t.echoControl != nil {
		t.echoControl(false)
		defer t.echoControl(true)
	}
	return t.readLine(maxLen, func(rune) string { return "*" })
}

func (t *Terminal) readLine(maxLen int, echo func(rune) string) (string, error) {
	var line []rune
	var pending []byte // bytes of a partial UTF-8 sequence

	for {
		b, err := t.ReadByte()
		if err != nil {
			return string(line), err
		}

		switch {
		case b == '\r' || b == '\n':
			t.Send("\r\n")
			return string(line), nil
		case b == 8 || b == 127:
			pending = pending[:0]
			if len(line) > 0 {
				line = line[:len(line)-1]
				t.Send("\b \b")
			}
			continue
		case b < 32:
			pending = pending[:0]
			continue
		}

		pending = append(pending, b)
		if !utf8.FullRune(pending) {
			continue
		}
		r, _ := utf8.DecodeRune(pending)
		pending = pending[:0]
		if r == utf8.RuneError || !unicode.IsPrint(r) || len(line) >= maxLen {
			continue
		}
		line = append(line, r)
		t.Send(echo(r))
	}
}

// YesNo displays a prompt and waits for Y or N.
func (t *Terminal) YesNo(prompt string) (bool, error) {
	t.Send(fmt.Sprintf("%s (Y/N) ", prompt))
	for {
		b, err := t.GetKey()
		if err != nil {
			return false, err
		}
		switch b {
		case 'Y', 'y':
			t.SendLn("Yes")
			return true, nil
		case 'N', 'n':
			t.SendLn("No")
			return false, nil
		}
	}
}

// Ask displays a prompt and reads a line of input.
func (t *Terminal) Ask(prompt string, maxLen int) (string, error) {
	t.Send(prompt)
	return t.GetLine(maxLen)
}

// AskPassword displays a prompt and reads a hidden line of input.
func (t *Terminal) AskPassword(prompt string, maxLen int) (string, error) {
	t.Send(prompt)
	return t.GetPassword(maxLen)
}
