package server

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
)

// Telnet protocol bytes.
const (
	IAC  byte = 255
	DONT byte = 254
	DO   byte = 253
	WONT byte = 252
	WILL byte = 251
	SB   byte = 250
	SE   byte = 240

	OptEcho    byte = 1
	OptSGA     byte = 3
	OptTType   byte = 24
	OptNAWS    byte = 31
	OptLinemod byte = 34

	ttypeSend byte = 1
	ttypeIs   byte = 0
)

const maxSubnegLen = 1024

// TelnetConn strips telnet negotiation from a TCP stream and normalizes
// line endings: CR LF and CR NUL both arrive as a single CR.
type TelnetConn struct {
	conn   net.Conn
	reader *bufio.Reader
	wmu    sync.Mutex

	lastCR bool

	TermType    string
	Width       int
	Height      int
	ANSICapable bool
}

// NewTelnetConn wraps conn. ANSI is assumed until the client reports a
// terminal type that lacks it.
func NewTelnetConn(conn net.Conn) *TelnetConn {
	return &TelnetConn{
		conn:        conn,
		reader:      bufio.NewReaderSize(conn, 1024),
		Width:       80,
		Height:      24,
		ANSICapable: true,
	}
}

// Negotiate asks for server echo, character mode, window size and
// terminal type.
func (tc *TelnetConn) Negotiate() error {
	for _, cmd := range [][2]byte{
		{WILL, OptEcho},
		{WILL, OptSGA},
		{DO, OptSGA},
		{DONT, OptLinemod},
		{DO, OptNAWS},
		{DO, OptTType},
	} {
		if err := tc.command(cmd[0], cmd[1]); err != nil {
			return fmt.Errorf("negotiate: %w", err)
		}
	}
	return nil
}

func (tc *TelnetConn) command(cmd, opt byte) error {
	_, err := tc.writeRaw([]byte{IAC, cmd, opt})
	return err
}

func (tc *TelnetConn) writeRaw(p []byte) (int, error) {
	tc.wmu.Lock()
	defer tc.wmu.Unlock()
	return tc.conn.Write(p)
}

// ReadByte returns the next data byte, handling any protocol commands in
// between.
func (tc *TelnetConn) ReadByte() (byte, error) {
	for {
		b, err := tc.reader.ReadByte()
		if err != nil {
			return 0, err
		}

		if b != IAC {
			wasCR := tc.lastCR
			tc.lastCR = b == '\r'
			if wasCR && (b == '\n' || b == 0) {
				continue
			}
			return b, nil
		}

		cmd, err := tc.reader.ReadByte()
		if err != nil {
			return 0, err
		}
		switch cmd {
		case IAC:
			tc.lastCR = false
			return IAC, nil
		case WILL, WONT, DO, DONT:
			opt, err := tc.reader.ReadByte()
			if err != nil {
				return 0, err
			}
			tc.option(cmd, opt)
		case SB:
			if err := tc.subnegotiation(); err != nil {
				return 0, err
			}
		}
	}
}

// Read implements io.Reader. It returns as soon as buffered input runs out.
func (tc *TelnetConn) Read(p []byte) (int, error) {
	n := 0
	for n < len(p) {
		b, err := tc.ReadByte()
		if err != nil {
			if n > 0 {
				return n, nil
			}
			return 0, err
		}
		p[n] = b
		n++
		if tc.reader.Buffered() == 0 {
			break
		}
	}
	return n, nil
}

// Write sends p to the client, doubling literal 0xFF bytes.
func (tc *TelnetConn) Write(p []byte) (int, error) {
	if bytes.IndexByte(p, IAC) < 0 {
		if _, err := tc.writeRaw(p); err != nil {
			return 0, err
		}
		return len(p), nil
	}
	escaped := make([]byte, 0, len(p)+8)
	for _, b := range p {
		escaped = append(escaped, b)
		if b == IAC {
			escaped = append(escaped, IAC)
		}
	}
	if _, err := tc.writeRaw(escaped); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Close closes the underlying connection.
func (tc *TelnetConn) Close() error {
	return tc.conn.Close()
}

// RemoteAddr returns the remote address of the connection.
func (tc *TelnetConn) RemoteAddr() net.Addr {
	return tc.conn.RemoteAddr()
}

// SetEcho is the terminal's echo-control hook. The server keeps WILL ECHO
// in both cases: a WONT would make most clients echo locally and leak a
// password the server is masking with asterisks.
func (tc *TelnetConn) SetEcho(on bool) error {
	return tc.command(WILL, OptEcho)
}

func (tc *TelnetConn) option(cmd, opt byte) {
	switch cmd {
	case WILL:
		switch opt {
		case OptTType:
			tc.writeRaw([]byte{IAC, SB, OptTType, ttypeSend, IAC, SE})
		case OptLinemod:
			tc.command(DONT, OptLinemod)
		}
	case DO:
		if opt != OptEcho && opt != OptSGA {
			tc.command(WONT, opt)
		}
	}
}

func (tc *TelnetConn) subnegotiation() error {
	var buf []byte
	for {
		b, err := tc.reader.ReadByte()
		if err != nil {
			return fmt.Errorf("subnegotiation: %w", err)
		}
		if b == IAC {
			next, err := tc.reader.ReadByte()
			if err != nil {
				return fmt.Errorf("subnegotiation: %w", err)
			}
			if next != IAC {
				break
			}
		}
		buf = append(buf, b)
		if len(buf) > maxSubnegLen {
			return fmt.Errorf("subnegotiation too long")
		}
	}

	if len(buf) == 0 {
		return nil
	}
	switch buf[0] {
	case OptNAWS:
		if len(buf) >= 5 {
			tc.Width = int(buf[1])<<8 | int(buf[2])
			tc.Height = int(buf[3])<<8 | int(buf[4])
		}
	case OptTType:
		if len(buf) >= 2 && buf[1] == ttypeIs {
			tt := string(buf[2:])
			if len(tt) > 64 {
				tt = tt[:64]
			}
			tc.TermType = tt
			tc.ANSICapable = isANSITermType(tt)
		}
	}
	return nil
}

func isANSITermType(termType string) bool {
	tt := strings.ToLower(termType)
	for _, prefix := range []string{"ansi", "xterm", "vt1", "linux", "screen", "tmux", "rxvt"} {
		if strings.HasPrefix(tt, prefix) {
			return true
		}
	}
	return false
}

var _ io.ReadWriteCloser = (*TelnetConn)(nil)
