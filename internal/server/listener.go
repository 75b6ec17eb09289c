package server

import (
	"errors"
	"fmt"
	"log"
	"net"
	"sync"
)

// ConnectionHandler is called for each new telnet connection.
// The handler is responsible for running the connection and closing it.
type ConnectionHandler func(tc *TelnetConn)

// Listener accepts incoming telnet connections.
type Listener struct {
	addr    string
	handler ConnectionHandler

	mu sync.Mutex
	ln net.Listener
}

// NewListener creates a new TCP listener for telnet connections.
func NewListener(port int, handler ConnectionHandler) *Listener {
	return &Listener{
		addr:    fmt.Sprintf(":%d", port),
		handler: handler,
	}
}

// ListenAndServe binds the address and serves until Close is called.
func (l *Listener) ListenAndServe() error {
	ln, err := net.Listen("tcp", l.addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", l.addr, err)
	}
	return l.Serve(ln)
}

// Serve accepts connections on ln. It returns nil once the listener is
// closed.
func (l *Listener) Serve(ln net.Listener) error {
	l.mu.Lock()
	l.ln = ln
	l.mu.Unlock()
	defer ln.Close()

	log.Printf("Telnet server listening on %s", ln.Addr())

	for {
		conn, err := ln.Accept()
		if errors.Is(err, net.ErrClosed) {
			return nil
		}
		if err != nil {
			log.Printf("Accept error: %v", err)
			continue
		}

		go l.handler(NewTelnetConn(conn))
	}
}

// Close stops accepting connections. Open sessions are not touched.
func (l *Listener) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.ln == nil {
		return nil
	}
	return l.ln.Close()
}
