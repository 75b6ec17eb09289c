package node

import (
	"fmt"
	"sort"
	"sync"
)

// Manager tracks active sessions and enforces the session limit. Node ids
// are small integers; a freed id is handed out again before a new one.
type Manager struct {
	mu       sync.RWMutex
	nodes    map[int]*Node
	reserved map[int]bool // acquired but not yet added
	maxNodes int
}

// NewManager creates a manager allowing maxNodes concurrent sessions.
func NewManager(maxNodes int) *Manager {
	return &Manager{
		nodes:    make(map[int]*Node),
		reserved: make(map[int]bool),
		maxNodes: maxNodes,
	}
}

// Acquire reserves the lowest free node id. It returns false when every
// slot is taken.
func (m *Manager) Acquire() (int, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.nodes)+len(m.reserved) >= m.maxNodes {
		return 0, false
	}
	for id := 1; ; id++ {
		if m.nodes[id] == nil && !m.reserved[id] {
			m.reserved[id] = true
			return id, true
		}
	}
}

// Release frees a reserved id that never became a node.
func (m *Manager) Release(id int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.reserved, id)
}

// Add registers a node under its reserved id.
func (m *Manager) Add(n *Node) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.reserved, n.ID)
	m.nodes[n.ID] = n
}

// Remove removes a node.
func (m *Manager) Remove(id int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.nodes, id)
	delete(m.reserved, id)
}

// Get returns a node by ID, or nil if not found.
func (m *Manager) Get(id int) *Node {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.nodes[id]
}

// Count returns the number of active nodes.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.nodes)
}

// Max returns the session limit.
func (m *Manager) Max() int {
	return m.maxNodes
}

// List returns the active nodes ordered by id.
func (m *Manager) List() []*Node {
	m.mu.RLock()
	defer m.mu.RUnlock()
	nodes := make([]*Node, 0, len(m.nodes))
	for _, n := range m.nodes {
		nodes = append(nodes, n)
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })
	return nodes
}

// NodeInfo holds summary information about a connected node.
type NodeInfo struct {
	ID        int
	UserName  string
	AccountID string
	Remote    string
	Room      string
}

// ListInfo returns summary info for all active nodes.
func (m *Manager) ListInfo() []NodeInfo {
	nodes := m.List()
	info := make([]NodeInfo, 0, len(nodes))
	for _, n := range nodes {
		name, accountID, room := n.identity()
		if name == "" {
			name = "(logging in)"
		}
		info = append(info, NodeInfo{ID: n.ID, UserName: name, AccountID: accountID, Remote: n.Remote, Room: room})
	}
	return info
}

// Broadcast writes a system line to every connected node.
func (m *Manager) Broadcast(msg string) {
	for _, n := range m.List() {
		if n.Term != nil {
			n.Term.SendLn(fmt.Sprintf("\r\n*** %s", msg))
		}
	}
}

// DisconnectAll closes every session.
func (m *Manager) DisconnectAll() {
	for _, n := range m.List() {
		n.Disconnect()
	}
}
