package hub

import (
	"sync"

	"github.com/samber/lo"
)

// Conn is one live realtime connection of a user.
type Conn interface {
	UserID() string
	// Send queues data without blocking and reports whether it was accepted.
	Send(data []byte) bool
	Close()
}

// Presence tracks which users hold at least one open connection. A user may
// be connected from several tabs or devices at once; each connection gets
// every event addressed to the user.
type Presence struct {
	mu    sync.RWMutex
	conns map[string]map[Conn]struct{}
}

func NewPresence() *Presence {
	return &Presence{conns: make(map[string]map[Conn]struct{})}
}

// Register adds c and reports whether it is the user's first connection.
func (p *Presence) Register(c Conn) (first bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	userConns, ok := p.conns[c.UserID()]
	if !ok {
		userConns = make(map[Conn]struct{})
		p.conns[c.UserID()] = userConns
	}
	userConns[c] = struct{}{}
	return !ok
}

// Unregister removes c and reports whether the user has no connection left.
// Removing an unknown connection is a no-op that reports false.
func (p *Presence) Unregister(c Conn) (last bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	userConns, ok := p.conns[c.UserID()]
	if !ok {
		return false
	}
	if _, ok := userConns[c]; !ok {
		return false
	}
	delete(userConns, c)
	if len(userConns) == 0 {
		delete(p.conns, c.UserID())
		return true
	}
	return false
}

// Lookup returns a snapshot of the user's connections.
func (p *Presence) Lookup(userID string) []Conn {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return lo.Keys(p.conns[userID])
}

func (p *Presence) IsOnline(userID string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	_, ok := p.conns[userID]
	return ok
}

// Online keeps the ids that are currently connected, preserving order.
func (p *Presence) Online(userIDs []string) []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return lo.Filter(userIDs, func(id string, _ int) bool {
		_, ok := p.conns[id]
		return ok
	})
}

// Count returns how many users are online.
func (p *Presence) Count() int {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return len(p.conns)
}
