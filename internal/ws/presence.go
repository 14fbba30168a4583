package ws

import (
	"sort"
	"sync"
)

// Presence tracks which users currently hold a live relay connection. It
// keeps at most one connection id per user: a later announce for the same
// user replaces the older entry (last-writer-wins), so a single user with
// several tabs is represented by whichever announced last.
type Presence struct {
	mu     sync.RWMutex
	byUser map[string]string // userID -> connID
}

// NewPresence creates an empty tracker.
func NewPresence() *Presence {
	return &Presence{byUser: make(map[string]string)}
}

// Register inserts or overwrites the user's connection entry.
func (p *Presence) Register(userID, connID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.byUser[userID] = connID
}

// Unregister removes the entry owned by connID and returns the user it
// belonged to. Matching on the connection id rather than the user id means
// a stale connection's disconnect can never evict an entry that a newer
// connection has since taken over.
func (p *Presence) Unregister(connID string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for userID, id := range p.byUser {
		if id == connID {
			delete(p.byUser, userID)
			return userID, true
		}
	}
	return "", false
}

// Lookup returns the connection id for a user, if the user is online.
func (p *Presence) Lookup(userID string) (string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	connID, ok := p.byUser[userID]
	return connID, ok
}

// Online returns the sorted set of online user ids.
func (p *Presence) Online() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	users := make([]string, 0, len(p.byUser))
	for userID := range p.byUser {
		users = append(users, userID)
	}
	sort.Strings(users)
	return users
}
