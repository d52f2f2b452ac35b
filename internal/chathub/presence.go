package chathub

import "sync"

// PresenceRegistry maps a user id to the set of live connections bound to it.
// A user is online iff that set is non-empty. The registry owns only in-memory
// derived state; durable mirrors are the hub's concern.
type PresenceRegistry struct {
	mu    sync.RWMutex
	conns map[uint]map[Client]struct{}

	// evict is called when a client's send buffer rejects an event.
	evict func(Client)
}

// NewPresenceRegistry creates an empty registry.
func NewPresenceRegistry() *PresenceRegistry {
	return &PresenceRegistry{conns: make(map[uint]map[Client]struct{})}
}

// SetEvictFunc installs the callback used to drop dead clients during
// broadcasts. The callback must not call back into the registry synchronously.
func (p *PresenceRegistry) SetEvictFunc(fn func(Client)) {
	p.evict = fn
}

// Bind registers an authenticated connection under userID and reports whether
// this was the user's zero-to-one transition.
func (p *PresenceRegistry) Bind(c Client, userID uint) (first bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	set, ok := p.conns[userID]
	if !ok {
		set = make(map[Client]struct{})
		p.conns[userID] = set
	}
	first = len(set) == 0
	set[c] = struct{}{}
	return first
}

// Unbind removes the connection and reports whether it was the user's last
// live connection. Unbinding an unknown or never-bound client is a no-op.
func (p *PresenceRegistry) Unbind(c Client) (userID uint, last bool) {
	userID = c.GetUserID()
	if userID == 0 {
		return 0, false
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	set, ok := p.conns[userID]
	if !ok {
		return userID, false
	}
	if _, member := set[c]; !member {
		return userID, false
	}
	delete(set, c)
	if len(set) == 0 {
		delete(p.conns, userID)
		return userID, true
	}
	return userID, false
}

// IsOnline reports whether at least one live connection is bound to userID.
func (p *PresenceRegistry) IsOnline(userID uint) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.conns[userID]) > 0
}

// OnlineUsers returns a snapshot of every online user id.
func (p *PresenceRegistry) OnlineUsers() []uint {
	p.mu.RLock()
	defer p.mu.RUnlock()
	ids := make([]uint, 0, len(p.conns))
	for id := range p.conns {
		ids = append(ids, id)
	}
	return ids
}

// SendToUser delivers an event to every connection bound to userID.
func (p *PresenceRegistry) SendToUser(userID uint, ev Event) {
	p.mu.RLock()
	clients := make([]Client, 0, len(p.conns[userID]))
	for c := range p.conns[userID] {
		clients = append(clients, c)
	}
	p.mu.RUnlock()

	for _, c := range clients {
		p.deliver(c, ev)
	}
}

// Broadcast delivers an event to every bound connection, skipping the except
// client when it is non-nil.
func (p *PresenceRegistry) Broadcast(ev Event, except Client) {
	p.mu.RLock()
	var clients []Client
	for _, set := range p.conns {
		for c := range set {
			if c == except {
				continue
			}
			clients = append(clients, c)
		}
	}
	p.mu.RUnlock()

	for _, c := range clients {
		p.deliver(c, ev)
	}
}

func (p *PresenceRegistry) deliver(c Client, ev Event) {
	if !c.Send(ev) && p.evict != nil {
		p.evict(c)
	}
}
