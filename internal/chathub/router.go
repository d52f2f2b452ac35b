package chathub

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/Durga62823/chat-application/internal/models"
	"github.com/Durga62823/chat-application/internal/storage"
)

// ChannelRouter resolves the unique pairwise channel between two users and
// manages which connections are joined to each channel's broadcast group.
type ChannelRouter struct {
	store storage.Storage

	mu      sync.RWMutex
	members map[string]*memberSet

	pairMu    sync.Mutex
	pairLocks map[string]*sync.Mutex

	evict func(Client)
}

// memberSet is one channel's broadcast membership with its own lock, so
// traffic on one channel does not serialize against another.
type memberSet struct {
	mu      sync.RWMutex
	clients map[Client]struct{}
}

// NewChannelRouter creates a router backed by the given store.
func NewChannelRouter(store storage.Storage) *ChannelRouter {
	return &ChannelRouter{
		store:     store,
		members:   make(map[string]*memberSet),
		pairLocks: make(map[string]*sync.Mutex),
	}
}

// SetEvictFunc installs the callback used to drop dead clients during
// broadcasts. The callback must not call back into the router synchronously.
func (r *ChannelRouter) SetEvictFunc(fn func(Client)) {
	r.evict = fn
}

func pairKey(a, b uint) string {
	u1, u2 := models.NormalizePair(a, b)
	return fmt.Sprintf("%d:%d", u1, u2)
}

// pairLock returns the mutex serializing channel creation for one unordered
// pair. Locks are kept for the process lifetime; the set grows with the number
// of distinct pairs, which is bounded by the channel table itself.
func (r *ChannelRouter) pairLock(key string) *sync.Mutex {
	r.pairMu.Lock()
	defer r.pairMu.Unlock()
	l, ok := r.pairLocks[key]
	if !ok {
		l = &sync.Mutex{}
		r.pairLocks[key] = l
	}
	return l
}

// GetOrCreate returns the channel for the unordered pair (userID, targetUserID),
// creating it when absent. Repeated calls with either argument order return the
// same channel; concurrent calls for the same pair are serialized by a per-pair
// lock, and the store's unique pair index degrades a lost race into a fetch.
func (r *ChannelRouter) GetOrCreate(ctx context.Context, userID, targetUserID uint) (*models.Channel, bool, error) {
	if userID == targetUserID {
		return nil, false, ErrSelfChannel
	}

	lock := r.pairLock(pairKey(userID, targetUserID))
	lock.Lock()
	defer lock.Unlock()

	existing, err := r.store.FindChannelByPair(ctx, userID, targetUserID)
	if err != nil {
		return nil, false, fmt.Errorf("lookup channel: %w", err)
	}
	if existing != nil {
		return existing, false, nil
	}

	u1, u2 := models.NormalizePair(userID, targetUserID)
	channel := &models.Channel{ID: uuid.New().String(), User1ID: u1, User2ID: u2}
	if err := r.store.CreateChannel(ctx, channel); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			// Another process won the race; the pair index makes this safe.
			existing, ferr := r.store.FindChannelByPair(ctx, userID, targetUserID)
			if ferr == nil && existing != nil {
				return existing, false, nil
			}
		}
		return nil, false, fmt.Errorf("create channel: %w", err)
	}
	return channel, true, nil
}

// Join adds the connection to the channel's broadcast membership.
func (r *ChannelRouter) Join(c Client, channelID string) {
	r.mu.Lock()
	set, ok := r.members[channelID]
	if !ok {
		set = &memberSet{clients: make(map[Client]struct{})}
		r.members[channelID] = set
	}
	r.mu.Unlock()

	set.mu.Lock()
	set.clients[c] = struct{}{}
	set.mu.Unlock()
}

// Leave removes the connection from the channel; no-op if it is not a member.
func (r *ChannelRouter) Leave(c Client, channelID string) {
	r.mu.RLock()
	set, ok := r.members[channelID]
	r.mu.RUnlock()
	if !ok {
		return
	}

	set.mu.Lock()
	delete(set.clients, c)
	empty := len(set.clients) == 0
	set.mu.Unlock()

	if empty {
		r.dropIfEmpty(channelID)
	}
}

// DropClient removes the connection from every channel it joined. Called on
// disconnect; safe to call repeatedly.
func (r *ChannelRouter) DropClient(c Client) {
	r.mu.RLock()
	sets := make(map[string]*memberSet, len(r.members))
	for id, set := range r.members {
		sets[id] = set
	}
	r.mu.RUnlock()

	for id, set := range sets {
		set.mu.Lock()
		_, member := set.clients[c]
		if member {
			delete(set.clients, c)
		}
		empty := len(set.clients) == 0
		set.mu.Unlock()

		if member && empty {
			r.dropIfEmpty(id)
		}
	}
}

func (r *ChannelRouter) dropIfEmpty(channelID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if set, ok := r.members[channelID]; ok {
		set.mu.RLock()
		empty := len(set.clients) == 0
		set.mu.RUnlock()
		if empty {
			delete(r.members, channelID)
		}
	}
}

// MemberCount returns how many connections are currently joined to the channel.
func (r *ChannelRouter) MemberCount(channelID string) int {
	r.mu.RLock()
	set, ok := r.members[channelID]
	r.mu.RUnlock()
	if !ok {
		return 0
	}
	set.mu.RLock()
	defer set.mu.RUnlock()
	return len(set.clients)
}

// IsMember reports whether the connection is joined to the channel.
func (r *ChannelRouter) IsMember(c Client, channelID string) bool {
	r.mu.RLock()
	set, ok := r.members[channelID]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	set.mu.RLock()
	defer set.mu.RUnlock()
	_, member := set.clients[c]
	return member
}

// Broadcast fans an event out to every connection joined to the channel.
// Delivery order across distinct connections is unspecified; per connection,
// events arrive in broadcast order through the client's send buffer.
func (r *ChannelRouter) Broadcast(channelID string, ev Event) {
	r.mu.RLock()
	set, ok := r.members[channelID]
	r.mu.RUnlock()
	if !ok {
		return
	}

	set.mu.RLock()
	clients := make([]Client, 0, len(set.clients))
	for c := range set.clients {
		clients = append(clients, c)
	}
	set.mu.RUnlock()

	for _, c := range clients {
		if !c.Send(ev) && r.evict != nil {
			r.evict(c)
		}
	}
}
