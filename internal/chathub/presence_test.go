package chathub_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Durga62823/chat-application/internal/chathub"
)

func TestPresenceRegistry_FirstAndLastTransitions(t *testing.T) {
	p := chathub.NewPresenceRegistry()
	c1 := newFakeClient()
	c1.SetUserID(1)
	c2 := newFakeClient()
	c2.SetUserID(1)

	assert.False(t, p.IsOnline(1))

	assert.True(t, p.Bind(c1, 1), "first connection is the zero-to-one transition")
	assert.True(t, p.IsOnline(1))

	assert.False(t, p.Bind(c2, 1), "second connection must not report a transition")
	assert.True(t, p.IsOnline(1))

	_, last := p.Unbind(c1)
	assert.False(t, last, "one connection remains")
	assert.True(t, p.IsOnline(1))

	userID, last := p.Unbind(c2)
	assert.True(t, last, "last connection gone")
	assert.Equal(t, uint(1), userID)
	assert.False(t, p.IsOnline(1))
}

func TestPresenceRegistry_UnbindUnknownIsNoOp(t *testing.T) {
	p := chathub.NewPresenceRegistry()

	unauth := newFakeClient()
	_, last := p.Unbind(unauth)
	assert.False(t, last)

	bound := newFakeClient()
	bound.SetUserID(3)
	p.Bind(bound, 3)

	stranger := newFakeClient()
	stranger.SetUserID(3)
	_, last = p.Unbind(stranger)
	assert.False(t, last, "a client that was never bound must not flip presence")
	assert.True(t, p.IsOnline(3))
}

func TestPresenceRegistry_SendToUserReachesAllConnections(t *testing.T) {
	p := chathub.NewPresenceRegistry()
	c1 := newFakeClient()
	c1.SetUserID(5)
	c2 := newFakeClient()
	c2.SetUserID(5)
	other := newFakeClient()
	other.SetUserID(6)
	p.Bind(c1, 5)
	p.Bind(c2, 5)
	p.Bind(other, 6)

	p.SendToUser(5, chathub.Event{Type: chathub.EventNewChannel})

	assert.Len(t, c1.eventsOfType(chathub.EventNewChannel), 1)
	assert.Len(t, c2.eventsOfType(chathub.EventNewChannel), 1)
	assert.Empty(t, other.eventsOfType(chathub.EventNewChannel))
}

func TestPresenceRegistry_BroadcastSkipsExcept(t *testing.T) {
	p := chathub.NewPresenceRegistry()
	self := newFakeClient()
	self.SetUserID(1)
	peer := newFakeClient()
	peer.SetUserID(2)
	p.Bind(self, 1)
	p.Bind(peer, 2)

	p.Broadcast(chathub.Event{Type: chathub.EventUserStatusChange}, self)

	assert.Empty(t, self.eventsOfType(chathub.EventUserStatusChange))
	assert.Len(t, peer.eventsOfType(chathub.EventUserStatusChange), 1)
}

func TestPresenceRegistry_EvictsDeadClients(t *testing.T) {
	p := chathub.NewPresenceRegistry()

	var mu sync.Mutex
	var evicted []chathub.Client
	p.SetEvictFunc(func(c chathub.Client) {
		mu.Lock()
		defer mu.Unlock()
		evicted = append(evicted, c)
	})

	dead := newFakeClient()
	dead.SetUserID(9)
	dead.full = true
	p.Bind(dead, 9)

	p.Broadcast(chathub.Event{Type: chathub.EventUserStatusChange}, nil)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []chathub.Client{dead}, evicted)
}

func TestPresenceRegistry_OnlineUsers(t *testing.T) {
	p := chathub.NewPresenceRegistry()
	a := newFakeClient()
	a.SetUserID(1)
	b := newFakeClient()
	b.SetUserID(2)
	p.Bind(a, 1)
	p.Bind(b, 2)

	assert.ElementsMatch(t, []uint{1, 2}, p.OnlineUsers())
}
