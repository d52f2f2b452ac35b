package chathub

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Durga62823/chat-application/internal/auth"
	"github.com/Durga62823/chat-application/internal/models"
	"github.com/Durga62823/chat-application/internal/storage"
)

const mirrorTimeout = 5 * time.Second

// Hub composes the presence registry, channel router, and message coordinator
// and owns connection lifecycle: sessions dispatch inbound events into it and
// it tears connections down exactly once on disconnect.
type Hub struct {
	presence    *PresenceRegistry
	router      *ChannelRouter
	coordinator *MessageCoordinator
	store       storage.Storage
	verifier    auth.TokenVerifier
	logger      *slog.Logger
}

// NewHub wires the realtime core over a store and an identity verifier.
func NewHub(store storage.Storage, verifier auth.TokenVerifier) *Hub {
	h := &Hub{
		presence:    NewPresenceRegistry(),
		router:      NewChannelRouter(store),
		store:       store,
		verifier:    verifier,
		logger:      slog.Default().With("component", "chathub"),
	}
	h.coordinator = NewMessageCoordinator(store, h.router)

	// Dead clients found mid-broadcast are torn down off the broadcast path,
	// so eviction never re-enters a registry lock.
	evict := func(c Client) { go h.Unregister(c) }
	h.presence.SetEvictFunc(evict)
	h.router.SetEvictFunc(evict)
	return h
}

// Presence exposes the presence registry.
func (h *Hub) Presence() *PresenceRegistry { return h.presence }

// Router exposes the channel router.
func (h *Hub) Router() *ChannelRouter { return h.router }

// Coordinator exposes the message coordinator.
func (h *Hub) Coordinator() *MessageCoordinator { return h.coordinator }

// Unregister tears a connection down: membership removal from every joined
// channel, presence unbind with an offline broadcast when this was the user's
// last connection, and closing the client. Safe to call concurrently and
// repeatedly; only the first call has any effect.
func (h *Hub) Unregister(c Client) {
	h.router.DropClient(c)

	if userID, last := h.presence.Unbind(c); last {
		offline := false
		h.presence.Broadcast(Event{
			Type:   EventUserStatusChange,
			UserID: userID,
			Online: &offline,
		}, nil)
		go h.mirrorOnline(userID, false)
		h.logger.Info("user went offline", "user_id", userID)
	}

	c.Close()
}

// mirrorOnline pushes the derived online flag into the durable store without
// blocking the presence path. Failures are logged only.
func (h *Hub) mirrorOnline(userID uint, online bool) {
	ctx, cancel := context.WithTimeout(context.Background(), mirrorTimeout)
	defer cancel()
	if err := h.store.SetUserOnline(ctx, userID, online); err != nil {
		h.logger.Warn("presence mirror update failed",
			"user_id", userID, "online", online, "error", err)
	}
}

// buildChannelView denormalizes a channel for one viewer: the peer's profile
// fields plus their online status as of right now.
func (h *Hub) buildChannelView(ctx context.Context, channel *models.Channel, viewerID uint) (*ChannelView, error) {
	peerID := channel.Peer(viewerID)
	peer, err := h.store.FindUserByID(ctx, peerID)
	if err != nil {
		return nil, fmt.Errorf("load peer %d: %w", peerID, err)
	}
	return &ChannelView{
		ID:              channel.ID,
		Name:            peer.Username,
		Avatar:          peer.Avatar,
		Online:          h.presence.IsOnline(peerID),
		LastMessageID:   channel.LastMessageID,
		LastMessageTime: channel.LastMessageTime,
	}, nil
}
