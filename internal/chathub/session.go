package chathub

import (
	"context"
	"errors"

	"github.com/Durga62823/chat-application/internal/storage"
)

// Dispatch runs one inbound event through the session state machine. Each
// connection's read pump calls this from its own goroutine, so per-connection
// event handling is sequential while different connections proceed in
// parallel.
//
// The state machine is: unauthenticated until a successful authenticate, then
// authenticated with an independent set of joined channels. Every channel and
// message operation before authentication is answered with auth_error and not
// processed.
func (h *Hub) Dispatch(ctx context.Context, c Client, ev Event) {
	if ev.Type == EventAuthenticate {
		h.handleAuthenticate(ctx, c, ev.Token)
		return
	}

	if c.GetUserID() == 0 {
		c.Send(Event{Type: EventAuthError, Error: ErrNotAuthenticated.Error()})
		return
	}

	switch ev.Type {
	case EventCreateChannel:
		h.handleCreateChannel(ctx, c, ev.TargetUserID)
	case EventJoinChannel:
		h.handleJoinChannel(ctx, c, ev.ChannelID)
	case EventLeaveChannel:
		h.router.Leave(c, ev.ChannelID)
	case EventSendMessage:
		h.handleSendMessage(ctx, c, ev.ChannelID, ev.Content)
	case EventMessageSeen:
		h.handleMessageSeen(ctx, c, ev.MessageID, ev.ChannelID)
	default:
		h.logger.Warn("unknown inbound event", "type", ev.Type, "conn_id", c.GetConnID())
	}
}

// handleAuthenticate verifies the token and binds the connection. On the
// user's zero-to-one connection transition everyone else is told they came
// online, exactly once regardless of how many further connections they open.
func (h *Hub) handleAuthenticate(ctx context.Context, c Client, token string) {
	if c.GetUserID() != 0 {
		// Already bound; re-authentication is a no-op.
		return
	}

	userID, err := h.verifier.Verify(token)
	if err != nil {
		// The connection stays unauthenticated and otherwise unaffected.
		c.Send(Event{Type: EventAuthError, Error: "invalid or expired token"})
		return
	}

	c.SetUserID(userID)
	if first := h.presence.Bind(c, userID); first {
		online := true
		h.presence.Broadcast(Event{
			Type:   EventUserStatusChange,
			UserID: userID,
			Online: &online,
		}, c)
		go h.mirrorOnline(userID, true)
		h.logger.Info("user came online", "user_id", userID)
	}
}

// handleCreateChannel resolves or creates the pairwise channel toward the
// target user. The requester always gets channel_created; on a fresh channel
// the requester is joined to it and the peer's live connections get
// new_channel with the view from their side.
func (h *Hub) handleCreateChannel(ctx context.Context, c Client, targetUserID uint) {
	userID := c.GetUserID()

	channel, created, err := h.router.GetOrCreate(ctx, userID, targetUserID)
	if err != nil {
		if errors.Is(err, ErrSelfChannel) {
			c.Send(Event{Type: EventChannelError, Error: ErrSelfChannel.Error()})
			return
		}
		h.logger.Error("create channel failed",
			"user_id", userID, "target_user_id", targetUserID, "error", err)
		c.Send(Event{Type: EventChannelError, Error: "failed to create chat"})
		return
	}

	view, err := h.buildChannelView(ctx, channel, userID)
	if err != nil {
		h.logger.Error("build channel view failed", "channel_id", channel.ID, "error", err)
		c.Send(Event{Type: EventChannelError, Error: "failed to create chat"})
		return
	}

	if created {
		h.router.Join(c, channel.ID)

		peerID := channel.Peer(userID)
		if peerView, err := h.buildChannelView(ctx, channel, peerID); err == nil {
			h.presence.SendToUser(peerID, Event{
				Type:      EventNewChannel,
				ChannelID: channel.ID,
				Channel:   peerView,
			})
		} else {
			h.logger.Error("build peer channel view failed", "channel_id", channel.ID, "error", err)
		}
	}

	c.Send(Event{Type: EventChannelCreated, ChannelID: channel.ID, Channel: view})
}

// handleJoinChannel adds the connection to the channel's broadcast group,
// catches up delivery for messages addressed to this user, and pushes the most
// recent history page.
func (h *Hub) handleJoinChannel(ctx context.Context, c Client, channelID string) {
	if _, err := h.store.GetChannelByID(ctx, channelID); err != nil {
		c.Send(Event{Type: EventChannelError, Error: ErrChannelNotFound.Error()})
		return
	}

	h.router.Join(c, channelID)

	if err := h.coordinator.CatchUpDelivery(ctx, channelID, c.GetUserID()); err != nil {
		h.logger.Error("delivery catch-up failed",
			"channel_id", channelID, "user_id", c.GetUserID(), "error", err)
	}

	history, err := h.coordinator.History(ctx, channelID, 1, storage.DefaultPageSize)
	if err != nil {
		h.logger.Error("history load on join failed", "channel_id", channelID, "error", err)
		return
	}
	c.Send(Event{Type: EventMessageHistory, ChannelID: channelID, Messages: history})
}

func (h *Hub) handleSendMessage(ctx context.Context, c Client, channelID, content string) {
	if _, err := h.coordinator.Send(ctx, c.GetUserID(), channelID, content); err != nil {
		switch {
		case errors.Is(err, ErrEmptyMessage), errors.Is(err, ErrChannelNotFound), errors.Is(err, ErrNotParticipant):
			c.Send(Event{Type: EventMessageError, Error: err.Error()})
		default:
			h.logger.Error("send message failed",
				"channel_id", channelID, "user_id", c.GetUserID(), "error", err)
			c.Send(Event{Type: EventMessageError, Error: "failed to send message"})
		}
	}
}

func (h *Hub) handleMessageSeen(ctx context.Context, c Client, messageID uint, channelID string) {
	if err := h.coordinator.MarkSeen(ctx, messageID, channelID); err != nil {
		if errors.Is(err, ErrMessageNotFound) {
			c.Send(Event{Type: EventMessageError, Error: ErrMessageNotFound.Error()})
			return
		}
		h.logger.Error("mark seen failed", "message_id", messageID, "error", err)
		c.Send(Event{Type: EventMessageError, Error: "failed to update message status"})
	}
}
