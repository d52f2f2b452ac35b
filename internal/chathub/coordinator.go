package chathub

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/samber/lo"

	"github.com/Durga62823/chat-application/internal/models"
	"github.com/Durga62823/chat-application/internal/storage"
)

// MessageCoordinator accepts send requests, persists them, stamps delivery
// state, and fans the resulting events out through the router.
type MessageCoordinator struct {
	store  storage.Storage
	router *ChannelRouter
	logger *slog.Logger
}

// NewMessageCoordinator wires a coordinator over the given store and router.
func NewMessageCoordinator(store storage.Storage, router *ChannelRouter) *MessageCoordinator {
	return &MessageCoordinator{
		store:  store,
		router: router,
		logger: slog.Default().With("component", "coordinator"),
	}
}

// Send persists a message with delivered=false, updates the channel's
// last-message pointer, and broadcasts message_received to the channel. When
// more than one connection is joined at that moment the message is immediately
// marked delivered and message_delivered is broadcast as well.
//
// Persistence happens exactly once per call: store failures surface to the
// caller and are never retried here, so a retry can never duplicate a message.
func (mc *MessageCoordinator) Send(ctx context.Context, authorID uint, channelID, content string) (*MessageView, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyMessage
	}

	channel, err := mc.store.GetChannelByID(ctx, channelID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrChannelNotFound
		}
		return nil, fmt.Errorf("load channel: %w", err)
	}
	if !channel.HasParticipant(authorID) {
		return nil, ErrNotParticipant
	}

	author, err := mc.store.FindUserByID(ctx, authorID)
	if err != nil {
		return nil, fmt.Errorf("load author: %w", err)
	}

	msg := &models.Message{
		ChannelID: channelID,
		UserID:    authorID,
		Content:   content,
	}
	if err := mc.store.SaveMessage(ctx, msg); err != nil {
		return nil, err
	}
	if err := mc.store.UpdateChannelLastMessage(ctx, channelID, msg.ID, msg.CreatedAt); err != nil {
		return nil, fmt.Errorf("update last message: %w", err)
	}

	view := toMessageView(*msg)
	view.User = author.Public()
	// Broadcast a snapshot; the view may still be stamped delivered below
	// while send buffers are draining.
	received := view
	mc.router.Broadcast(channelID, Event{
		Type:      EventMessageReceived,
		ChannelID: channelID,
		Message:   &received,
	})

	// A second joined connection means the recipient's client is live.
	if mc.router.MemberCount(channelID) > 1 {
		if err := mc.store.MarkMessageDelivered(ctx, msg.ID); err != nil {
			mc.logger.Error("mark delivered after send failed",
				"message_id", msg.ID, "channel_id", channelID, "error", err)
		} else {
			view.Delivered = true
			mc.router.Broadcast(channelID, Event{
				Type:      EventMessageDelivered,
				MessageID: msg.ID,
				ChannelID: channelID,
			})
		}
	}
	return &view, nil
}

// CatchUpDelivery marks every undelivered message in the channel authored by
// someone other than forUserID as delivered and broadcasts one
// message_delivered per affected message. Invoked when a user joins a channel,
// covering messages sent while they were offline.
func (mc *MessageCoordinator) CatchUpDelivery(ctx context.Context, channelID string, forUserID uint) error {
	ids, err := mc.store.MarkChannelDelivered(ctx, channelID, forUserID)
	if err != nil {
		return fmt.Errorf("catch-up delivery for channel %s: %w", channelID, err)
	}
	for _, id := range ids {
		mc.router.Broadcast(channelID, Event{
			Type:      EventMessageDelivered,
			MessageID: id,
			ChannelID: channelID,
		})
	}
	return nil
}

// MarkSeen sets delivered=true for one message and broadcasts
// message_delivered. Despite the inbound event's name there is only the single
// binary delivered state; repeating the call succeeds without effect.
func (mc *MessageCoordinator) MarkSeen(ctx context.Context, messageID uint, channelID string) error {
	if err := mc.store.MarkMessageDelivered(ctx, messageID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrMessageNotFound
		}
		return fmt.Errorf("mark seen: %w", err)
	}
	mc.router.Broadcast(channelID, Event{
		Type:      EventMessageDelivered,
		MessageID: messageID,
		ChannelID: channelID,
	})
	return nil
}

// History returns one page of the channel's messages in (created_at, id)
// ascending order. It never changes delivery state.
func (mc *MessageCoordinator) History(ctx context.Context, channelID string, page, pageSize int) ([]MessageView, error) {
	messages, err := mc.store.GetMessages(ctx, channelID, page, pageSize)
	if err != nil {
		return nil, fmt.Errorf("load history for channel %s: %w", channelID, err)
	}
	return lo.Map(messages, func(m models.Message, _ int) MessageView {
		return toMessageView(m)
	}), nil
}
