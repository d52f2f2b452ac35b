package chathub

import (
	"time"

	"github.com/Durga62823/chat-application/internal/models"
)

// Inbound event types.
const (
	EventAuthenticate  = "authenticate"
	EventCreateChannel = "create_channel"
	EventJoinChannel   = "join_channel"
	EventLeaveChannel  = "leave_channel"
	EventSendMessage   = "send_message"
	EventMessageSeen   = "message_seen"
)

// Outbound event types.
const (
	EventChannelCreated   = "channel_created"
	EventNewChannel       = "new_channel"
	EventMessageReceived  = "message_received"
	EventMessageDelivered = "message_delivered"
	EventMessageHistory   = "message_history"
	EventUserStatusChange = "user_status_change"
	EventChannelError     = "channel_error"
	EventMessageError     = "message_error"
	EventAuthError        = "auth_error"
)

// Event is the wire envelope for both directions of the socket. Fields are
// populated depending on Type; everything else stays empty.
type Event struct {
	Type string `json:"type"`

	Token        string `json:"token,omitempty"`
	UserID       uint   `json:"userId,omitempty"`
	TargetUserID uint   `json:"targetUserId,omitempty"`
	ChannelID    string `json:"channelId,omitempty"`
	MessageID    uint   `json:"messageId,omitempty"`
	Content      string `json:"content,omitempty"`
	Page         int    `json:"page,omitempty"`
	PageSize     int    `json:"pageSize,omitempty"`

	Online   *bool         `json:"online,omitempty"`
	Channel  *ChannelView  `json:"channel,omitempty"`
	Message  *MessageView  `json:"message,omitempty"`
	Messages []MessageView `json:"messages,omitempty"`
	Error    string        `json:"error,omitempty"`
}

// ChannelView is the denormalized channel representation pushed to a client:
// the channel plus the peer's public profile and live online status.
type ChannelView struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	Avatar          string     `json:"avatar"`
	Online          bool       `json:"online"`
	LastMessageID   *uint      `json:"lastMessageId"`
	LastMessageTime *time.Time `json:"lastMessageTime"`
}

// MessageView is a message plus its author's public profile.
type MessageView struct {
	ID        uint              `json:"id"`
	ChannelID string            `json:"channelId"`
	UserID    uint              `json:"userId"`
	Content   string            `json:"content"`
	CreatedAt time.Time         `json:"createdAt"`
	Delivered bool              `json:"delivered"`
	User      models.PublicUser `json:"user"`
}

func toMessageView(m models.Message) MessageView {
	return MessageView{
		ID:        m.ID,
		ChannelID: m.ChannelID,
		UserID:    m.UserID,
		Content:   m.Content,
		CreatedAt: m.CreatedAt,
		Delivered: m.Delivered,
		User:      m.User.Public(),
	}
}
