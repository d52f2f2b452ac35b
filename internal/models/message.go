package models

import "gorm.io/gorm"

// Message is one text message inside a channel. The embedded gorm.Model supplies
// the monotonically increasing ID used as the ordering tiebreak next to CreatedAt.
type Message struct {
	gorm.Model

	// ChannelID references the owning Channel.
	ChannelID string `gorm:"type:uuid;not null;index" json:"channelId"`
	// UserID is the author; it must be one of the channel's two participants.
	UserID uint `gorm:"not null" json:"userId"`
	// Content is the message text, never empty.
	Content string `gorm:"type:text;not null" json:"content"`
	// Delivered is true once at least one recipient connection was live and
	// joined when (or after) the message was sent.
	Delivered bool `gorm:"not null;default:false" json:"delivered"`

	User User `gorm:"foreignKey:UserID" json:"-"`
}
