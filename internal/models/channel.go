package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Channel is a 1-on-1 conversation between exactly two users. Participants are
// stored in normalized order (User1ID < User2ID) so the composite unique index
// guarantees at most one channel per unordered pair.
type Channel struct {
	ID              string     `gorm:"type:uuid;primaryKey" json:"id"`
	User1ID         uint       `gorm:"not null;uniqueIndex:idx_channel_pair" json:"user1Id"`
	User2ID         uint       `gorm:"not null;uniqueIndex:idx_channel_pair" json:"user2Id"`
	LastMessageID   *uint      `json:"lastMessageId"`
	LastMessageTime *time.Time `json:"lastMessageTime"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// BeforeCreate assigns a fresh UUID when the caller did not set one.
func (c *Channel) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	return nil
}

// Peer returns the other participant of the channel from the viewer's side.
// Returns 0 if the viewer is not a participant.
func (c *Channel) Peer(viewerID uint) uint {
	switch viewerID {
	case c.User1ID:
		return c.User2ID
	case c.User2ID:
		return c.User1ID
	}
	return 0
}

// HasParticipant reports whether userID is one of the channel's two participants.
func (c *Channel) HasParticipant(userID uint) bool {
	return userID == c.User1ID || userID == c.User2ID
}

// NormalizePair orders two user ids so (a,b) and (b,a) address the same channel.
func NormalizePair(a, b uint) (uint, uint) {
	if a > b {
		return b, a
	}
	return a, b
}
