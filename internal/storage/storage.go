// Package storage is the durable layer: PostgreSQL via gorm as the source of
// truth, Redis as a best-effort mirror of derived presence state.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/Durga62823/chat-application/internal/models"
)

// ErrNotFound is returned when a record with the given identifier does not exist.
var ErrNotFound = errors.New("record not found")

// ErrDuplicate is returned when an insert violates a uniqueness constraint
// (phone number already registered, channel pair already exists).
var ErrDuplicate = errors.New("duplicate record")

// Storage is the contract the realtime hub and the HTTP handlers consume.
type Storage interface {
	// Users
	CreateUser(ctx context.Context, user *models.User) error
	FindUserByID(ctx context.Context, id uint) (*models.User, error)
	FindUserByPhone(ctx context.Context, phone string) (*models.User, error)
	SearchUsers(ctx context.Context, query string, limit int) ([]models.User, error)
	// SetUserOnline mirrors a presence transition into the durable store and
	// Redis. Callers treat failures as non-fatal; the in-memory registry owns
	// the authoritative state.
	SetUserOnline(ctx context.Context, id uint, online bool) error

	// Channels
	FindChannelByPair(ctx context.Context, a, b uint) (*models.Channel, error)
	CreateChannel(ctx context.Context, channel *models.Channel) error
	GetChannelByID(ctx context.Context, id string) (*models.Channel, error)
	UpdateChannelLastMessage(ctx context.Context, channelID string, messageID uint, at time.Time) error

	// Messages
	SaveMessage(ctx context.Context, msg *models.Message) error
	GetMessages(ctx context.Context, channelID string, page, pageSize int) ([]models.Message, error)
	MarkMessageDelivered(ctx context.Context, id uint) error
	MarkChannelDelivered(ctx context.Context, channelID string, excludeUserID uint) ([]uint, error)
}
