package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Durga62823/chat-application/internal/models"
)

const (
	// DefaultPageSize is the history page size when the caller does not ask
	// for one.
	DefaultPageSize = 50
	maxPageSize     = 100

	onlineSetKey = "online_users"
)

// Service implements Storage on top of gorm and an optional Redis client.
type Service struct {
	DB     *gorm.DB
	Redis  *redis.Client
	logger *slog.Logger
}

// NewService wires a Service. Redis may be nil; the presence mirror then only
// touches the users table.
func NewService(db *gorm.DB, rdb *redis.Client) *Service {
	return &Service{
		DB:     db,
		Redis:  rdb,
		logger: slog.Default().With("component", "storage"),
	}
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	}
	return err
}

// CreateUser inserts a new user. Phone numbers are unique.
func (s *Service) CreateUser(ctx context.Context, user *models.User) error {
	return translate(s.DB.WithContext(ctx).Create(user).Error)
}

// FindUserByID loads a user by primary key.
func (s *Service) FindUserByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.DB.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// FindUserByPhone loads a user by phone number.
func (s *Service) FindUserByPhone(ctx context.Context, phone string) (*models.User, error) {
	var user models.User
	err := s.DB.WithContext(ctx).Where("phone_number = ?", phone).First(&user).Error
	if err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// SearchUsers matches username or phone number against the query substring.
func (s *Service) SearchUsers(ctx context.Context, query string, limit int) ([]models.User, error) {
	if limit <= 0 {
		limit = 10
	}
	var users []models.User
	pattern := "%" + query + "%"
	err := s.DB.WithContext(ctx).
		Where("username ILIKE ? OR phone_number ILIKE ?", pattern, pattern).
		Limit(limit).
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}

// SetUserOnline mirrors a presence transition into Postgres and Redis.
func (s *Service) SetUserOnline(ctx context.Context, id uint, online bool) error {
	err := s.DB.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Update("online", online).Error
	if err != nil {
		return fmt.Errorf("mirror online flag for user %d: %w", id, err)
	}

	if s.Redis == nil {
		return nil
	}
	member := strconv.FormatUint(uint64(id), 10)
	if online {
		err = s.Redis.SAdd(ctx, onlineSetKey, member).Err()
	} else {
		err = s.Redis.SRem(ctx, onlineSetKey, member).Err()
	}
	if err != nil {
		// The Redis mirror is advisory only.
		s.logger.Warn("redis presence mirror update failed", "user_id", id, "error", err)
	}
	return nil
}

// FindChannelByPair looks up the unique channel for an unordered user pair.
// Returns (nil, nil) when no channel exists for the pair.
func (s *Service) FindChannelByPair(ctx context.Context, a, b uint) (*models.Channel, error) {
	u1, u2 := models.NormalizePair(a, b)
	var channel models.Channel
	err := s.DB.WithContext(ctx).
		Where("user1_id = ? AND user2_id = ?", u1, u2).
		First(&channel).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &channel, nil
}

// CreateChannel inserts a channel; ErrDuplicate signals the pair already has one.
func (s *Service) CreateChannel(ctx context.Context, channel *models.Channel) error {
	return translate(s.DB.WithContext(ctx).Create(channel).Error)
}

// GetChannelByID loads a channel by id.
func (s *Service) GetChannelByID(ctx context.Context, id string) (*models.Channel, error) {
	var channel models.Channel
	if err := s.DB.WithContext(ctx).Where("id = ?", id).First(&channel).Error; err != nil {
		return nil, translate(err)
	}
	return &channel, nil
}

// UpdateChannelLastMessage moves the channel's last-message pointer.
func (s *Service) UpdateChannelLastMessage(ctx context.Context, channelID string, messageID uint, at time.Time) error {
	return s.DB.WithContext(ctx).
		Model(&models.Channel{}).
		Where("id = ?", channelID).
		Updates(map[string]interface{}{
			"last_message_id":   messageID,
			"last_message_time": at,
		}).Error
}

// SaveMessage persists a message; gorm fills ID and CreatedAt.
func (s *Service) SaveMessage(ctx context.Context, msg *models.Message) error {
	if err := s.DB.WithContext(ctx).Create(msg).Error; err != nil {
		return fmt.Errorf("save message in channel %s: %w", msg.ChannelID, err)
	}
	return nil
}

// GetMessages returns one history page for a channel, oldest first within the
// page. Page 1 is the most recent window, matching what a chat UI renders.
func (s *Service) GetMessages(ctx context.Context, channelID string, page, pageSize int) ([]models.Message, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	var messages []models.Message
	err := s.DB.WithContext(ctx).
		Preload("User").
		Where("channel_id = ?", channelID).
		Order("created_at DESC, id DESC").
		Limit(pageSize).
		Offset((page - 1) * pageSize).
		Find(&messages).Error
	if err != nil {
		return nil, err
	}

	// Flip the window so callers see (created_at, id) ascending.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

// MarkMessageDelivered sets delivered=true. Repeating the call is a no-op;
// ErrNotFound is returned only when the message does not exist.
func (s *Service) MarkMessageDelivered(ctx context.Context, id uint) error {
	res := s.DB.WithContext(ctx).
		Model(&models.Message{}).
		Where("id = ?", id).
		Update("delivered", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkChannelDelivered flips every undelivered message in the channel that was
// authored by someone other than excludeUserID, returning the affected ids in
// ascending order. The flip and the id collection are one UPDATE ... RETURNING
// statement, so two concurrent calls for the same channel can never both claim
// the same message.
func (s *Service) MarkChannelDelivered(ctx context.Context, channelID string, excludeUserID uint) ([]uint, error) {
	var updated []models.Message
	err := s.DB.WithContext(ctx).
		Model(&updated).
		Clauses(clause.Returning{Columns: []clause.Column{{Name: "id"}}}).
		Where("channel_id = ? AND user_id <> ? AND delivered = ?", channelID, excludeUserID, false).
		Update("delivered", true).Error
	if err != nil {
		return nil, err
	}
	if len(updated) == 0 {
		return nil, nil
	}

	ids := make([]uint, len(updated))
	for i, m := range updated {
		ids[i] = m.ID
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}
