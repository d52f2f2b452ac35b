package chathub_test

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/Durga62823/chat-application/internal/auth"
	"github.com/Durga62823/chat-application/internal/chathub"
	"github.com/Durga62823/chat-application/internal/models"
	"github.com/Durga62823/chat-application/internal/storage"
)

// stubVerifier maps fixed tokens to user ids for hub authentication tests.
type stubVerifier map[string]uint

func (v stubVerifier) Verify(token string) (uint, error) {
	if id, ok := v[token]; ok {
		return id, nil
	}
	return 0, auth.ErrInvalidToken
}

// fakeClient is a transportless Client that records every event it receives.
type fakeClient struct {
	connID string

	mu     sync.Mutex
	userID uint
	closed bool
	full   bool // when set, Send reports failure to simulate a dead connection
	events []chathub.Event
}

var fakeClientSeq int

func newFakeClient() *fakeClient {
	fakeClientSeq++
	return &fakeClient{connID: fmt.Sprintf("conn-%d", fakeClientSeq)}
}

func (c *fakeClient) GetConnID() string { return c.connID }

func (c *fakeClient) GetUserID() uint {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.userID
}

func (c *fakeClient) SetUserID(id uint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.userID = id
}

func (c *fakeClient) Send(ev chathub.Event) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.full {
		return false
	}
	c.events = append(c.events, ev)
	return true
}

func (c *fakeClient) Run() {}

func (c *fakeClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func (c *fakeClient) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *fakeClient) eventsOfType(eventType string) []chathub.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []chathub.Event
	for _, ev := range c.events {
		if ev.Type == eventType {
			out = append(out, ev)
		}
	}
	return out
}

// memStore is an in-memory Storage with the same observable semantics as the
// gorm-backed service, including the unique pair constraint and the
// newest-window history pagination.
type memStore struct {
	mu         sync.Mutex
	users      map[uint]models.User
	nextUserID uint
	channels   map[string]models.Channel
	pairIndex  map[string]string
	messages   map[uint]models.Message
	nextMsgID  uint
	base       time.Time
	online     map[uint]bool
}

func newMemStore() *memStore {
	return &memStore{
		users:     make(map[uint]models.User),
		channels:  make(map[string]models.Channel),
		pairIndex: make(map[string]string),
		messages:  make(map[uint]models.Message),
		base:      time.Now().Add(-time.Hour),
		online:    make(map[uint]bool),
	}
}

func (s *memStore) pairKey(a, b uint) string {
	u1, u2 := models.NormalizePair(a, b)
	return fmt.Sprintf("%d:%d", u1, u2)
}

func (s *memStore) CreateUser(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.PhoneNumber == user.PhoneNumber {
			return storage.ErrDuplicate
		}
	}
	s.nextUserID++
	user.ID = s.nextUserID
	s.users[user.ID] = *user
	return nil
}

func (s *memStore) FindUserByID(_ context.Context, id uint) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &u, nil
}

func (s *memStore) FindUserByPhone(_ context.Context, phone string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.PhoneNumber == phone {
			out := u
			return &out, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (s *memStore) SearchUsers(_ context.Context, query string, limit int) ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.User
	for _, u := range s.users {
		if strings.Contains(u.Username, query) || strings.Contains(u.PhoneNumber, query) {
			out = append(out, u)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *memStore) SetUserOnline(_ context.Context, id uint, online bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.online[id] = online
	return nil
}

func (s *memStore) FindChannelByPair(_ context.Context, a, b uint) (*models.Channel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.pairIndex[s.pairKey(a, b)]
	if !ok {
		return nil, nil
	}
	ch := s.channels[id]
	return &ch, nil
}

func (s *memStore) CreateChannel(_ context.Context, channel *models.Channel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := s.pairKey(channel.User1ID, channel.User2ID)
	if _, exists := s.pairIndex[key]; exists {
		return storage.ErrDuplicate
	}
	channel.CreatedAt = time.Now()
	s.channels[channel.ID] = *channel
	s.pairIndex[key] = channel.ID
	return nil
}

func (s *memStore) GetChannelByID(_ context.Context, id string) (*models.Channel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.channels[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &ch, nil
}

func (s *memStore) UpdateChannelLastMessage(_ context.Context, channelID string, messageID uint, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.channels[channelID]
	if !ok {
		return storage.ErrNotFound
	}
	ch.LastMessageID = &messageID
	ch.LastMessageTime = &at
	s.channels[channelID] = ch
	return nil
}

func (s *memStore) SaveMessage(_ context.Context, msg *models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextMsgID++
	msg.ID = s.nextMsgID
	// Strictly increasing timestamps keep the ordering key unambiguous.
	msg.CreatedAt = s.base.Add(time.Duration(s.nextMsgID) * time.Second)
	if u, ok := s.users[msg.UserID]; ok {
		msg.User = u
	}
	s.messages[msg.ID] = *msg
	return nil
}

func (s *memStore) GetMessages(_ context.Context, channelID string, page, pageSize int) ([]models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = storage.DefaultPageSize
	}

	var all []models.Message
	for _, m := range s.messages {
		if m.ChannelID == channelID {
			all = append(all, m)
		}
	}
	// Newest first, then slice the requested window and flip it ascending.
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID > all[j].ID
	})
	start := (page - 1) * pageSize
	if start >= len(all) {
		return nil, nil
	}
	end := start + pageSize
	if end > len(all) {
		end = len(all)
	}
	window := all[start:end]
	out := make([]models.Message, len(window))
	for i := range window {
		out[len(window)-1-i] = window[i]
	}
	return out, nil
}

func (s *memStore) MarkMessageDelivered(_ context.Context, id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.messages[id]
	if !ok {
		return storage.ErrNotFound
	}
	m.Delivered = true
	s.messages[id] = m
	return nil
}

func (s *memStore) MarkChannelDelivered(_ context.Context, channelID string, excludeUserID uint) ([]uint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []uint
	for id, m := range s.messages {
		if m.ChannelID == channelID && m.UserID != excludeUserID && !m.Delivered {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		m := s.messages[id]
		m.Delivered = true
		s.messages[id] = m
	}
	return ids, nil
}

func (s *memStore) message(id uint) (models.Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.messages[id]
	return m, ok
}

func (s *memStore) onlineFlag(id uint) (bool, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.online[id]
	return v, ok
}

func (s *memStore) channelCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.channels)
}

// MockStorage is a testify double for expectation-driven tests, e.g. store
// failure paths the stateful memStore cannot produce.
type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) CreateUser(ctx context.Context, user *models.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *MockStorage) FindUserByID(ctx context.Context, id uint) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockStorage) FindUserByPhone(ctx context.Context, phone string) (*models.User, error) {
	args := m.Called(ctx, phone)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockStorage) SearchUsers(ctx context.Context, query string, limit int) ([]models.User, error) {
	args := m.Called(ctx, query, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.User), args.Error(1)
}

func (m *MockStorage) SetUserOnline(ctx context.Context, id uint, online bool) error {
	return m.Called(ctx, id, online).Error(0)
}

func (m *MockStorage) FindChannelByPair(ctx context.Context, a, b uint) (*models.Channel, error) {
	args := m.Called(ctx, a, b)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Channel), args.Error(1)
}

func (m *MockStorage) CreateChannel(ctx context.Context, channel *models.Channel) error {
	return m.Called(ctx, channel).Error(0)
}

func (m *MockStorage) GetChannelByID(ctx context.Context, id string) (*models.Channel, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Channel), args.Error(1)
}

func (m *MockStorage) UpdateChannelLastMessage(ctx context.Context, channelID string, messageID uint, at time.Time) error {
	return m.Called(ctx, channelID, messageID, at).Error(0)
}

func (m *MockStorage) SaveMessage(ctx context.Context, msg *models.Message) error {
	return m.Called(ctx, msg).Error(0)
}

func (m *MockStorage) GetMessages(ctx context.Context, channelID string, page, pageSize int) ([]models.Message, error) {
	args := m.Called(ctx, channelID, page, pageSize)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Message), args.Error(1)
}

func (m *MockStorage) MarkMessageDelivered(ctx context.Context, id uint) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockStorage) MarkChannelDelivered(ctx context.Context, channelID string, excludeUserID uint) ([]uint, error) {
	args := m.Called(ctx, channelID, excludeUserID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uint), args.Error(1)
}
