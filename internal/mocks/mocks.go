package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"vexa-service/internal/models"
	"vexa-service/internal/repositories"
)

var (
	_ repositories.ChatRepository = (*ChatRepositoryMock)(nil)
	_ repositories.UserRepository = (*UserRepositoryMock)(nil)
)

type ChatRepositoryMock struct {
	mock.Mock
}

func (m *ChatRepositoryMock) CreateChat(ctx context.Context, fromUserID, toUserID, text string) (models.ChatMessage, error) {
	args := m.Called(ctx, fromUserID, toUserID, text)
	var msg models.ChatMessage
	if val := args.Get(0); val != nil {
		msg = val.(models.ChatMessage)
	}
	return msg, args.Error(1)
}

func (m *ChatRepositoryMock) GetChatHistory(ctx context.Context, userID, peerID string) ([]models.ChatMessage, error) {
	args := m.Called(ctx, userID, peerID)
	var msgs []models.ChatMessage
	if val := args.Get(0); val != nil {
		msgs = val.([]models.ChatMessage)
	}
	return msgs, args.Error(1)
}

func (m *ChatRepositoryMock) RecentChats(ctx context.Context, limit int) ([]models.ChatMessage, error) {
	args := m.Called(ctx, limit)
	var msgs []models.ChatMessage
	if val := args.Get(0); val != nil {
		msgs = val.([]models.ChatMessage)
	}
	return msgs, args.Error(1)
}

type UserRepositoryMock struct {
	mock.Mock
}

func (m *UserRepositoryMock) GetUser(ctx context.Context, userID string) (models.User, error) {
	args := m.Called(ctx, userID)
	var user models.User
	if val := args.Get(0); val != nil {
		user = val.(models.User)
	}
	return user, args.Error(1)
}

func (m *UserRepositoryMock) ListUsers(ctx context.Context) ([]models.User, error) {
	args := m.Called(ctx)
	var users []models.User
	if val := args.Get(0); val != nil {
		users = val.([]models.User)
	}
	return users, args.Error(1)
}

type RelayMock struct {
	mock.Mock
}

func (m *RelayMock) Publish(ctx context.Context, msg models.ChatMessage) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

type PresenceViewMock struct {
	mock.Mock
}

func (m *PresenceViewMock) Online(ctx context.Context, userID string) (bool, error) {
	args := m.Called(ctx, userID)
	return args.Bool(0), args.Error(1)
}
