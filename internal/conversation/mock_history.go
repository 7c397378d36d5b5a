package conversation

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockHistory is a mock implementation of History using testify/mock.
type MockHistory struct {
	mock.Mock
}

func (m *MockHistory) Save(ctx context.Context, conv Conversation) error {
	args := m.Called(ctx, conv)
	return args.Error(0)
}

func (m *MockHistory) Load(ctx context.Context, id uuid.UUID) (Conversation, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(Conversation), args.Error(1)
}

func (m *MockHistory) Close() error {
	args := m.Called()
	return args.Error(0)
}
