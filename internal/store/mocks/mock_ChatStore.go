package mocks

import (
	"context"

	mock "github.com/stretchr/testify/mock"

	model "github.com/sells-group/person-search/internal/model"
	store "github.com/sells-group/person-search/internal/store"
)

// MockChatStore is a mock type for the ChatStore interface.
type MockChatStore struct {
	mock.Mock
}

var _ store.ChatStore = (*MockChatStore)(nil)

// LatestChat provides a mock function with given fields: ctx, personID
func (_m *MockChatStore) LatestChat(ctx context.Context, personID string) (*model.Chat, error) {
	ret := _m.Called(ctx, personID)
	var r0 *model.Chat
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*model.Chat)
	}
	return r0, ret.Error(1)
}

// SaveChat provides a mock function with given fields: ctx, c
func (_m *MockChatStore) SaveChat(ctx context.Context, c *model.Chat) error {
	ret := _m.Called(ctx, c)
	if rf, ok := ret.Get(0).(func(context.Context, *model.Chat) error); ok {
		return rf(ctx, c)
	}
	return ret.Error(0)
}

// NewMockChatStore creates a new instance of MockChatStore. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewMockChatStore(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockChatStore {
	m := &MockChatStore{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
