// Package mocks provides test doubles for the person store.
package mocks

import (
	"context"

	mock "github.com/stretchr/testify/mock"

	model "github.com/sells-group/person-search/internal/model"
	store "github.com/sells-group/person-search/internal/store"
)

// MockPersonStore is a mock type for the PersonStore interface.
type MockPersonStore struct {
	mock.Mock
}

var _ store.PersonStore = (*MockPersonStore)(nil)

// GetPerson provides a mock function with given fields: ctx, cacheKey
func (_m *MockPersonStore) GetPerson(ctx context.Context, cacheKey string) (*model.Person, error) {
	ret := _m.Called(ctx, cacheKey)
	var r0 *model.Person
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*model.Person)
	}
	return r0, ret.Error(1)
}

// GetPersonByID provides a mock function with given fields: ctx, id
func (_m *MockPersonStore) GetPersonByID(ctx context.Context, id string) (*model.Person, error) {
	ret := _m.Called(ctx, id)
	var r0 *model.Person
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*model.Person)
	}
	return r0, ret.Error(1)
}

// PutPerson provides a mock function with given fields: ctx, p
func (_m *MockPersonStore) PutPerson(ctx context.Context, p *model.Person) error {
	ret := _m.Called(ctx, p)
	if rf, ok := ret.Get(0).(func(context.Context, *model.Person) error); ok {
		return rf(ctx, p)
	}
	return ret.Error(0)
}

// PatchAnswer provides a mock function with given fields: ctx, id, patch
func (_m *MockPersonStore) PatchAnswer(ctx context.Context, id string, patch model.AnswerPatch) error {
	ret := _m.Called(ctx, id, patch)
	return ret.Error(0)
}

// IncrementReportCount provides a mock function with given fields: ctx, id
func (_m *MockPersonStore) IncrementReportCount(ctx context.Context, id string) (int, error) {
	ret := _m.Called(ctx, id)
	return ret.Int(0), ret.Error(1)
}

// Migrate provides a mock function with given fields: ctx
func (_m *MockPersonStore) Migrate(ctx context.Context) error {
	ret := _m.Called(ctx)
	return ret.Error(0)
}

// Close provides a mock function with no fields
func (_m *MockPersonStore) Close() error {
	ret := _m.Called()
	return ret.Error(0)
}

// NewMockPersonStore creates a new instance of MockPersonStore. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewMockPersonStore(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockPersonStore {
	m := &MockPersonStore{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
