// Package mocks provides test doubles for the apify client.
package mocks

import (
	"context"
	"encoding/json"

	apify "github.com/sells-group/person-search/pkg/apify"
	mock "github.com/stretchr/testify/mock"
)

// MockClient is a mock type for the Client interface.
type MockClient struct {
	mock.Mock
}

var _ apify.Client = (*MockClient)(nil)

// RunSync provides a mock function with given fields: ctx, actorID, input
func (_m *MockClient) RunSync(ctx context.Context, actorID string, input any) ([]json.RawMessage, error) {
	ret := _m.Called(ctx, actorID, input)

	if len(ret) == 0 {
		panic("no return value specified for RunSync")
	}

	var r0 []json.RawMessage
	if rf, ok := ret.Get(0).(func(context.Context, string, any) ([]json.RawMessage, error)); ok {
		return rf(ctx, actorID, input)
	}
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]json.RawMessage)
	}
	return r0, ret.Error(1)
}

// NewMockClient creates a new instance of MockClient. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewMockClient(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockClient {
	m := &MockClient{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
