// Package mocks provides test doubles for the pdl client.
package mocks

import (
	"context"

	pdl "github.com/sells-group/person-search/pkg/pdl"
	mock "github.com/stretchr/testify/mock"
)

// MockClient is a mock type for the Client interface.
type MockClient struct {
	mock.Mock
}

// Search provides a mock function with given fields: ctx, sql, size
func (_m *MockClient) Search(ctx context.Context, sql string, size int) (*pdl.SearchResponse, error) {
	ret := _m.Called(ctx, sql, size)

	if len(ret) == 0 {
		panic("no return value specified for Search")
	}

	var r0 *pdl.SearchResponse
	if rf, ok := ret.Get(0).(func(context.Context, string, int) (*pdl.SearchResponse, error)); ok {
		return rf(ctx, sql, size)
	}
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*pdl.SearchResponse)
	}
	return r0, ret.Error(1)
}

// Enrich provides a mock function with given fields: ctx, params
func (_m *MockClient) Enrich(ctx context.Context, params pdl.EnrichParams) (*pdl.Person, error) {
	ret := _m.Called(ctx, params)

	if len(ret) == 0 {
		panic("no return value specified for Enrich")
	}

	var r0 *pdl.Person
	if rf, ok := ret.Get(0).(func(context.Context, pdl.EnrichParams) (*pdl.Person, error)); ok {
		return rf(ctx, params)
	}
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*pdl.Person)
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
