// Package mocks provides test doubles for the faces service.
package mocks

import (
	"context"

	mock "github.com/stretchr/testify/mock"

	faces "github.com/sells-group/person-search/internal/faces"
)

// MockService is a mock type for the Service interface.
type MockService struct {
	mock.Mock
}

var _ faces.Service = (*MockService)(nil)

// ValidateImage provides a mock function with given fields: ctx, url
func (_m *MockService) ValidateImage(ctx context.Context, url string) bool {
	ret := _m.Called(ctx, url)
	return ret.Bool(0)
}

// DetectFace provides a mock function with given fields: ctx, url
func (_m *MockService) DetectFace(ctx context.Context, url string) bool {
	ret := _m.Called(ctx, url)
	return ret.Bool(0)
}

// Compare provides a mock function with given fields: ctx, reference, targetURL
func (_m *MockService) Compare(ctx context.Context, reference []byte, targetURL string) float64 {
	ret := _m.Called(ctx, reference, targetURL)
	if rf, ok := ret.Get(0).(func(context.Context, []byte, string) float64); ok {
		return rf(ctx, reference, targetURL)
	}
	return ret.Get(0).(float64)
}

// CanCompare provides a mock function with no fields
func (_m *MockService) CanCompare() bool {
	ret := _m.Called()
	return ret.Bool(0)
}

// Threshold provides a mock function with no fields
func (_m *MockService) Threshold() float64 {
	ret := _m.Called()
	return ret.Get(0).(float64)
}

// NewMockService creates a new instance of MockService. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewMockService(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockService {
	m := &MockService{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
