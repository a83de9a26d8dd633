// Package mocks provides test doubles for the sources capabilities.
package mocks

import (
	"context"

	mock "github.com/stretchr/testify/mock"

	model "github.com/sells-group/person-search/internal/model"
	sources "github.com/sells-group/person-search/internal/sources"
)

type testingT interface {
	mock.TestingT
	Cleanup(func())
}

func register(t testingT, m *mock.Mock) {
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
}

// MockTextSearch is a mock type for the TextSearch interface.
type MockTextSearch struct {
	mock.Mock
}

var _ sources.TextSearch = (*MockTextSearch)(nil)

// Query provides a mock function with given fields: ctx, text
func (_m *MockTextSearch) Query(ctx context.Context, text string) (*model.TextSearchResult, error) {
	ret := _m.Called(ctx, text)
	if rf, ok := ret.Get(0).(func(context.Context, string) (*model.TextSearchResult, error)); ok {
		return rf(ctx, text)
	}
	var r0 *model.TextSearchResult
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*model.TextSearchResult)
	}
	return r0, ret.Error(1)
}

// ExtractStructured provides a mock function with given fields: ctx, query, raw
func (_m *MockTextSearch) ExtractStructured(ctx context.Context, query string, raw string) (*model.StructuredInfo, error) {
	ret := _m.Called(ctx, query, raw)
	var r0 *model.StructuredInfo
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*model.StructuredInfo)
	}
	return r0, ret.Error(1)
}

// FindCandidates provides a mock function with given fields: ctx, query
func (_m *MockTextSearch) FindCandidates(ctx context.Context, query string) ([]model.Candidate, error) {
	ret := _m.Called(ctx, query)
	var r0 []model.Candidate
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]model.Candidate)
	}
	return r0, ret.Error(1)
}

// NewMockTextSearch creates a MockTextSearch that asserts its expectations on cleanup.
func NewMockTextSearch(t testingT) *MockTextSearch {
	m := &MockTextSearch{}
	register(t, &m.Mock)
	return m
}

// MockIdentityGraph is a mock type for the IdentityGraph interface.
type MockIdentityGraph struct {
	mock.Mock
}

var _ sources.IdentityGraph = (*MockIdentityGraph)(nil)

// Search provides a mock function with given fields: ctx, q
func (_m *MockIdentityGraph) Search(ctx context.Context, q model.IdentityQuery) ([]model.Candidate, error) {
	ret := _m.Called(ctx, q)
	var r0 []model.Candidate
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]model.Candidate)
	}
	return r0, ret.Error(1)
}

// Enrich provides a mock function with given fields: ctx, key
func (_m *MockIdentityGraph) Enrich(ctx context.Context, key model.EnrichKey) (*model.IdentityRecord, error) {
	ret := _m.Called(ctx, key)
	var r0 *model.IdentityRecord
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*model.IdentityRecord)
	}
	return r0, ret.Error(1)
}

// NewMockIdentityGraph creates a MockIdentityGraph that asserts its expectations on cleanup.
func NewMockIdentityGraph(t testingT) *MockIdentityGraph {
	m := &MockIdentityGraph{}
	register(t, &m.Mock)
	return m
}

// MockCandidateSearch is a mock type for the CandidateSearch interface.
type MockCandidateSearch struct {
	mock.Mock
}

var _ sources.CandidateSearch = (*MockCandidateSearch)(nil)

// Candidates provides a mock function with given fields: ctx, query
func (_m *MockCandidateSearch) Candidates(ctx context.Context, query string) ([]model.Candidate, error) {
	ret := _m.Called(ctx, query)
	var r0 []model.Candidate
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]model.Candidate)
	}
	return r0, ret.Error(1)
}

// NewMockCandidateSearch creates a MockCandidateSearch that asserts its expectations on cleanup.
func NewMockCandidateSearch(t testingT) *MockCandidateSearch {
	m := &MockCandidateSearch{}
	register(t, &m.Mock)
	return m
}

// MockImageSearch is a mock type for the ImageSearch interface.
type MockImageSearch struct {
	mock.Mock
}

var _ sources.ImageSearch = (*MockImageSearch)(nil)

// SearchOne provides a mock function with given fields: ctx, text
func (_m *MockImageSearch) SearchOne(ctx context.Context, text string) (string, error) {
	ret := _m.Called(ctx, text)
	return ret.String(0), ret.Error(1)
}

// SearchMany provides a mock function with given fields: ctx, text, count
func (_m *MockImageSearch) SearchMany(ctx context.Context, text string, count int) ([]string, error) {
	ret := _m.Called(ctx, text, count)
	var r0 []string
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]string)
	}
	return r0, ret.Error(1)
}

// NewMockImageSearch creates a MockImageSearch that asserts its expectations on cleanup.
func NewMockImageSearch(t testingT) *MockImageSearch {
	m := &MockImageSearch{}
	register(t, &m.Mock)
	return m
}

// MockWebSearch is a mock type for the WebSearch interface.
type MockWebSearch struct {
	mock.Mock
}

var _ sources.WebSearch = (*MockWebSearch)(nil)

// SiteSearch provides a mock function with given fields: ctx, site, query
func (_m *MockWebSearch) SiteSearch(ctx context.Context, site string, query string) ([]model.SearchHit, error) {
	ret := _m.Called(ctx, site, query)
	var r0 []model.SearchHit
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]model.SearchHit)
	}
	return r0, ret.Error(1)
}

// NewMockWebSearch creates a MockWebSearch that asserts its expectations on cleanup.
func NewMockWebSearch(t testingT) *MockWebSearch {
	m := &MockWebSearch{}
	register(t, &m.Mock)
	return m
}

// MockSocialScraper is a mock type for the SocialScraper interface.
type MockSocialScraper struct {
	mock.Mock
}

var _ sources.SocialScraper = (*MockSocialScraper)(nil)

// Fetch provides a mock function with given fields: ctx, platform, target
func (_m *MockSocialScraper) Fetch(ctx context.Context, platform model.Platform, target string) model.ScrapeResult {
	ret := _m.Called(ctx, platform, target)
	return ret.Get(0).(model.ScrapeResult)
}

// Supports provides a mock function with given fields: platform
func (_m *MockSocialScraper) Supports(platform model.Platform) bool {
	ret := _m.Called(platform)
	return ret.Bool(0)
}

// NewMockSocialScraper creates a MockSocialScraper that asserts its expectations on cleanup.
func NewMockSocialScraper(t testingT) *MockSocialScraper {
	m := &MockSocialScraper{}
	register(t, &m.Mock)
	return m
}

// MockPublicRecordScanner is a mock type for the PublicRecordScanner interface.
type MockPublicRecordScanner struct {
	mock.Mock
}

var _ sources.PublicRecordScanner = (*MockPublicRecordScanner)(nil)

// Scan provides a mock function with given fields: ctx, name, location
func (_m *MockPublicRecordScanner) Scan(ctx context.Context, name string, location string) []model.ScrapeResult {
	ret := _m.Called(ctx, name, location)
	var r0 []model.ScrapeResult
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]model.ScrapeResult)
	}
	return r0
}

// NewMockPublicRecordScanner creates a MockPublicRecordScanner that asserts its expectations on cleanup.
func NewMockPublicRecordScanner(t testingT) *MockPublicRecordScanner {
	m := &MockPublicRecordScanner{}
	register(t, &m.Mock)
	return m
}
