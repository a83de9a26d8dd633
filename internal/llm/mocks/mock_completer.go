// Package mocks provides testify mocks for the llm package.
package mocks

import (
	"context"
	"encoding/json"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/person-search/internal/llm"
)

// Completer is a mock llm.Completer. JSON expectations return the raw
// reply as their first value; it is decoded into the caller's target.
type Completer struct {
	mock.Mock
}

var _ llm.Completer = (*Completer)(nil)

// Text provides a mock function.
func (m *Completer) Text(ctx context.Context, req llm.Request) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

// JSON provides a mock function.
func (m *Completer) JSON(ctx context.Context, req llm.Request, out any) error {
	args := m.Called(ctx, req)
	if err := args.Error(1); err != nil {
		return err
	}
	raw, _ := args.Get(0).(string)
	if raw == "" {
		return nil
	}
	return json.Unmarshal([]byte(raw), out)
}

// Phase matches requests by their Phase label.
func Phase(p string) any {
	return mock.MatchedBy(func(r llm.Request) bool { return r.Phase == p })
}

// NewCompleter creates a Completer and registers cleanup assertions.
func NewCompleter(t interface {
	mock.TestingT
	Cleanup(func())
}) *Completer {
	m := &Completer{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}
