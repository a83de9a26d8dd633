package followup

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/person-search/internal/model"
	storemocks "github.com/sells-group/person-search/internal/store/mocks"
)

// chatServer answers chat completions: the first call gets answer, later
// calls get related. status overrides the response code when non-zero.
func chatServer(t *testing.T, answer, related string, status int) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		n := calls.Add(1)
		if status != 0 {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"error": {"message": "boom", "type": "server_error"}}`))
			return
		}
		content := answer
		if n > 1 {
			content = related
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "cmpl-1",
			"object":  "chat.completion",
			"choices": []map[string]any{{"index": 0, "message": map[string]any{"role": "assistant", "content": content}}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func storedPerson() *model.Person {
	return &model.Person{
		ID:        "p-1",
		Query:     "jane doe::c1",
		BasicInfo: model.BasicInfo{Name: "Jane Doe", Occupation: "CTO", Age: "41"},
		Photos: []model.Photo{
			{URL: "https://img/1.jpg"}, {URL: "https://img/2.jpg"}, {URL: "https://img/3.jpg"}, {URL: "https://img/4.jpg"},
		},
		NotableMentions: []model.NotableMention{
			{Title: "Keynote", URL: "https://news/1", Source: "TechNews"},
			{Title: "Award", URL: "https://news/2"},
			{Title: "Third"},
		},
		SocialProfiles: []model.SocialProfile{
			{Platform: model.PlatformTwitter, Username: "jdoe", URL: "https://twitter.com/jdoe"},
			{Platform: model.PlatformLinkedIn, URL: "https://linkedin.com/in/jdoe"},
			{Platform: model.PlatformInstagram, URL: "https://instagram.com/jdoe"},
		},
	}
}

func TestAsk(t *testing.T) {
	srv, calls := chatServer(t, " She leads engineering at Acme. ", "1. Where did she study?\n\n- What is her net worth?\nWho founded Acme?\nExtra?", 0)
	st := storemocks.NewMockPersonStore(t)
	st.On("GetPersonByID", mock.Anything, "p-1").Return(storedPerson(), nil)

	s := New("sk-test", "gpt-4o-mini", srv.URL, st)
	got, err := s.Ask(context.Background(), "p-1", "  What does she do?  ")
	require.NoError(t, err)

	assert.Equal(t, "What does she do?", got.Question)
	assert.Equal(t, "She leads engineering at Acme.", got.Answer)
	assert.Len(t, got.Photos, 3)
	assert.Equal(t, []string{"Where did she study?", "What is her net worth?", "Who founded Acme?"}, got.RelatedQuestions)
	assert.Equal(t, []Source{
		{Name: "TechNews", URL: "https://news/1", Type: "news", Description: "Keynote"},
		{Name: "Source", URL: "https://news/2", Type: "news", Description: "Award"},
		{Name: "Twitter", URL: "https://twitter.com/jdoe", Type: "social", Description: "jdoe"},
		{Name: "Linkedin", URL: "https://linkedin.com/in/jdoe", Type: "social", Description: "@linkedin"},
	}, got.Sources)
	assert.Equal(t, int32(2), calls.Load())
}

func TestAsk_EmptyQuestion(t *testing.T) {
	s := New("sk-test", "m", "http://unused", storemocks.NewMockPersonStore(t))
	_, err := s.Ask(context.Background(), "p-1", "   ")
	assert.ErrorIs(t, err, ErrEmptyQuestion)
}

func TestAsk_PersonMissing(t *testing.T) {
	st := storemocks.NewMockPersonStore(t)
	st.On("GetPersonByID", mock.Anything, "nope").Return(nil, errors.New("not found"))
	s := New("sk-test", "m", "http://unused", st)

	_, err := s.Ask(context.Background(), "nope", "Who?")
	assert.ErrorContains(t, err, "followup: load person")
}

func TestAnswer_UpstreamError(t *testing.T) {
	srv, _ := chatServer(t, "", "", http.StatusInternalServerError)
	s := New("sk-test", "m", srv.URL, nil)

	_, err := s.Answer(context.Background(), storedPerson(), "Who?")
	assert.ErrorContains(t, err, "followup: answer")
}

func TestFocusedContext(t *testing.T) {
	got := focusedContext(storedPerson())
	assert.True(t, strings.HasPrefix(got, "Name: Jane Doe\nOccupation: CTO\nAge: 41\nNotable achievements:\n- Keynote: "))
	assert.Equal(t, "Person: bob", focusedContext(&model.Person{Query: "bob"}))
}

func TestSources_Empty(t *testing.T) {
	assert.Equal(t, []Source{}, sources(&model.Person{}))
	assert.Equal(t, []model.Photo{}, firstPhotos(nil))
}
