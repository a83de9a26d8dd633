package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/person-search/internal/followup"
	"github.com/sells-group/person-search/internal/model"
	"github.com/sells-group/person-search/internal/orchestrator"
	"github.com/sells-group/person-search/internal/resolver"
	"github.com/sells-group/person-search/internal/store"
)

const maxUploadBytes = 10 << 20

type candidateLookup interface {
	Lookup(ctx context.Context, query string, refine model.Refinements, reference []byte) (*resolver.Response, error)
}

type personSearcher interface {
	Search(ctx context.Context, req model.SearchRequest) (*model.Person, error)
}

type personReader interface {
	GetPersonByID(ctx context.Context, id string) (*model.Person, error)
	IncrementReportCount(ctx context.Context, id string) (int, error)
}

type answerGenerator interface {
	Generate(ctx context.Context, personID string) (*model.Person, error)
}

type followupAsker interface {
	Ask(ctx context.Context, personID, question string) (*followup.Result, error)
}

type chatter interface {
	Chat(ctx context.Context, personID string, messages []model.ChatMessage) (*followup.ChatReply, error)
	History(ctx context.Context, personID string) (*model.Chat, error)
}

// api serves the HTTP routes. followup and chat may be nil.
type api struct {
	candidates candidateLookup
	search     personSearcher
	people     personReader
	answers    answerGenerator
	followup   followupAsker
	chat       chatter
}

func newAPI(env *appEnv) *api {
	a := &api{
		candidates: env.Resolver,
		search:     env.Orchestrator,
		people:     env.Store,
		answers:    env.Answers,
	}
	if env.Followup != nil {
		a.followup = env.Followup
		a.chat = env.Followup
	}
	return a
}

// router builds the chi router with CORS for origins.
func (a *api) router(origins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "Authorization"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/candidates", a.handleCandidates)
		r.Post("/search", a.handleSearch)
		r.Post("/report", a.handleReport)
		r.Post("/chat", a.handleChat)
		r.Route("/person/{id}", func(r chi.Router) {
			r.Get("/", a.handlePerson)
			r.Get("/answer", a.handleGetAnswer)
			r.Post("/answer", a.handleGenerateAnswer)
			r.Post("/followup", a.handleFollowup)
			r.Get("/chat", a.handleChatHistory)
		})
	})
	return r
}

type candidatesRequest struct {
	Query string `json:"query"`
	model.Refinements
	// ReferenceImage is base64, optionally as a data URL.
	ReferenceImage string `json:"referenceImage,omitempty"`
}

func (a *api) handleCandidates(w http.ResponseWriter, r *http.Request) {
	req, reference, err := parseCandidatesRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := a.candidates.Lookup(r.Context(), req.Query, req.Refinements, reference)
	switch {
	case errors.Is(err, resolver.ErrEmptyQuery):
		writeError(w, http.StatusBadRequest, "query is required")
	case err != nil:
		writeInternal(w, r, err)
	default:
		writeJSON(w, http.StatusOK, resp)
	}
}

// parseCandidatesRequest accepts multipart forms with an "image" file, or
// JSON with a base64 reference image.
func parseCandidatesRequest(r *http.Request) (candidatesRequest, []byte, error) {
	var req candidatesRequest
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			return req, nil, eris.New("invalid multipart form")
		}
		req.Query = r.FormValue("query")
		req.Age = r.FormValue("age")
		req.Location = r.FormValue("location")
		req.School = r.FormValue("school")
		req.Company = r.FormValue("company")
		req.Social = r.FormValue("social")

		file, _, err := r.FormFile("image")
		if errors.Is(err, http.ErrMissingFile) {
			return req, nil, nil
		}
		if err != nil {
			return req, nil, eris.New("invalid image upload")
		}
		defer file.Close() //nolint:errcheck
		data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
		if err != nil {
			return req, nil, eris.New("invalid image upload")
		}
		return req, data, nil
	}

	if err := json.NewDecoder(io.LimitReader(r.Body, maxUploadBytes*2)).Decode(&req); err != nil {
		return req, nil, eris.New("invalid request body")
	}
	if req.ReferenceImage == "" {
		return req, nil, nil
	}
	encoded := req.ReferenceImage
	if _, after, ok := strings.Cut(encoded, ";base64,"); ok {
		encoded = after
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return req, nil, eris.New("referenceImage is not valid base64")
	}
	return req, data, nil
}

func (a *api) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req model.SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	person, err := a.search.Search(r.Context(), req)
	switch {
	case errors.Is(err, orchestrator.ErrEmptyQuery):
		writeError(w, http.StatusBadRequest, "query is required")
	case errors.Is(err, orchestrator.ErrPersistence):
		zap.L().Error("api: search result not stored", zap.String("trace", eris.ToString(err, true)))
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"error":  "failed to store results",
			"person": person,
		})
	case err != nil:
		writeInternal(w, r, err)
	default:
		writeJSON(w, http.StatusOK, person)
	}
}

func (a *api) handlePerson(w http.ResponseWriter, r *http.Request) {
	p, ok := a.loadPerson(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, p)
}

type answerResponse struct {
	PersonID         string     `json:"personId"`
	Answer           string     `json:"answer"`
	RelatedQuestions []string   `json:"relatedQuestions"`
	GeneratedAt      *time.Time `json:"generatedAt"`
}

func newAnswerResponse(p *model.Person) answerResponse {
	rq := p.RelatedQuestions
	if rq == nil {
		rq = []string{}
	}
	return answerResponse{PersonID: p.ID, Answer: p.Answer, RelatedQuestions: rq, GeneratedAt: p.AnswerGeneratedAt}
}

func (a *api) handleGetAnswer(w http.ResponseWriter, r *http.Request) {
	p, ok := a.loadPerson(w, r)
	if !ok {
		return
	}
	if !p.HasAnswer() {
		writeError(w, http.StatusNotFound, "answer not generated")
		return
	}
	writeJSON(w, http.StatusOK, newAnswerResponse(p))
}

func (a *api) handleGenerateAnswer(w http.ResponseWriter, r *http.Request) {
	p, err := a.answers.Generate(r.Context(), chi.URLParam(r, "id"))
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "person not found")
	case err != nil:
		writeInternal(w, r, err)
	default:
		writeJSON(w, http.StatusOK, newAnswerResponse(p))
	}
}

func (a *api) handleFollowup(w http.ResponseWriter, r *http.Request) {
	if a.followup == nil {
		writeError(w, http.StatusServiceUnavailable, "follow-up questions are not configured")
		return
	}
	var body struct {
		Question string `json:"question"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := a.followup.Ask(r.Context(), chi.URLParam(r, "id"), body.Question)
	switch {
	case errors.Is(err, followup.ErrEmptyQuestion):
		writeError(w, http.StatusBadRequest, "question is required")
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "person not found")
	case err != nil:
		writeInternal(w, r, err)
	default:
		writeJSON(w, http.StatusOK, res)
	}
}

type chatRequest struct {
	PersonID string              `json:"personId"`
	Messages []model.ChatMessage `json:"messages"`
}

func (a *api) handleChat(w http.ResponseWriter, r *http.Request) {
	if a.chat == nil {
		writeError(w, http.StatusServiceUnavailable, "chat is not configured")
		return
	}
	var body chatRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.PersonID == "" || body.Messages == nil {
		writeError(w, http.StatusBadRequest, "personId and messages are required")
		return
	}

	res, err := a.chat.Chat(r.Context(), body.PersonID, body.Messages)
	switch {
	case errors.Is(err, followup.ErrNoMessages):
		writeError(w, http.StatusBadRequest, "at least one message is required")
	case errors.Is(err, followup.ErrNotUserTurn), errors.Is(err, followup.ErrEmptyQuestion):
		writeError(w, http.StatusBadRequest, "last message must be a non-empty user message")
	case errors.Is(err, followup.ErrChatsDisabled):
		writeError(w, http.StatusServiceUnavailable, "chat is not configured")
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "person not found")
	case err != nil:
		writeInternal(w, r, err)
	default:
		writeJSON(w, http.StatusOK, res)
	}
}

func (a *api) handleChatHistory(w http.ResponseWriter, r *http.Request) {
	if a.chat == nil {
		writeError(w, http.StatusServiceUnavailable, "chat is not configured")
		return
	}
	c, err := a.chat.History(r.Context(), chi.URLParam(r, "id"))
	switch {
	case errors.Is(err, followup.ErrChatsDisabled):
		writeError(w, http.StatusServiceUnavailable, "chat is not configured")
	case err != nil:
		writeInternal(w, r, err)
	default:
		writeJSON(w, http.StatusOK, c)
	}
}

func (a *api) handleReport(w http.ResponseWriter, r *http.Request) {
	var body struct {
		PersonID string `json:"personId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.PersonID == "" {
		writeError(w, http.StatusBadRequest, "personId is required")
		return
	}

	n, err := a.people.IncrementReportCount(r.Context(), body.PersonID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "person not found")
	case err != nil:
		writeInternal(w, r, err)
	default:
		writeJSON(w, http.StatusOK, map[string]any{"message": "report submitted", "reportCount": n})
	}
}

func (a *api) loadPerson(w http.ResponseWriter, r *http.Request) (*model.Person, bool) {
	p, err := a.people.GetPersonByID(r.Context(), chi.URLParam(r, "id"))
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "person not found")
		return nil, false
	case err != nil:
		writeInternal(w, r, err)
		return nil, false
	}
	return p, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("api: encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeInternal logs err in full and answers with an opaque 500.
func writeInternal(w http.ResponseWriter, r *http.Request, err error) {
	zap.L().Error("api: request failed",
		zap.String("path", r.URL.Path),
		zap.String("request_id", middleware.GetReqID(r.Context())),
		zap.String("trace", eris.ToString(err, true)),
	)
	writeError(w, http.StatusInternalServerError, "internal server error")
}
