// Package store persists aggregated people keyed by normalized query.
package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/person-search/internal/model"
)

// ErrNotFound is returned when no person matches the lookup.
var ErrNotFound = eris.New("store: person not found")

// PersonStore is the durable cache of aggregated people. Rows are
// create-only: PutPerson always inserts, and lookups by cache key return
// the newest row. Only the answer fields and the report counter are
// patched after creation.
type PersonStore interface {
	GetPerson(ctx context.Context, cacheKey string) (*model.Person, error)
	GetPersonByID(ctx context.Context, id string) (*model.Person, error)
	PutPerson(ctx context.Context, p *model.Person) error
	PatchAnswer(ctx context.Context, id string, patch model.AnswerPatch) error
	IncrementReportCount(ctx context.Context, id string) (int, error)

	Migrate(ctx context.Context) error
	Close() error
}

// personRow is the column view shared by both SQL drivers.
type personRow struct {
	ID                string
	CacheKey          string
	Data              []byte
	Answer            string
	RelatedQuestions  []byte
	AnswerGeneratedAt *time.Time
	ReportCount       int
	CreatedAt         time.Time
}

// prepareInsert splits p into its row form, drawing an id and creation
// time when p has none. p itself is left alone: callers apply the row's
// id with commit once the insert succeeds, so a failed write never hands
// out an id that does not exist. The aggregated body is stored without
// answer fields.
func prepareInsert(p *model.Person, newID func() string) (personRow, error) {
	if p == nil {
		return personRow{}, eris.New("store: nil person")
	}
	body := *p
	if body.ID == "" {
		body.ID = newID()
	}
	if body.CreatedAt.IsZero() {
		body.CreatedAt = time.Now().UTC()
	}
	rq, err := marshalQuestions(p.RelatedQuestions)
	if err != nil {
		return personRow{}, err
	}

	body.Answer = ""
	body.RelatedQuestions = nil
	body.AnswerGeneratedAt = nil
	data, err := json.Marshal(&body)
	if err != nil {
		return personRow{}, eris.Wrap(err, "store: marshal person")
	}
	return personRow{
		ID:                body.ID,
		CacheKey:          p.CacheKey,
		Data:              data,
		Answer:            p.Answer,
		RelatedQuestions:  rq,
		AnswerGeneratedAt: p.AnswerGeneratedAt,
		CreatedAt:         body.CreatedAt,
	}, nil
}

// commit copies the stored id and creation time back onto p.
func (r personRow) commit(p *model.Person) {
	p.ID = r.ID
	p.CreatedAt = r.CreatedAt
}

func (r personRow) person() (*model.Person, error) {
	var p model.Person
	if err := json.Unmarshal(r.Data, &p); err != nil {
		return nil, eris.Wrapf(err, "store: unmarshal person %s", r.ID)
	}
	p.ID = r.ID
	p.CacheKey = r.CacheKey
	p.Answer = r.Answer
	p.AnswerGeneratedAt = r.AnswerGeneratedAt
	p.ReportCount = r.ReportCount
	p.CreatedAt = r.CreatedAt
	p.RelatedQuestions = []string{}
	if len(r.RelatedQuestions) > 0 {
		if err := json.Unmarshal(r.RelatedQuestions, &p.RelatedQuestions); err != nil {
			return nil, eris.Wrapf(err, "store: unmarshal related questions %s", r.ID)
		}
	}
	return &p, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func marshalQuestions(qs []string) ([]byte, error) {
	b, err := json.Marshal(nonNil(qs))
	if err != nil {
		return nil, eris.Wrap(err, "store: marshal related questions")
	}
	return b, nil
}
