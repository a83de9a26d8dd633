package store

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/person-search/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })
	return &PostgresStore{pool: mock}, mock
}

var personColumns = []string{"id", "cache_key", "data", "answer", "related_questions", "answer_generated_at", "report_count", "created_at"}

func TestPostgresStore_Migrate(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS persons`).WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetPerson(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	genAt := created.Add(time.Minute)
	data, err := json.Marshal(model.Person{Query: "jane doe", BasicInfo: model.BasicInfo{Name: "Jane Doe"}})
	require.NoError(t, err)

	mock.ExpectQuery(`FROM persons WHERE cache_key = \$1 ORDER BY created_at DESC LIMIT 1`).
		WithArgs("jane doe").
		WillReturnRows(pgxmock.NewRows(personColumns).
			AddRow("p-1", "jane doe", data, "Jane is a pilot.", []byte(`["Q1"]`), &genAt, 3, created))

	p, err := s.GetPerson(context.Background(), "jane doe")
	require.NoError(t, err)
	assert.Equal(t, "p-1", p.ID)
	assert.Equal(t, "Jane Doe", p.BasicInfo.Name)
	assert.Equal(t, "Jane is a pilot.", p.Answer)
	assert.Equal(t, []string{"Q1"}, p.RelatedQuestions)
	assert.Equal(t, 3, p.ReportCount)
	assert.True(t, p.HasAnswer())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetPerson_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`FROM persons WHERE cache_key = \$1`).
		WithArgs("nobody").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetPerson(context.Background(), "nobody")
	require.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_PutPerson(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO persons`).
		WithArgs(pgxmock.AnyArg(), "jane doe::c1", pgxmock.AnyArg(), "", []byte(`[]`), (*time.Time)(nil), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	p := &model.Person{CacheKey: "jane doe::c1", Query: "jane doe::c1"}
	require.NoError(t, s.PutPerson(context.Background(), p))
	assert.NotEmpty(t, p.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_PutPerson_Error(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO persons`).WillReturnError(errors.New("connection reset"))

	p := &model.Person{CacheKey: "k"}
	err := s.PutPerson(context.Background(), p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert person")
	assert.Empty(t, p.ID, "no id for a row that was never written")
	assert.True(t, p.CreatedAt.IsZero())
}

func TestPostgresStore_PatchAnswer(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	at := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec(`UPDATE persons SET answer = \$1, related_questions = \$2, answer_generated_at = \$3 WHERE id = \$4`).
		WithArgs("answer", []byte(`["a","b"]`), at, "p-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`UPDATE persons SET answer`).
		WithArgs("answer", []byte(`[]`), at, "missing").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	require.NoError(t, s.PatchAnswer(context.Background(), "p-1", model.AnswerPatch{
		Answer: "answer", RelatedQuestions: []string{"a", "b"}, GeneratedAt: at,
	}))
	err := s.PatchAnswer(context.Background(), "missing", model.AnswerPatch{Answer: "answer", GeneratedAt: at})
	require.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_IncrementReportCount(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`UPDATE persons SET report_count = report_count \+ 1 WHERE id = \$1 RETURNING report_count`).
		WithArgs("p-1").
		WillReturnRows(pgxmock.NewRows([]string{"report_count"}).AddRow(4))
	mock.ExpectQuery(`UPDATE persons SET report_count`).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	n, err := s.IncrementReportCount(context.Background(), "p-1")
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	_, err = s.IncrementReportCount(context.Background(), "missing")
	require.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
