package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/person-search/internal/model"
)

// SQLiteStore implements PersonStore using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS persons (
	id                  TEXT PRIMARY KEY,
	cache_key           TEXT NOT NULL,
	data                TEXT NOT NULL,
	answer              TEXT NOT NULL DEFAULT '',
	related_questions   TEXT NOT NULL DEFAULT '[]',
	answer_generated_at DATETIME,
	report_count        INTEGER NOT NULL DEFAULT 0,
	created_at          DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_persons_cache_key ON persons(cache_key, created_at);
`

const sqliteSelect = `SELECT id, cache_key, data, answer, related_questions, answer_generated_at, report_count, created_at FROM persons`

// Migrate creates the schema.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration+sqliteChatMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// GetPerson returns the newest person stored under cacheKey.
func (s *SQLiteStore) GetPerson(ctx context.Context, cacheKey string) (*model.Person, error) {
	row := s.db.QueryRowContext(ctx, sqliteSelect+` WHERE cache_key = ? ORDER BY created_at DESC, rowid DESC LIMIT 1`, cacheKey)
	p, err := scanSQLite(row)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get person %q", cacheKey)
	}
	return p, nil
}

// GetPersonByID returns a person by id.
func (s *SQLiteStore) GetPersonByID(ctx context.Context, id string) (*model.Person, error) {
	row := s.db.QueryRowContext(ctx, sqliteSelect+` WHERE id = ?`, id)
	p, err := scanSQLite(row)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get person by id %s", id)
	}
	return p, nil
}

// PutPerson inserts a new row for p, assigning p.ID when empty. p is
// unchanged when the insert fails.
func (s *SQLiteStore) PutPerson(ctx context.Context, p *model.Person) error {
	r, err := prepareInsert(p, uuid.NewString)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO persons (id, cache_key, data, answer, related_questions, answer_generated_at, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.CacheKey, string(r.Data), r.Answer, string(r.RelatedQuestions), r.AnswerGeneratedAt, r.CreatedAt,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: insert person")
	}
	r.commit(p)
	return nil
}

// PatchAnswer writes the answer fields of an existing person.
func (s *SQLiteStore) PatchAnswer(ctx context.Context, id string, patch model.AnswerPatch) error {
	rq, err := marshalQuestions(patch.RelatedQuestions)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE persons SET answer = ?, related_questions = ?, answer_generated_at = ? WHERE id = ?`,
		patch.Answer, string(rq), patch.GeneratedAt.UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: patch answer %s", id)
	}
	return checkRowsAffected(res, id)
}

// IncrementReportCount bumps and returns the report counter.
func (s *SQLiteStore) IncrementReportCount(ctx context.Context, id string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`UPDATE persons SET report_count = report_count + 1 WHERE id = ? RETURNING report_count`, id,
	).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, eris.Wrapf(err, "sqlite: increment report count %s", id)
	}
	return n, nil
}

func scanSQLite(row *sql.Row) (*model.Person, error) {
	var (
		r       personRow
		data    string
		rq      string
		genAt   sql.NullTime
		created time.Time
	)
	err := row.Scan(&r.ID, &r.CacheKey, &data, &r.Answer, &rq, &genAt, &r.ReportCount, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	r.Data = []byte(data)
	r.RelatedQuestions = []byte(rq)
	r.CreatedAt = created.UTC()
	if genAt.Valid {
		t := genAt.Time.UTC()
		r.AnswerGeneratedAt = &t
	}
	return r.person()
}

func checkRowsAffected(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "id %s", id)
	}
	return nil
}
