package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/person-search/internal/model"
)

// Pool is the subset of pgxpool.Pool used by PostgresStore. pgxmock pools
// satisfy it in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements PersonStore using pgxpool.
type PostgresStore struct {
	pool Pool
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS persons (
	id                  TEXT PRIMARY KEY,
	cache_key           TEXT NOT NULL,
	data                JSONB NOT NULL,
	answer              TEXT NOT NULL DEFAULT '',
	related_questions   JSONB NOT NULL DEFAULT '[]'::jsonb,
	answer_generated_at TIMESTAMPTZ,
	report_count        INTEGER NOT NULL DEFAULT 0,
	created_at          TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_persons_cache_key ON persons(cache_key, created_at DESC);
`

const postgresSelect = `SELECT id, cache_key, data, answer, related_questions, answer_generated_at, report_count, created_at FROM persons`

// Migrate creates the schema.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration+postgresChatMigration)
	return eris.Wrap(err, "postgres: migrate")
}

// Close closes the pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// GetPerson returns the newest person stored under cacheKey.
func (s *PostgresStore) GetPerson(ctx context.Context, cacheKey string) (*model.Person, error) {
	row := s.pool.QueryRow(ctx, postgresSelect+` WHERE cache_key = $1 ORDER BY created_at DESC LIMIT 1`, cacheKey)
	p, err := scanPostgres(row)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get person %q", cacheKey)
	}
	return p, nil
}

// GetPersonByID returns a person by id.
func (s *PostgresStore) GetPersonByID(ctx context.Context, id string) (*model.Person, error) {
	row := s.pool.QueryRow(ctx, postgresSelect+` WHERE id = $1`, id)
	p, err := scanPostgres(row)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get person by id %s", id)
	}
	return p, nil
}

// PutPerson inserts a new row for p, assigning p.ID when empty. p is
// unchanged when the insert fails.
func (s *PostgresStore) PutPerson(ctx context.Context, p *model.Person) error {
	r, err := prepareInsert(p, uuid.NewString)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO persons (id, cache_key, data, answer, related_questions, answer_generated_at, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		r.ID, r.CacheKey, r.Data, r.Answer, r.RelatedQuestions, r.AnswerGeneratedAt, r.CreatedAt,
	)
	if err != nil {
		return eris.Wrap(err, "postgres: insert person")
	}
	r.commit(p)
	return nil
}

// PatchAnswer writes the answer fields of an existing person.
func (s *PostgresStore) PatchAnswer(ctx context.Context, id string, patch model.AnswerPatch) error {
	rq, err := marshalQuestions(patch.RelatedQuestions)
	if err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE persons SET answer = $1, related_questions = $2, answer_generated_at = $3 WHERE id = $4`,
		patch.Answer, rq, patch.GeneratedAt.UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: patch answer %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "id %s", id)
	}
	return nil
}

// IncrementReportCount bumps and returns the report counter.
func (s *PostgresStore) IncrementReportCount(ctx context.Context, id string) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		`UPDATE persons SET report_count = report_count + 1 WHERE id = $1 RETURNING report_count`, id,
	).Scan(&n)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, eris.Wrapf(err, "postgres: increment report count %s", id)
	}
	return n, nil
}

func scanPostgres(row pgx.Row) (*model.Person, error) {
	var r personRow
	err := row.Scan(&r.ID, &r.CacheKey, &r.Data, &r.Answer, &r.RelatedQuestions, &r.AnswerGeneratedAt, &r.ReportCount, &r.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return r.person()
}
