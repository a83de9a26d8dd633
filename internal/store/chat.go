package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/sells-group/person-search/internal/model"
)

// ChatStore keeps the conversation history for each person. A person has
// at most one live chat: the most recently updated one.
type ChatStore interface {
	// LatestChat returns nil, nil when personID has no chat.
	LatestChat(ctx context.Context, personID string) (*model.Chat, error)
	// SaveChat inserts c when it has no id and replaces its messages
	// otherwise. The id and timestamps are set on c only after the write
	// succeeds.
	SaveChat(ctx context.Context, c *model.Chat) error
}

var (
	_ ChatStore = (*SQLiteStore)(nil)
	_ ChatStore = (*PostgresStore)(nil)
)

const sqliteChatMigration = `
CREATE TABLE IF NOT EXISTS chats (
	id         TEXT PRIMARY KEY,
	person_id  TEXT NOT NULL,
	messages   TEXT NOT NULL DEFAULT '[]',
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_chats_person ON chats(person_id, updated_at);
`

const postgresChatMigration = `
CREATE TABLE IF NOT EXISTS chats (
	id         TEXT PRIMARY KEY,
	person_id  TEXT NOT NULL,
	messages   JSONB NOT NULL DEFAULT '[]'::jsonb,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_chats_person ON chats(person_id, updated_at DESC);
`

func marshalMessages(msgs []model.ChatMessage) ([]byte, error) {
	if msgs == nil {
		msgs = []model.ChatMessage{}
	}
	b, err := json.Marshal(msgs)
	return b, eris.Wrap(err, "store: marshal chat messages")
}

func unmarshalChat(c *model.Chat, raw []byte) (*model.Chat, error) {
	if err := json.Unmarshal(raw, &c.Messages); err != nil {
		return nil, eris.Wrapf(err, "store: decode chat %s", c.ID)
	}
	if c.Messages == nil {
		c.Messages = []model.ChatMessage{}
	}
	c.CreatedAt = c.CreatedAt.UTC()
	c.UpdatedAt = c.UpdatedAt.UTC()
	return c, nil
}

// LatestChat implements ChatStore.
func (s *SQLiteStore) LatestChat(ctx context.Context, personID string) (*model.Chat, error) {
	var (
		c   model.Chat
		raw string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, person_id, messages, created_at, updated_at FROM chats WHERE person_id = ? ORDER BY updated_at DESC, rowid DESC LIMIT 1`,
		personID,
	).Scan(&c.ID, &c.PersonID, &raw, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: latest chat for %s", personID)
	}
	return unmarshalChat(&c, []byte(raw))
}

// SaveChat implements ChatStore.
func (s *SQLiteStore) SaveChat(ctx context.Context, c *model.Chat) error {
	msgs, err := marshalMessages(c.Messages)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	if c.ID != "" {
		res, err := s.db.ExecContext(ctx, `UPDATE chats SET messages = ?, updated_at = ? WHERE id = ?`, string(msgs), now, c.ID)
		if err != nil {
			return eris.Wrapf(err, "sqlite: update chat %s", c.ID)
		}
		if err := checkRowsAffected(res, c.ID); err != nil {
			return err
		}
		c.UpdatedAt = now
		return nil
	}

	id := uuid.NewString()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO chats (id, person_id, messages, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		id, c.PersonID, string(msgs), now, now,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: insert chat")
	}
	c.ID, c.CreatedAt, c.UpdatedAt = id, now, now
	return nil
}

// LatestChat implements ChatStore.
func (s *PostgresStore) LatestChat(ctx context.Context, personID string) (*model.Chat, error) {
	var (
		c   model.Chat
		raw []byte
	)
	err := s.pool.QueryRow(ctx,
		`SELECT id, person_id, messages, created_at, updated_at FROM chats WHERE person_id = $1 ORDER BY updated_at DESC LIMIT 1`,
		personID,
	).Scan(&c.ID, &c.PersonID, &raw, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: latest chat for %s", personID)
	}
	return unmarshalChat(&c, raw)
}

// SaveChat implements ChatStore.
func (s *PostgresStore) SaveChat(ctx context.Context, c *model.Chat) error {
	msgs, err := marshalMessages(c.Messages)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	if c.ID != "" {
		tag, err := s.pool.Exec(ctx, `UPDATE chats SET messages = $1, updated_at = $2 WHERE id = $3`, msgs, now, c.ID)
		if err != nil {
			return eris.Wrapf(err, "postgres: update chat %s", c.ID)
		}
		if tag.RowsAffected() == 0 {
			return eris.Wrapf(ErrNotFound, "chat %s", c.ID)
		}
		c.UpdatedAt = now
		return nil
	}

	id := uuid.NewString()
	_, err = s.pool.Exec(ctx,
		`INSERT INTO chats (id, person_id, messages, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)`,
		id, c.PersonID, msgs, now, now,
	)
	if err != nil {
		return eris.Wrap(err, "postgres: insert chat")
	}
	c.ID, c.CreatedAt, c.UpdatedAt = id, now, now
	return nil
}
