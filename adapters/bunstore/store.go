// Package bunstore persists session key-value state in a relational table
// through Bun. It is the durable Storage counterpart to the in-memory
// default, aimed at desktop and CLI hosts that have no platform storage.
package bunstore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"

	"github.com/goliatone/go-session"
)

type entry struct {
	bun.BaseModel `bun:"table:session_values,alias:sv"`

	Key       string    `bun:"key,pk"`
	Value     string    `bun:"value,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}

// Store implements session.Storage over a Bun database.
type Store struct {
	db *bun.DB
}

var _ session.Storage = (*Store)(nil)

func New(db *bun.DB) *Store {
	return &Store{db: db}
}

// EnsureSchema creates the backing table when it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.db.NewCreateTable().
		Model((*entry)(nil)).
		IfNotExists().
		Exec(ctx)
	return err
}

func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	record := new(entry)
	err := s.db.NewSelect().
		Model(record).
		Where("sv.key = ?", key).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, err
	}
	return record.Value, true, nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	record := &entry{
		Key:       key,
		Value:     value,
		UpdatedAt: time.Now().UTC(),
	}
	_, err := s.db.NewInsert().
		Model(record).
		On("CONFLICT (key) DO UPDATE").
		Set("value = EXCLUDED.value").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return err
}

func (s *Store) Remove(ctx context.Context, key string) error {
	_, err := s.db.NewDelete().
		Model((*entry)(nil)).
		Where("sv.key = ?", key).
		Exec(ctx)
	return err
}
