// Package store keeps counseling sessions and the passage corpus in Postgres.
package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

const schema = `
CREATE TABLE IF NOT EXISTS counsel_sessions (
	id                      uuid PRIMARY KEY,
	created_at              timestamptz NOT NULL,
	source                  text NOT NULL,
	email                   text NOT NULL DEFAULT '',
	original_concern        text NOT NULL,
	concern_summary         text NOT NULL,
	lacking_aspect          text NOT NULL,
	concept                 text NOT NULL,
	concept_reason          text NOT NULL,
	restated_concern        text NOT NULL,
	restated_lacking_aspect text NOT NULL,
	restated_concept        text NOT NULL,
	restated_concept_reason text NOT NULL,
	selected_quote          text NOT NULL,
	quote_reason            text NOT NULL,
	advice                  text NOT NULL,
	analysis_time           double precision NOT NULL,
	advice_time             double precision NOT NULL
);

CREATE INDEX IF NOT EXISTS counsel_sessions_created_at_idx ON counsel_sessions (created_at DESC);

CREATE TABLE IF NOT EXISTS passages (
	section  text NOT NULL,
	number   integer NOT NULL,
	content  text NOT NULL,
	original text NOT NULL DEFAULT '',
	PRIMARY KEY (section, number)
);
`

// EnsureSchema creates the tables when they do not exist yet.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
