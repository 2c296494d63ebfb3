package store

import (
	"context"
	"fmt"

	"github.com/JoJeongHyeon/gongja-mailservice/internal/knowledge"
)

// LoadPassages reads the whole corpus table.
func (s *Store) LoadPassages(ctx context.Context) (*knowledge.Corpus, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT section, number, content, original
		FROM passages
		ORDER BY section, number`)
	if err != nil {
		return nil, fmt.Errorf("query passages: %w", err)
	}
	defer rows.Close()

	var passages []knowledge.Passage
	for rows.Next() {
		var p knowledge.Passage
		if err := rows.Scan(&p.Section, &p.Number, &p.Text, &p.Original); err != nil {
			return nil, fmt.Errorf("scan passage: %w", err)
		}
		passages = append(passages, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate passages: %w", err)
	}
	return knowledge.NewCorpus(passages), nil
}

// ImportPassages upserts every passage of the corpus in one transaction and
// returns how many rows were written.
func (s *Store) ImportPassages(ctx context.Context, corpus *knowledge.Corpus) (int, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	n := 0
	for _, p := range corpus.All() {
		_, err := tx.Exec(ctx, `
			INSERT INTO passages (section, number, content, original)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (section, number)
			DO UPDATE SET content = $3, original = $4`,
			p.Section, p.Number, p.Text, p.Original,
		)
		if err != nil {
			return 0, fmt.Errorf("upsert passage %s: %w", p.Ref(), err)
		}
		n++
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return n, nil
}
