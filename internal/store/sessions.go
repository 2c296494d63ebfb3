package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/JoJeongHyeon/gongja-mailservice/internal/counsel"
)

const sessionColumns = `id, created_at, source, email, original_concern, concern_summary, lacking_aspect,
	concept, concept_reason, restated_concern, restated_lacking_aspect, restated_concept,
	restated_concept_reason, selected_quote, quote_reason, advice, analysis_time, advice_time`

// Append inserts one completed session. It satisfies counsel.Sink.
func (s *Store) Append(ctx context.Context, row counsel.LogRow) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO counsel_sessions (`+sessionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
		row.ID, row.Timestamp, string(row.Source), row.Email,
		row.OriginalConcern, row.ConcernSummary, row.LackingAspect, row.Concept, row.ConceptReason,
		row.RestatedConcern, row.RestatedLackingAspect, row.RestatedConcept, row.RestatedConceptReason,
		row.SelectedQuote, row.QuoteReason, row.Advice, row.AnalysisSeconds, row.AdviceSeconds,
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// GetSession fetches a session by ID.
func (s *Store) GetSession(ctx context.Context, id uuid.UUID) (*counsel.LogRow, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+sessionColumns+` FROM counsel_sessions WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("query session: %w", err)
	}
	sessions, err := scanSessions(rows)
	if err != nil {
		return nil, err
	}
	if len(sessions) == 0 {
		return nil, fmt.Errorf("session %s not found", id)
	}
	return &sessions[0], nil
}

// RecentSessions returns up to limit sessions, newest first.
func (s *Store) RecentSessions(ctx context.Context, limit int) ([]counsel.LogRow, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+sessionColumns+` FROM counsel_sessions
		ORDER BY created_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	return scanSessions(rows)
}

func scanSessions(rows pgx.Rows) ([]counsel.LogRow, error) {
	defer rows.Close()

	var out []counsel.LogRow
	for rows.Next() {
		var r counsel.LogRow
		var source string
		if err := rows.Scan(
			&r.ID, &r.Timestamp, &source, &r.Email,
			&r.OriginalConcern, &r.ConcernSummary, &r.LackingAspect, &r.Concept, &r.ConceptReason,
			&r.RestatedConcern, &r.RestatedLackingAspect, &r.RestatedConcept, &r.RestatedConceptReason,
			&r.SelectedQuote, &r.QuoteReason, &r.Advice, &r.AnalysisSeconds, &r.AdviceSeconds,
		); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		r.Source = counsel.Source(source)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return out, nil
}
