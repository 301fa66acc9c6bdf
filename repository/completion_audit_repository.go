package repository

import (
	"context"
	"fmt"

	"lexilingua-backend/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CompletionAuditRepository stores one row per completion call
type CompletionAuditRepository struct {
	db *pgxpool.Pool
}

func NewCompletionAuditRepository(db *pgxpool.Pool) *CompletionAuditRepository {
	return &CompletionAuditRepository{db: db}
}

// Record inserts an audit row and fills in its id and timestamp
func (r *CompletionAuditRepository) Record(ctx context.Context, a *models.CompletionAudit) error {
	query := `
		INSERT INTO completion_audit (
			session_id, task, provider, model, language,
			prompt_chars, response_chars, latency_ms, outcome, error_message
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at`

	err := r.db.QueryRow(
		ctx, query,
		a.SessionID,
		a.Task,
		a.Provider,
		a.Model,
		a.Language,
		a.PromptChars,
		a.ResponseChars,
		a.LatencyMS,
		a.Outcome,
		a.ErrorMessage,
	).Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert completion audit: %w", err)
	}
	return nil
}

// ListBySession returns the newest audit rows of a session first
func (r *CompletionAuditRepository) ListBySession(ctx context.Context, sessionID uuid.UUID, limit int) ([]*models.CompletionAudit, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	query := `
		SELECT id, session_id, task, provider, model, language,
			prompt_chars, response_chars, latency_ms, outcome, error_message, created_at
		FROM completion_audit
		WHERE session_id = $1
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := r.db.Query(ctx, query, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query completion audit: %w", err)
	}
	defer rows.Close()

	audits := make([]*models.CompletionAudit, 0)
	for rows.Next() {
		a := &models.CompletionAudit{}
		if err := rows.Scan(
			&a.ID,
			&a.SessionID,
			&a.Task,
			&a.Provider,
			&a.Model,
			&a.Language,
			&a.PromptChars,
			&a.ResponseChars,
			&a.LatencyMS,
			&a.Outcome,
			&a.ErrorMessage,
			&a.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan completion audit: %w", err)
		}
		audits = append(audits, a)
	}
	return audits, rows.Err()
}

// Schema is the DDL for the completion_audit table
const Schema = `
CREATE TABLE IF NOT EXISTS completion_audit (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    session_id UUID NOT NULL,
    task VARCHAR(32) NOT NULL,
    provider VARCHAR(32) NOT NULL,
    model VARCHAR(128) NOT NULL,
    language VARCHAR(8) NOT NULL,
    prompt_chars INTEGER NOT NULL DEFAULT 0,
    response_chars INTEGER NOT NULL DEFAULT 0,
    latency_ms BIGINT NOT NULL DEFAULT 0,
    outcome VARCHAR(32) NOT NULL CHECK (outcome IN ('ok', 'transport_error', 'parse_error', 'shape_error', 'cache_hit')),
    error_message TEXT,
    created_at TIMESTAMP NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_completion_audit_session ON completion_audit(session_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_completion_audit_outcome ON completion_audit(outcome) WHERE outcome <> 'ok';
`
