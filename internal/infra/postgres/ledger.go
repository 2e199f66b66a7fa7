package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"quiz-session-engine/internal/domain"
)

// Ledger stores responses and score rows in Postgres. Each answer is one transaction.
type Ledger struct {
	pool *pgxpool.Pool
}

func NewLedger(pool *pgxpool.Pool) *Ledger {
	return &Ledger{pool: pool}
}

func (l *Ledger) RecordAnswer(ctx context.Context, response domain.Response) error {
	return l.pool.BeginFunc(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO session_responses (id, session_id, participant_id, question_id, option_id, correct, submitted_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			response.ID, response.SessionID, response.ParticipantID, response.QuestionID,
			response.OptionID, response.Correct, response.SubmittedAt)
		if err != nil {
			return fmt.Errorf("insert response: %w", err)
		}
		if !response.Correct {
			return nil
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO session_scores (session_id, participant_id, score)
			VALUES ($1, $2, 1)
			ON CONFLICT (session_id, participant_id) DO UPDATE SET score = session_scores.score + 1`,
			response.SessionID, response.ParticipantID)
		if err != nil {
			return fmt.Errorf("increment score: %w", err)
		}
		return nil
	})
}

// Score returns the stored score row of a participant. The engine scores in
// memory and never reads it back; this exists for inspection.
func (l *Ledger) Score(ctx context.Context, sessionID, participantID string) (domain.Score, bool, error) {
	score := domain.Score{SessionID: sessionID, ParticipantID: participantID}
	err := l.pool.QueryRow(ctx,
		`SELECT score FROM session_scores WHERE session_id=$1 AND participant_id=$2`,
		sessionID, participantID).Scan(&score.Score)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Score{}, false, nil
	}
	if err != nil {
		return domain.Score{}, false, fmt.Errorf("load score: %w", err)
	}
	return score, true, nil
}

// CountResponses returns how many responses a session has recorded. Inspection only.
func (l *Ledger) CountResponses(ctx context.Context, sessionID string) (int, error) {
	var n int
	err := l.pool.QueryRow(ctx, `SELECT count(*) FROM session_responses WHERE session_id=$1`, sessionID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count responses: %w", err)
	}
	return n, nil
}
