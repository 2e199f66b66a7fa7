package memory

import (
	"context"
	"sync"

	"quiz-session-engine/internal/domain"
)

// Ledger keeps the response audit log and score rows in memory.
type Ledger struct {
	mu        sync.RWMutex
	responses []domain.Response
	scores    map[scoreKey]int
}

type scoreKey struct {
	sessionID     string
	participantID string
}

func NewLedger() *Ledger {
	return &Ledger{scores: make(map[scoreKey]int)}
}

// RecordAnswer appends the response and increments the score row for correct answers.
func (l *Ledger) RecordAnswer(_ context.Context, response domain.Response) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.responses = append(l.responses, response)
	if response.Correct {
		l.scores[scoreKey{response.SessionID, response.ParticipantID}]++
	}
	return nil
}

// Responses returns the responses recorded for a session in submission order.
// The engine never reads the ledger back; this exists for inspection in tests.
func (l *Ledger) Responses(sessionID string) []domain.Response {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []domain.Response
	for _, r := range l.responses {
		if r.SessionID == sessionID {
			out = append(out, r)
		}
	}
	return out
}

// Score returns the score row of a participant, if one was created. Inspection only.
func (l *Ledger) Score(sessionID, participantID string) (domain.Score, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	score, ok := l.scores[scoreKey{sessionID, participantID}]
	if !ok {
		return domain.Score{}, false
	}
	return domain.Score{SessionID: sessionID, ParticipantID: participantID, Score: score}, true
}
