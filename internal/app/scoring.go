package app

import (
	"sort"

	"quiz-session-engine/internal/domain"
)

// pointsPerCorrectAnswer is fixed; there is no partial credit or time bonus.
const pointsPerCorrectAnswer = 1

// scoreSubmission validates the option against the question and returns whether it is correct.
func scoreSubmission(question domain.Question, optionID string) (bool, error) {
	selected, ok := question.Option(optionID)
	if !ok {
		return false, domain.ErrInvalidOption
	}
	return selected.IsCorrect, nil
}

// leaderboardLocked ranks every current participant by score, keeping join order on ties.
func (s *Session) leaderboardLocked() []domain.LeaderboardEntry {
	entries := make([]domain.LeaderboardEntry, 0, len(s.order))
	for _, userID := range s.order {
		p := s.participants[userID]
		entries = append(entries, domain.LeaderboardEntry{
			Username: p.Username,
			Score:    s.scores[userID],
		})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Score > entries[j].Score
	})
	return entries
}
