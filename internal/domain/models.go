package domain

import (
	"fmt"
	"time"
)

// SessionState is the lifecycle phase of a live quiz session.
type SessionState string

const (
	StateLobby      SessionState = "lobby"
	StateInProgress SessionState = "in_progress"
	StateEnded      SessionState = "ended"
)

// Identity is the verified caller as reported by the auth collaborator.
type Identity struct {
	UserID   string
	Username string
}

// Option represents a possible answer for a question.
type Option struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	IsCorrect bool   `json:"is_correct"`
}

// Question models an MCQ question with exactly one correct option.
type Question struct {
	ID      string   `json:"id"`
	Text    string   `json:"text"`
	Options []Option `json:"options"`
}

// Option returns the option with the given ID.
func (q Question) Option(optionID string) (Option, bool) {
	for _, opt := range q.Options {
		if opt.ID == optionID {
			return opt, true
		}
	}
	return Option{}, false
}

// Quiz is an ordered collection of questions owned by a single user.
type Quiz struct {
	ID        string     `json:"id"`
	OwnerID   string     `json:"owner_id"`
	Title     string     `json:"title"`
	Questions []Question `json:"questions"`
}

// Validate checks the one-correct-option rule for every question.
func (q Quiz) Validate() error {
	for _, question := range q.Questions {
		correct := 0
		for _, opt := range question.Options {
			if opt.IsCorrect {
				correct++
			}
		}
		if correct != 1 {
			return fmt.Errorf("%w: question %s has %d correct options", ErrInvalidInput, question.ID, correct)
		}
	}
	return nil
}

// Participant is a user who joined a session while it was in the lobby.
type Participant struct {
	ID        string
	SessionID string
	UserID    string
	Username  string
	JoinedAt  time.Time
}

// Response is one submitted answer. Responses are append-only.
type Response struct {
	ID            string
	SessionID     string
	ParticipantID string
	QuestionID    string
	OptionID      string
	Correct       bool
	SubmittedAt   time.Time
}

// Score is the accumulated points of a participant within a session.
type Score struct {
	SessionID     string
	ParticipantID string
	Score         int
}

// LeaderboardEntry is one ranked row of the final leaderboard.
type LeaderboardEntry struct {
	Username string `json:"username"`
	Score    int    `json:"score"`
}

// AnswerSubmission models an answer sent by a participant.
type AnswerSubmission struct {
	QuestionID string
	OptionID   string
}
