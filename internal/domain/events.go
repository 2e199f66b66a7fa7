package domain

// Event is an outbound message delivered to a room or a single client.
// The set of implementations is closed; receivers switch on the concrete type.
type Event interface {
	EventType() string
	event()
}

const (
	EventSessionUpdate  = "session_update"
	EventNextQuestion   = "next_question"
	EventAnswerReceived = "answer_received"
	EventQuizEnd        = "quiz_end"
	EventError          = "error"
)

// SessionUpdate carries the current roster.
type SessionUpdate struct {
	Host         string   `json:"host"`
	Participants []string `json:"participants"`
}

// OptionView is an option as shown to clients. IsCorrect is nil when correctness is hidden.
type OptionView struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	IsCorrect *bool  `json:"is_correct,omitempty"`
}

// NextQuestion announces the question everyone should answer now.
type NextQuestion struct {
	QuestionID   string       `json:"question_id"`
	QuestionText string       `json:"question_text"`
	Total        int          `json:"total"`
	Options      []OptionView `json:"options"`
}

// AnswerReceived acknowledges a submission that did not close the round.
type AnswerReceived struct {
	Message string `json:"message"`
}

// QuizEnd is the final event of a session.
type QuizEnd struct {
	Message     string             `json:"message"`
	Leaderboard []LeaderboardEntry `json:"leaderboard"`
}

// ErrorEvent reports a failed command to the client that issued it.
type ErrorEvent struct {
	Message string `json:"message"`
}

func (SessionUpdate) EventType() string  { return EventSessionUpdate }
func (NextQuestion) EventType() string   { return EventNextQuestion }
func (AnswerReceived) EventType() string { return EventAnswerReceived }
func (QuizEnd) EventType() string        { return EventQuizEnd }
func (ErrorEvent) EventType() string     { return EventError }

func (SessionUpdate) event()  {}
func (NextQuestion) event()   {}
func (AnswerReceived) event() {}
func (QuizEnd) event()        {}
func (ErrorEvent) event()     {}
