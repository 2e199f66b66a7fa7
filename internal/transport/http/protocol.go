package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"quiz-session-engine/internal/domain"
)

// Inbound command types.
const (
	cmdJoinSession   = "join_session"
	cmdRejoinSession = "rejoin_session"
	cmdLeaveSession  = "leave_session"
	cmdQuitSession   = "quit_session"
	cmdStartQuiz     = "start_quiz"
	cmdSubmitAnswer  = "submit_answer"
)

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type sessionPayload struct {
	SessionCode string `json:"session_code"`
}

type answerPayload struct {
	SessionCode string `json:"session_code"`
	QuestionID  flexID `json:"question_id"`
	OptionID    flexID `json:"option_id"`
}

type outboundMessage struct {
	Type    string       `json:"type"`
	Payload domain.Event `json:"payload"`
}

// flexID accepts identifiers sent either as JSON strings or numbers.
type flexID string

func (f *flexID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	*f = flexID(n.String())
	return nil
}

// encodeEvent wraps an event in its wire envelope.
func encodeEvent(event domain.Event) (outboundMessage, error) {
	switch ev := event.(type) {
	case domain.SessionUpdate, domain.NextQuestion, domain.AnswerReceived, domain.QuizEnd, domain.ErrorEvent:
		return outboundMessage{Type: ev.EventType(), Payload: ev}, nil
	default:
		return outboundMessage{}, fmt.Errorf("unsupported event %T", event)
	}
}

func errorEvent(command string, err error) domain.ErrorEvent {
	if command == cmdJoinSession && errors.Is(err, domain.ErrAlreadyStarted) {
		return domain.ErrorEvent{Message: "Session has already started. You cannot join now."}
	}
	return domain.ErrorEvent{Message: errorMessage(err)}
}

// errorMessage maps domain errors to the messages clients display.
func errorMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		return "Session not found."
	case errors.Is(err, domain.ErrParticipantNotFound):
		return "You are not a participant of this session."
	case errors.Is(err, domain.ErrQuizNotFound):
		return "Quiz not found."
	case errors.Is(err, domain.ErrForbidden):
		return "Only the host can start the session."
	case errors.Is(err, domain.ErrAlreadyStarted):
		return "Session has already started."
	case errors.Is(err, domain.ErrDuplicateParticipant):
		return "You have already joined this session."
	case errors.Is(err, domain.ErrStaleQuestion):
		return "Invalid question_id"
	case errors.Is(err, domain.ErrInvalidOption):
		return "Invalid option_id"
	case errors.Is(err, domain.ErrDuplicateAnswer):
		return "You have already answered this question."
	case errors.Is(err, domain.ErrNotInProgress):
		return "Quiz is not in progress."
	case errors.Is(err, domain.ErrInvalidInput):
		return err.Error()
	default:
		log.Printf("internal error: %v", err)
		return "Internal server error."
	}
}
