package domain

import "errors"

var (
	// ErrSessionNotFound is returned when no live session uses the given code.
	ErrSessionNotFound = errors.New("session not found")
	// ErrParticipantNotFound is returned when a user tries to act before joining.
	ErrParticipantNotFound = errors.New("participant not found in session")
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrForbidden is returned when a non-host attempts a host-only action.
	ErrForbidden = errors.New("forbidden")
	// ErrAlreadyStarted is returned when joining or starting a session that has left the lobby.
	ErrAlreadyStarted = errors.New("session has already started")
	// ErrDuplicateParticipant is returned when a user joins the same session twice.
	ErrDuplicateParticipant = errors.New("user already joined this session")
	// ErrInvalidInput marks missing or malformed command fields.
	ErrInvalidInput = errors.New("invalid input")
	// ErrStaleQuestion indicates a submission for a question that is not the current one.
	ErrStaleQuestion = errors.New("stale or invalid question")
	// ErrInvalidOption indicates a submitted option does not belong to the current question.
	ErrInvalidOption = errors.New("invalid option")
	// ErrDuplicateAnswer is returned when a participant answers the same question twice.
	ErrDuplicateAnswer = errors.New("answer already submitted for this question")
	// ErrNotInProgress is returned when answering outside of a running quiz.
	ErrNotInProgress = errors.New("session is not in progress")
	// ErrInternal wraps storage and infrastructure failures.
	ErrInternal = errors.New("internal error")
)

// Kind is the error taxonomy surfaced to clients.
type Kind string

const (
	KindNotFound             Kind = "not_found"
	KindForbidden            Kind = "forbidden"
	KindAlreadyStarted       Kind = "already_started"
	KindDuplicateParticipant Kind = "duplicate_participant"
	KindInvalidInput         Kind = "invalid_input"
	KindStaleQuestion        Kind = "stale_question"
	KindInvalidOption        Kind = "invalid_option"
	KindInternal             Kind = "internal"
)

// KindOf classifies err. Unknown errors are treated as internal.
func KindOf(err error) Kind {
	switch {
	case errors.Is(err, ErrSessionNotFound),
		errors.Is(err, ErrParticipantNotFound),
		errors.Is(err, ErrQuizNotFound):
		return KindNotFound
	case errors.Is(err, ErrForbidden):
		return KindForbidden
	case errors.Is(err, ErrAlreadyStarted):
		return KindAlreadyStarted
	case errors.Is(err, ErrDuplicateParticipant):
		return KindDuplicateParticipant
	case errors.Is(err, ErrStaleQuestion):
		return KindStaleQuestion
	case errors.Is(err, ErrInvalidOption):
		return KindInvalidOption
	case errors.Is(err, ErrInvalidInput),
		errors.Is(err, ErrDuplicateAnswer),
		errors.Is(err, ErrNotInProgress):
		return KindInvalidInput
	default:
		return KindInternal
	}
}
