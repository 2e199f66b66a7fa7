package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"quiz-session-engine/internal/domain"
)

// SessionRepository abstracts where live sessions are registered (in-memory, Redis, etc).
type SessionRepository interface {
	// Add registers the session under its code. It returns false when the code is already taken.
	Add(ctx context.Context, session *Session) (bool, error)
	Get(code string) (*Session, bool)
	Remove(ctx context.Context, code string)
	Range(fn func(*Session) bool)
}

// QuizRepository loads quiz content (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// AnswerLedger persists the response audit log and score rows. RecordAnswer
// must commit the response and any score increment together or not at all.
type AnswerLedger interface {
	RecordAnswer(ctx context.Context, response domain.Response) error
}

// Rooms is the broadcast gateway. Implementations must not block.
type Rooms interface {
	Attach(code, userID string)
	Detach(code, userID string)
	Broadcast(code string, event domain.Event)
	Close(code string)
}

// Options configures the service.
type Options struct {
	CodeLength      int
	IdleTTL         time.Duration
	EndedTTL        time.Duration
	QuestionTimeout time.Duration
	HideCorrect     bool
	LedgerTimeout   time.Duration
	Clock           func() time.Time
}

// QuizService contains the live session use cases.
type QuizService struct {
	sessions SessionRepository
	quizzes  QuizRepository
	ledger   AnswerLedger
	rooms    Rooms
	opts     Options
	now      func() time.Time
	codes    func(n int) (string, error)
}

func NewQuizService(store SessionRepository, quizzes QuizRepository, ledger AnswerLedger, rooms Rooms, opts Options) *QuizService {
	now := opts.Clock
	if now == nil {
		now = time.Now
	}
	if opts.CodeLength <= 0 {
		opts.CodeLength = defaultCodeLength
	}
	return &QuizService{
		sessions: store,
		quizzes:  quizzes,
		ledger:   ledger,
		rooms:    rooms,
		opts:     opts,
		now:      now,
		codes:    GenerateCode,
	}
}

// CreateSession opens a lobby for a quiz owned by host and returns its code.
func (s *QuizService) CreateSession(ctx context.Context, quizID string, host domain.Identity) (string, error) {
	if strings.TrimSpace(quizID) == "" {
		return "", fmt.Errorf("%w: quiz_id is missing", domain.ErrInvalidInput)
	}
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		if errors.Is(err, domain.ErrQuizNotFound) {
			return "", err
		}
		return "", fmt.Errorf("%w: load quiz: %w", domain.ErrInternal, err)
	}
	if quiz.OwnerID != host.UserID {
		return "", domain.ErrForbidden
	}
	if err := quiz.Validate(); err != nil {
		return "", err
	}

	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := s.codes(s.opts.CodeLength)
		if err != nil {
			return "", fmt.Errorf("%w: %w", domain.ErrInternal, err)
		}
		session := NewSession(SessionParams{
			Code:   code,
			Quiz:   quiz,
			Host:   host,
			Rooms:  s.rooms,
			Ledger: s.ledger,
			Options: SessionOptions{
				QuestionTimeout: s.opts.QuestionTimeout,
				HideCorrect:     s.opts.HideCorrect,
				LedgerTimeout:   s.opts.LedgerTimeout,
			},
			Clock: s.now,
		})
		added, err := s.sessions.Add(ctx, session)
		if err != nil {
			return "", fmt.Errorf("%w: register session: %w", domain.ErrInternal, err)
		}
		if added {
			log.Printf("session %s created for quiz %s by %s", code, quizID, host.UserID)
			return code, nil
		}
		log.Printf("session code collision on %s, retrying", code)
	}
	return "", fmt.Errorf("%w: could not allocate a unique session code", domain.ErrInternal)
}

// Lookup returns a snapshot of the session with the given code.
func (s *QuizService) Lookup(code string) (Snapshot, error) {
	session, err := s.session(code)
	if err != nil {
		return Snapshot{}, err
	}
	return session.snapshot(), nil
}

// Join adds a participant to a session lobby. The host is attached to the room instead.
func (s *QuizService) Join(_ context.Context, code string, who domain.Identity) error {
	session, err := s.session(code)
	if err != nil {
		return err
	}
	return session.join(who)
}

// Leave permanently withdraws a participant.
func (s *QuizService) Leave(_ context.Context, code, userID string) error {
	session, err := s.session(code)
	if err != nil {
		return err
	}
	return session.leave(userID)
}

// Rejoin re-attaches a returning participant or the host to the room and
// returns the roster plus the current question or final leaderboard.
func (s *QuizService) Rejoin(_ context.Context, code, userID string) ([]domain.Event, error) {
	session, err := s.session(code)
	if err != nil {
		return nil, err
	}
	return session.rejoin(userID)
}

// Quit detaches a user from the session room without withdrawing them.
func (s *QuizService) Quit(_ context.Context, code, userID string) error {
	session, err := s.session(code)
	if err != nil {
		return err
	}
	return session.quit(userID)
}

// Start moves the session out of the lobby and broadcasts the first question.
func (s *QuizService) Start(_ context.Context, code, requesterID string) error {
	session, err := s.session(code)
	if err != nil {
		return err
	}
	return session.start(requesterID)
}

// SubmitAnswer records an answer for the current question and advances the quiz when the round is complete.
func (s *QuizService) SubmitAnswer(ctx context.Context, code, userID string, submission domain.AnswerSubmission) error {
	if submission.QuestionID == "" || submission.OptionID == "" {
		return fmt.Errorf("%w: question_id and option_id are required", domain.ErrInvalidInput)
	}
	session, err := s.session(code)
	if err != nil {
		return err
	}
	return session.submit(ctx, userID, submission)
}

// Remove tears down a session and its room.
func (s *QuizService) Remove(ctx context.Context, code string) error {
	session, err := s.session(code)
	if err != nil {
		return err
	}
	session.close()
	s.sessions.Remove(ctx, code)
	s.rooms.Close(code)
	return nil
}

// Reap removes idle and long-ended sessions and returns how many were removed.
func (s *QuizService) Reap(ctx context.Context) int {
	now := s.now()
	var expired []string
	s.sessions.Range(func(session *Session) bool {
		if session.expired(now, s.opts.IdleTTL, s.opts.EndedTTL) {
			expired = append(expired, session.Code())
		}
		return true
	})
	for _, code := range expired {
		if err := s.Remove(ctx, code); err == nil {
			log.Printf("session %s reaped", code)
		}
	}
	return len(expired)
}

// RunReaper calls Reap every interval until ctx is done.
func (s *QuizService) RunReaper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Reap(ctx)
		}
	}
}

func (s *QuizService) session(code string) (*Session, error) {
	if strings.TrimSpace(code) == "" {
		return nil, fmt.Errorf("%w: session_code is missing", domain.ErrInvalidInput)
	}
	session, ok := s.sessions.Get(code)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}
