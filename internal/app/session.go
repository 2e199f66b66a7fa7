package app

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"quiz-session-engine/internal/domain"
)

// SessionOptions tunes per-session behavior.
type SessionOptions struct {
	// QuestionTimeout force-advances a question nobody finished answering. Zero disables it.
	QuestionTimeout time.Duration
	// HideCorrect omits correctness flags from next_question broadcasts.
	HideCorrect bool
	// LedgerTimeout bounds each answer write. Zero means defaultLedgerTimeout.
	LedgerTimeout time.Duration
}

const defaultLedgerTimeout = 5 * time.Second

// SessionParams describes a new session.
type SessionParams struct {
	Code    string
	Quiz    domain.Quiz
	Host    domain.Identity
	Rooms   Rooms
	Ledger  AnswerLedger
	Options SessionOptions
	Clock   func() time.Time
}

// Snapshot is a read-only view of a session.
type Snapshot struct {
	Code            string                    `json:"code"`
	QuizID          string                    `json:"quiz_id"`
	HostID          string                    `json:"host_id"`
	State           domain.SessionState       `json:"state"`
	CurrentQuestion int                       `json:"current_question"`
	TotalQuestions  int                       `json:"total_questions"`
	Expected        int                       `json:"expected_responses"`
	Received        int                       `json:"received_responses"`
	Participants    []string                  `json:"participants"`
	Leaderboard     []domain.LeaderboardEntry `json:"leaderboard"`
}

// Session is one live run of a quiz. All mutations happen under mu, including
// the broadcasts they produce, so room members observe a single ordered history.
type Session struct {
	id        string
	code      string
	hostID    string
	hostName  string
	quiz      domain.Quiz
	createdAt time.Time
	now       func() time.Time
	rooms     Rooms
	ledger    AnswerLedger
	opts      SessionOptions

	mu           sync.Mutex
	state        domain.SessionState
	participants map[string]*domain.Participant
	order        []string
	scores       map[string]int
	tracker      tracker
	lastActive   time.Time
	endedAt      time.Time
	timer        *time.Timer
	closed       bool
}

// NewSession builds a session in the lobby state.
func NewSession(p SessionParams) *Session {
	now := p.Clock
	if now == nil {
		now = time.Now
	}
	rooms := p.Rooms
	if rooms == nil {
		rooms = discardRooms{}
	}
	ledger := p.Ledger
	if ledger == nil {
		ledger = discardLedger{}
	}
	hostName := p.Host.Username
	if hostName == "" {
		hostName = p.Host.UserID
	}
	created := now()
	return &Session{
		id:           uuid.NewString(),
		code:         p.Code,
		hostID:       p.Host.UserID,
		hostName:     hostName,
		quiz:         p.Quiz,
		createdAt:    created,
		now:          now,
		rooms:        rooms,
		ledger:       ledger,
		opts:         p.Options,
		state:        domain.StateLobby,
		participants: make(map[string]*domain.Participant),
		scores:       make(map[string]int),
		lastActive:   created,
	}
}

// Code returns the shareable session code.
func (s *Session) Code() string {
	return s.code
}

// ID returns the session's unique identifier.
func (s *Session) ID() string {
	return s.id
}

func (s *Session) join(who domain.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchLocked()

	if who.UserID == s.hostID {
		s.rooms.Attach(s.code, who.UserID)
		s.broadcastRosterLocked()
		return nil
	}
	if _, ok := s.participants[who.UserID]; ok {
		// A returning participant gets the room back even though the join itself is rejected.
		s.rooms.Attach(s.code, who.UserID)
		if s.state != domain.StateLobby {
			return domain.ErrAlreadyStarted
		}
		return domain.ErrDuplicateParticipant
	}
	if s.state != domain.StateLobby {
		return domain.ErrAlreadyStarted
	}

	username := who.Username
	if username == "" {
		username = who.UserID
	}
	s.participants[who.UserID] = &domain.Participant{
		ID:        uuid.NewString(),
		SessionID: s.id,
		UserID:    who.UserID,
		Username:  username,
		JoinedAt:  s.now(),
	}
	s.order = append(s.order, who.UserID)
	s.rooms.Attach(s.code, who.UserID)
	s.broadcastRosterLocked()
	return nil
}

func (s *Session) leave(userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchLocked()

	if _, ok := s.participants[userID]; !ok {
		return domain.ErrParticipantNotFound
	}
	delete(s.participants, userID)
	for i, id := range s.order {
		if id == userID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.rooms.Detach(s.code, userID)
	s.broadcastRosterLocked()

	if s.state != domain.StateInProgress {
		return nil
	}
	complete := s.tracker.withdraw(userID)
	switch {
	case len(s.participants) == 0:
		s.endLocked()
	case complete:
		s.advanceLocked()
	}
	return nil
}

// rejoin re-attaches a participant or the host after a quit and returns the
// events a new connection needs to catch up with the room.
func (s *Session) rejoin(userID string) ([]domain.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchLocked()

	if _, ok := s.participants[userID]; !ok && userID != s.hostID {
		return nil, domain.ErrParticipantNotFound
	}
	s.rooms.Attach(s.code, userID)

	events := []domain.Event{domain.SessionUpdate{Host: s.hostName, Participants: s.rosterLocked()}}
	switch s.state {
	case domain.StateInProgress:
		events = append(events, s.questionEventLocked())
	case domain.StateEnded:
		events = append(events, s.quizEndLocked())
	}
	return events, nil
}

func (s *Session) quit(userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchLocked()

	if _, ok := s.participants[userID]; !ok && userID != s.hostID {
		return domain.ErrParticipantNotFound
	}
	s.rooms.Detach(s.code, userID)
	return nil
}

func (s *Session) start(requesterID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchLocked()

	if requesterID != s.hostID {
		return domain.ErrForbidden
	}
	if s.state != domain.StateLobby {
		return domain.ErrAlreadyStarted
	}
	if len(s.participants) == 0 {
		return fmt.Errorf("%w: no participants have joined", domain.ErrInvalidInput)
	}

	s.state = domain.StateInProgress
	s.tracker = newTracker(len(s.participants))
	if len(s.quiz.Questions) == 0 {
		s.endLocked()
		return nil
	}
	s.publishQuestionLocked()
	return nil
}

func (s *Session) submit(ctx context.Context, userID string, submission domain.AnswerSubmission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchLocked()

	if s.state != domain.StateInProgress {
		return domain.ErrNotInProgress
	}
	participant, ok := s.participants[userID]
	if !ok {
		return domain.ErrParticipantNotFound
	}
	question := s.quiz.Questions[s.tracker.index]
	if submission.QuestionID != question.ID {
		return domain.ErrStaleQuestion
	}
	correct, err := scoreSubmission(question, submission.OptionID)
	if err != nil {
		return err
	}
	if s.tracker.hasAnswered(userID) {
		return domain.ErrDuplicateAnswer
	}

	response := domain.Response{
		ID:            uuid.NewString(),
		SessionID:     s.id,
		ParticipantID: participant.ID,
		QuestionID:    question.ID,
		OptionID:      submission.OptionID,
		Correct:       correct,
		SubmittedAt:   s.now(),
	}
	timeout := s.opts.LedgerTimeout
	if timeout <= 0 {
		timeout = defaultLedgerTimeout
	}
	writeCtx, cancel := context.WithTimeout(ctx, timeout)
	err = s.ledger.RecordAnswer(writeCtx, response)
	cancel()
	if err != nil {
		return fmt.Errorf("%w: record answer: %w", domain.ErrInternal, err)
	}

	if correct {
		s.scores[userID] += pointsPerCorrectAnswer
	}
	if s.tracker.record(userID) {
		s.advanceLocked()
		return nil
	}
	s.rooms.Broadcast(s.code, domain.AnswerReceived{
		Message: fmt.Sprintf("%s submitted an answer.", participant.Username),
	})
	return nil
}

func (s *Session) snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		Code:            s.code,
		QuizID:          s.quiz.ID,
		HostID:          s.hostID,
		State:           s.state,
		CurrentQuestion: s.tracker.index,
		TotalQuestions:  len(s.quiz.Questions),
		Expected:        s.tracker.expected,
		Received:        s.tracker.received,
		Participants:    s.rosterLocked(),
		Leaderboard:     s.leaderboardLocked(),
	}
}

// expired reports whether the session should be reaped at now.
func (s *Session) expired(now time.Time, idleTTL, endedTTL time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == domain.StateEnded && endedTTL > 0 && now.Sub(s.endedAt) >= endedTTL {
		return true
	}
	return idleTTL > 0 && now.Sub(s.lastActive) >= idleTTL
}

// close stops any pending question timer. The session accepts no timer callbacks afterwards.
func (s *Session) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.stopTimerLocked()
}

func (s *Session) advanceLocked() {
	s.stopTimerLocked()
	s.tracker.advance()
	if s.tracker.index >= len(s.quiz.Questions) {
		s.endLocked()
		return
	}
	s.publishQuestionLocked()
}

func (s *Session) endLocked() {
	s.stopTimerLocked()
	s.state = domain.StateEnded
	s.endedAt = s.now()
	s.rooms.Broadcast(s.code, s.quizEndLocked())
	log.Printf("session %s ended with %d participants", s.code, len(s.participants))
}

func (s *Session) publishQuestionLocked() {
	s.rooms.Broadcast(s.code, s.questionEventLocked())
	s.armTimerLocked(s.tracker.index)
}

func (s *Session) questionEventLocked() domain.NextQuestion {
	question := s.quiz.Questions[s.tracker.index]
	options := make([]domain.OptionView, 0, len(question.Options))
	for _, opt := range question.Options {
		view := domain.OptionView{ID: opt.ID, Text: opt.Text}
		if !s.opts.HideCorrect {
			correct := opt.IsCorrect
			view.IsCorrect = &correct
		}
		options = append(options, view)
	}
	return domain.NextQuestion{
		QuestionID:   question.ID,
		QuestionText: question.Text,
		Total:        len(s.quiz.Questions),
		Options:      options,
	}
}

func (s *Session) quizEndLocked() domain.QuizEnd {
	return domain.QuizEnd{
		Message:     "Quiz has ended.",
		Leaderboard: s.leaderboardLocked(),
	}
}

func (s *Session) armTimerLocked(index int) {
	if s.opts.QuestionTimeout <= 0 || s.closed {
		return
	}
	s.timer = time.AfterFunc(s.opts.QuestionTimeout, func() {
		s.expireQuestion(index)
	})
}

func (s *Session) stopTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *Session) expireQuestion(index int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.state != domain.StateInProgress || s.tracker.index != index {
		return
	}
	log.Printf("session %s: question %d timed out with %d/%d answers", s.code, index, s.tracker.received, s.tracker.expected)
	s.advanceLocked()
}

func (s *Session) broadcastRosterLocked() {
	s.rooms.Broadcast(s.code, domain.SessionUpdate{
		Host:         s.hostName,
		Participants: s.rosterLocked(),
	})
}

func (s *Session) rosterLocked() []string {
	names := make([]string, 0, len(s.order))
	for _, userID := range s.order {
		names = append(names, s.participants[userID].Username)
	}
	return names
}

func (s *Session) touchLocked() {
	s.lastActive = s.now()
}

type discardRooms struct{}

func (discardRooms) Attach(string, string)          {}
func (discardRooms) Detach(string, string)          {}
func (discardRooms) Broadcast(string, domain.Event) {}
func (discardRooms) Close(string)                   {}

type discardLedger struct{}

func (discardLedger) RecordAnswer(context.Context, domain.Response) error { return nil }
