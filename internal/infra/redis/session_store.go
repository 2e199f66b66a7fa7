package redis

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"quiz-session-engine/internal/app"
)

// SessionStore is a Redis-aware implementation of app.SessionRepository.
// Sessions live in the local map; Redis holds a reservation per code (SET NX)
// so two instances can never hand out the same code while both are live.
type SessionStore struct {
	client   *redis.Client
	ttl      time.Duration
	mu       sync.RWMutex
	sessions map[string]*app.Session
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{
		client:   client,
		ttl:      ttl,
		sessions: make(map[string]*app.Session),
	}
}

// Add reserves the code in Redis before touching the local map, so lookups of
// other sessions never wait on a Redis round-trip.
func (s *SessionStore) Add(ctx context.Context, session *app.Session) (bool, error) {
	code := session.Code()
	if _, ok := s.Get(code); ok {
		return false, nil
	}
	reserved, err := s.client.SetNX(ctx, s.key(code), session.ID(), s.ttl).Result()
	if err != nil {
		return false, err
	}
	if !reserved {
		return false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[code]; ok {
		// The local session's reservation had lapsed; it keeps the code.
		_ = s.client.Del(ctx, s.key(code)).Err()
		return false, nil
	}
	s.sessions[code] = session
	return true, nil
}

func (s *SessionStore) Get(code string) (*app.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[code]
	return session, ok
}

func (s *SessionStore) Remove(ctx context.Context, code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[code]; !ok {
		return
	}
	delete(s.sessions, code)
	// best-effort release; the reservation expires on its own otherwise
	_ = s.client.Del(ctx, s.key(code)).Err()
}

func (s *SessionStore) Range(fn func(*app.Session) bool) {
	s.mu.RLock()
	sessions := make([]*app.Session, 0, len(s.sessions))
	for _, session := range s.sessions {
		sessions = append(sessions, session)
	}
	s.mu.RUnlock()

	for _, session := range sessions {
		if !fn(session) {
			return
		}
	}
}

// Refresh extends the reservation of every local session. Call it more often than ttl.
func (s *SessionStore) Refresh(ctx context.Context) error {
	s.mu.RLock()
	codes := make([]string, 0, len(s.sessions))
	for code := range s.sessions {
		codes = append(codes, code)
	}
	s.mu.RUnlock()
	if len(codes) == 0 || s.ttl <= 0 {
		return nil
	}

	pipe := s.client.Pipeline()
	for _, code := range codes {
		pipe.Expire(ctx, s.key(code), s.ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (s *SessionStore) key(code string) string {
	return "quiz:session:" + code
}
