package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"windshield-quiz-service/internal/domain"
)

// SessionStore is an in-memory implementation of app.SessionStore. Entries are
// kept encoded, the same way the Redis store keeps them, so decoding failures
// surface identically.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string][]byte
	results  map[string][]byte
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string][]byte),
		results:  make(map[string][]byte),
	}
}

func (s *SessionStore) Load(_ context.Context, owner, quizID string) (domain.SavedSession, bool, error) {
	var saved domain.SavedSession
	ok, err := s.get(s.sessions, key(owner, quizID), &saved)
	return saved, ok, err
}

func (s *SessionStore) Save(_ context.Context, owner string, session domain.SavedSession) error {
	return s.put(s.sessions, key(owner, session.QuizID), session)
}

func (s *SessionStore) Clear(_ context.Context, owner, quizID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, key(owner, quizID))
	return nil
}

func (s *SessionStore) LoadResult(_ context.Context, owner, quizID string) (domain.CompletedQuiz, bool, error) {
	var completed domain.CompletedQuiz
	ok, err := s.get(s.results, key(owner, quizID), &completed)
	return completed, ok, err
}

func (s *SessionStore) SaveResult(_ context.Context, owner string, completed domain.CompletedQuiz) error {
	return s.put(s.results, key(owner, completed.QuizID), completed)
}

func (s *SessionStore) ClearResult(_ context.Context, owner, quizID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.results, key(owner, quizID))
	return nil
}

// SetRaw stores bytes as the in-progress entry without encoding. Tests use it to
// simulate corrupt client storage.
func (s *SessionStore) SetRaw(owner, quizID string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[key(owner, quizID)] = data
}

// Has reports whether an in-progress entry exists.
func (s *SessionStore) Has(owner, quizID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.sessions[key(owner, quizID)]
	return ok
}

func (s *SessionStore) get(m map[string][]byte, k string, v any) (bool, error) {
	s.mu.RLock()
	data, ok := m[k]
	s.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("decode %s: %w", k, err)
	}
	return true, nil
}

func (s *SessionStore) put(m map[string][]byte, k string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", k, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	m[k] = data
	return nil
}

func key(owner, quizID string) string {
	return owner + ":" + quizID
}
