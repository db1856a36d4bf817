package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"windshield-quiz-service/internal/domain"
)

// SessionStore keeps in-progress sessions and completed results in Redis as
// JSON strings:
//
//	quiz_session:{owner}:{quizID}  in-progress state, expires after sessionTTL
//	quiz_result:{owner}:{quizID}   completed record, expires after resultTTL
type SessionStore struct {
	client     *redis.Client
	sessionTTL time.Duration
	resultTTL  time.Duration
}

func NewSessionStore(client *redis.Client, sessionTTL, resultTTL time.Duration) *SessionStore {
	return &SessionStore{client: client, sessionTTL: sessionTTL, resultTTL: resultTTL}
}

func (s *SessionStore) Load(ctx context.Context, owner, quizID string) (domain.SavedSession, bool, error) {
	var saved domain.SavedSession
	ok, err := s.get(ctx, sessionKey(owner, quizID), &saved)
	return saved, ok, err
}

func (s *SessionStore) Save(ctx context.Context, owner string, session domain.SavedSession) error {
	return s.set(ctx, sessionKey(owner, session.QuizID), session, s.sessionTTL)
}

func (s *SessionStore) Clear(ctx context.Context, owner, quizID string) error {
	return s.client.Del(ctx, sessionKey(owner, quizID)).Err()
}

func (s *SessionStore) LoadResult(ctx context.Context, owner, quizID string) (domain.CompletedQuiz, bool, error) {
	var completed domain.CompletedQuiz
	ok, err := s.get(ctx, resultKey(owner, quizID), &completed)
	return completed, ok, err
}

func (s *SessionStore) SaveResult(ctx context.Context, owner string, completed domain.CompletedQuiz) error {
	return s.set(ctx, resultKey(owner, completed.QuizID), completed, s.resultTTL)
}

func (s *SessionStore) ClearResult(ctx context.Context, owner, quizID string) error {
	return s.client.Del(ctx, resultKey(owner, quizID)).Err()
}

func (s *SessionStore) get(ctx context.Context, key string, v any) (bool, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get %s: %w", key, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func (s *SessionStore) set(ctx context.Context, key string, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.client.Set(ctx, key, data, ttl).Err()
}

func sessionKey(owner, quizID string) string {
	return "quiz_session:" + owner + ":" + quizID
}

func resultKey(owner, quizID string) string {
	return "quiz_result:" + owner + ":" + quizID
}
