package redis

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"windshield-quiz-service/internal/domain"
	"windshield-quiz-service/internal/infra/memory"
)

func TestQuizRepositoryCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := newClient(mr)
	loader := &countingLoader{QuizLoader: memory.NewStaticQuizLoader(sampleQuiz(t))}
	repo := NewQuizRepository(client, loader, time.Minute)

	quiz, err := repo.GetQuiz(context.Background(), "repair-replace")
	if err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if loader.calls.Load() != 1 {
		t.Fatalf("expected loader called once, got %d", loader.calls.Load())
	}
	if !mr.Exists("quiz:def:repair-replace") || !mr.Exists("quiz:def:repair-or-replace") {
		t.Fatalf("expected definition cached under id and slug")
	}

	// Second call hits the cache by slug; the loader is not called again.
	cached, err := repo.GetQuiz(context.Background(), "repair-or-replace")
	if err != nil {
		t.Fatalf("get cached quiz: %v", err)
	}
	if loader.calls.Load() != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.calls.Load())
	}
	if cached.Title != quiz.Title || len(cached.Questions) != len(quiz.Questions) {
		t.Fatalf("cached quiz differs: %+v", cached)
	}
	if _, ok := cached.Scoring.(domain.RecommendationScoring); !ok {
		t.Fatalf("expected recommendation scoring, got %T", cached.Scoring)
	}
}

func TestQuizRepositoryIgnoresCorruptCache(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	loader := &countingLoader{QuizLoader: memory.NewStaticQuizLoader(sampleQuiz(t))}
	repo := NewQuizRepository(newClient(mr), loader, time.Minute)
	_ = mr.Set("quiz:def:repair-replace", `{"id":"repair-replace"}`)

	if _, err := repo.GetQuiz(context.Background(), "repair-replace"); err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if loader.calls.Load() != 1 {
		t.Fatalf("expected loader fallback, calls=%d", loader.calls.Load())
	}
}

func TestQuizRepositoryCachesCatalog(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	loader := &countingLoader{QuizLoader: memory.NewStaticQuizLoader(sampleQuiz(t))}
	repo := NewQuizRepository(newClient(mr), loader, time.Minute)

	for i := 0; i < 2; i++ {
		quizzes, err := repo.ListQuizzes(context.Background())
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(quizzes) != 1 || quizzes[0].ID != "repair-replace" {
			t.Fatalf("unexpected catalog %+v", quizzes)
		}
	}
	if loader.lists.Load() != 1 {
		t.Fatalf("expected catalog cached, lists=%d", loader.lists.Load())
	}
}

type countingLoader struct {
	memory.QuizLoader
	calls atomic.Int32
	lists atomic.Int32
}

func (l *countingLoader) LoadQuiz(ctx context.Context, ref string) (domain.Quiz, error) {
	l.calls.Add(1)
	return l.QuizLoader.LoadQuiz(ctx, ref)
}

func (l *countingLoader) ListQuizzes(ctx context.Context) ([]domain.Quiz, error) {
	l.lists.Add(1)
	return l.QuizLoader.ListQuizzes(ctx)
}

func sampleQuiz(t *testing.T) domain.Quiz {
	t.Helper()
	quiz, err := domain.ParseYAML([]byte(`
id: repair-replace
slug: repair-or-replace
title: Repair or replace?
questions:
  - id: size
    prompt: How big is the damage?
    kind: multiple_choice
    options:
      - {id: small, label: Smaller than a dollar bill, recommendation: repair}
      - {id: large, label: Larger than a dollar bill, recommendation: replace}
scoring:
  type: recommendation_based
  results:
    replace: {title: Replace, severity: critical}
`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return quiz
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
}
