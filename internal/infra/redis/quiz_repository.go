package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"windshield-quiz-service/internal/domain"
	"windshield-quiz-service/internal/infra/memory"
)

const catalogKey = "quiz:catalog"

// QuizRepository caches quiz documents in Redis and falls back to a loader on
// cache miss. Documents are stored as JSON under quiz:def:{ref}, for both the
// id and the slug, and recompiled on read.
type QuizRepository struct {
	client *redis.Client
	loader memory.QuizLoader
	ttl    time.Duration
	sf     singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand
}

func NewQuizRepository(client *redis.Client, loader memory.QuizLoader, ttl time.Duration) *QuizRepository {
	return &QuizRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *QuizRepository) GetQuiz(ctx context.Context, ref string) (domain.Quiz, error) {
	if quiz, ok := r.cached(ctx, ref); ok {
		return quiz, nil
	}

	result, err, _ := r.sf.Do(ref, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if quiz, ok := r.cached(ctx, ref); ok {
			return quiz, nil
		}

		quiz, err := r.loader.LoadQuiz(ctx, ref)
		if err != nil {
			return domain.Quiz{}, err
		}
		data, err := json.Marshal(quiz.Document())
		if err != nil {
			return quiz, nil
		}

		ttl := r.ttlWithJitter()
		pipe := r.client.Pipeline()
		pipe.Set(ctx, r.key(quiz.ID), data, ttl)
		if quiz.Slug != quiz.ID {
			pipe.Set(ctx, r.key(quiz.Slug), data, ttl)
		}
		_, _ = pipe.Exec(ctx)
		return quiz, nil
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	return result.(domain.Quiz), nil
}

func (r *QuizRepository) ListQuizzes(ctx context.Context) ([]domain.Quiz, error) {
	if quizzes, ok := r.cachedCatalog(ctx); ok {
		return quizzes, nil
	}

	result, err, _ := r.sf.Do(catalogKey, func() (interface{}, error) {
		quizzes, err := r.loader.ListQuizzes(ctx)
		if err != nil {
			return nil, err
		}
		docs := make([]domain.Document, 0, len(quizzes))
		for _, q := range quizzes {
			docs = append(docs, q.Document())
		}
		if data, err := json.Marshal(docs); err == nil {
			_ = r.client.Set(ctx, catalogKey, data, r.ttlWithJitter()).Err()
		}
		return quizzes, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Quiz), nil
}

// cached treats unreadable entries as misses; the loader is the source of truth.
func (r *QuizRepository) cached(ctx context.Context, ref string) (domain.Quiz, bool) {
	data, err := r.client.Get(ctx, r.key(ref)).Bytes()
	if err != nil {
		return domain.Quiz{}, false
	}
	quiz, err := domain.ParseJSON(data)
	if err != nil {
		return domain.Quiz{}, false
	}
	return quiz, true
}

func (r *QuizRepository) cachedCatalog(ctx context.Context) ([]domain.Quiz, bool) {
	data, err := r.client.Get(ctx, catalogKey).Bytes()
	if err != nil {
		return nil, false
	}
	var docs []domain.Document
	if err := json.Unmarshal(data, &docs); err != nil {
		return nil, false
	}
	quizzes := make([]domain.Quiz, 0, len(docs))
	for _, d := range docs {
		quiz, err := domain.Compile(d)
		if err != nil {
			return nil, false
		}
		quizzes = append(quizzes, quiz)
	}
	return quizzes, true
}

func (r *QuizRepository) key(ref string) string {
	return "quiz:def:" + ref
}

func (r *QuizRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
