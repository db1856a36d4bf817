package memory

import (
	"context"
	"math/rand"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"windshield-quiz-service/internal/domain"
)

// QuizLoader fetches compiled quizzes from a backing store (files, Postgres).
// A ref is either a quiz id or a slug.
type QuizLoader interface {
	LoadQuiz(ctx context.Context, ref string) (domain.Quiz, error)
	ListQuizzes(ctx context.Context) ([]domain.Quiz, error)
}

const catalogKey = "\x00catalog"

// QuizRepository caches quizzes with TTL to avoid repeated loads.
type QuizRepository struct {
	loader QuizLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rndMu  sync.Mutex
	rnd    *rand.Rand

	mu      sync.RWMutex
	cache   map[string]cachedQuiz
	catalog cachedCatalog
}

type cachedQuiz struct {
	quiz      domain.Quiz
	expiresAt time.Time
}

type cachedCatalog struct {
	quizzes   []domain.Quiz
	expiresAt time.Time
}

func NewQuizRepository(loader QuizLoader, ttl time.Duration) *QuizRepository {
	return &QuizRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedQuiz),
	}
}

func (r *QuizRepository) GetQuiz(ctx context.Context, ref string) (domain.Quiz, error) {
	if quiz, ok := r.lookup(ref); ok {
		return quiz, nil
	}

	result, err, _ := r.sf.Do(ref, func() (interface{}, error) {
		if quiz, ok := r.lookup(ref); ok {
			return quiz, nil
		}

		quiz, err := r.loader.LoadQuiz(ctx, ref)
		if err != nil {
			return domain.Quiz{}, err
		}

		entry := cachedQuiz{quiz: quiz, expiresAt: r.clock().Add(r.ttlWithJitter())}
		r.mu.Lock()
		r.cache[quiz.ID] = entry
		r.cache[quiz.Slug] = entry
		r.cache[ref] = entry
		r.mu.Unlock()
		return quiz, nil
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	return result.(domain.Quiz), nil
}

func (r *QuizRepository) ListQuizzes(ctx context.Context) ([]domain.Quiz, error) {
	r.mu.RLock()
	if r.catalog.expiresAt.After(r.clock()) {
		quizzes := r.catalog.quizzes
		r.mu.RUnlock()
		return quizzes, nil
	}
	r.mu.RUnlock()

	result, err, _ := r.sf.Do(catalogKey, func() (interface{}, error) {
		quizzes, err := r.loader.ListQuizzes(ctx)
		if err != nil {
			return nil, err
		}
		entry := cachedCatalog{quizzes: quizzes, expiresAt: r.clock().Add(r.ttlWithJitter())}
		r.mu.Lock()
		r.catalog = entry
		r.mu.Unlock()
		return quizzes, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Quiz), nil
}

func (r *QuizRepository) lookup(ref string) (domain.Quiz, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if entry, ok := r.cache[ref]; ok && entry.expiresAt.After(r.clock()) {
		return entry.quiz, true
	}
	return domain.Quiz{}, false
}

func (r *QuizRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

// StaticQuizLoader is a loader backed by an in-memory set of quizzes (tests, demos,
// and definitions embedded in the binary).
type StaticQuizLoader struct {
	byRef   map[string]domain.Quiz
	quizzes []domain.Quiz
}

func NewStaticQuizLoader(quizzes ...domain.Quiz) *StaticQuizLoader {
	l := &StaticQuizLoader{byRef: make(map[string]domain.Quiz, len(quizzes)*2)}
	for _, q := range quizzes {
		l.byRef[q.ID] = q
		l.byRef[q.Slug] = q
		l.quizzes = append(l.quizzes, q)
	}
	sort.Slice(l.quizzes, func(i, j int) bool { return l.quizzes[i].ID < l.quizzes[j].ID })
	return l
}

func (l *StaticQuizLoader) LoadQuiz(_ context.Context, ref string) (domain.Quiz, error) {
	if quiz, ok := l.byRef[ref]; ok {
		return quiz, nil
	}
	return domain.Quiz{}, domain.ErrQuizNotFound
}

func (l *StaticQuizLoader) ListQuizzes(context.Context) ([]domain.Quiz, error) {
	return append([]domain.Quiz(nil), l.quizzes...), nil
}
