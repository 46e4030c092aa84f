package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"driving-quiz-service/internal/domain"
	"golang.org/x/sync/singleflight"
)

// QuestionLoader fetches the question catalog from a backing store.
type QuestionLoader interface {
	LoadQuestions(ctx context.Context) (domain.Catalog, error)
}

// QuestionRepository caches the catalog with TTL to avoid repeated DB hits.
// It implements app.QuestionSource.
type QuestionRepository struct {
	loader QuestionLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu        sync.RWMutex
	catalog   domain.Catalog
	expiresAt time.Time
}

func NewQuestionRepository(loader QuestionLoader, ttl time.Duration) *QuestionRepository {
	return &QuestionRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *QuestionRepository) ListQuestionsByCategory(ctx context.Context, categoryID int) ([]domain.Question, error) {
	catalog, err := r.Catalog(ctx)
	if err != nil {
		return nil, err
	}
	return catalog.ByCategory(categoryID), nil
}

func (r *QuestionRepository) ListScreeningPool(ctx context.Context) ([]domain.Question, error) {
	catalog, err := r.Catalog(ctx)
	if err != nil {
		return nil, err
	}
	return catalog.ScreeningPool(), nil
}

func (r *QuestionRepository) ListEducationalQuestions(ctx context.Context) ([]domain.Question, error) {
	catalog, err := r.Catalog(ctx)
	if err != nil {
		return nil, err
	}
	return catalog.Educational(), nil
}

// Catalog returns the cached catalog, loading it once per expiry.
func (r *QuestionRepository) Catalog(ctx context.Context) (domain.Catalog, error) {
	if catalog, ok := r.cached(); ok {
		return catalog, nil
	}

	result, err, _ := r.sf.Do("catalog", func() (interface{}, error) {
		if catalog, ok := r.cached(); ok {
			return catalog, nil
		}

		catalog, err := r.loader.LoadQuestions(ctx)
		if err != nil {
			return domain.Catalog(nil), err
		}

		r.mu.Lock()
		r.catalog = catalog
		r.expiresAt = r.clock().Add(r.ttlWithJitter())
		r.mu.Unlock()
		return catalog, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(domain.Catalog), nil
}

func (r *QuestionRepository) cached() (domain.Catalog, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.catalog != nil && r.expiresAt.After(r.clock()) {
		return r.catalog, true
	}
	return nil, false
}

func (r *QuestionRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

// StaticQuestionLoader serves a fixed catalog (useful for tests/demos).
type StaticQuestionLoader struct {
	catalog domain.Catalog
}

func NewStaticQuestionLoader(catalog domain.Catalog) *StaticQuestionLoader {
	return &StaticQuestionLoader{catalog: catalog}
}

func (l *StaticQuestionLoader) LoadQuestions(_ context.Context) (domain.Catalog, error) {
	return l.catalog, nil
}
