package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"driving-quiz-service/internal/domain"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// QuestionLoader fetches the question catalog from a backing store.
type QuestionLoader interface {
	LoadQuestions(ctx context.Context) (domain.Catalog, error)
}

// QuestionRepository caches the catalog in Redis and falls back to a loader on cache miss.
// The catalog is stored as JSON: SET quiz:catalog {json} EX ttl
// It implements app.QuestionSource.
type QuestionRepository struct {
	client *redis.Client
	loader QuestionLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewQuestionRepository(client *redis.Client, loader QuestionLoader, ttl time.Duration) *QuestionRepository {
	return &QuestionRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
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

// Catalog reads the cached catalog, loading and caching it on a miss.
func (r *QuestionRepository) Catalog(ctx context.Context) (domain.Catalog, error) {
	if catalog, ok := r.cached(ctx); ok {
		return catalog, nil
	}

	result, err, _ := r.sf.Do(catalogKey, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if catalog, ok := r.cached(ctx); ok {
			return catalog, nil
		}

		catalog, err := r.loader.LoadQuestions(ctx)
		if err != nil {
			return domain.Catalog(nil), err
		}

		if raw, err := json.Marshal(catalog); err == nil {
			_ = r.client.Set(ctx, catalogKey, raw, r.ttlWithJitter()).Err()
		}
		return catalog, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(domain.Catalog), nil
}

// Invalidate drops the cached catalog, e.g. after an import.
func (r *QuestionRepository) Invalidate(ctx context.Context) error {
	return r.client.Del(ctx, catalogKey).Err()
}

const catalogKey = "quiz:catalog"

func (r *QuestionRepository) cached(ctx context.Context) (domain.Catalog, bool) {
	raw, err := r.client.Get(ctx, catalogKey).Bytes()
	if err != nil || len(raw) == 0 {
		return nil, false
	}
	var catalog domain.Catalog
	if err := json.Unmarshal(raw, &catalog); err != nil {
		return nil, false
	}
	return catalog, true
}

func (r *QuestionRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
