package app

import (
	"context"
	"encoding/json"
	"hash/fnv"
	"strings"
	"sync"

	"driving-quiz-service/internal/domain"
	"driving-quiz-service/internal/logging"
)

// KVStore abstracts where progress records live (in-memory, Redis, etc).
// Get reports found=false for a missing key; errors are reserved for backend failures.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
}

// QuestionSource loads question sets (from cache/backing store).
type QuestionSource interface {
	ListQuestionsByCategory(ctx context.Context, categoryID int) ([]domain.Question, error)
	ListScreeningPool(ctx context.Context) ([]domain.Question, error)
	ListEducationalQuestions(ctx context.Context) ([]domain.Question, error)
}

// jsonStore reads and writes JSON values under a per-user key prefix.
// Backend and decode failures are logged and reported as "no data".
type jsonStore struct {
	kv     KVStore
	prefix string
	logger logging.Logger
}

func newJSONStore(kv KVStore, userID string, logger logging.Logger) jsonStore {
	return jsonStore{
		kv:     kv,
		prefix: "progress:" + userID,
		logger: logger,
	}
}

func (s jsonStore) key(parts ...string) string {
	return s.prefix + ":" + strings.Join(parts, ":")
}

func (s jsonStore) load(ctx context.Context, key string, dest any) bool {
	raw, ok, err := s.kv.Get(ctx, key)
	if err != nil {
		s.logger.WarnContext(ctx, "progress read failed", "key", key, "error", err.Error())
		return false
	}
	if !ok {
		return false
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		s.logger.WarnContext(ctx, "progress record corrupt", "key", key, "error", err.Error())
		return false
	}
	return true
}

func (s jsonStore) save(ctx context.Context, key string, value any) {
	raw, err := json.Marshal(value)
	if err != nil {
		s.logger.WarnContext(ctx, "progress encode failed", "key", key, "error", err.Error())
		return
	}
	if err := s.kv.Set(ctx, key, raw); err != nil {
		s.logger.WarnContext(ctx, "progress write dropped", "key", key, "error", err.Error())
	}
}

func (s jsonStore) remove(ctx context.Context, key string) {
	if err := s.kv.Remove(ctx, key); err != nil {
		s.logger.WarnContext(ctx, "progress delete failed", "key", key, "error", err.Error())
	}
}

// keyLocks serializes read-modify-write cycles on the same key inside one
// process. Keys are spread over a fixed set of mutexes.
type keyLocks [64]sync.Mutex

var scopeLocks keyLocks

func (l *keyLocks) lock(key string) (unlock func()) {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	m := &l[h.Sum32()%uint32(len(l))]
	m.Lock()
	return m.Unlock
}
