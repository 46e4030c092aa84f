package app

import (
	"context"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"driving-quiz-service/internal/domain"
	"driving-quiz-service/internal/logging"
)

// DefaultScreeningSize is how many pool questions a screening gate shows.
const DefaultScreeningSize = 3

// RandomSource picks a uniform integer in [0, n). *rand.Rand satisfies it.
type RandomSource interface {
	Intn(n int) int
}

// lockedRand makes a *rand.Rand shareable between connections.
type lockedRand struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

func newLockedRand() *lockedRand {
	return &lockedRand{rnd: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

func (r *lockedRand) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rnd.Intn(n)
}

// SampleStore remembers the screening questions drawn per test.
type SampleStore struct {
	store jsonStore
}

func NewSampleStore(kv KVStore, userID string, logger logging.Logger) *SampleStore {
	return &SampleStore{store: newJSONStore(kv, userID, logger)}
}

func (s *SampleStore) Get(ctx context.Context, testID int) (domain.ScreeningSample, bool) {
	var sample domain.ScreeningSample
	if !s.store.load(ctx, s.key(testID), &sample) {
		return domain.ScreeningSample{}, false
	}
	return sample, true
}

func (s *SampleStore) Set(ctx context.Context, sample domain.ScreeningSample) {
	s.store.save(ctx, s.key(sample.TestID), sample)
}

func (s *SampleStore) Clear(ctx context.Context, testID int) {
	s.store.remove(ctx, s.key(testID))
}

func (s *SampleStore) key(testID int) string {
	return s.store.key("screening-sample", strconv.Itoa(testID))
}

// ScreeningGate is the short quiz that must be answered without mistakes
// before a timed test unlocks.
type ScreeningGate struct {
	testID    int
	size      int
	samples   *SampleStore
	answers   *AnswerStore
	rnd       RandomSource
	evaluator Evaluator
	nav       *Navigator
}

func NewScreeningGate(testID, size int, samples *SampleStore, answers *AnswerStore, rnd RandomSource, evaluator Evaluator) *ScreeningGate {
	if size <= 0 {
		size = DefaultScreeningSize
	}
	if rnd == nil {
		rnd = newLockedRand()
	}
	return &ScreeningGate{
		testID:    testID,
		size:      size,
		samples:   samples,
		answers:   answers,
		rnd:       rnd,
		evaluator: evaluator,
	}
}

func (g *ScreeningGate) TestID() int { return g.testID }

func (g *ScreeningGate) scope() domain.Scope { return domain.ScreeningScope(g.testID) }

// EnsureSample returns the remembered sample for the test, drawing and
// persisting a new one when none exists or it no longer matches the pool.
// A pool no larger than the sample size is returned whole and not persisted.
func (g *ScreeningGate) EnsureSample(ctx context.Context, pool []domain.Question) []domain.Question {
	sample := g.sample(ctx, pool)
	g.nav = NewNavigator(ctx, g.scope(), sample, g.answers, g.evaluator)
	return sample
}

func (g *ScreeningGate) sample(ctx context.Context, pool []domain.Question) []domain.Question {
	if len(pool) <= g.size {
		return pool
	}

	if stored, ok := g.samples.Get(ctx, g.testID); ok {
		if picked, ok := pickByID(pool, stored.QuestionIDs); ok && len(picked) == g.size {
			return picked
		}
	}

	shuffled := make([]domain.Question, len(pool))
	copy(shuffled, pool)
	for i := len(shuffled) - 1; i > 0; i-- {
		j := g.rnd.Intn(i + 1)
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	}
	picked := shuffled[:g.size]

	ids := make([]int, 0, len(picked))
	for _, q := range picked {
		ids = append(ids, q.ID)
	}
	g.samples.Set(ctx, domain.ScreeningSample{TestID: g.testID, QuestionIDs: ids})
	return picked
}

// Navigator walks the current sample; nil until EnsureSample is called.
func (g *ScreeningGate) Navigator() *Navigator { return g.nav }

// Answer records a screening answer for a question of the current sample.
func (g *ScreeningGate) Answer(ctx context.Context, questionID, selectedIndex int) (domain.AnswerRecord, error) {
	if g.nav == nil {
		return domain.AnswerRecord{}, domain.ErrQuestionNotFound
	}
	return g.nav.Answer(ctx, questionID, selectedIndex)
}

// IsPassed holds when the current sample has exactly size questions and each
// of them has a correct stored answer. Answers to questions outside the
// sample, left over from an earlier draw, are ignored.
func (g *ScreeningGate) IsPassed(ctx context.Context) bool {
	if g.nav == nil {
		return false
	}
	sample := g.nav.Questions()
	if len(sample) != g.size {
		return false
	}
	byID := make(map[int]domain.AnswerRecord, len(sample))
	for _, r := range g.answers.AnswersForScope(ctx, g.scope()) {
		byID[r.QuestionID] = r
	}
	for _, q := range sample {
		r, ok := byID[q.ID]
		if !ok || !r.IsCorrect {
			return false
		}
	}
	return true
}

// Reset forgets the answers and the sample so the next visit draws anew.
func (g *ScreeningGate) Reset(ctx context.Context) {
	g.answers.ClearScope(ctx, g.scope())
	g.samples.Clear(ctx, g.testID)
	g.nav = nil
}

func pickByID(pool []domain.Question, ids []int) ([]domain.Question, bool) {
	byID := make(map[int]domain.Question, len(pool))
	for _, q := range pool {
		byID[q.ID] = q
	}
	picked := make([]domain.Question, 0, len(ids))
	for _, id := range ids {
		q, ok := byID[id]
		if !ok {
			return nil, false
		}
		picked = append(picked, q)
	}
	return picked, true
}
