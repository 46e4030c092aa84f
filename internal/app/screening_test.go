package app_test

import (
	"context"
	"math/rand"
	"testing"

	"driving-quiz-service/internal/app"
	"driving-quiz-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGate(kv app.KVStore, testID int, rnd app.RandomSource) *app.ScreeningGate {
	logger := nopLogger()
	return app.NewScreeningGate(testID, 0, app.NewSampleStore(kv, "u1", logger), app.NewAnswerStore(kv, "u1", logger), rnd, app.NewEvaluator())
}

func ids(questions []domain.Question) []int {
	out := make([]int, 0, len(questions))
	for _, q := range questions {
		out = append(out, q.ID)
	}
	return out
}

func TestEnsureSampleIsStable(t *testing.T) {
	ctx := context.Background()
	kv := newKV()
	pool := makeQuestions(100, 10)

	first := ids(newGate(kv, 7, rand.New(rand.NewSource(1))).EnsureSample(ctx, pool))
	require.Len(t, first, 3)

	// A different random source must not matter while the sample is stored.
	second := ids(newGate(kv, 7, rand.New(rand.NewSource(99))).EnsureSample(ctx, pool))
	assert.Equal(t, first, second)

	seen := map[int]bool{}
	for _, id := range first {
		assert.False(t, seen[id], "sample must not repeat questions")
		seen[id] = true
		assert.GreaterOrEqual(t, id, 100)
		assert.Less(t, id, 110)
	}
}

func TestEnsureSampleRedrawsAfterReset(t *testing.T) {
	ctx := context.Background()
	kv := newKV()
	pool := makeQuestions(100, 10)
	gate := newGate(kv, 7, rand.New(rand.NewSource(1)))

	gate.EnsureSample(ctx, pool)
	gate.Reset(ctx)
	assert.Nil(t, gate.Navigator())

	_, ok, err := kv.Get(ctx, "progress:u1:screening-sample:7")
	require.NoError(t, err)
	assert.False(t, ok, "reset must drop the sample")

	again := gate.EnsureSample(ctx, pool)
	assert.Len(t, again, 3)
	_, ok, err = kv.Get(ctx, "progress:u1:screening-sample:7")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEnsureSampleSmallPool(t *testing.T) {
	ctx := context.Background()
	kv := newKV()
	pool := makeQuestions(1, 3)

	sample := newGate(kv, 1, rand.New(rand.NewSource(1))).EnsureSample(ctx, pool)
	assert.Equal(t, ids(pool), ids(sample))

	_, ok, err := kv.Get(ctx, "progress:u1:screening-sample:1")
	require.NoError(t, err)
	assert.False(t, ok, "whole-pool samples are not persisted")
}

func TestEnsureSampleDropsStaleSample(t *testing.T) {
	ctx := context.Background()
	kv := newKV()
	gate := newGate(kv, 2, rand.New(rand.NewSource(3)))
	first := gate.EnsureSample(ctx, makeQuestions(1, 10))

	// The pool changed completely; remembered ids no longer exist.
	next := gate.EnsureSample(ctx, makeQuestions(500, 10))
	require.Len(t, next, 3)
	for _, id := range ids(next) {
		assert.GreaterOrEqual(t, id, 500)
	}
	assert.NotEqual(t, ids(first), ids(next))
}

func TestStaleScreeningAnswersDoNotCount(t *testing.T) {
	ctx := context.Background()
	kv := newKV()
	gate := newGate(kv, 2, rand.New(rand.NewSource(3)))
	old := gate.EnsureSample(ctx, makeQuestions(1, 10))
	for _, q := range old[:2] {
		_, err := gate.Answer(ctx, q.ID, 0)
		require.NoError(t, err)
	}

	// The pool changes but keeps one question of the old sample.
	pool := append(makeQuestions(500, 10), old[2])
	next := gate.EnsureSample(ctx, pool)
	require.Len(t, next, 3)

	var fresh domain.Question
	for _, q := range next {
		if q.ID != old[2].ID {
			fresh = q
			break
		}
	}
	_, err := gate.Answer(ctx, fresh.ID, 0)
	require.NoError(t, err)
	assert.False(t, gate.IsPassed(ctx), "answers to questions outside the sample must not count")

	for _, q := range next {
		_, err := gate.Answer(ctx, q.ID, 0)
		require.NoError(t, err)
	}
	assert.True(t, gate.IsPassed(ctx))
}

func TestScreeningPassLaw(t *testing.T) {
	ctx := context.Background()
	kv := newKV()
	gate := newGate(kv, 7, rand.New(rand.NewSource(5)))
	sample := gate.EnsureSample(ctx, makeQuestions(1, 10))
	require.Len(t, sample, 3)

	assert.False(t, gate.IsPassed(ctx))

	_, err := gate.Answer(ctx, sample[0].ID, 0)
	require.NoError(t, err)
	_, err = gate.Answer(ctx, sample[1].ID, 0)
	require.NoError(t, err)
	assert.False(t, gate.IsPassed(ctx), "two answers are not enough")

	_, err = gate.Answer(ctx, sample[2].ID, 1)
	require.NoError(t, err)
	assert.False(t, gate.IsPassed(ctx), "one wrong answer fails the gate")

	_, err = gate.Answer(ctx, sample[2].ID, 0)
	require.NoError(t, err)
	assert.True(t, gate.IsPassed(ctx))

	gate.Reset(ctx)
	assert.False(t, gate.IsPassed(ctx))
}

func TestScreeningAnswerNeedsSample(t *testing.T) {
	ctx := context.Background()
	gate := newGate(newKV(), 1, nil)

	_, err := gate.Answer(ctx, 1, 0)
	assert.ErrorIs(t, err, domain.ErrQuestionNotFound)

	gate.EnsureSample(ctx, makeQuestions(1, 5))
	_, err = gate.Answer(ctx, 999, 0)
	assert.ErrorIs(t, err, domain.ErrQuestionNotFound)
}

func TestScreeningAnswersDoNotLeakIntoTest(t *testing.T) {
	ctx := context.Background()
	kv := newKV()
	gate := newGate(kv, 7, rand.New(rand.NewSource(5)))
	sample := gate.EnsureSample(ctx, makeQuestions(1, 10))
	_, err := gate.Answer(ctx, sample[0].ID, 0)
	require.NoError(t, err)

	store := app.NewAnswerStore(kv, "u1", nopLogger())
	assert.Empty(t, store.AnswersForScope(ctx, domain.TestScope(7)))
	assert.Len(t, store.AnswersForScope(ctx, domain.ScreeningScope(7)), 1)
}
