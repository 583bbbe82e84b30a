package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fibtrivia/internal/domain"
)

func TestEmbeddedQuestions(t *testing.T) {
	t.Parallel()

	questions, err := EmbeddedQuestions()
	require.NoError(t, err)
	require.Len(t, questions, 100)

	seen := make(map[int]bool, len(questions))
	for _, q := range questions {
		assert.False(t, seen[q.ID], "duplicate id %d", q.ID)
		seen[q.ID] = true
		assert.NotEmpty(t, q.Answer, "question %d has an answer", q.ID)
	}
}

func TestParseQuestions_Invalid(t *testing.T) {
	t.Parallel()

	_, err := ParseQuestions([]byte(`{"id": 1}`))
	assert.Error(t, err)
}

func TestMemoryBank(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	bank := NewMemoryBank([]*domain.Question{
		{ID: 7, Prompt: "Seven _____.", Answer: "SEAS"},
		{ID: 3, Prompt: "Three _____.", Answer: "MUSKETEERS"},
		{ID: 7, Prompt: "Duplicate _____.", Answer: "IGNORED"},
	})

	ids, err := bank.IDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{3, 7}, ids)

	ids[0] = 99
	again, _ := bank.IDs(ctx)
	assert.Equal(t, []int{3, 7}, again, "callers cannot mutate the index")

	q, err := bank.Get(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, "SEAS", q.Answer)

	_, err = bank.Get(ctx, 42)
	assert.ErrorIs(t, err, ErrQuestionNotFound)
}
