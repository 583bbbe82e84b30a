package app

import (
	"context"
	"fmt"
	"math/rand/v2"

	"fibtrivia/internal/domain"
)

// QuestionBank is a source of trivia questions
type QuestionBank interface {
	IDs(ctx context.Context) ([]int, error)
	Get(ctx context.Context, id int) (*domain.Question, error)
}

// pickQuestions selects up to n distinct random questions from the bank
func pickQuestions(ctx context.Context, bank QuestionBank, n int, rng *rand.Rand) ([]*domain.Question, error) {
	ids, err := bank.IDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	if len(ids) == 0 {
		return nil, domain.ErrNoQuestions
	}

	domain.Shuffle(rng, ids)
	if n < len(ids) {
		ids = ids[:n]
	}

	questions := make([]*domain.Question, 0, len(ids))
	for _, id := range ids {
		q, err := bank.Get(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("load question %d: %w", id, err)
		}
		questions = append(questions, q)
	}
	return questions, nil
}
