package store

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"fibtrivia/internal/domain"
)

// ErrQuestionNotFound is returned when a question id is unknown to a bank
var ErrQuestionNotFound = errors.New("question not found")

//go:embed questions.json
var embeddedQuestions []byte

// ParseQuestions decodes a JSON array of questions
func ParseQuestions(data []byte) ([]*domain.Question, error) {
	var questions []*domain.Question
	if err := json.Unmarshal(data, &questions); err != nil {
		return nil, fmt.Errorf("parse questions: %w", err)
	}
	return questions, nil
}

// EmbeddedQuestions returns the question set compiled into the binary
func EmbeddedQuestions() ([]*domain.Question, error) {
	return ParseQuestions(embeddedQuestions)
}

// MemoryBank serves questions from memory
type MemoryBank struct {
	questions map[int]*domain.Question
	ids       []int
}

// NewMemoryBank indexes questions by id
func NewMemoryBank(questions []*domain.Question) *MemoryBank {
	b := &MemoryBank{questions: make(map[int]*domain.Question, len(questions))}
	for _, q := range questions {
		if _, dup := b.questions[q.ID]; dup {
			continue
		}
		b.questions[q.ID] = q
		b.ids = append(b.ids, q.ID)
	}
	sort.Ints(b.ids)
	return b
}

// IDs returns every question id, ascending
func (b *MemoryBank) IDs(_ context.Context) ([]int, error) {
	out := make([]int, len(b.ids))
	copy(out, b.ids)
	return out, nil
}

// Get returns a question by id
func (b *MemoryBank) Get(_ context.Context, id int) (*domain.Question, error) {
	q, ok := b.questions[id]
	if !ok {
		return nil, fmt.Errorf("question %d: %w", id, ErrQuestionNotFound)
	}
	return q, nil
}
