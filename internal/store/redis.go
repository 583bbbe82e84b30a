package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/redis/go-redis/v9"

	"fibtrivia/internal/domain"
)

// RedisBank serves questions stored in Redis: one JSON string per question
// under <prefix>:question:<id>, and the id set under <prefix>:question_ids.
type RedisBank struct {
	client *redis.Client
	prefix string
}

// NewRedisBank wraps an existing client
func NewRedisBank(client *redis.Client, prefix string) *RedisBank {
	if prefix == "" {
		prefix = "fibtrivia"
	}
	return &RedisBank{client: client, prefix: prefix}
}

func (b *RedisBank) idsKey() string {
	return b.prefix + ":question_ids"
}

func (b *RedisBank) questionKey(id int) string {
	return fmt.Sprintf("%s:question:%d", b.prefix, id)
}

// Ping checks the connection
func (b *RedisBank) Ping(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}

// Seed replaces the stored question set in a single transaction
func (b *RedisBank) Seed(ctx context.Context, questions []*domain.Question) error {
	old, err := b.client.SMembers(ctx, b.idsKey()).Result()
	if err != nil {
		return fmt.Errorf("list stored questions: %w", err)
	}

	_, err = b.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, raw := range old {
			if id, err := strconv.Atoi(raw); err == nil {
				pipe.Del(ctx, b.questionKey(id))
			}
		}
		pipe.Del(ctx, b.idsKey())

		for _, q := range questions {
			data, err := json.Marshal(q)
			if err != nil {
				return fmt.Errorf("encode question %d: %w", q.ID, err)
			}
			pipe.Set(ctx, b.questionKey(q.ID), data, 0)
			pipe.SAdd(ctx, b.idsKey(), q.ID)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("seed questions: %w", err)
	}
	return nil
}

// IDs returns every stored question id, ascending
func (b *RedisBank) IDs(ctx context.Context) ([]int, error) {
	members, err := b.client.SMembers(ctx, b.idsKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("list question ids: %w", err)
	}

	ids := make([]int, 0, len(members))
	for _, m := range members {
		id, err := strconv.Atoi(m)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids, nil
}

// Get loads one question
func (b *RedisBank) Get(ctx context.Context, id int) (*domain.Question, error) {
	data, err := b.client.Get(ctx, b.questionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("question %d: %w", id, ErrQuestionNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get question %d: %w", id, err)
	}

	var q domain.Question
	if err := json.Unmarshal(data, &q); err != nil {
		return nil, fmt.Errorf("decode question %d: %w", id, err)
	}
	return &q, nil
}
