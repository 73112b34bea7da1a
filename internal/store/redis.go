package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/shopchat/shopchat/internal/eval"
	"github.com/shopchat/shopchat/internal/shopper"
)

const (
	sessionKeyPrefix = "session:query:"
	sessionIDCounter = "session:next_id"
)

// RedisStore keeps one JSON document per query under session:query:<query>.
// Ids come from a shared counter and survive upserts for the same query.
type RedisStore struct {
	Client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{Client: client}
}

func (s *RedisStore) Upsert(ctx context.Context, sess *shopper.Session) error {
	key := sessionKeyPrefix + sess.Query

	existing, err := s.Client.Get(ctx, key).Bytes()
	switch {
	case err == redis.Nil:
		next, err := s.Client.Incr(ctx, sessionIDCounter).Result()
		if err != nil {
			return fmt.Errorf("allocating session id: %w", err)
		}
		sess.ID = int(next)
	case err != nil:
		return fmt.Errorf("loading session: %w", err)
	default:
		var prev shopper.Session
		if err := json.Unmarshal(existing, &prev); err != nil {
			return fmt.Errorf("decoding session: %w", err)
		}
		sess.ID = prev.ID
	}

	payload, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}
	if err := s.Client.Set(ctx, key, payload, 0).Err(); err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	return nil
}

func (s *RedisStore) List(ctx context.Context) ([]shopper.Session, error) {
	var sessions []shopper.Session
	iter := s.Client.Scan(ctx, 0, sessionKeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		if !strings.HasPrefix(key, sessionKeyPrefix) {
			continue
		}
		payload, err := s.Client.Get(ctx, key).Bytes()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("loading session %s: %w", key, err)
		}
		var sess shopper.Session
		if err := json.Unmarshal(payload, &sess); err != nil {
			return nil, fmt.Errorf("decoding session %s: %w", key, err)
		}
		sessions = append(sessions, sess)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scanning sessions: %w", err)
	}
	sort.Slice(sessions, func(i, j int) bool { return sessions[i].ID < sessions[j].ID })
	return sessions, nil
}

func (s *RedisStore) UpdateEvaluation(ctx context.Context, id int, score eval.Score) error {
	sessions, err := s.List(ctx)
	if err != nil {
		return err
	}
	for i := range sessions {
		if sessions[i].ID != id {
			continue
		}
		sessions[i].EvaluationScore = score
		payload, err := json.Marshal(&sessions[i])
		if err != nil {
			return fmt.Errorf("encoding session: %w", err)
		}
		key := sessionKeyPrefix + sessions[i].Query
		if err := s.Client.Set(ctx, key, payload, 0).Err(); err != nil {
			return fmt.Errorf("saving session: %w", err)
		}
		return nil
	}
	return fmt.Errorf("session %d not found", id)
}

func (s *RedisStore) Close() error { return s.Client.Close() }
