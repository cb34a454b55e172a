package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"blockship/internal/session"
	id "blockship/pkg/domain"
	"blockship/pkg/platform/sentinel"
)

const (
	sessionKeyPrefix = "bship:sess:"

	// expiryIndexKey is a ZSET scoring session IDs by expiry time. Redis
	// TTL already evicts the value keys; the index exists so the reaper
	// can enumerate expired sessions and release their resources.
	expiryIndexKey = "bship:sess:expiry"

	// updateRetries bounds optimistic-lock retries before giving up.
	// Generous because every open session mutation funnels through here.
	updateRetries = 16
)

// RedisStore persists sessions as JSON values with a TTL. Update runs under
// a WATCH transaction so concurrent mutations of one session retry instead
// of clobbering each other.
type RedisStore struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func sessionKey(sessionID id.SessionID) string {
	return sessionKeyPrefix + sessionID.String()
}

func (s *RedisStore) Create(ctx context.Context, sess *session.Session) error {
	key := sessionKey(sess.ID)

	payload, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	ttl := time.Until(sess.ExpiresAt)
	if ttl <= 0 {
		return sentinel.ErrExpired
	}

	ok, err := s.client.SetNX(ctx, key, payload, ttl).Result()
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	if !ok {
		return sentinel.ErrConflict
	}

	return s.client.ZAdd(ctx, expiryIndexKey, redis.Z{
		Score:  float64(sess.ExpiresAt.Unix()),
		Member: sess.ID.String(),
	}).Err()
}

func (s *RedisStore) FindByID(ctx context.Context, sessionID id.SessionID) (*session.Session, error) {
	return s.get(ctx, sessionKey(sessionID))
}

func (s *RedisStore) get(ctx context.Context, key string) (*session.Session, error) {
	payload, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	var sess session.Session
	if err := json.Unmarshal(payload, &sess); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	if sess.Expired(time.Now()) {
		return nil, sentinel.ErrExpired
	}
	return &sess, nil
}

// Update applies fn under WATCH. On contention the whole read-modify-write
// cycle retries with fresh state, so fn must be side-effect free.
func (s *RedisStore) Update(ctx context.Context, sessionID id.SessionID, fn func(*session.Session) error) (*session.Session, error) {
	key := sessionKey(sessionID)

	var updated *session.Session
	txFn := func(tx *redis.Tx) error {
		payload, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return sentinel.ErrNotFound
		}
		if err != nil {
			return err
		}

		var sess session.Session
		if err := json.Unmarshal(payload, &sess); err != nil {
			return fmt.Errorf("unmarshal session: %w", err)
		}
		if sess.Expired(time.Now()) {
			return sentinel.ErrExpired
		}

		if err := fn(&sess); err != nil {
			return err
		}

		next, err := json.Marshal(&sess)
		if err != nil {
			return fmt.Errorf("marshal session: %w", err)
		}

		ttl := time.Until(sess.ExpiresAt)
		if ttl <= 0 {
			return sentinel.ErrExpired
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, next, ttl)
			return nil
		})
		if err == nil {
			updated = &sess
		}
		return err
	}

	for i := 0; i < updateRetries; i++ {
		err := s.client.Watch(ctx, txFn, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return updated, nil
	}
	return nil, sentinel.ErrConflict
}

func (s *RedisStore) Delete(ctx context.Context, sessionID id.SessionID) error {
	deleted, err := s.client.Del(ctx, sessionKey(sessionID)).Result()
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	_ = s.client.ZRem(ctx, expiryIndexKey, sessionID.String()).Err()
	if deleted == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// DeleteExpired pops due entries from the expiry index. The value keys have
// usually been evicted by Redis TTL already; whatever survives is deleted
// here and the session (when still readable) is returned for cleanup.
func (s *RedisStore) DeleteExpired(ctx context.Context, now time.Time) ([]*session.Session, error) {
	due, err := s.client.ZRangeByScore(ctx, expiryIndexKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: fmt.Sprintf("%d", now.Unix()),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("list expired sessions: %w", err)
	}
	if len(due) == 0 {
		return nil, nil
	}

	var removed []*session.Session
	for _, raw := range due {
		sessionID, err := id.ParseSessionID(raw)
		if err != nil {
			// Corrupt index entry; drop it and move on.
			_ = s.client.ZRem(ctx, expiryIndexKey, raw).Err()
			continue
		}

		payload, err := s.client.Get(ctx, sessionKey(sessionID)).Bytes()
		if err == nil {
			var sess session.Session
			if json.Unmarshal(payload, &sess) == nil {
				removed = append(removed, &sess)
			}
			_ = s.client.Del(ctx, sessionKey(sessionID)).Err()
		}
		_ = s.client.ZRem(ctx, expiryIndexKey, raw).Err()
	}
	return removed, nil
}

func (s *RedisStore) IsSessionClosed(ctx context.Context, sessionID id.SessionID) (bool, error) {
	exists, err := s.client.Exists(ctx, sessionKey(sessionID)).Result()
	if err != nil {
		return false, fmt.Errorf("check session: %w", err)
	}
	return exists == 0, nil
}
