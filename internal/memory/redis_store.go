package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// maxMergeAttempts bounds optimistic-lock retries when another writer
// touches the same session during a merge.
const maxMergeAttempts = 3

// RedisStore implements Store interface using Redis
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration // sliding session expiry
	now    func() time.Time
}

// NewRedisStore creates a new Redis-backed store
func NewRedisStore(redisURL string, ttl time.Duration) (*RedisStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisStoreWithClient(client, ttl), nil
}

// NewRedisStoreWithClient wraps an existing client.
func NewRedisStoreWithClient(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{
		client: client,
		ttl:    ttl,
		now:    time.Now,
	}
}

// sessionKey generates Redis key for a session
func (r *RedisStore) sessionKey(identity string) string {
	return fmt.Sprintf("session:%s", identity)
}

// Load loads a session from Redis
func (r *RedisStore) Load(ctx context.Context, identity string) (*Session, error) {
	data, err := r.client.Get(ctx, r.sessionKey(identity)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to load session: %v", ErrStoreUnavailable, err)
	}
	return decodeSession(identity, data)
}

// Save saves session data to Redis with a fresh TTL
func (r *RedisStore) Save(ctx context.Context, session *Session) error {
	data, err := r.encode(session)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, r.sessionKey(session.Identity), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("%w: failed to save session: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Merge runs a read-modify-write on the session under WATCH so a concurrent
// write to the same key aborts and retries instead of being overwritten.
func (r *RedisStore) Merge(ctx context.Context, identity string, update func(*Session)) (*Session, error) {
	key := r.sessionKey(identity)
	var merged *Session

	txf := func(tx *redis.Tx) error {
		session := NewSession(identity)
		data, err := tx.Get(ctx, key).Bytes()
		switch {
		case err == redis.Nil:
		case err != nil:
			return err
		default:
			// Unreadable data is replaced rather than blocking the
			// conversation until the key expires.
			if decoded, err := decodeSession(identity, data); err == nil {
				session = decoded
			}
		}

		update(session)

		encoded, err := r.encode(session)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, encoded, r.ttl)
			return nil
		})
		if err == nil {
			merged = session
		}
		return err
	}

	var err error
	for attempt := 0; attempt < maxMergeAttempts; attempt++ {
		err = r.client.Watch(ctx, txf, key)
		if !errors.Is(err, redis.TxFailedErr) {
			break
		}
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to merge session: %v", ErrStoreUnavailable, err)
	}
	return merged, nil
}

// Delete removes a session from Redis
func (r *RedisStore) Delete(ctx context.Context, identity string) error {
	if err := r.client.Del(ctx, r.sessionKey(identity)).Err(); err != nil {
		return fmt.Errorf("%w: failed to delete session: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Close closes the Redis connection
func (r *RedisStore) Close() error {
	return r.client.Close()
}

// Ping verifies the Redis connection is alive
func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// ErrCorruptSession is returned by Load when the stored value cannot be decoded.
var ErrCorruptSession = errors.New("corrupt session data")

func (r *RedisStore) encode(session *Session) ([]byte, error) {
	session.repair()
	session.UpdatedAt = r.now().UTC()

	data, err := json.Marshal(session)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal session: %w", err)
	}
	return data, nil
}

func decodeSession(identity string, data []byte) (*Session, error) {
	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptSession, err)
	}
	if session.Identity == "" {
		session.Identity = identity
	}
	return &session, nil
}
