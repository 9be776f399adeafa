// redis — таблица состояния в Redis: переживает рестарт процесса и делится между репликами.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/pribylovaa/match-bot/internal/models"
	"github.com/pribylovaa/match-bot/internal/state"
)

// Redis — реализация state.Store.
//
// Ключи:
//   - <prefix>session:<id> — JSON анкеты (string);
//   - <prefix>chain:<id>   — Hash с полями auto, streak, gen, photo (0/1).
//
// Каждая запись получает TTL: забытые анкеты и счётчики исчезают сами.
type Redis struct {
	rdb    *goredis.Client
	prefix string
	ttl    time.Duration
}

var _ state.Store = (*Redis)(nil)

// New создаёт клиент Redis из URL (например, redis://:pass@host:6379/0).
// Если prefix пустой — используется "matchbot:"; ttl <= 0 — записи без срока жизни.
func New(ctx context.Context, redisURL, prefix string, ttl time.Duration) (*Redis, error) {
	if prefix == "" {
		prefix = "matchbot:"
	}

	opt, err := goredis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis: parse url: %w", err)
	}

	rdb := goredis.NewClient(opt)

	// Fail-fast на старте.
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}

	return &Redis{rdb: rdb, prefix: prefix, ttl: ttl}, nil
}

func (r *Redis) sessionKey(id int64) string {
	return r.prefix + "session:" + strconv.FormatInt(id, 10)
}

func (r *Redis) chainKey(id int64) string {
	return r.prefix + "chain:" + strconv.FormatInt(id, 10)
}

func (r *Redis) Session(ctx context.Context, userID int64) (*models.Session, error) {
	raw, err := r.rdb.Get(ctx, r.sessionKey(userID)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, state.ErrNotFound
		}

		return nil, err
	}

	var s models.Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("redis: decode session: %w", err)
	}

	return &s, nil
}

func (r *Redis) SaveSession(ctx context.Context, s *models.Session) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("redis: encode session: %w", err)
	}

	return r.rdb.Set(ctx, r.sessionKey(s.UserID), raw, r.ttl).Err()
}

func (r *Redis) DeleteSession(ctx context.Context, userID int64) error {
	return r.rdb.Del(ctx, r.sessionKey(userID)).Err()
}

// Храним как Redis Hash с полями: auto, streak, gen, photo (0/1).
func (r *Redis) Chain(ctx context.Context, userID int64) (models.ChainState, error) {
	m, err := r.rdb.HGetAll(ctx, r.chainKey(userID)).Result()
	if err != nil {
		return models.ChainState{}, err
	}

	if len(m) == 0 {
		return models.ChainState{}, nil
	}

	var cs models.ChainState

	if cs.AutoServed, err = atoi(m["auto"]); err != nil {
		return models.ChainState{}, err
	}

	if cs.DislikeStreak, err = atoi(m["streak"]); err != nil {
		return models.ChainState{}, err
	}

	if v := m["gen"]; v != "" {
		if cs.Generation, err = strconv.ParseUint(v, 10, 64); err != nil {
			return models.ChainState{}, fmt.Errorf("redis: bad gen %q: %w", v, err)
		}
	}

	cs.AwaitingPhoto = m["photo"] == "1"

	return cs, nil
}

func (r *Redis) SaveChain(ctx context.Context, userID int64, cs models.ChainState) error {
	kv := map[string]string{
		"auto":   strconv.Itoa(cs.AutoServed),
		"streak": strconv.Itoa(cs.DislikeStreak),
		"gen":    strconv.FormatUint(cs.Generation, 10),
		"photo":  boolTo01(cs.AwaitingPhoto),
	}

	pipe := r.rdb.TxPipeline()
	pipe.HSet(ctx, r.chainKey(userID), kv)
	if r.ttl > 0 {
		pipe.Expire(ctx, r.chainKey(userID), r.ttl)
	}

	_, err := pipe.Exec(ctx)
	return err
}

// Ping — проверка доступности (readiness).
func (r *Redis) Ping(ctx context.Context) error { return r.rdb.Ping(ctx).Err() }

func (r *Redis) Close() error { return r.rdb.Close() }

func atoi(v string) (int, error) {
	if v == "" {
		return 0, nil
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("redis: bad counter %q: %w", v, err)
	}

	return n, nil
}

func boolTo01(b bool) string {
	if b {
		return "1"
	}

	return "0"
}
