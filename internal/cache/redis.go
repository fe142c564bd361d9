package cache

import (
  "context"
  "encoding/json"
  "fmt"
  "strings"
  "time"

  goredis "github.com/redis/go-redis/v9"

  "github.com/metroflow/induction-backend/internal/logger"
  "github.com/metroflow/induction-backend/internal/utils"
)

type redisEnvelope struct {
  Payload   json.RawMessage `json:"payload"`
  FetchedAt time.Time       `json:"fetched_at"`
}

// RedisCache persists the staleness cache in redis so a restarted service
// can still degrade gracefully on a feed outage.
type RedisCache struct {
  log *logger.Logger
  rdb *goredis.Client
  ttl time.Duration
}

func NewRedisCache(baseLog *logger.Logger) (*RedisCache, error) {
  log := baseLog.With("service", "RedisStalenessCache")

  addr := strings.TrimSpace(utils.GetEnv("REDIS_ADDR", "", baseLog))
  if addr == "" {
    return nil, fmt.Errorf("missing REDIS_ADDR")
  }
  ttlHours := utils.GetEnvAsInt("STALE_CACHE_TTL_HOURS", 48, baseLog)

  rdb := goredis.NewClient(&goredis.Options{
    Addr:        addr,
    DialTimeout: 5 * time.Second,
  })

  ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
  defer cancel()
  if err := rdb.Ping(ctx).Err(); err != nil {
    _ = rdb.Close()
    return nil, fmt.Errorf("redis ping: %w", err)
  }

  return &RedisCache{
    log: log,
    rdb: rdb,
    ttl: time.Duration(ttlHours) * time.Hour,
  }, nil
}

func redisKey(depotID, domain string) string {
  return fmt.Sprintf("induction:stale:%s:%s", depotID, domain)
}

func (c *RedisCache) Put(ctx context.Context, depotID, domain string, payload []byte, fetchedAt time.Time) error {
  raw, err := json.Marshal(redisEnvelope{Payload: payload, FetchedAt: fetchedAt})
  if err != nil {
    return fmt.Errorf("marshal stale entry: %w", err)
  }
  if err := c.rdb.Set(ctx, redisKey(depotID, domain), raw, c.ttl).Err(); err != nil {
    return fmt.Errorf("redis set: %w", err)
  }
  return nil
}

func (c *RedisCache) Get(ctx context.Context, depotID, domain string) ([]byte, time.Time, bool, error) {
  raw, err := c.rdb.Get(ctx, redisKey(depotID, domain)).Bytes()
  if err == goredis.Nil {
    return nil, time.Time{}, false, nil
  }
  if err != nil {
    return nil, time.Time{}, false, fmt.Errorf("redis get: %w", err)
  }
  var env redisEnvelope
  if err := json.Unmarshal(raw, &env); err != nil {
    return nil, time.Time{}, false, fmt.Errorf("unmarshal stale entry: %w", err)
  }
  return env.Payload, env.FetchedAt, true, nil
}

func (c *RedisCache) Close() error {
  return c.rdb.Close()
}
