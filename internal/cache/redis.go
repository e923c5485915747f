// Package cache реализует кэширование результатов оценки в Redis
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/go-redis/redis/v8"

	"ferry-service/internal/models"
)

const (
	// ComparisonKeyPrefix префикс ключей сравнений
	ComparisonKeyPrefix = "comparison:"
	// RecentComparisonsKey список последних сравнений
	RecentComparisonsKey = "comparisons:recent"
	// RecentLimit сколько последних сравнений храним
	RecentLimit = 1000
	// ComparisonsCounter счетчик выполненных сравнений
	ComparisonsCounter = "comparisons:total"
	// CongestionCounter счетчик всплесков загруженности
	CongestionCounter = "congestion:total"
	// DefaultTTL время жизни сравнения по умолчанию
	DefaultTTL = 10 * time.Minute
)

// ErrMiss возвращается, если ключа нет в кэше
var ErrMiss = errors.New("cache miss")

// RedisCache реализует кэширование в Redis
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// Options параметры подключения
type Options struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// NewRedisCache создает подключение и проверяет его через PING
func NewRedisCache(ctx context.Context, opts Options) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		PoolSize:     100,
		MinIdleConns: 10,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	ttl := opts.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	return &RedisCache{client: client, ttl: ttl}, nil
}

// ComparisonKey строит ключ по всем полям параметров.
// Одинаковые параметры дают одинаковый ключ, так как движок детерминирован.
func ComparisonKey(p models.QueueingParameters) string {
	h := xxhash.New()
	fields := []string{
		strconv.FormatFloat(p.Lambda, 'g', -1, 64),
		strconv.FormatFloat(p.Mu, 'g', -1, 64),
		strconv.Itoa(p.Servers),
		strconv.Itoa(p.CapacityPerFerry),
		strconv.FormatFloat(p.CycleMinutes, 'g', -1, 64),
		strconv.FormatBool(p.PeakHours),
		strconv.FormatFloat(p.ReservationRate, 'g', -1, 64),
		strconv.FormatBool(p.ScheduledMode),
		strconv.FormatFloat(p.ScheduleGapMinutes, 'g', -1, 64),
	}
	for _, f := range fields {
		_, _ = h.WriteString(f)
		_, _ = h.WriteString("|")
	}
	return ComparisonKeyPrefix + strconv.FormatUint(h.Sum64(), 16)
}

// CacheComparison сохраняет результат сравнения и добавляет его в список последних
func (r *RedisCache) CacheComparison(ctx context.Context, p models.QueueingParameters, res models.ComparisonResult) error {
	data, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("failed to marshal comparison: %w", err)
	}

	pipe := r.client.Pipeline()
	pipe.Set(ctx, ComparisonKey(p), data, r.ttl)
	pipe.LPush(ctx, RecentComparisonsKey, data)
	pipe.LTrim(ctx, RecentComparisonsKey, 0, RecentLimit-1)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to cache comparison: %w", err)
	}
	return nil
}

// GetComparison возвращает ранее вычисленное сравнение или ErrMiss
func (r *RedisCache) GetComparison(ctx context.Context, p models.QueueingParameters) (models.ComparisonResult, error) {
	var res models.ComparisonResult

	data, err := r.client.Get(ctx, ComparisonKey(p)).Bytes()
	if errors.Is(err, redis.Nil) {
		return res, ErrMiss
	}
	if err != nil {
		return res, fmt.Errorf("failed to get comparison: %w", err)
	}

	if err := json.Unmarshal(data, &res); err != nil {
		return res, fmt.Errorf("failed to unmarshal comparison: %w", err)
	}
	return res, nil
}

// RecentComparisons возвращает последние count сравнений
func (r *RedisCache) RecentComparisons(ctx context.Context, count int64) ([]models.ComparisonResult, error) {
	data, err := r.client.LRange(ctx, RecentComparisonsKey, 0, count-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get recent comparisons: %w", err)
	}

	results := make([]models.ComparisonResult, 0, len(data))
	for _, d := range data {
		var res models.ComparisonResult
		if err := json.Unmarshal([]byte(d), &res); err != nil {
			continue
		}
		results = append(results, res)
	}
	return results, nil
}

// IncrementCounter увеличивает счетчик
func (r *RedisCache) IncrementCounter(ctx context.Context, key string) (int64, error) {
	return r.client.Incr(ctx, key).Result()
}

// GetCounter возвращает значение счетчика, 0 если его нет
func (r *RedisCache) GetCounter(ctx context.Context, key string) (int64, error) {
	val, err := r.client.Get(ctx, key).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return val, err
}

// Ping проверяет соединение с Redis
func (r *RedisCache) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close закрывает соединение
func (r *RedisCache) Close() error {
	return r.client.Close()
}
