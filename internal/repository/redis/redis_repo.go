package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Taverna-Hub/Projeto-AVD/internal/domain/entity"
)

const (
	runningKey   = "sync:running"
	lastCycleKey = "sync:last_cycle"
	cycleKeyFmt  = "sync:cycle:%s"

	cycleTTL = 24 * time.Hour
)

// RedisRepo mirrors the monitor state so the HTTP surface (and anything
// else on the network) can read it without touching the sync worker.
type RedisRepo struct {
	client *redis.Client
}

func NewRedisRepo(client *redis.Client) *RedisRepo {
	return &RedisRepo{client: client}
}

func (r *RedisRepo) SetRunning(ctx context.Context, running bool) error {
	value := "0"
	if running {
		value = "1"
	}
	return r.client.Set(ctx, runningKey, value, 0).Err()
}

func (r *RedisRepo) Running(ctx context.Context) (bool, error) {
	value, err := r.client.Get(ctx, runningKey).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return value == "1", nil
}

// SaveCycle stores the summary both as "latest" and under its cycle id,
// the latter with a TTL so old cycles age out.
func (r *RedisRepo) SaveCycle(ctx context.Context, summary entity.CycleSummary) error {
	body, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("marshal cycle summary: %w", err)
	}

	if err := r.client.Set(ctx, lastCycleKey, body, 0).Err(); err != nil {
		return err
	}
	return r.client.Set(ctx, fmt.Sprintf(cycleKeyFmt, summary.CycleID), body, cycleTTL).Err()
}

func (r *RedisRepo) LastCycle(ctx context.Context) (*entity.CycleSummary, error) {
	body, err := r.client.Get(ctx, lastCycleKey).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var summary entity.CycleSummary
	if err := json.Unmarshal(body, &summary); err != nil {
		return nil, fmt.Errorf("unmarshal cycle summary: %w", err)
	}
	return &summary, nil
}
