package history

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"idl-verifier-sol/internal/logic/core"
)

// Redis key 布局
const (
	latestRunKey   = "verify:run:latest"
	runHistoryKey  = "verify:run:history"
	protocolPrefix = "verify:protocol"
)

const resultTTL = 7 * 24 * time.Hour

// RedisStore 把运行历史镜像到 Redis，供状态 API 在进程重启后读取。
// 写失败只向上返回 error，由 Manager 记日志降级。
type RedisStore struct {
	rdb *redis.Client
}

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

// SaveRun 覆盖最新一轮并推入历史列表，LTRIM 保持与内存侧相同的容量上限。
func (r *RedisStore) SaveRun(ctx context.Context, run *core.VerificationRun, maxRuns int) error {
	payload, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("marshal run: %w", err)
	}

	pipe := r.rdb.TxPipeline()
	pipe.Set(ctx, latestRunKey, payload, resultTTL)
	pipe.LPush(ctx, runHistoryKey, payload)
	pipe.LTrim(ctx, runHistoryKey, 0, int64(maxRuns-1))
	pipe.Expire(ctx, runHistoryKey, resultTTL)
	for _, res := range run.Protocols {
		b, err := json.Marshal(res)
		if err != nil {
			continue
		}
		pipe.Set(ctx, fmt.Sprintf("%s:%s", protocolPrefix, res.ProtocolID), b, resultTTL)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis save run: %w", err)
	}
	return nil
}

// LoadHistory 读回持久化的运行列表（最新在前）。
func (r *RedisStore) LoadHistory(ctx context.Context, limit int) ([]*core.VerificationRun, error) {
	rows, err := r.rdb.LRange(ctx, runHistoryKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis load history: %w", err)
	}
	out := make([]*core.VerificationRun, 0, len(rows))
	for _, row := range rows {
		var run core.VerificationRun
		if err := json.Unmarshal([]byte(row), &run); err != nil {
			continue
		}
		out = append(out, &run)
	}
	return out, nil
}
