package history

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"idl-verifier-sol/internal/logic/core"
)

// DBStore 把完整运行记录归档到 Postgres。
// 只做冷存档与重启恢复，热路径读写全部走内存与 Redis。
//
// 依赖表结构：
//
//	CREATE TABLE IF NOT EXISTS verification_run (
//	    id          BIGSERIAL PRIMARY KEY,
//	    started_at  BIGINT NOT NULL,
//	    duration_ms BIGINT NOT NULL,
//	    payload     JSONB  NOT NULL
//	);
type DBStore struct {
	pool *pgxpool.Pool
}

func NewDBStore(pool *pgxpool.Pool) *DBStore {
	return &DBStore{pool: pool}
}

// InsertRun 归档一轮结果。
func (d *DBStore) InsertRun(ctx context.Context, run *core.VerificationRun) error {
	payload, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("marshal run: %w", err)
	}
	_, err = d.pool.Exec(ctx,
		`INSERT INTO verification_run (started_at, duration_ms, payload) VALUES ($1, $2, $3)`,
		run.StartedAt, run.DurationMs, payload)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// PruneOld 只保留最近 keep 条归档，控制存储规模。
func (d *DBStore) PruneOld(ctx context.Context, keep int) error {
	_, err := d.pool.Exec(ctx, `
		DELETE FROM verification_run
		WHERE id NOT IN (
			SELECT id FROM verification_run ORDER BY started_at DESC LIMIT $1
		)`, keep)
	if err != nil {
		return fmt.Errorf("prune runs: %w", err)
	}
	return nil
}

// LoadRecent 读取最近 n 轮归档（最新在前），用于进程重启后回填内存历史。
func (d *DBStore) LoadRecent(ctx context.Context, n int) ([]*core.VerificationRun, error) {
	rows, err := d.pool.Query(ctx,
		`SELECT payload FROM verification_run ORDER BY started_at DESC LIMIT $1`, n)
	if err != nil {
		return nil, fmt.Errorf("load recent runs: %w", err)
	}
	defer rows.Close()

	var out []*core.VerificationRun
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan run payload: %w", err)
		}
		var run core.VerificationRun
		if err := json.Unmarshal(payload, &run); err != nil {
			continue
		}
		out = append(out, &run)
	}
	return out, rows.Err()
}
