package history

import (
	"context"

	"idl-verifier-sol/internal/logic/core"
	"idl-verifier-sol/pkg/logger"
)

// Manager 统一封装 内存环 + Redis 镜像 + DB 归档。
// 持久化是尽力而为：任何一层写失败只打日志，不影响已算出的内存结果。
type Manager struct {
	mem     *Store
	redis   *RedisStore // 可为 nil
	db      *DBStore    // 可为 nil
	maxRuns int
}

func NewManager(mem *Store, redis *RedisStore, db *DBStore) *Manager {
	return &Manager{
		mem:     mem,
		redis:   redis,
		db:      db,
		maxRuns: mem.maxRuns,
	}
}

// Record 记录一轮结果：内存必达，Redis / DB 尽力。
func (m *Manager) Record(ctx context.Context, run *core.VerificationRun) {
	m.mem.Record(run)

	if m.redis != nil {
		if err := m.redis.SaveRun(ctx, run, m.maxRuns); err != nil {
			logger.Warnf("[history] Redis 写入失败: %v", err)
		}
	}
	if m.db != nil {
		if err := m.db.InsertRun(ctx, run); err != nil {
			logger.Warnf("[history] DB 归档失败: %v", err)
		} else if err := m.db.PruneOld(ctx, m.maxRuns); err != nil {
			logger.Warnf("[history] DB 清理失败: %v", err)
		}
	}
}

// Restore 进程启动时从 DB（优先）或 Redis 回填内存历史。
func (m *Manager) Restore(ctx context.Context) {
	var runs []*core.VerificationRun
	var err error

	switch {
	case m.db != nil:
		runs, err = m.db.LoadRecent(ctx, m.maxRuns)
	case m.redis != nil:
		runs, err = m.redis.LoadHistory(ctx, m.maxRuns)
	default:
		return
	}
	if err != nil {
		logger.Warnf("[history] 历史回填失败: %v", err)
		return
	}

	// LoadRecent 返回最新在前，逆序 Record 保持内存环顺序一致
	for i := len(runs) - 1; i >= 0; i-- {
		m.mem.Record(runs[i])
	}
	if len(runs) > 0 {
		logger.Infof("[history] 回填 %d 轮历史", len(runs))
	}
}

func (m *Manager) Latest() *core.VerificationRun  { return m.mem.Latest() }
func (m *Manager) History() []*core.VerificationRun { return m.mem.History() }
func (m *Manager) Summary() Summary               { return m.mem.Summary() }

func (m *Manager) ForProtocol(id string) (*core.VerificationResult, bool) {
	return m.mem.ForProtocol(id)
}
