package history

import (
	"sync"

	"idl-verifier-sol/internal/logic/core"
)

const (
	DefaultMaxRuns       = 50
	DefaultSummaryWindow = 10
)

// Store 是运行历史的进程内存储：定长环形列表（最新在前，超出容量先逐出最旧），
// 外加 协议 ID → 最近一次结果 的映射（每轮整体覆盖）。
// 显式构造、显式传递，不做包级单例；Reset 是唯一的清空入口。
type Store struct {
	mu               sync.RWMutex
	maxRuns          int
	window           int
	runs             []*core.VerificationRun
	latestByProtocol map[string]*core.VerificationResult
}

func NewStore(maxRuns, window int) *Store {
	if maxRuns <= 0 {
		maxRuns = DefaultMaxRuns
	}
	if window <= 0 {
		window = DefaultSummaryWindow
	}
	return &Store{
		maxRuns:          maxRuns,
		window:           window,
		latestByProtocol: make(map[string]*core.VerificationResult),
	}
}

// Record 头部插入一轮结果并截断到容量上限，同时覆盖各协议的最近结果。
func (s *Store) Record(run *core.VerificationRun) {
	if run == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.runs = append([]*core.VerificationRun{run}, s.runs...)
	if len(s.runs) > s.maxRuns {
		s.runs = s.runs[:s.maxRuns]
	}
	for _, res := range run.Protocols {
		s.latestByProtocol[res.ProtocolID] = res
	}
}

func (s *Store) Latest() *core.VerificationRun {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.runs) == 0 {
		return nil
	}
	return s.runs[0]
}

func (s *Store) History() []*core.VerificationRun {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*core.VerificationRun, len(s.runs))
	copy(out, s.runs)
	return out
}

func (s *Store) ForProtocol(id string) (*core.VerificationResult, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res, ok := s.latestByProtocol[id]
	return res, ok
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.runs)
}

// Reset 清空全部历史，仅供显式生命周期管理调用。
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs = nil
	s.latestByProtocol = make(map[string]*core.VerificationResult)
}

// WindowEntry 是 Summary 滚动窗口中的一项（uptime 风格展示用）。
type WindowEntry struct {
	StartedAt   int64    `json:"started_at"`
	VerifiedPct *float64 `json:"verified_pct,omitempty"`
	HasError    bool     `json:"has_error"`
}

// Summary 是历史的派生统计。分母为零的比率以 nil 表示“无数据”，
// 不向上传播 NaN。
type Summary struct {
	HasData             bool          `json:"has_data"`
	TotalRuns           int           `json:"total_runs"`
	LastRunAt           int64         `json:"last_run_at,omitempty"`
	ProtocolVerifiedPct *float64      `json:"protocol_verified_pct,omitempty"`
	ProgramVerifiedPct  *float64      `json:"program_verified_pct,omitempty"`
	Window              []WindowEntry `json:"window,omitempty"`
}

func (s *Store) Summary() Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.runs) == 0 {
		return Summary{HasData: false}
	}

	latest := s.runs[0]
	sum := Summary{
		HasData:             true,
		TotalRuns:           len(s.runs),
		LastRunAt:           latest.StartedAt,
		ProtocolVerifiedPct: pct(latest.Verified, len(latest.Protocols)),
		ProgramVerifiedPct:  pct(latest.VerifiedPrograms, latest.TotalPrograms),
	}

	n := s.window
	if n > len(s.runs) {
		n = len(s.runs)
	}
	for _, run := range s.runs[:n] {
		sum.Window = append(sum.Window, WindowEntry{
			StartedAt:   run.StartedAt,
			VerifiedPct: pct(run.Verified, len(run.Protocols)),
			HasError:    run.Error != "",
		})
	}
	return sum
}

func pct(part, total int) *float64 {
	if total == 0 {
		return nil
	}
	v := float64(part) / float64(total) * 100
	return &v
}
