package history

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idl-verifier-sol/internal/logic/core"
)

func runAt(ts int64, protocols ...*core.VerificationResult) *core.VerificationRun {
	return &core.VerificationRun{
		StartedAt: ts,
		Protocols: protocols,
	}
}

// 容量上限不可突破：写入 maxRuns+N 轮后长度恒为 maxRuns，最旧的先被逐出
func TestStore_CapacityEviction(t *testing.T) {
	s := NewStore(3, 10)
	for i := 1; i <= 5; i++ {
		s.Record(runAt(int64(i)))
	}

	require.Equal(t, 3, s.Len())
	runs := s.History()
	assert.Equal(t, int64(5), runs[0].StartedAt, "最新一轮应在头部")
	assert.Equal(t, int64(3), runs[2].StartedAt, "1、2 两轮应已被逐出")
}

func TestStore_LatestEmpty(t *testing.T) {
	s := NewStore(0, 0)
	assert.Nil(t, s.Latest())
	assert.Empty(t, s.History())
}

// 每轮写入整体覆盖各协议的最近结果
func TestStore_ForProtocolOverwrite(t *testing.T) {
	s := NewStore(10, 10)
	s.Record(runAt(1, &core.VerificationResult{ProtocolID: "raydium-amm", Status: core.StatusPartial}))
	s.Record(runAt(2, &core.VerificationResult{ProtocolID: "raydium-amm", Status: core.StatusVerified}))

	res, ok := s.ForProtocol("raydium-amm")
	require.True(t, ok)
	assert.Equal(t, core.StatusVerified, res.Status, "后一轮应覆盖前一轮")

	_, ok = s.ForProtocol("unknown")
	assert.False(t, ok)
}

// 即便某轮被逐出历史列表，其协议最近结果仍保留（只被后续轮覆盖）
func TestStore_ProtocolSurvivesEviction(t *testing.T) {
	s := NewStore(1, 10)
	s.Record(runAt(1, &core.VerificationResult{ProtocolID: "jupiter", Status: core.StatusVerified}))
	s.Record(runAt(2, &core.VerificationResult{ProtocolID: "pumpfun", Status: core.StatusPartial}))

	require.Equal(t, 1, s.Len())
	_, ok := s.ForProtocol("jupiter")
	assert.True(t, ok)
}

// 无历史时 Summary 显式表示无数据，而不是 0%
func TestSummary_NoData(t *testing.T) {
	s := NewStore(10, 10)
	sum := s.Summary()
	assert.False(t, sum.HasData)
	assert.Nil(t, sum.ProtocolVerifiedPct)
	assert.Nil(t, sum.ProgramVerifiedPct)
}

// 分母为零的比率以 nil 表示，不得出现 NaN
func TestSummary_ZeroDenominator(t *testing.T) {
	s := NewStore(10, 10)
	s.Record(&core.VerificationRun{StartedAt: 1}) // 零协议、零程序

	sum := s.Summary()
	require.True(t, sum.HasData)
	assert.Nil(t, sum.ProtocolVerifiedPct, "0 个协议时比率应为无数据")
	assert.Nil(t, sum.ProgramVerifiedPct, "0 个程序时比率应为无数据")
}

func TestSummary_Percentages(t *testing.T) {
	s := NewStore(10, 10)
	run := runAt(100,
		&core.VerificationResult{ProtocolID: "a", Status: core.StatusVerified},
		&core.VerificationResult{ProtocolID: "b", Status: core.StatusPartial},
	)
	run.Verified = 1
	run.TotalPrograms = 4
	run.VerifiedPrograms = 3
	s.Record(run)

	sum := s.Summary()
	require.True(t, sum.HasData)
	require.NotNil(t, sum.ProtocolVerifiedPct)
	assert.InDelta(t, 50.0, *sum.ProtocolVerifiedPct, 1e-9)
	require.NotNil(t, sum.ProgramVerifiedPct)
	assert.InDelta(t, 75.0, *sum.ProgramVerifiedPct, 1e-9)
	assert.Equal(t, int64(100), sum.LastRunAt)
}

// 滚动窗口不超过配置宽度，且保持最新在前
func TestSummary_Window(t *testing.T) {
	s := NewStore(20, 3)
	for i := 1; i <= 6; i++ {
		run := runAt(int64(i), &core.VerificationResult{ProtocolID: fmt.Sprintf("p%d", i)})
		if i == 6 {
			run.Error = "endpoint unreachable"
		}
		s.Record(run)
	}

	sum := s.Summary()
	require.Len(t, sum.Window, 3)
	assert.Equal(t, int64(6), sum.Window[0].StartedAt)
	assert.True(t, sum.Window[0].HasError)
	assert.False(t, sum.Window[1].HasError)
}

func TestStore_Reset(t *testing.T) {
	s := NewStore(10, 10)
	s.Record(runAt(1, &core.VerificationResult{ProtocolID: "a"}))
	s.Reset()

	assert.Zero(t, s.Len())
	_, ok := s.ForProtocol("a")
	assert.False(t, ok)
}

func TestStore_RecordNil(t *testing.T) {
	s := NewStore(10, 10)
	s.Record(nil)
	assert.Zero(t, s.Len())
}
