package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idl-verifier-sol/internal/consts"
)

// 接入点按 priority 数值升序尝试，与配置中的书写顺序无关
func TestOrdered_ByPriority(t *testing.T) {
	n := NetworkEndpoints{
		Network: consts.NetworkMainnet,
		Endpoints: []Endpoint{
			{URL: "https://backup.example.com", Priority: 3},
			{URL: "https://primary.example.com", Priority: 1},
			{URL: "https://secondary.example.com", Priority: 2},
		},
	}

	got := n.ordered()
	require.Len(t, got, 3)
	assert.Equal(t, "https://primary.example.com", got[0].URL)
	assert.Equal(t, "https://secondary.example.com", got[1].URL)
	assert.Equal(t, "https://backup.example.com", got[2].URL)

	// 原切片顺序不被修改
	assert.Equal(t, "https://backup.example.com", n.Endpoints[0].URL)
}

// 同优先级保持书写顺序（稳定排序）
func TestOrdered_StableOnTie(t *testing.T) {
	n := NetworkEndpoints{
		Endpoints: []Endpoint{
			{URL: "a", Priority: 1},
			{URL: "b", Priority: 1},
		},
	}
	got := n.ordered()
	assert.Equal(t, "a", got[0].URL)
	assert.Equal(t, "b", got[1].URL)
}

func TestDefaultEndpoints(t *testing.T) {
	defaults := DefaultEndpoints()
	require.Len(t, defaults, 2)

	byNetwork := make(map[string]NetworkEndpoints)
	for _, n := range defaults {
		byNetwork[n.Network] = n
	}
	require.Contains(t, byNetwork, consts.NetworkMainnet)
	require.Contains(t, byNetwork, consts.NetworkDevnet)
	assert.GreaterOrEqual(t, len(byNetwork[consts.NetworkMainnet].Endpoints), 2,
		"mainnet 应至少配置主备两个接入点")
}
