package ledger

import (
	"sort"

	"idl-verifier-sol/internal/consts"
)

// Endpoint 是一个带显式优先级的 RPC 接入点。优先级数值越小越先尝试，
// 不依赖数组位置的隐含语义。
type Endpoint struct {
	URL      string `yaml:"url"`
	Priority int    `yaml:"priority"`
}

// NetworkEndpoints 是某个网络（mainnet / devnet）的接入点集合。
type NetworkEndpoints struct {
	Network   string     `yaml:"network"`
	Endpoints []Endpoint `yaml:"endpoints"`
}

// ordered 返回按优先级升序排列的副本。
func (n NetworkEndpoints) ordered() []Endpoint {
	out := make([]Endpoint, len(n.Endpoints))
	copy(out, n.Endpoints)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Priority < out[j].Priority
	})
	return out
}

// DefaultEndpoints 是未配置时的兜底接入点。
func DefaultEndpoints() []NetworkEndpoints {
	return []NetworkEndpoints{
		{
			Network: consts.NetworkMainnet,
			Endpoints: []Endpoint{
				{URL: "https://api.mainnet-beta.solana.com", Priority: 1},
				{URL: "https://solana-rpc.publicnode.com", Priority: 2},
			},
		},
		{
			Network: consts.NetworkDevnet,
			Endpoints: []Endpoint{
				{URL: "https://api.devnet.solana.com", Priority: 1},
			},
		},
	}
}
