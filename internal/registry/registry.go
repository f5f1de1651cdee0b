package registry

import (
	"sort"
	"strings"

	"idl-verifier-sol/internal/consts"
	"idl-verifier-sol/internal/idl"
	"idl-verifier-sol/internal/logic/core"
	"idl-verifier-sol/internal/types"
)

// Entry 是静态映射表中的一条程序记录。
type Entry struct {
	Name    string `yaml:"name"`
	Address string `yaml:"address"`
	Network string `yaml:"network"`
}

// Registry 负责把协议 ID 解析为候选程序地址。
// 解析顺序：静态精确 → 大小写归一 → 分隔符归一 → 子串模糊 → IDL 内嵌地址。
// 候选按地址去重，先出现者优先。
type Registry struct {
	mappings map[string][]Entry
	fuzzy    bool // 子串模糊匹配开关（启发式，见配置）
}

// New 构建带内置已知映射表的注册解析器。
func New(enableFuzzy bool) *Registry {
	r := &Registry{
		mappings: make(map[string][]Entry, len(builtinMappings)),
		fuzzy:    enableFuzzy,
	}
	for id, entries := range builtinMappings {
		r.mappings[id] = entries
	}
	return r
}

// AddMapping 追加或覆盖一条静态映射（配置扩展用）。
func (r *Registry) AddMapping(id string, entries ...Entry) {
	r.mappings[strings.ToLower(id)] = entries
}

// builtinMappings 是内置的 协议 ID → 链上程序 映射。
// 一个协议可对应多个程序（如 Jupiter 的 router / v4 / DCA）。
var builtinMappings = map[string][]Entry{
	"raydium-amm": {
		{Name: "Raydium AMM V4", Address: consts.RaydiumV4ProgramStr, Network: consts.NetworkMainnet},
	},
	"raydium-clmm": {
		{Name: "Raydium CLMM", Address: consts.RaydiumCLMMProgramStr, Network: consts.NetworkMainnet},
	},
	"raydium-cpmm": {
		{Name: "Raydium CPMM", Address: consts.RaydiumCPMMProgramStr, Network: consts.NetworkMainnet},
	},
	"pumpfun": {
		{Name: "Pump.fun Bonding Curve", Address: consts.PumpFunProgramStr, Network: consts.NetworkMainnet},
	},
	"pumpfun-amm": {
		{Name: "Pump.fun AMM", Address: consts.PumpFunAMMProgramStr, Network: consts.NetworkMainnet},
	},
	"meteora-dlmm": {
		{Name: "Meteora DLMM", Address: consts.MeteoraDLMMProgramStr, Network: consts.NetworkMainnet},
	},
	"orca-whirlpool": {
		{Name: "Orca Whirlpool", Address: consts.OrcaWhirlpoolProgramStr, Network: consts.NetworkMainnet},
	},
	"jupiter": {
		{Name: "Jupiter Aggregator V6", Address: consts.JupiterV6ProgramStr, Network: consts.NetworkMainnet},
		{Name: "Jupiter Aggregator V4", Address: consts.JupiterV4ProgramStr, Network: consts.NetworkMainnet},
		{Name: "Jupiter DCA", Address: consts.JupiterDCAProgramStr, Network: consts.NetworkMainnet},
	},
	"spl-token": {
		{Name: "SPL Token Program", Address: consts.TokenProgramStr, Network: consts.NetworkMainnet},
	},
}

// constantDenyList 过滤 IDL 常量中明显不是程序地址的命名（mint、金库、权限类）。
var constantDenyList = []string{
	"mint", "token", "pool", "vault", "treasury", "authority", "admin", "fee", "reward",
}

// Resolve 把协议 ID 解析为候选程序地址列表；无候选时返回空切片。
// doc 可为 nil（无 IDL 文档时只走映射表）。
func (r *Registry) Resolve(protocolID string, doc *idl.Document) []core.ProgramCandidate {
	var out []core.ProgramCandidate
	seen := make(map[string]struct{})

	add := func(name, address, network, source string) {
		if address == "" {
			return
		}
		if _, dup := seen[address]; dup {
			return
		}
		seen[address] = struct{}{}
		if network == "" {
			network = consts.NetworkMainnet
		}
		out = append(out, core.ProgramCandidate{
			Name:    name,
			Address: address,
			Network: network,
			Source:  source,
		})
	}
	addEntries := func(entries []Entry, source string) {
		for _, e := range entries {
			add(e.Name, e.Address, e.Network, source)
		}
	}

	// 1. 精确命中
	if entries, ok := r.mappings[protocolID]; ok {
		addEntries(entries, core.SourceKnownMapping)
	}

	// 2. 大小写归一，再做 - / _ 分隔符归一
	lower := strings.ToLower(protocolID)
	if entries, ok := r.mappings[lower]; ok {
		addEntries(entries, core.SourceKnownMapping)
	}
	for _, alt := range []string{
		strings.ReplaceAll(lower, "_", "-"),
		strings.ReplaceAll(lower, "-", "_"),
	} {
		if entries, ok := r.mappings[alt]; ok {
			addEntries(entries, core.SourceKnownMapping)
		}
	}

	// 3. 子串模糊：双向包含，分隔符剥离后再比一次；按 key 序首个命中即止
	if r.fuzzy && len(out) == 0 {
		stripped := stripSeparators(lower)
		keys := make([]string, 0, len(r.mappings))
		for key := range r.mappings {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			keyStripped := stripSeparators(key)
			if strings.Contains(lower, key) || strings.Contains(key, lower) ||
				strings.Contains(stripped, keyStripped) || strings.Contains(keyStripped, stripped) {
				addEntries(r.mappings[key], core.SourceFuzzyMatch)
				break
			}
		}
	}

	// 4. IDL 内嵌地址：metadata.address / 顶层 address / 字符串常量
	if doc != nil {
		if addr := doc.EmbeddedAddress(); types.IsBase58Address(addr) {
			add(doc.Name, addr, "", core.SourceExplicitMetadata)
		}
		for _, c := range doc.Constants {
			if t, ok := c.TypeString(); !ok || t != "string" {
				continue
			}
			v := c.StringValue()
			if !types.IsBase58Address(v) {
				continue
			}
			if deniedConstantName(c.Name) {
				continue
			}
			add(c.Name, v, "", core.SourceSchemaConstant)
		}
	}

	return out
}

func deniedConstantName(name string) bool {
	lower := strings.ToLower(name)
	for _, term := range constantDenyList {
		if strings.Contains(lower, term) {
			return true
		}
	}
	return false
}

func stripSeparators(s string) string {
	s = strings.ReplaceAll(s, "-", "")
	return strings.ReplaceAll(s, "_", "")
}
