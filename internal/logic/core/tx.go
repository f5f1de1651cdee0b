package core

import "idl-verifier-sol/internal/types"

// AccountInfo 表示一次 getAccountInfo 查询的结果快照。
// Exists=false 且无 error 表示账户确实不存在（区别于 RPC 失败）。
type AccountInfo struct {
	Exists     bool
	Executable bool
	Owner      types.Pubkey
	Lamports   uint64
	DataLen    int
}

// SignatureInfo 表示地址签名列表中的一项。
type SignatureInfo struct {
	Signature string
	Slot      uint64
	BlockTime int64
	Failed    bool // 交易执行失败（meta.err 非空）
}

// CompiledIx 是编译态指令的最小表示：programIdIndex 与账户索引均指向
// 完整账户表（静态 + lookup 扩展），Data 已统一为原始字节。
type CompiledIx struct {
	ProgramIDIndex uint16
	Accounts       []uint16
	Data           []byte
}

// InnerIxGroup 表示某条主指令执行期间产生的全部 CPI 指令。
type InnerIxGroup struct {
	IxIndex      uint16 // 对应主指令索引
	Instructions []CompiledIx
}

// FetchedTx 是从 RPC 拉取并归一化后的交易结构，是指令扫描的唯一输入。
// 三段账户来源分开保存，拼接顺序由 txadapter 统一负责。
type FetchedTx struct {
	Signature      string
	Slot           uint64
	BlockTime      int64
	StaticKeys     []types.Pubkey
	LoadedWritable []types.Pubkey
	LoadedReadonly []types.Pubkey
	Instructions   []CompiledIx
	Inner          []InnerIxGroup
}
