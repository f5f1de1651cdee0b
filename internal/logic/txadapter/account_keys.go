package txadapter

import (
	"idl-verifier-sol/internal/logic/core"
	"idl-verifier-sol/internal/types"
)

// ResolveAccountKeys 构造交易的完整账户 Pubkey 列表。
// 拼接顺序必须严格为：message 静态账户 → lookup table writable → lookup table readonly，
// 下游指令的 programIdIndex 直接按此列表取下标，顺序偏差会把指令归到错误的程序。
func ResolveAccountKeys(tx *core.FetchedTx) []types.Pubkey {
	total := len(tx.StaticKeys) + len(tx.LoadedWritable) + len(tx.LoadedReadonly)
	keys := make([]types.Pubkey, 0, total)
	keys = append(keys, tx.StaticKeys...)
	keys = append(keys, tx.LoadedWritable...)
	keys = append(keys, tx.LoadedReadonly...)
	return keys
}

// ProgramIndex 返回候选程序地址在完整账户表中的下标。
// 地址不在表中说明该交易不包含对此程序的调用，整笔交易不贡献样本。
func ProgramIndex(keys []types.Pubkey, program types.Pubkey) (uint16, bool) {
	for i, k := range keys {
		if k == program {
			return uint16(i), true
		}
	}
	return 0, false
}
