package txadapter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idl-verifier-sol/internal/logic/core"
	"idl-verifier-sol/internal/types"
)

func pk(tag byte) types.Pubkey {
	var p types.Pubkey
	p[0] = tag
	return p
}

// 完整账户表的拼接顺序必须是 静态 → lookup writable → lookup readonly，
// programIdIndex 按该顺序取下标
func TestResolveAccountKeys_Order(t *testing.T) {
	tx := &core.FetchedTx{
		StaticKeys:     []types.Pubkey{pk(1), pk(2)},
		LoadedWritable: []types.Pubkey{pk(3)},
		LoadedReadonly: []types.Pubkey{pk(4), pk(5)},
	}

	keys := ResolveAccountKeys(tx)
	require.Len(t, keys, 5)
	for i, want := range []byte{1, 2, 3, 4, 5} {
		assert.Equal(t, pk(want), keys[i], "下标 %d 的账户顺序不符", i)
	}
}

func TestResolveAccountKeys_NoLookup(t *testing.T) {
	tx := &core.FetchedTx{StaticKeys: []types.Pubkey{pk(9)}}
	keys := ResolveAccountKeys(tx)
	require.Len(t, keys, 1)
	assert.Equal(t, pk(9), keys[0])
}

// 程序地址在 lookup readonly 段时也要能定位
func TestProgramIndex(t *testing.T) {
	keys := []types.Pubkey{pk(1), pk(2), pk(3), pk(4)}

	idx, ok := ProgramIndex(keys, pk(4))
	require.True(t, ok)
	assert.Equal(t, uint16(3), idx)

	_, ok = ProgramIndex(keys, pk(99))
	assert.False(t, ok, "不在账户表中的程序不应命中")
}
