package ledger

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// message 指令与 meta 中的 inner 指令在 RPC 层是两个不同结构，
// 归一化后必须得到相同形状的 CompiledIx
func TestCompileIx_MessageInstruction(t *testing.T) {
	raw := []byte{0xDE, 0xAD, 0xBE, 0xEF}
	got := compileIx(solana.CompiledInstruction{
		ProgramIDIndex: 3,
		Accounts:       []uint16{1, 2, 5},
		Data:           solana.Base58(raw),
	})

	assert.Equal(t, uint16(3), got.ProgramIDIndex)
	assert.Equal(t, []uint16{1, 2, 5}, got.Accounts)
	assert.Equal(t, raw, got.Data)
}

func TestCompileInnerIx_MetaInstruction(t *testing.T) {
	raw := []byte{0x01, 0x02}
	got := compileInnerIx(rpc.CompiledInstruction{
		ProgramIDIndex: 7,
		Accounts:       []uint16{0},
		Data:           solana.Base58(raw),
	})

	assert.Equal(t, uint16(7), got.ProgramIDIndex)
	assert.Equal(t, []uint16{0}, got.Accounts)
	assert.Equal(t, raw, got.Data)
}

func TestCompileIx_EmptyData(t *testing.T) {
	got := compileInnerIx(rpc.CompiledInstruction{ProgramIDIndex: 1})
	require.Empty(t, got.Data)
	assert.Empty(t, got.Accounts)
}
