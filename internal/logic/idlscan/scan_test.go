package idlscan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idl-verifier-sol/internal/idl"
	"idl-verifier-sol/internal/logic/core"
)

func swapDecoder(t *testing.T) *idl.Decoder {
	t.Helper()
	doc, err := idl.Parse([]byte(`{
		"name": "amm",
		"version": "0.1.0",
		"instructions": [
			{"name": "swap", "accounts": [], "args": []},
			{"name": "deposit", "accounts": [], "args": []}
		]
	}`))
	require.NoError(t, err)
	return idl.NewDecoder(doc)
}

func ixFor(name string, programIndex uint16) core.CompiledIx {
	d := idl.AnchorDiscriminator(name)
	return core.CompiledIx{ProgramIDIndex: programIndex, Data: d[:]}
}

// 顶层与 inner（CPI）指令都要纳入扫描，且只扫指向候选程序的指令
func TestScanTx_TopLevelAndNested(t *testing.T) {
	tx := &core.FetchedTx{
		Signature: "sig-1",
		Instructions: []core.CompiledIx{
			ixFor("swap", 7),
			ixFor("swap", 3), // 其他程序，应被跳过
		},
		Inner: []core.InnerIxGroup{
			{IxIndex: 0, Instructions: []core.CompiledIx{
				ixFor("deposit", 7),
				{ProgramIDIndex: 7, Data: []byte{0xDE, 0xAD, 0xBE, 0xEF, 0, 0, 0, 0}},
			}},
		},
	}

	attempts := ScanTx(tx, 7, swapDecoder(t))
	require.Len(t, attempts, 3, "1 条顶层 + 2 条 inner")

	assert.Equal(t, core.SourceTopLevel, attempts[0].Source)
	assert.True(t, attempts[0].OK)
	assert.Equal(t, "swap", attempts[0].Instruction)

	assert.Equal(t, core.SourceNested, attempts[1].Source)
	assert.Equal(t, "deposit", attempts[1].Instruction)

	assert.False(t, attempts[2].OK, "未声明的判别前缀应记为失败样本")
	assert.Equal(t, "deadbeef00000000", attempts[2].Discriminator)
	assert.Equal(t, "sig-1", attempts[2].Signature)
}

func TestScanTx_NoMatchingInstruction(t *testing.T) {
	tx := &core.FetchedTx{
		Instructions: []core.CompiledIx{ixFor("swap", 1)},
	}
	assert.Empty(t, ScanTx(tx, 9, swapDecoder(t)), "交易未调用候选程序时不产生样本")
}

// 单条指令解码失败不得中断整笔扫描
func TestScanTx_FailureDoesNotAbort(t *testing.T) {
	tx := &core.FetchedTx{
		Instructions: []core.CompiledIx{
			{ProgramIDIndex: 2, Data: []byte{1}}, // 不足 8 字节
			ixFor("swap", 2),
		},
	}

	attempts := ScanTx(tx, 2, swapDecoder(t))
	require.Len(t, attempts, 2)
	assert.False(t, attempts[0].OK)
	assert.True(t, attempts[1].OK)
}
