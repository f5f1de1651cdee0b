package idlscan

import (
	"idl-verifier-sol/internal/idl"
	"idl-verifier-sol/internal/logic/core"
	"idl-verifier-sol/pkg/logger"
)

// ScanTx 对一笔交易中指向候选程序的全部指令做 schema 解码尝试。
// 覆盖顶层指令与 CPI 产生的 inner 指令；单条指令的解码失败只记入
// 失败样本（带判别前缀），绝不中断整笔扫描。
func ScanTx(tx *core.FetchedTx, programIndex uint16, dec *idl.Decoder) []core.DecodeAttempt {
	var attempts []core.DecodeAttempt

	for _, ix := range tx.Instructions {
		if ix.ProgramIDIndex != programIndex {
			continue
		}
		attempts = append(attempts, attempt(tx.Signature, core.SourceTopLevel, ix.Data, dec))
	}

	for _, group := range tx.Inner {
		for _, ix := range group.Instructions {
			if ix.ProgramIDIndex != programIndex {
				continue
			}
			attempts = append(attempts, attempt(tx.Signature, core.SourceNested, ix.Data, dec))
		}
	}

	return attempts
}

func attempt(signature, source string, data []byte, dec *idl.Decoder) core.DecodeAttempt {
	a := core.DecodeAttempt{
		Signature: signature,
		Source:    source,
	}
	name, err := dec.Decode(data)
	if err != nil {
		a.Discriminator = idl.DiscriminatorHex(data)
		logger.Debugf("[idlscan] 解码失败 tx=%s source=%s prefix=%s err=%v", signature, source, a.Discriminator, err)
		return a
	}
	a.OK = true
	a.Instruction = name
	return a
}
