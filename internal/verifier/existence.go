package verifier

import (
	"context"
	"errors"
	"fmt"

	"idl-verifier-sol/internal/ledger"
	"idl-verifier-sol/internal/types"
)

// ExistenceReport 是单个候选地址的存在性检查结果。
// 网络与解码失败一律收敛进 Err 字段，不向调用方抛 Go error；
// Connectivity 单独标记 endpoint 全挂的情况，供上层中止该网络的后续检查。
type ExistenceReport struct {
	Address      string
	Exists       bool
	Executable   bool
	Owner        string
	DataLen      int
	Lamports     uint64
	Err          string
	Connectivity bool
}

// Live 表示候选是真实可执行的链上程序。
func (r ExistenceReport) Live() bool {
	return r.Exists && r.Executable
}

// CheckExistence 探测候选地址是否为真实、可执行的链上程序。
func CheckExistence(ctx context.Context, gw Gateway, network, address string) ExistenceReport {
	report := ExistenceReport{Address: address}

	if _, err := types.TryPubkeyFromBase58(address); err != nil {
		report.Err = fmt.Sprintf("malformed address: %v", err)
		return report
	}

	info, err := gw.GetAccountInfo(ctx, network, address)
	if err != nil {
		report.Err = err.Error()
		report.Connectivity = errors.Is(err, ledger.ErrConnectivity)
		return report
	}
	if !info.Exists {
		return report
	}

	report.Exists = true
	report.Executable = info.Executable
	report.Owner = info.Owner.String()
	report.DataLen = info.DataLen
	report.Lamports = info.Lamports
	return report
}
