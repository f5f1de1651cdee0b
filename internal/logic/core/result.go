package core

// Status 是验证结论分级。由聚合计数推导，调用方不得直接指定。
type Status string

const (
	// 抽样解码分级
	StatusVerified              Status = "verified"
	StatusPartial               Status = "partial"
	StatusOutdated              Status = "outdated"
	StatusInvalid               Status = "invalid"
	StatusNoProgramInstructions Status = "no_program_instructions"

	// 仅存在性检查的粗粒度分级
	StatusProgramNotFound Status = "program_not_found"
	StatusNoProgramID     Status = "no_program_id"
	StatusPlaceholder     Status = "placeholder"
	StatusRPCError        Status = "rpc_error"
	StatusPending         Status = "pending"

	// 协议级处理抛错时的兜底分级
	StatusFailed Status = "failed"
)

// 解码尝试的指令来源
const (
	SourceTopLevel = "top-level"
	SourceNested   = "nested"
)

// DecodeAttempt 记录一次指令级解码尝试，按交易扫描生成，不做持久化。
// 成功时 Instruction 为解码出的指令名；失败时 Discriminator 为前缀的定长 hex。
type DecodeAttempt struct {
	Signature     string `json:"signature"`
	Source        string `json:"source"`
	OK            bool   `json:"ok"`
	Instruction   string `json:"instruction,omitempty"`
	Discriminator string `json:"discriminator,omitempty"`
}

// ProgramStatus 是单个候选程序地址的检查结论。
type ProgramStatus struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Network string `json:"network"`
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
}

// ResultDetails 携带本次验证的度量信息，仅作展示，不参与分级判定
//（分级只由 DecodeAttempt 聚合计数决定）。
type ResultDetails struct {
	IDLHash              string         `json:"idl_hash,omitempty"`
	InstructionCount     int            `json:"instruction_count"`
	AccountCount         int            `json:"account_count"`
	SampledTxCount       int            `json:"sampled_tx_count,omitempty"`
	SuccessRate          *float64       `json:"success_rate,omitempty"`     // 百分比，0~100
	CoveragePercent      *int           `json:"coverage_percent,omitempty"` // 整数百分比
	DecodedInstructions  map[string]int `json:"decoded_instructions,omitempty"`
	FailedDiscriminators map[string]int `json:"failed_discriminators,omitempty"`
	StubLikely           bool           `json:"stub_likely,omitempty"`
}

// VerificationResult 是单个协议在一轮验证中的最终结论。
// 每轮整体替换同一协议的旧结果，不做增量合并。
type VerificationResult struct {
	ProtocolID string          `json:"protocol_id"`
	Status     Status          `json:"status"`
	Message    string          `json:"message,omitempty"`
	Programs   []ProgramStatus `json:"programs,omitempty"`
	Details    *ResultDetails  `json:"details,omitempty"`
	Timestamp  int64           `json:"timestamp"`
}

// VerificationRun 是一轮完整验证的聚合结果，在轮次结束时冻结入库。
type VerificationRun struct {
	StartedAt  int64 `json:"started_at"`
	DurationMs int64 `json:"duration_ms"`

	Verified    int `json:"verified"`
	Partial     int `json:"partial"`
	Placeholder int `json:"placeholder"`
	NoProgram   int `json:"no_program"`
	RPCError    int `json:"rpc_error"`
	Failed      int `json:"failed"`

	TotalPrograms    int `json:"total_programs"`
	VerifiedPrograms int `json:"verified_programs"`

	// 运行级错误（如某网络全部 endpoint 不可达），不影响已完成部分的计数
	Error string `json:"error,omitempty"`

	Protocols []*VerificationResult `json:"protocols"`
}
