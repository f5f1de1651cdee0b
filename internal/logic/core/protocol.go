package core

// 协议在外部注册表中的可用状态
const (
	ProtocolAvailable   = "available"
	ProtocolPlaceholder = "placeholder"
)

// ProtocolDescriptor 表示外部注册表中的一条协议记录，对本引擎只读。
type ProtocolDescriptor struct {
	ID      string `json:"id" yaml:"id"`
	Name    string `json:"name" yaml:"name"`
	Status  string `json:"status" yaml:"status"`   // available / placeholder
	IDLPath string `json:"idl_path" yaml:"idl_path"` // IDL 文档路径或内容寻址 ID，可为空
	Network string `json:"network" yaml:"network"` // mainnet / devnet
}

// 候选程序地址的来源，决定可信度排序
const (
	SourceExplicitMetadata = "explicit-metadata"
	SourceKnownMapping     = "known-mapping"
	SourceFuzzyMatch       = "fuzzy-match"
	SourceSchemaConstant   = "schema-constant"
)

// ProgramCandidate 表示一次解析得到的候选程序地址，按验证轮次生成，不做持久化。
type ProgramCandidate struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Network string `json:"network"`
	Source  string `json:"source"`
}
