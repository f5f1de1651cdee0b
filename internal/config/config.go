package config

import (
	"time"

	"idl-verifier-sol/internal/artifact"
	"idl-verifier-sol/internal/ledger"
	"idl-verifier-sol/internal/logic/classify"
	"idl-verifier-sol/internal/logic/core"
	"idl-verifier-sol/internal/mq"
	"idl-verifier-sol/internal/registry"
	"idl-verifier-sol/internal/verifier"
	"idl-verifier-sol/pkg/logger"
)

type LogConfig struct {
	Format   string `yaml:"format"`   // 日志格式，支持 "console" 或 "json"
	LogDir   string `yaml:"log_dir"`  // 日志目录（可为相对路径或绝对路径）
	Level    string `yaml:"level"`    // 日志级别：debug / info / warn / error
	Compress bool   `yaml:"compress"` // 是否压缩旧日志文件
}

func (c *LogConfig) ToLogOption() logger.LogOption {
	return logger.LogOption{
		Format:   c.Format,
		LogDir:   c.LogDir,
		Level:    c.Level,
		Compress: c.Compress,
	}
}

// RegistryConfig 指定协议注册表文件与模糊匹配开关。
type RegistryConfig struct {
	File        string `yaml:"file"`         // 协议清单（ProtocolDescriptor 列表 + 可选映射扩展）
	EnableFuzzy bool   `yaml:"enable_fuzzy"` // 子串模糊匹配（启发式）
}

// SamplingConfig 控制交易抽样与 RPC 限速。
type SamplingConfig struct {
	TxLimit            int `yaml:"tx_limit"`              // 每个协议抽样交易上限
	PausePerCallMs     int `yaml:"pause_per_call_ms"`     // 相邻 RPC 调用间隔（毫秒）
	PausePerProtocolMs int `yaml:"pause_per_protocol_ms"` // 相邻协议间隔（毫秒）
}

// HistoryConfig 控制运行历史的容量与持久化目标（留空即关闭对应层）。
type HistoryConfig struct {
	MaxRuns       int    `yaml:"max_runs"`       // 历史环容量
	SummaryWindow int    `yaml:"summary_window"` // Summary 滚动窗口
	RedisAddr     string `yaml:"redis_addr"`     // Redis 地址，留空不启用
	PostgresDSN   string `yaml:"postgres_dsn"`   // PostgreSQL 数据源，留空不启用
}

// KafkaConfig 控制运行结果发布；Brokers 留空即关闭发布。
type KafkaConfig struct {
	Brokers       string `yaml:"brokers"`
	Topic         string `yaml:"topic"`
	Partitions    int    `yaml:"partitions"`
	BatchSize     int    `yaml:"batch_size"`
	LingerMs      int    `yaml:"linger_ms"`
	SendTimeoutMs int    `yaml:"send_timeout_ms"`
}

func (c *KafkaConfig) ToProducerOption() mq.ProducerOption {
	return mq.ProducerOption{
		Brokers:    c.Brokers,
		Topic:      c.Topic,
		Partitions: c.Partitions,
		BatchSize:  c.BatchSize,
		LingerMs:   c.LingerMs,
	}
}

// ArtifactConfig 指定 IDL 工件来源：本地目录或 S3 兼容对象存储。
type ArtifactConfig struct {
	Mode   string                     `yaml:"mode"` // "dir"（默认）或 "object"
	Dir    string                     `yaml:"dir"`
	Object artifact.ObjectStoreConfig `yaml:"object"`
}

// VerifierConfig 是主配置结构体，驱动整个验证服务。
type VerifierConfig struct {
	LogConf        LogConfig                 `yaml:"logger"`
	RegistryConf   RegistryConfig            `yaml:"registry"`
	Networks       []ledger.NetworkEndpoints `yaml:"networks"` // 留空使用内置默认 endpoint
	SamplingConf   SamplingConfig            `yaml:"sampling"`
	ClassifierConf classify.Config           `yaml:"classifier"`
	HistoryConf    HistoryConfig             `yaml:"history"`
	KafkaConf      KafkaConfig               `yaml:"kafka"`
	ArtifactConf   ArtifactConfig            `yaml:"artifact"`
}

func (c *VerifierConfig) ToVerifierOptions() verifier.Options {
	return verifier.Options{
		SampleLimit:      c.SamplingConf.TxLimit,
		PausePerCall:     time.Duration(c.SamplingConf.PausePerCallMs) * time.Millisecond,
		PausePerProtocol: time.Duration(c.SamplingConf.PausePerProtocolMs) * time.Millisecond,
		Classifier:       c.ClassifierConf,
	}
}

// RegistryFile 是协议清单文件的结构：协议列表 + 对内置映射表的扩展。
type RegistryFile struct {
	Protocols []core.ProtocolDescriptor   `yaml:"protocols"`
	Mappings  map[string][]registry.Entry `yaml:"mappings"`
}
