package classify

import (
	"math"

	"idl-verifier-sol/internal/idl"
	"idl-verifier-sol/internal/logic/core"
)

// Config 暴露分级阈值。0.90 / 0.50 来源于既有运行数据的启发式，
// 保持可配置而不收紧语义。
type Config struct {
	VerifiedThreshold   float64 `yaml:"verified_threshold"`    // 达到即 verified
	PartialThreshold    float64 `yaml:"partial_threshold"`     // 达到即 partial
	StubMaxInstructions int     `yaml:"stub_max_instructions"` // 指令数不超过该值的全失败 IDL 标注为疑似占位
}

func (c *Config) FillDefaults() {
	if c.VerifiedThreshold <= 0 {
		c.VerifiedThreshold = 0.90
	}
	if c.PartialThreshold <= 0 {
		c.PartialThreshold = 0.50
	}
	if c.StubMaxInstructions <= 0 {
		c.StubMaxInstructions = 5
	}
}

// Outcome 是一批解码尝试的聚合结论。Status 完全由计数推导。
type Outcome struct {
	Status          core.Status
	Total           int
	Succeeded       int
	SuccessRate     float64 // 百分比，0~100
	CoveragePercent int     // 解码出的指令名去重后 / IDL 声明指令数
	Decoded         map[string]int
	FailedPrefixes  map[string]int
	StubLikely      bool
	Message         string
}

// Classify 聚合解码尝试并映射到结论分级。
// 覆盖率只随结果上报，不参与分级判定。
func Classify(attempts []core.DecodeAttempt, doc *idl.Document, cfg Config) Outcome {
	cfg.FillDefaults()

	out := Outcome{
		Total:          len(attempts),
		Decoded:        make(map[string]int),
		FailedPrefixes: make(map[string]int),
	}

	for _, a := range attempts {
		if a.OK {
			out.Succeeded++
			out.Decoded[a.Instruction]++
		} else {
			out.FailedPrefixes[a.Discriminator]++
		}
	}

	declared := len(doc.Instructions)
	if declared > 0 {
		out.CoveragePercent = int(math.Round(float64(len(out.Decoded)) / float64(declared) * 100))
	}

	if out.Total == 0 {
		// 程序在、IDL 在，但抽样窗口内没有打到该程序的指令
		out.Status = core.StatusNoProgramInstructions
		out.Message = "no instructions for this program in sampled transactions"
		return out
	}

	rate := float64(out.Succeeded) / float64(out.Total)
	out.SuccessRate = rate * 100

	switch {
	case rate >= cfg.VerifiedThreshold:
		out.Status = core.StatusVerified
	case rate >= cfg.PartialThreshold:
		out.Status = core.StatusPartial
	case rate > 0:
		out.Status = core.StatusOutdated
		out.Message = "idl decodes a minority of observed instructions; likely stale"
	default:
		out.Status = core.StatusInvalid
		if declared <= cfg.StubMaxInstructions {
			out.StubLikely = true
			out.Message = "idl declares few instructions and none decoded; likely a stub"
		} else {
			out.Message = "no sampled instruction decoded with this idl"
		}
	}
	return out
}
