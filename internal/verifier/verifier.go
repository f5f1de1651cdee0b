package verifier

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync/atomic"
	"time"

	"idl-verifier-sol/internal/artifact"
	"idl-verifier-sol/internal/idl"
	"idl-verifier-sol/internal/ledger"
	"idl-verifier-sol/internal/logic/classify"
	"idl-verifier-sol/internal/logic/core"
	"idl-verifier-sol/internal/logic/history"
	"idl-verifier-sol/internal/logic/idlscan"
	"idl-verifier-sol/internal/logic/txadapter"
	"idl-verifier-sol/internal/registry"
	"idl-verifier-sol/internal/types"
	"idl-verifier-sol/pkg/logger"
)

// Gateway 是验证流程需要的账本只读能力，真实实现见 internal/ledger。
type Gateway interface {
	Connect(ctx context.Context, network string) error
	GetAccountInfo(ctx context.Context, network, address string) (core.AccountInfo, error)
	ListSignatures(ctx context.Context, network, address string, limit int, before string) ([]core.SignatureInfo, error)
	GetTransaction(ctx context.Context, network, signature string) (*core.FetchedTx, error)
}

// Publisher 把冻结后的运行结果推给外部消费方（如 Kafka），失败只降级不阻断。
type Publisher func(ctx context.Context, run *core.VerificationRun) error

// Options 是验证引擎的运行参数。
type Options struct {
	SampleLimit      int           // 每个协议抽样交易的硬上限，兜底最坏耗时
	PausePerCall     time.Duration // 相邻 RPC 调用之间的间隔（限速）
	PausePerProtocol time.Duration // 相邻协议之间的间隔
	Classifier       classify.Config
}

func (o *Options) FillDefaults() {
	if o.SampleLimit <= 0 {
		o.SampleLimit = 10
	}
	if o.PausePerCall <= 0 {
		o.PausePerCall = 200 * time.Millisecond
	}
	if o.PausePerProtocol <= 0 {
		o.PausePerProtocol = time.Second
	}
	o.Classifier.FillDefaults()
}

// Verifier 按注册表顺序串行验证各协议：候选解析 → 存在性检查 →
// （有 IDL 时）抽样交易回放解码 → 分级 → 历史记录。
// 单线程处理，靠显式 pause 控制 RPC 压力；运行中的二次触发是 no-op。
type Verifier struct {
	opts      Options
	protocols []core.ProtocolDescriptor
	gw        Gateway
	reg       *registry.Registry
	fetcher   artifact.Fetcher // 可为 nil（无 IDL 工件来源）
	hist      *history.Manager
	publish   Publisher // 可为 nil

	running atomic.Bool
	sleep   func(time.Duration) // 测试可替换
}

func New(
	opts Options,
	protocols []core.ProtocolDescriptor,
	gw Gateway,
	reg *registry.Registry,
	fetcher artifact.Fetcher,
	hist *history.Manager,
	publish Publisher,
) *Verifier {
	opts.FillDefaults()
	return &Verifier{
		opts:      opts,
		protocols: protocols,
		gw:        gw,
		reg:       reg,
		fetcher:   fetcher,
		hist:      hist,
		publish:   publish,
		sleep:     time.Sleep,
	}
}

// runState 在一轮内共享：已判定不可达的网络不再重复探测。
type runState struct {
	run          *core.VerificationRun
	deadNetworks map[string]string // network → 首次失败原因
}

// RunOnce 对全量注册表（或指定子集）执行一轮验证。
// 已有运行在进行时直接返回 (nil, nil)，不排队不合并。
// 部分失败不阻断整轮：返回的 run 对已处理部分保持准确计数。
func (v *Verifier) RunOnce(ctx context.Context, protocolIDs []string) (*core.VerificationRun, error) {
	if !v.running.CompareAndSwap(false, true) {
		logger.Warnf("[verifier] 已有验证轮次在运行，忽略本次触发")
		return nil, nil
	}
	defer v.running.Store(false)

	start := time.Now()
	descs := v.selectProtocols(protocolIDs)
	state := &runState{
		run: &core.VerificationRun{
			StartedAt: start.Unix(),
			Protocols: make([]*core.VerificationResult, 0, len(descs)),
		},
		deadNetworks: make(map[string]string),
	}
	logger.Infof("[verifier] 开始验证轮次, 协议数=%d", len(descs))

	for i, desc := range descs {
		if i > 0 {
			v.sleep(v.opts.PausePerProtocol)
		}
		res := v.verifyProtocol(ctx, desc, state)
		state.run.Protocols = append(state.run.Protocols, res)
		v.tally(state.run, res)
	}

	state.run.DurationMs = time.Since(start).Milliseconds()
	v.hist.Record(ctx, state.run)

	if v.publish != nil {
		if err := v.publish(ctx, state.run); err != nil {
			logger.Warnf("[verifier] 运行结果发布失败: %v", err)
		}
	}

	logger.Infof("[verifier] 轮次完成: verified=%d partial=%d no_program=%d rpc_error=%d failed=%d 耗时=%dms",
		state.run.Verified, state.run.Partial, state.run.NoProgram, state.run.RPCError, state.run.Failed, state.run.DurationMs)
	return state.run, nil
}

func (v *Verifier) selectProtocols(ids []string) []core.ProtocolDescriptor {
	if len(ids) == 0 {
		return v.protocols
	}
	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	var out []core.ProtocolDescriptor
	for _, p := range v.protocols {
		if _, ok := want[p.ID]; ok {
			out = append(out, p)
		}
	}
	return out
}

// verifyProtocol 处理单个协议；任何未捕获异常都收敛为 failed 结果，批次继续。
func (v *Verifier) verifyProtocol(ctx context.Context, desc core.ProtocolDescriptor, state *runState) (res *core.VerificationResult) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("[verifier] 协议 %s 处理 panic: %+v\nstack: %s", desc.ID, r, debug.Stack())
			res = &core.VerificationResult{
				ProtocolID: desc.ID,
				Status:     core.StatusFailed,
				Message:    fmt.Sprintf("panic: %v", r),
				Timestamp:  time.Now().Unix(),
			}
		}
	}()

	res = &core.VerificationResult{
		ProtocolID: desc.ID,
		Timestamp:  time.Now().Unix(),
	}

	// 占位协议直接短路，不产生任何网络访问
	if desc.Status == core.ProtocolPlaceholder {
		res.Status = core.StatusPlaceholder
		res.Message = "protocol registered as placeholder"
		return res
	}

	doc := v.loadIDL(ctx, desc)
	if doc != nil {
		res.Details = &core.ResultDetails{
			IDLHash:          doc.Hash,
			InstructionCount: len(doc.Instructions),
			AccountCount:     len(doc.Accounts),
		}
	}

	candidates := v.reg.Resolve(desc.ID, doc)
	if len(candidates) == 0 {
		res.Status = core.StatusNoProgramID
		res.Message = "no program address resolved from mappings or idl"
		return res
	}

	if reason, dead := state.deadNetworks[desc.Network]; dead {
		res.Status = core.StatusRPCError
		res.Message = fmt.Sprintf("network %s unreachable: %s", desc.Network, reason)
		return res
	}

	var firstLive *core.ProgramCandidate
	liveCount, errCount := 0, 0
	for i := range candidates {
		cand := candidates[i]
		v.sleep(v.opts.PausePerCall)
		report := CheckExistence(ctx, v.gw, desc.Network, cand.Address)

		ps := core.ProgramStatus{
			Name:    cand.Name,
			Address: cand.Address,
			Network: desc.Network,
		}
		switch {
		case report.Connectivity:
			state.deadNetworks[desc.Network] = report.Err
			if state.run.Error == "" {
				state.run.Error = fmt.Sprintf("network %s: %s", desc.Network, report.Err)
			}
			ps.Status = core.StatusRPCError
			ps.Message = report.Err
			errCount++
		case report.Err != "":
			ps.Status = core.StatusRPCError
			ps.Message = report.Err
			errCount++
		case report.Live():
			ps.Status = core.StatusVerified
			ps.Message = fmt.Sprintf("executable, owner=%s, data=%dB", report.Owner, report.DataLen)
			liveCount++
			if firstLive == nil {
				firstLive = &candidates[i]
			}
		case report.Exists:
			ps.Status = core.StatusProgramNotFound
			ps.Message = "account exists but is not executable"
		default:
			ps.Status = core.StatusProgramNotFound
			ps.Message = "account not found on chain"
		}
		res.Programs = append(res.Programs, ps)

		state.run.TotalPrograms++
		if ps.Status == core.StatusVerified {
			state.run.VerifiedPrograms++
		}

		// 网络已判死，剩余候选不再逐个探测
		if report.Connectivity {
			break
		}
	}

	switch {
	case firstLive != nil && doc != nil && len(doc.Instructions) > 0:
		v.sampleAndClassify(ctx, desc, *firstLive, doc, res, state)
	case firstLive != nil:
		// 无 IDL 可回放，存在性检查即为最终结论
		res.Status = core.StatusVerified
		res.Message = "program exists and is executable (no idl sampling)"
	case errCount > 0:
		res.Status = core.StatusRPCError
		res.Message = "existence checks failed with rpc errors"
	default:
		res.Status = core.StatusProgramNotFound
		res.Message = "no resolved candidate is live on chain"
	}
	return res
}

// loadIDL 取回并解析协议的 IDL 文档；任何失败都降级为无文档（仅存在性检查）。
func (v *Verifier) loadIDL(ctx context.Context, desc core.ProtocolDescriptor) *idl.Document {
	if desc.IDLPath == "" || v.fetcher == nil {
		return nil
	}
	raw, err := v.fetcher.Fetch(ctx, desc.IDLPath)
	if err != nil {
		logger.Warnf("[verifier] 协议 %s 的 IDL 获取失败: %v", desc.ID, err)
		return nil
	}
	doc, err := idl.Parse(raw)
	if err != nil {
		logger.Warnf("[verifier] 协议 %s 的 IDL 解析失败: %v", desc.ID, err)
		return nil
	}
	return doc
}

// sampleAndClassify 抽样候选程序的近期交易，经 schema 解码后聚合分级。
// 单笔交易的拉取/解码失败只影响该样本，不中断抽样。
func (v *Verifier) sampleAndClassify(
	ctx context.Context,
	desc core.ProtocolDescriptor,
	cand core.ProgramCandidate,
	doc *idl.Document,
	res *core.VerificationResult,
	state *runState,
) {
	program, err := types.TryPubkeyFromBase58(cand.Address)
	if err != nil {
		res.Status = core.StatusRPCError
		res.Message = fmt.Sprintf("candidate address unusable: %v", err)
		return
	}

	sigs, err := v.gw.ListSignatures(ctx, desc.Network, cand.Address, v.opts.SampleLimit, "")
	if err != nil {
		if errors.Is(err, ledger.ErrConnectivity) {
			state.deadNetworks[desc.Network] = err.Error()
			if state.run.Error == "" {
				state.run.Error = fmt.Sprintf("network %s: %v", desc.Network, err)
			}
		}
		res.Status = core.StatusRPCError
		res.Message = fmt.Sprintf("signature listing failed: %v", err)
		return
	}

	dec := idl.NewDecoder(doc)
	var attempts []core.DecodeAttempt
	sampled := 0

	for _, sig := range sigs {
		if sig.Failed {
			continue
		}
		v.sleep(v.opts.PausePerCall)
		tx, err := v.gw.GetTransaction(ctx, desc.Network, sig.Signature)
		if err != nil {
			logger.Debugf("[verifier] 交易拉取失败 tx=%s: %v", sig.Signature, err)
			if errors.Is(err, ledger.ErrConnectivity) {
				state.deadNetworks[desc.Network] = err.Error()
				if state.run.Error == "" {
					state.run.Error = fmt.Sprintf("network %s: %v", desc.Network, err)
				}
				break
			}
			continue
		}
		sampled++

		keys := txadapter.ResolveAccountKeys(tx)
		idx, ok := txadapter.ProgramIndex(keys, program)
		if !ok {
			// 签名列表里出现但账户表中无该程序，整笔不贡献样本
			continue
		}
		attempts = append(attempts, idlscan.ScanTx(tx, idx, dec)...)
	}

	outcome := classify.Classify(attempts, doc, v.opts.Classifier)
	res.Status = outcome.Status
	if outcome.Message != "" {
		res.Message = outcome.Message
	}

	if res.Details == nil {
		res.Details = &core.ResultDetails{}
	}
	res.Details.SampledTxCount = sampled
	res.Details.StubLikely = outcome.StubLikely
	if len(outcome.Decoded) > 0 {
		res.Details.DecodedInstructions = outcome.Decoded
	}
	if len(outcome.FailedPrefixes) > 0 {
		res.Details.FailedDiscriminators = outcome.FailedPrefixes
	}
	if outcome.Total > 0 {
		rate := outcome.SuccessRate
		res.Details.SuccessRate = &rate
		coverage := outcome.CoveragePercent
		res.Details.CoveragePercent = &coverage
	}
}

// tally 把单协议结论归入轮次计数。
func (v *Verifier) tally(run *core.VerificationRun, res *core.VerificationResult) {
	switch res.Status {
	case core.StatusVerified:
		run.Verified++
	case core.StatusPartial, core.StatusOutdated:
		run.Partial++
	case core.StatusPlaceholder:
		run.Placeholder++
	case core.StatusNoProgramID, core.StatusProgramNotFound, core.StatusNoProgramInstructions:
		run.NoProgram++
	case core.StatusRPCError:
		run.RPCError++
	case core.StatusFailed, core.StatusInvalid:
		run.Failed++
	}
}

// 只读访问面，全部委托给历史存储。

func (v *Verifier) Latest() *core.VerificationRun { return v.hist.Latest() }

func (v *Verifier) History() []*core.VerificationRun { return v.hist.History() }

// ForProtocol 返回协议的最近结论；已注册但尚未跑过任何轮次的协议返回 pending。
func (v *Verifier) ForProtocol(id string) (*core.VerificationResult, bool) {
	if res, ok := v.hist.ForProtocol(id); ok {
		return res, true
	}
	for _, p := range v.protocols {
		if p.ID == id {
			return &core.VerificationResult{
				ProtocolID: id,
				Status:     core.StatusPending,
				Message:    "awaiting first verification run",
			}, true
		}
	}
	return nil, false
}

func (v *Verifier) Summary() history.Summary { return v.hist.Summary() }
