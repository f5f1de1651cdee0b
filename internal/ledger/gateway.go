package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	lru "github.com/hashicorp/golang-lru/v2"

	"idl-verifier-sol/internal/logic/core"
	"idl-verifier-sol/internal/types"
	"idl-verifier-sol/pkg/logger"
)

// ErrConnectivity 表示某网络的全部 endpoint 均不可达。
// 调用方据此中止该网络范围内的后续检查，而不是单个协议降级。
var ErrConnectivity = errors.New("all ledger endpoints unreachable")

const (
	defaultProbeTimeout = 8 * time.Second
	defaultTxCacheSize  = 512
)

// Gateway 提供带 fallback 的只读账本访问。
// 每个网络按优先级探活一次，选中的 endpoint 在本会话内复用；
// 已拉取的交易按签名做 LRU 缓存，避免重复 RPC。
type Gateway struct {
	mu       sync.Mutex
	networks map[string]NetworkEndpoints
	sessions map[string]*session
	txCache  *lru.Cache[string, *core.FetchedTx]

	probeTimeout time.Duration
}

type session struct {
	url    string
	client *rpc.Client
}

// NewGateway 构建账本网关；networks 为空时使用默认 endpoint 表。
func NewGateway(networks []NetworkEndpoints) *Gateway {
	if len(networks) == 0 {
		networks = DefaultEndpoints()
	}
	byName := make(map[string]NetworkEndpoints, len(networks))
	for _, n := range networks {
		byName[n.Network] = n
	}
	cache, _ := lru.New[string, *core.FetchedTx](defaultTxCacheSize)
	return &Gateway{
		networks:     byName,
		sessions:     make(map[string]*session),
		txCache:      cache,
		probeTimeout: defaultProbeTimeout,
	}
}

// Connect 为指定网络建立（或复用）RPC 会话：按优先级逐个探活，
// 首个 getSlot 成功的 endpoint 即被采用。全部失败返回 ErrConnectivity。
func (g *Gateway) Connect(ctx context.Context, network string) error {
	_, err := g.sessionFor(ctx, network)
	return err
}

func (g *Gateway) sessionFor(ctx context.Context, network string) (*session, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if s, ok := g.sessions[network]; ok {
		return s, nil
	}

	cfg, ok := g.networks[network]
	if !ok {
		return nil, fmt.Errorf("%w: unknown network %q", ErrConnectivity, network)
	}

	var lastErr error
	for _, ep := range cfg.ordered() {
		client := rpc.New(ep.URL)
		probeCtx, cancel := context.WithTimeout(ctx, g.probeTimeout)
		slot, err := client.GetSlot(probeCtx, rpc.CommitmentFinalized)
		cancel()
		if err != nil {
			logger.Warnf("[ledger] endpoint 探活失败 network=%s url=%s err=%v", network, ep.URL, err)
			lastErr = err
			continue
		}
		logger.Infof("[ledger] 采用 endpoint network=%s url=%s slot=%d", network, ep.URL, slot)
		s := &session{url: ep.URL, client: client}
		g.sessions[network] = s
		return s, nil
	}
	if lastErr == nil {
		lastErr = errors.New("no endpoints configured")
	}
	return nil, fmt.Errorf("%w: network=%s: %v", ErrConnectivity, network, lastErr)
}

// GetAccountInfo 查询账户信息。账户不存在时返回 Exists=false 且 err=nil，
// 与 RPC 层失败（err != nil）严格区分。
func (g *Gateway) GetAccountInfo(ctx context.Context, network, address string) (core.AccountInfo, error) {
	s, err := g.sessionFor(ctx, network)
	if err != nil {
		return core.AccountInfo{}, err
	}
	pk, err := solana.PublicKeyFromBase58(address)
	if err != nil {
		return core.AccountInfo{}, fmt.Errorf("invalid address %q: %w", address, err)
	}

	res, err := s.client.GetAccountInfo(ctx, pk)
	if err != nil {
		if errors.Is(err, rpc.ErrNotFound) {
			return core.AccountInfo{Exists: false}, nil
		}
		return core.AccountInfo{}, fmt.Errorf("getAccountInfo %s: %w", address, err)
	}
	if res == nil || res.Value == nil {
		return core.AccountInfo{Exists: false}, nil
	}

	info := core.AccountInfo{
		Exists:     true,
		Executable: res.Value.Executable,
		Owner:      types.Pubkey(res.Value.Owner),
		Lamports:   res.Value.Lamports,
	}
	if data := res.Value.Data; data != nil {
		info.DataLen = len(data.GetBinary())
	}
	return info, nil
}

// ListSignatures 拉取地址的近期交易签名，按时间倒序；before 为空表示从最新开始。
func (g *Gateway) ListSignatures(ctx context.Context, network, address string, limit int, before string) ([]core.SignatureInfo, error) {
	s, err := g.sessionFor(ctx, network)
	if err != nil {
		return nil, err
	}
	pk, err := solana.PublicKeyFromBase58(address)
	if err != nil {
		return nil, fmt.Errorf("invalid address %q: %w", address, err)
	}

	opts := &rpc.GetSignaturesForAddressOpts{
		Limit:      &limit,
		Commitment: rpc.CommitmentFinalized,
	}
	if before != "" {
		sig, err := solana.SignatureFromBase58(before)
		if err != nil {
			return nil, fmt.Errorf("invalid before cursor %q: %w", before, err)
		}
		opts.Before = sig
	}

	sigs, err := s.client.GetSignaturesForAddressWithOpts(ctx, pk, opts)
	if err != nil {
		return nil, fmt.Errorf("getSignaturesForAddress %s: %w", address, err)
	}

	out := make([]core.SignatureInfo, 0, len(sigs))
	for _, sig := range sigs {
		info := core.SignatureInfo{
			Signature: sig.Signature.String(),
			Slot:      sig.Slot,
			Failed:    sig.Err != nil,
		}
		if sig.BlockTime != nil {
			info.BlockTime = int64(*sig.BlockTime)
		}
		out = append(out, info)
	}
	return out, nil
}

// GetTransaction 拉取并归一化一笔交易（含 lookup table 装载地址与 inner 指令）。
func (g *Gateway) GetTransaction(ctx context.Context, network, signature string) (*core.FetchedTx, error) {
	if cached, ok := g.txCache.Get(signature); ok {
		return cached, nil
	}

	s, err := g.sessionFor(ctx, network)
	if err != nil {
		return nil, err
	}
	sig, err := solana.SignatureFromBase58(signature)
	if err != nil {
		return nil, fmt.Errorf("invalid signature %q: %w", signature, err)
	}

	maxVersion := uint64(0)
	res, err := s.client.GetTransaction(ctx, sig, &rpc.GetTransactionOpts{
		Encoding:                       solana.EncodingBase64,
		Commitment:                     rpc.CommitmentFinalized,
		MaxSupportedTransactionVersion: &maxVersion,
	})
	if err != nil {
		return nil, fmt.Errorf("getTransaction %s: %w", signature, err)
	}
	if res == nil || res.Transaction == nil {
		return nil, fmt.Errorf("getTransaction %s: empty response", signature)
	}

	tx, err := res.Transaction.GetTransaction()
	if err != nil {
		return nil, fmt.Errorf("decode transaction %s: %w", signature, err)
	}

	ftx := &core.FetchedTx{
		Signature:  signature,
		Slot:       res.Slot,
		StaticKeys: toPubkeys(tx.Message.AccountKeys),
	}
	if res.BlockTime != nil {
		ftx.BlockTime = int64(*res.BlockTime)
	}
	for _, ix := range tx.Message.Instructions {
		ftx.Instructions = append(ftx.Instructions, compileIx(ix))
	}
	if res.Meta != nil {
		ftx.LoadedWritable = toPubkeys(res.Meta.LoadedAddresses.Writable)
		ftx.LoadedReadonly = toPubkeys(res.Meta.LoadedAddresses.ReadOnly)
		for _, group := range res.Meta.InnerInstructions {
			inner := core.InnerIxGroup{IxIndex: group.Index}
			for _, ix := range group.Instructions {
				inner.Instructions = append(inner.Instructions, compileInnerIx(ix))
			}
			ftx.Inner = append(ftx.Inner, inner)
		}
	}

	g.txCache.Add(signature, ftx)
	return ftx, nil
}

func toPubkeys(keys []solana.PublicKey) []types.Pubkey {
	out := make([]types.Pubkey, len(keys))
	for i, k := range keys {
		out[i] = types.Pubkey(k)
	}
	return out
}

// compileIx 统一指令载荷编码：solana.Base58 在 JSON 路径下是 base58 文本，
// 反序列化后即为原始字节，这里只需透传。
func compileIx(ix solana.CompiledInstruction) core.CompiledIx {
	return core.CompiledIx{
		ProgramIDIndex: ix.ProgramIDIndex,
		Accounts:       ix.Accounts,
		Data:           []byte(ix.Data),
	}
}

// compileInnerIx 处理 meta 中的 inner 指令。RPC 层的 inner 指令是独立结构
//（附带 stackHeight），与 message 指令不能互转，字段取法保持一致。
func compileInnerIx(ix rpc.CompiledInstruction) core.CompiledIx {
	return core.CompiledIx{
		ProgramIDIndex: ix.ProgramIDIndex,
		Accounts:       ix.Accounts,
		Data:           []byte(ix.Data),
	}
}
