package proxy

import (
	"math/big"

	"assetproxy/assetdata"
	"assetproxy/logs"

	"github.com/ethereum/go-ethereum/common"
)

// DefaultMaxBasketDepth 嵌套深度上限的兜底值
const DefaultMaxBasketDepth = 16

// MultiAssetProxy 多资产调度引擎。
// 它既是对外的调度入口（DispatchTransfer：授权检查 + 全有或全无），
// 又作为一个 TransferHandler 注册在 MultiAssetTag 下，
// 嵌套的篮子腿经注册表解析后回到引擎自身，形成递归。
type MultiAssetProxy struct {
	registry *HandlerRegistry
	auth     *Authorizer
	maxDepth int
	maxBytes int
}

// NewMultiAssetProxy 创建调度引擎
// maxDepth <= 0 时使用 DefaultMaxBasketDepth；maxBytes <= 0 表示不限制
func NewMultiAssetProxy(registry *HandlerRegistry, auth *Authorizer, maxDepth, maxBytes int) *MultiAssetProxy {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxBasketDepth
	}
	return &MultiAssetProxy{
		registry: registry,
		auth:     auth,
		maxDepth: maxDepth,
		maxBytes: maxBytes,
	}
}

func (p *MultiAssetProxy) Tag() assetdata.TypeTag {
	return assetdata.MultiAssetTag
}

func (p *MultiAssetProxy) Name() string {
	return "multi-asset"
}

// Registry 返回引擎使用的注册表
func (p *MultiAssetProxy) Registry() *HandlerRegistry {
	return p.registry
}

// Authorizer 返回引擎使用的授权门
func (p *MultiAssetProxy) Authorizer() *Authorizer {
	return p.auth
}

// DispatchTransfer 对外调度入口。
// 流程：授权检查 → 快照 → 按标签路由执行 → 失败回滚。
// 任意一条腿失败，整个视图回退到调度前的状态，错误原样上抛。
func (p *MultiAssetProxy) DispatchTransfer(sv StateView, caller common.Address, assetData []byte, from, to common.Address, amount *big.Int) error {
	ok, err := p.auth.IsAuthorized(sv, caller)
	if err != nil {
		return err
	}
	if !ok {
		return ErrUnauthorized
	}
	if p.maxBytes > 0 && len(assetData) > p.maxBytes {
		return ErrAssetDataTooLarge
	}

	snap := sv.Snapshot()
	if err := p.route(sv, assetData, from, to, amount, 0); err != nil {
		if rerr := sv.Revert(snap); rerr != nil {
			logs.Error("[dispatch] revert to snapshot %d failed: %v", snap, rerr)
		}
		return err
	}
	return nil
}

// TransferFrom TransferHandler 实现：把整段数据当作一个篮子执行。
// 注意嵌套腿不会走到这里——嵌套递归在 invoke 里内联处理，以便传递深度。
func (p *MultiAssetProxy) TransferFrom(sv StateView, assetData []byte, from, to common.Address, amount *big.Int) error {
	return p.transfer(sv, assetData, from, to, amount, 1)
}

// route 解析单条资产数据的标签并派发给对应 handler
func (p *MultiAssetProxy) route(sv StateView, assetData []byte, from, to common.Address, amount *big.Int, depth int) error {
	if len(assetData) < assetdata.TagSize {
		return assetdata.ErrAssetDataTooShort
	}
	tag, err := assetdata.TagOf(assetData)
	if err != nil {
		return err
	}
	h, ok := p.registry.Resolve(tag)
	if !ok {
		return ErrProxyNotFound
	}
	return p.invoke(h, sv, assetData, from, to, amount, depth)
}

// invoke 调用 handler；引擎自身走内部递归，深度加一
func (p *MultiAssetProxy) invoke(h TransferHandler, sv StateView, assetData []byte, from, to common.Address, amount *big.Int, depth int) error {
	if mp, ok := h.(*MultiAssetProxy); ok {
		return mp.transfer(sv, assetData, from, to, amount, depth+1)
	}
	return h.TransferFrom(sv, assetData, from, to, amount)
}

// transfer 解码篮子并逐腿顺序执行。
// 每条腿：数量缩放（溢出检查）→ 标签解析（单槽缓存）→ 调用 handler。
// 第一条失败的腿终止整个篮子，错误不做任何包装。
func (p *MultiAssetProxy) transfer(sv StateView, assetData []byte, from, to common.Address, amount *big.Int, depth int) error {
	if depth > p.maxDepth {
		return ErrMaxDepthExceeded
	}

	tag, err := assetdata.TagOf(assetData)
	if err != nil {
		return err
	}
	if tag != assetdata.MultiAssetTag {
		return assetdata.ErrTagMismatch
	}

	basket, err := assetdata.DecodeBasket(assetData)
	if err != nil {
		return err
	}

	// 单槽缓存：与上一条腿同标签时复用已解析的 handler，
	// 避免热路径上反复查注册表
	var cachedTag assetdata.TypeTag
	var cached TransferHandler

	for i := 0; i < basket.Len(); i++ {
		// 腿内数量 × 外层数量；缩放结果为 0 的腿仍然照常派发
		scaled, err := SafeScale(amount, basket.Amounts[i])
		if err != nil {
			return err
		}

		leg := basket.Nested[i]
		if len(leg) < assetdata.TagSize {
			return assetdata.ErrAssetDataTooShort
		}
		legTag, err := assetdata.TagOf(leg)
		if err != nil {
			return err
		}

		h := cached
		if h == nil || legTag != cachedTag {
			var ok bool
			h, ok = p.registry.Resolve(legTag)
			if !ok {
				return ErrProxyNotFound
			}
			cached, cachedTag = h, legTag
		}

		if err := p.invoke(h, sv, leg, from, to, scaled, depth); err != nil {
			return err
		}
	}
	return nil
}
