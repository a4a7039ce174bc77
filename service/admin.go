// service/admin.go
// 管理操作：注册处理器、授权调用方、白名单、铸造与手续费调整。
// 所有管理操作只认所有者，开启签名校验时还要带 secp256k1 签名和递增 nonce。
package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"assetproxy/assetdata"
	"assetproxy/fees"
	"assetproxy/keys"
	"assetproxy/logs"
	"assetproxy/proxy"
	"assetproxy/utils"

	"github.com/ethereum/go-ethereum/common"
)

var (
	// ErrBadAdminSignature 签名恢复出的地址不是所有者
	ErrBadAdminSignature = errors.New("admin signature does not match owner")
	// ErrStaleAdminNonce nonce 不大于已记录值，疑似重放
	ErrStaleAdminNonce = errors.New("admin nonce already used")
	// ErrUnknownHandler 注册请求里的处理器名不在内建集合里
	ErrUnknownHandler = errors.New("unknown handler name")
)

// AdminRequest 一次管理操作的公共信封。
// Payload 是操作自定义的 JSON，签名覆盖 method+nonce+payload 的摘要
type AdminRequest struct {
	Method    string
	Caller    common.Address
	Nonce     uint64
	Payload   []byte
	Signature []byte
}

// verifyAdmin 校验管理请求：所有者身份、签名、nonce 递增。
// nonce 的更新写进视图，与操作本身一起原子落库
func (n *Node) verifyAdmin(sv proxy.StateView, req *AdminRequest) error {
	if n.owner == (common.Address{}) || req.Caller != n.owner {
		return proxy.ErrNotOwner
	}
	if !n.cfg.Auth.VerifySignatures {
		return nil
	}

	digest := utils.AdminDigest(req.Method, req.Nonce, req.Payload)
	signer, err := utils.RecoverSigner(req.Signature, digest)
	if err != nil {
		return fmt.Errorf("recover admin signer: %w", err)
	}
	if signer != n.owner {
		return ErrBadAdminSignature
	}

	raw, exist, err := sv.Get(keys.KeyAdminNonce(req.Caller))
	if err != nil {
		return err
	}
	if exist {
		last, err := strconv.ParseUint(string(raw), 10, 64)
		if err != nil {
			return fmt.Errorf("corrupt admin nonce record: %w", err)
		}
		if req.Nonce <= last {
			return ErrStaleAdminNonce
		}
	}
	sv.Set(keys.KeyAdminNonce(req.Caller), []byte(strconv.FormatUint(req.Nonce, 10)))
	return nil
}

// runAdmin 管理操作的公共骨架：锁、视图、校验、执行、事件、落库
func (n *Node) runAdmin(req *AdminRequest, evType string, op func(sv proxy.StateView) (map[string]string, error)) error {
	n.dispatchMu.Lock()
	defer n.dispatchMu.Unlock()

	sv := n.newStateView()
	if err := n.verifyAdmin(sv, req); err != nil {
		return err
	}
	detail, err := op(sv)
	if err != nil {
		return err
	}

	n.enqueueDiff(sv.Diff())
	n.emitEvent(evType, "", req.Caller, detail)
	if err := n.db.ForceFlush(); err != nil {
		return fmt.Errorf("flush admin op %s: %w", req.Method, err)
	}
	return nil
}

// registerProxyPayload POST /admin/registerproxy 的负载
type registerProxyPayload struct {
	Handler string `json:"handler"`
}

// RegisterProxy 按名字把内建处理器挂进注册表并持久化记录。
// 标签取自处理器自己声明的 Tag，同标签默认覆盖（锁定模式下拒绝）
func (n *Node) RegisterProxy(req *AdminRequest) (assetdata.TypeTag, error) {
	var p registerProxyPayload
	if err := json.Unmarshal(req.Payload, &p); err != nil {
		return assetdata.TypeTag{}, fmt.Errorf("parse register payload: %w", err)
	}
	h, ok := n.builtins[p.Handler]
	if !ok {
		return assetdata.TypeTag{}, fmt.Errorf("%w: %q", ErrUnknownHandler, p.Handler)
	}

	err := n.runAdmin(req, EventRegisterProxy, func(sv proxy.StateView) (map[string]string, error) {
		if err := n.registry.Register(h); err != nil {
			return nil, err
		}
		sv.Set(keys.KeyProxyRegistration(h.Tag()), []byte(h.Name()))
		logs.Info("[Admin] registered handler %q under tag %s", h.Name(), h.Tag())
		return map[string]string{"handler": h.Name(), "tag": h.Tag().String()}, nil
	})
	if err != nil {
		return assetdata.TypeTag{}, err
	}
	return h.Tag(), nil
}

// Authorize 把 target 加入可调用调度入口的授权集合
func (n *Node) Authorize(req *AdminRequest) error {
	target, err := parseAddressPayload(req.Payload, "target")
	if err != nil {
		return err
	}
	return n.runAdmin(req, EventAuthorize, func(sv proxy.StateView) (map[string]string, error) {
		if err := n.authorizer.Authorize(sv, req.Caller, target); err != nil {
			return nil, err
		}
		logs.Info("[Admin] authorized %s", target.Hex())
		return map[string]string{"target": target.Hex()}, nil
	})
}

// Deauthorize 把 target 从授权集合移除
func (n *Node) Deauthorize(req *AdminRequest) error {
	target, err := parseAddressPayload(req.Payload, "target")
	if err != nil {
		return err
	}
	return n.runAdmin(req, EventDeauthorize, func(sv proxy.StateView) (map[string]string, error) {
		if err := n.authorizer.Deauthorize(sv, req.Caller, target); err != nil {
			return nil, err
		}
		logs.Info("[Admin] deauthorized %s", target.Hex())
		return map[string]string{"target": target.Hex()}, nil
	})
}

// AllowToken 把代币地址加进 ERC20 白名单
func (n *Node) AllowToken(req *AdminRequest) error {
	token, err := parseAddressPayload(req.Payload, "token")
	if err != nil {
		return err
	}
	return n.runAdmin(req, EventAllowToken, func(sv proxy.StateView) (map[string]string, error) {
		n.erc20.AllowToken(sv, token)
		logs.Info("[Admin] token %s allowed", token.Hex())
		return map[string]string{"token": token.Hex()}, nil
	})
}

// DisallowToken 把代币地址移出 ERC20 白名单
func (n *Node) DisallowToken(req *AdminRequest) error {
	token, err := parseAddressPayload(req.Payload, "token")
	if err != nil {
		return err
	}
	return n.runAdmin(req, EventDisallowToken, func(sv proxy.StateView) (map[string]string, error) {
		n.erc20.DisallowToken(sv, token)
		logs.Info("[Admin] token %s disallowed", token.Hex())
		return map[string]string{"token": token.Hex()}, nil
	})
}

// creditPayload 铸造同质化代币余额的负载
type creditPayload struct {
	Token  string `json:"token"`
	To     string `json:"to"`
	Amount string `json:"amount"`
}

// Credit 给 to 增发 amount 数量的白名单代币余额
func (n *Node) Credit(req *AdminRequest) error {
	var p creditPayload
	if err := json.Unmarshal(req.Payload, &p); err != nil {
		return fmt.Errorf("parse credit payload: %w", err)
	}
	token, err := utils.ParseAddress(p.Token)
	if err != nil {
		return fmt.Errorf("credit token: %w", err)
	}
	to, err := utils.ParseAddress(p.To)
	if err != nil {
		return fmt.Errorf("credit recipient: %w", err)
	}
	amount, err := proxy.ParseBalance(p.Amount)
	if err != nil {
		return fmt.Errorf("credit amount: %w", err)
	}
	return n.runAdmin(req, EventCredit, func(sv proxy.StateView) (map[string]string, error) {
		if err := n.erc20.Credit(sv, token, to, amount); err != nil {
			return nil, err
		}
		logs.Info("[Admin] credited %s of %s to %s", amount.String(), token.Hex(), to.Hex())
		return map[string]string{"token": token.Hex(), "to": to.Hex(), "amount": amount.String()}, nil
	})
}

// mintPayload 铸造 NFT 的负载
type mintPayload struct {
	Token   string `json:"token"`
	TokenID string `json:"token_id"`
	Owner   string `json:"owner"`
}

// MintNFT 铸造一枚 NFT 并指定初始持有人
func (n *Node) MintNFT(req *AdminRequest) error {
	var p mintPayload
	if err := json.Unmarshal(req.Payload, &p); err != nil {
		return fmt.Errorf("parse mint payload: %w", err)
	}
	token, err := utils.ParseAddress(p.Token)
	if err != nil {
		return fmt.Errorf("mint token contract: %w", err)
	}
	owner, err := utils.ParseAddress(p.Owner)
	if err != nil {
		return fmt.Errorf("mint owner: %w", err)
	}
	tokenID, err := proxy.ParseBalance(p.TokenID)
	if err != nil {
		return fmt.Errorf("mint token id: %w", err)
	}
	return n.runAdmin(req, EventMintNFT, func(sv proxy.StateView) (map[string]string, error) {
		if err := n.erc721.Mint(sv, token, tokenID, owner); err != nil {
			return nil, err
		}
		logs.Info("[Admin] minted NFT %s/%s to %s", token.Hex(), tokenID.String(), owner.Hex())
		return map[string]string{"token": token.Hex(), "token_id": tokenID.String(), "owner": owner.Hex()}, nil
	})
}

// SetFees 更新手续费配置并持久化，负载即 fees.Config 的 JSON
func (n *Node) SetFees(req *AdminRequest) error {
	var cfg fees.Config
	if err := json.Unmarshal(req.Payload, &cfg); err != nil {
		return fmt.Errorf("parse fees payload: %w", err)
	}
	return n.runAdmin(req, EventSetFees, func(sv proxy.StateView) (map[string]string, error) {
		if err := n.feeMgr.Update(sv, cfg); err != nil {
			return nil, err
		}
		logs.Info("[Admin] fees updated: bps=%d flat=%s collector=%s",
			cfg.TransferFeeBps, cfg.FlatFee.String(), cfg.Collector.Hex())
		return map[string]string{
			"transfer_fee_bps": strconv.FormatUint(uint64(cfg.TransferFeeBps), 10),
			"flat_fee":         cfg.FlatFee.String(),
			"collector":        cfg.Collector.Hex(),
		}, nil
	})
}

// parseAddressPayload 取出形如 {"<field>":"0x..."} 的单地址负载
func parseAddressPayload(payload []byte, field string) (common.Address, error) {
	var raw map[string]string
	if err := json.Unmarshal(payload, &raw); err != nil {
		return common.Address{}, fmt.Errorf("parse %s payload: %w", field, err)
	}
	addr, err := utils.ParseAddress(raw[field])
	if err != nil {
		return common.Address{}, fmt.Errorf("%s address: %w", field, err)
	}
	return addr, nil
}
