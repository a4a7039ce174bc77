// service/queries.go
// 只读查询：注册表、授权集合、余额、NFT 持有人、回执与事件流水。
package service

import (
	"encoding/json"
	"fmt"
	"math/big"
	"time"

	"assetproxy/assetdata"
	"assetproxy/db"
	"assetproxy/fees"
	"assetproxy/keys"
	"assetproxy/proxy"

	"github.com/ethereum/go-ethereum/common"
)

// ProxyInfo 注册表里一条标签到处理器的映射
type ProxyInfo struct {
	Tag     string `json:"tag"`
	Handler string `json:"handler"`
}

// GetAssetProxy 查询标签对应的处理器名，没注册返回 false
func (n *Node) GetAssetProxy(tag assetdata.TypeTag) (string, bool) {
	h, ok := n.registry.Resolve(tag)
	if !ok {
		return "", false
	}
	return h.Name(), true
}

// OwnTypeTag 返回引擎自己的多资产标签
func (n *Node) OwnTypeTag() assetdata.TypeTag {
	return n.engine.Tag()
}

// ListProxies 枚举注册表，按标签字节序返回
func (n *Node) ListProxies() []ProxyInfo {
	tags := n.registry.Tags()
	out := make([]ProxyInfo, 0, len(tags))
	for _, tag := range tags {
		h, ok := n.registry.Resolve(tag)
		if !ok {
			continue
		}
		out = append(out, ProxyInfo{Tag: tag.String(), Handler: h.Name()})
	}
	return out
}

// Authorities 枚举授权集合（排序后的地址列表）
func (n *Node) Authorities() ([]common.Address, error) {
	return n.authorizer.Authorities(n.newStateView())
}

// IsAuthorized 查询某地址是否在授权集合里
func (n *Node) IsAuthorized(addr common.Address) (bool, error) {
	return n.authorizer.IsAuthorized(n.newStateView(), addr)
}

// BalanceOf 查询单个持有人的代币余额
func (n *Node) BalanceOf(token, holder common.Address) (*big.Int, error) {
	return n.erc20.BalanceOf(n.newStateView(), token, holder)
}

// Balances 批量查询同一代币下多个持有人的余额，没记录的按 0 返回。
// 走数据库的批量读接口，一次事务拿全所有 key
func (n *Node) Balances(token common.Address, holders []common.Address) (map[string]string, error) {
	keyList := make([]string, len(holders))
	for i, h := range holders {
		keyList[i] = keys.KeyBalance(token, h)
	}
	kvs, err := n.db.GetKVs(keyList)
	if err != nil {
		return nil, fmt.Errorf("batch read balances: %w", err)
	}

	out := make(map[string]string, len(holders))
	for i, h := range holders {
		raw, ok := kvs[keyList[i]]
		if !ok {
			out[h.Hex()] = "0"
			continue
		}
		bal, err := proxy.ParseBalance(string(raw))
		if err != nil {
			return nil, fmt.Errorf("corrupt balance record %s: %w", keyList[i], err)
		}
		out[h.Hex()] = bal.String()
	}
	return out, nil
}

// TokenAllowed 查询代币是否在白名单里
func (n *Node) TokenAllowed(token common.Address) (bool, error) {
	return n.erc20.IsTokenAllowed(n.newStateView(), token)
}

// AllowedTokens 枚举白名单代币（排序后的地址列表）
func (n *Node) AllowedTokens() ([]common.Address, error) {
	return n.erc20.AllowedTokens(n.newStateView())
}

// NFTOwner 查询 NFT 持有人
func (n *Node) NFTOwner(token common.Address, tokenID *big.Int) (common.Address, error) {
	return n.erc721.OwnerOf(n.newStateView(), token, tokenID)
}

// NFTHoldings 枚举某个合约下已铸造的 token 及持有人
func (n *Node) NFTHoldings(token common.Address) ([]proxy.NFTHolding, error) {
	return n.erc721.Holdings(n.newStateView(), token)
}

// Fees 返回当前生效的手续费配置
func (n *Node) Fees() fees.Config {
	return n.feeMgr.Current()
}

// QuoteFee 按当前费率报价一笔金额的手续费
func (n *Node) QuoteFee(amount *big.Int) string {
	return n.feeMgr.Quote(amount).String()
}

// Receipt 按请求ID查回执：先查内存缓存，未命中再读库
func (n *Node) Receipt(requestID string) (*proxy.Receipt, bool, error) {
	if v, ok := n.receiptCache.Get(requestID); ok {
		if rc, ok := v.(*proxy.Receipt); ok {
			return rc, true, nil
		}
	}

	raw, err := n.db.Get(keys.KeyReceipt(requestID))
	if err != nil {
		if db.IsNotFound(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	var rc proxy.Receipt
	if err := json.Unmarshal(raw, &rc); err != nil {
		return nil, false, fmt.Errorf("corrupt receipt %s: %w", requestID, err)
	}
	n.receiptCache.Add(requestID, &rc)
	return &rc, true, nil
}

// Events 按序号顺序返回事件流水。
// reverse 为 true 时从最新往回取；limit 超出配置上限会被压回
func (n *Node) Events(limit int, reverse bool) ([]*Event, error) {
	max := n.cfg.Dispatch.EventQueryLimit
	if max <= 0 {
		max = 1000
	}
	if limit <= 0 || limit > max {
		limit = max
	}

	kvs, err := n.db.ScanOrdered(keys.KeyEventPrefix(), limit, reverse)
	if err != nil {
		return nil, fmt.Errorf("scan events: %w", err)
	}
	out := make([]*Event, 0, len(kvs))
	for _, kv := range kvs {
		var ev Event
		if err := json.Unmarshal(kv.Value, &ev); err != nil {
			return nil, fmt.Errorf("corrupt event %s: %w", kv.Key, err)
		}
		out = append(out, &ev)
	}
	return out, nil
}

// StatusInfo 节点运行状态汇总
type StatusInfo struct {
	Owner         string        `json:"owner"`
	UptimeSeconds int64         `json:"uptime_seconds"`
	Proxies       []ProxyInfo   `json:"proxies"`
	Authorities   int           `json:"authorities"`
	Fees          fees.Config   `json:"fees"`
	Queue         db.QueueStats `json:"queue"`
}

// Status 汇总节点状态：注册表、授权数、费率与写队列指标
func (n *Node) Status() (*StatusInfo, error) {
	auths, err := n.Authorities()
	if err != nil {
		return nil, err
	}
	return &StatusInfo{
		Owner:         n.owner.Hex(),
		UptimeSeconds: int64(time.Since(n.started).Seconds()),
		Proxies:       n.ListProxies(),
		Authorities:   len(auths),
		Fees:          n.feeMgr.Current(),
		Queue:         n.db.QueueStats(),
	}, nil
}
