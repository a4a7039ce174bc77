// service/dispatch.go
// 调度入口：一次 Dispatch = 引擎执行 + 写集落库 + 回执 + 事件，单次强制刷盘。
package service

import (
	"encoding/json"
	"fmt"
	"math/big"
	"time"

	"assetproxy/assetdata"
	"assetproxy/keys"
	"assetproxy/logs"
	"assetproxy/proxy"
	"assetproxy/utils"

	"github.com/ethereum/go-ethereum/common"
)

// DispatchRequest 一次资产调度的全部输入
type DispatchRequest struct {
	Caller    common.Address
	From      common.Address
	To        common.Address
	AssetData []byte
	Amount    *big.Int
}

// Event 事件流水，按发号器序号落库，字典序即时间序
type Event struct {
	Seq       uint64            `json:"seq"`
	Type      string            `json:"type"`
	RequestID string            `json:"request_id,omitempty"`
	Actor     string            `json:"actor"`
	Detail    map[string]string `json:"detail,omitempty"`
	Timestamp int64             `json:"timestamp"`
}

// 事件类型
const (
	EventDispatch      = "dispatch"
	EventRegisterProxy = "register_proxy"
	EventAuthorize     = "authorize"
	EventDeauthorize   = "deauthorize"
	EventAllowToken    = "allow_token"
	EventDisallowToken = "disallow_token"
	EventCredit        = "credit"
	EventMintNFT       = "mint_nft"
	EventSetFees       = "set_fees"
)

// Dispatch 执行一次资产调度。
// 引擎执行失败不是服务错误：状态不落库，失败原因写进回执返回；
// 只有数据库层面的故障才通过 error 上抛。
func (n *Node) Dispatch(req *DispatchRequest) (*proxy.Receipt, error) {
	n.dispatchMu.Lock()
	defer n.dispatchMu.Unlock()

	requestID := utils.NewRequestID(req.AssetData)
	rc := &proxy.Receipt{
		RequestID: requestID,
		Caller:    req.Caller.Hex(),
		From:      req.From.Hex(),
		To:        req.To.Hex(),
		Amount:    amountString(req.Amount),
		Timestamp: time.Now().Unix(),
	}
	if tag, err := assetdata.TagOf(req.AssetData); err == nil {
		rc.Tag = tag.String()
	}

	sv := n.newStateView()
	dispatchErr := n.engine.DispatchTransfer(sv, req.Caller, req.AssetData, req.From, req.To, req.Amount)

	if dispatchErr != nil {
		rc.Status = proxy.StatusFailed
		rc.Error = dispatchErr.Error()
		logs.Debug("[Dispatch] %s failed: %v", requestID, dispatchErr)
	} else {
		diff := sv.Diff()
		rc.Status = proxy.StatusSucceed
		rc.WriteCount = len(diff)
		rc.Fee = n.feeMgr.Quote(req.Amount).String()
		n.enqueueDiff(diff)
	}

	n.enqueueReceipt(rc)
	if dispatchErr == nil {
		n.emitEvent(EventDispatch, requestID, req.Caller, map[string]string{
			"from":   req.From.Hex(),
			"to":     req.To.Hex(),
			"tag":    rc.Tag,
			"amount": rc.Amount,
			"writes": fmt.Sprintf("%d", rc.WriteCount),
		})
	}

	if err := n.db.ForceFlush(); err != nil {
		return nil, fmt.Errorf("flush dispatch %s: %w", requestID, err)
	}
	n.receiptCache.Add(requestID, rc)
	return rc, nil
}

// enqueueReceipt 序列化回执进写队列，序列化失败只告警不中断
func (n *Node) enqueueReceipt(rc *proxy.Receipt) {
	data, err := json.Marshal(rc)
	if err != nil {
		logs.Error("[Dispatch] marshal receipt %s: %v", rc.RequestID, err)
		return
	}
	n.db.EnqueueSet(keys.KeyReceipt(rc.RequestID), string(data))
}

// emitEvent 分配事件序号并入队，失败只告警：事件是辅助流水，不能拖垮主流程
func (n *Node) emitEvent(evType, requestID string, actor common.Address, detail map[string]string) {
	seq, err := n.db.NextIndex()
	if err != nil {
		logs.Error("[Node] allocate event seq: %v", err)
		return
	}
	ev := &Event{
		Seq:       seq,
		Type:      evType,
		RequestID: requestID,
		Actor:     actor.Hex(),
		Detail:    detail,
		Timestamp: time.Now().Unix(),
	}
	data, err := json.Marshal(ev)
	if err != nil {
		logs.Error("[Node] marshal event %d: %v", seq, err)
		return
	}
	n.db.EnqueueSet(keys.KeyEvent(seq), string(data))
}

func amountString(amount *big.Int) string {
	if amount == nil {
		return "0"
	}
	return amount.String()
}
