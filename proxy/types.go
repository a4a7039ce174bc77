package proxy

import "errors"

// ========== 错误定义 ==========

var (
	// ErrUnauthorized 调用方不在授权集合里
	ErrUnauthorized = errors.New("sender not authorized")
	// ErrProxyNotFound 注册表中没有该类型标签对应的处理器
	ErrProxyNotFound = errors.New("asset proxy does not exist")
	// ErrProxyExists 锁定模式下重复注册同一标签
	ErrProxyExists = errors.New("asset proxy already registered")
	// ErrUint256Overflow 数量缩放结果超出 uint256
	ErrUint256Overflow = errors.New("uint256 overflow")
	// ErrMaxDepthExceeded 篮子嵌套超过配置的最大深度
	ErrMaxDepthExceeded = errors.New("basket nesting too deep")
	// ErrAssetDataTooLarge 资产数据超出配置的字节上限
	ErrAssetDataTooLarge = errors.New("asset data exceeds size limit")
	// ErrNotOwner 管理操作的调用方不是所有者
	ErrNotOwner = errors.New("caller is not the owner")
	// ErrInvalidSnapshot 无效的快照序号
	ErrInvalidSnapshot = errors.New("invalid snapshot index")
)

// ========== 基础类型定义 ==========

// WriteOp “要怎么改状态”的清单
type WriteOp struct {
	Key      string // 完整的 key（包括命名空间前缀）
	Value    []byte // 序列化后的值
	Del      bool   // true表示删除操作
	Category string // 数据分类：balance, nft, authorized, fees 等，便于追踪和调试
}

// IsDel 是否删除操作
func (w WriteOp) IsDel() bool {
	return w.Del
}

// Receipt 记录一次调度的执行结果
type Receipt struct {
	RequestID  string `json:"request_id"`
	Status     string `json:"status"` // "SUCCEED" or "FAILED"
	Error      string `json:"error,omitempty"`
	Caller     string `json:"caller"`
	From       string `json:"from"`
	To         string `json:"to"`
	Tag        string `json:"tag"`
	Amount     string `json:"amount"`
	Fee        string `json:"fee,omitempty"`
	Timestamp  int64  `json:"timestamp"`
	WriteCount int    `json:"write_count"`
}

// 回执状态
const (
	StatusSucceed = "SUCCEED"
	StatusFailed  = "FAILED"
)
