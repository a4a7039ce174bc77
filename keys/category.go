// keys/category.go
// Key 分类模块：按键前缀归类数据，用于写集追踪与统计
package keys

import "strings"

// 数据分类名
const (
	CategoryBalance    = "balance"    // 同质化代币余额
	CategoryNFT        = "nft"        // NFT 持有人
	CategoryToken      = "token"      // 代币白名单
	CategoryAuthorized = "authorized" // 授权集合
	CategoryRegistry   = "registry"   // 注册表持久化
	CategoryFees       = "fees"       // 手续费配置
	CategoryReceipt    = "receipt"    // 调度回执
	CategoryEvent      = "event"      // 事件流水
	CategoryMeta       = "meta"       // 其他
)

// 前缀到分类的映射，顺序即匹配优先级
var categoryPrefixes = []struct {
	prefix   string
	category string
}{
	{withVer("balance_"), CategoryBalance},
	{withVer("nft_"), CategoryNFT},
	{withVer("token_allowed_"), CategoryToken},
	{withVer("authorized_"), CategoryAuthorized},
	{withVer("assetproxy_"), CategoryRegistry},
	{withVer("fees_config"), CategoryFees},
	{withVer("receipt_"), CategoryReceipt},
	{withVer("event_"), CategoryEvent},
}

// CategorizeKey 返回 key 的数据分类
func CategorizeKey(key string) string {
	for _, e := range categoryPrefixes {
		if strings.HasPrefix(key, e.prefix) {
			return e.category
		}
	}
	return CategoryMeta
}

// IsLedgerKey 判断 key 是否属于账本状态（余额 / NFT / 白名单）
// 账本状态参与调度的快照与回滚，回执与事件属于流水
func IsLedgerKey(key string) bool {
	switch CategorizeKey(key) {
	case CategoryBalance, CategoryNFT, CategoryToken:
		return true
	}
	return false
}

// IsFlowKey 判断 key 是否属于不可变流水（回执、事件）
func IsFlowKey(key string) bool {
	switch CategorizeKey(key) {
	case CategoryReceipt, CategoryEvent:
		return true
	}
	return false
}
