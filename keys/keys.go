// keys/keys.go
// 统一的 Key 定义包，供 proxy、service 和 db 模块共同使用
package keys

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// ===================== 版本控制 =====================
// 设置全局 Key 版本前缀（例如 "v1" → 产出 "v1_<key>"）。
// 如需立刻兼容旧数据，暂时将 KeyVersion 设为 "" 即可不加版本前缀。
const KeyVersion = "v1"

// withVer 把版本号拼到最前面（保持下划线风格：v1_<...>）
func withVer(s string) string {
	if KeyVersion == "" {
		return s
	}
	return KeyVersion + "_" + s
}

// StripVersion 读取回退辅助：把带版本的键去掉版本前缀，便于双读回退。
func StripVersion(prefixed string) string {
	if KeyVersion == "" {
		return prefixed
	}
	p := KeyVersion + "_"
	return strings.TrimPrefix(prefixed, p)
}

// Addr 地址的键内规范形式：小写 hex，不带 0x
// （common.Address.Hex() 是 EIP-55 混合大小写，不能直接进键）
func Addr(a common.Address) string {
	return hex.EncodeToString(a.Bytes())
}

// ===================== 资产账本 =====================

// KeyBalance 同质化代币余额
// 例：v1_balance_<token>_<holder>
func KeyBalance(token, holder common.Address) string {
	return withVer(fmt.Sprintf("balance_%s_%s", Addr(token), Addr(holder)))
}

// KeyBalancePrefix 某个代币下所有持仓的扫描前缀
func KeyBalancePrefix(token common.Address) string {
	return withVer(fmt.Sprintf("balance_%s_", Addr(token)))
}

// KeyNFTOwner NFT 持有人
// 例：v1_nft_<token>_<tokenID>
func KeyNFTOwner(token common.Address, tokenID *big.Int) string {
	return withVer(fmt.Sprintf("nft_%s_%s", Addr(token), tokenID.String()))
}

// KeyNFTPrefix 某个 NFT 合约下所有 token 的扫描前缀
func KeyNFTPrefix(token common.Address) string {
	return withVer(fmt.Sprintf("nft_%s_", Addr(token)))
}

// KeyTokenAllowed 代币白名单标记
// 例：v1_token_allowed_<token>
func KeyTokenAllowed(token common.Address) string {
	return withVer("token_allowed_" + Addr(token))
}

// KeyTokenAllowedPrefix 白名单扫描前缀
func KeyTokenAllowedPrefix() string {
	return withVer("token_allowed_")
}

// ===================== 授权与注册表 =====================

// KeyAuthorized 已授权调用方标记
// 例：v1_authorized_<addr>
func KeyAuthorized(addr common.Address) string {
	return withVer("authorized_" + Addr(addr))
}

// KeyAuthorizedPrefix 授权集合扫描前缀
func KeyAuthorizedPrefix() string {
	return withVer("authorized_")
}

// KeyProxyRegistration 注册表持久化记录（tag → handler 名）
// 例：v1_assetproxy_f47261b0
func KeyProxyRegistration(tag [4]byte) string {
	return withVer("assetproxy_" + hex.EncodeToString(tag[:]))
}

// KeyProxyRegistrationPrefix 注册表扫描前缀
func KeyProxyRegistrationPrefix() string {
	return withVer("assetproxy_")
}

// ===================== 手续费与管理 =====================

// KeyFeesConfig 手续费配置（JSON 单条）
func KeyFeesConfig() string {
	return withVer("fees_config")
}

// KeyAdminNonce 管理操作重放保护计数
// 例：v1_admin_nonce_<addr>
func KeyAdminNonce(addr common.Address) string {
	return withVer("admin_nonce_" + Addr(addr))
}

// ===================== 回执与事件 =====================

// KeyReceipt 调度回执
// 例：v1_receipt_<requestID>
func KeyReceipt(requestID string) string {
	return withVer("receipt_" + requestID)
}

// KeyEvent 事件流水，序号零填充保证字典序即时间序
// 例：v1_event_00000000000000000042
func KeyEvent(seq uint64) string {
	return withVer(fmt.Sprintf("event_%020d", seq))
}

// KeyEventPrefix 事件扫描前缀
func KeyEventPrefix() string {
	return withVer("event_")
}
