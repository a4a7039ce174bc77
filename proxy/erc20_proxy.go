package proxy

import (
	"bytes"
	"encoding/hex"
	"errors"
	"math/big"
	"sort"
	"strings"

	"assetproxy/assetdata"
	"assetproxy/keys"

	"github.com/ethereum/go-ethereum/common"
)

var (
	// ErrTokenNotAllowed 代币不在白名单内
	ErrTokenNotAllowed = errors.New("token not in allow list")
	// ErrInsufficientBalance 余额不足
	ErrInsufficientBalance = errors.New("insufficient balance")
)

// allowedMark 白名单标记值
const allowedMark = "true"

// ERC20Proxy 同质化代币处理器。
// 余额以十进制字符串落在 balance key 下，
// 只有白名单内的代币才允许转移和发行。
type ERC20Proxy struct{}

// NewERC20Proxy 创建同质化代币处理器
func NewERC20Proxy() *ERC20Proxy {
	return &ERC20Proxy{}
}

func (h *ERC20Proxy) Tag() assetdata.TypeTag {
	return assetdata.ERC20Tag
}

func (h *ERC20Proxy) Name() string {
	return "erc20"
}

// TransferFrom 执行一次同质化代币转移：
// 解码资产数据 → 白名单检查 → 扣减 from → 增加 to。
// 数量为 0 时白名单检查照常执行，余额读写也照常发生。
func (h *ERC20Proxy) TransferFrom(sv StateView, assetData []byte, from, to common.Address, amount *big.Int) error {
	token, err := assetdata.DecodeERC20(assetData)
	if err != nil {
		return err
	}

	allowed, err := h.IsTokenAllowed(sv, token)
	if err != nil {
		return err
	}
	if !allowed {
		return ErrTokenNotAllowed
	}

	if amount == nil {
		amount = big.NewInt(0)
	}
	if amount.Sign() < 0 {
		return ErrNegativeBalance
	}

	fromKey := keys.KeyBalance(token, from)
	fromRaw, _, err := sv.Get(fromKey)
	if err != nil {
		return err
	}
	fromBal, err := ParseBalance(string(fromRaw))
	if err != nil {
		return err
	}
	if fromBal.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}

	newFrom, err := SafeSub(fromBal, amount)
	if err != nil {
		return err
	}
	sv.Set(fromKey, []byte(newFrom.String()))

	// from == to 时这里读到的是上面刚写入的扣减结果，净变化为零
	toKey := keys.KeyBalance(token, to)
	toRaw, _, err := sv.Get(toKey)
	if err != nil {
		return err
	}
	toBal, err := ParseBalance(string(toRaw))
	if err != nil {
		return err
	}
	newTo, err := SafeAdd(toBal, amount)
	if err != nil {
		return err
	}
	sv.Set(toKey, []byte(newTo.String()))

	return nil
}

// AllowToken 把代币加入白名单。所有权校验在管理通道完成。
func (h *ERC20Proxy) AllowToken(sv StateView, token common.Address) {
	sv.Set(keys.KeyTokenAllowed(token), []byte(allowedMark))
}

// DisallowToken 把代币移出白名单
func (h *ERC20Proxy) DisallowToken(sv StateView, token common.Address) {
	sv.Del(keys.KeyTokenAllowed(token))
}

// IsTokenAllowed 查询代币是否在白名单内
func (h *ERC20Proxy) IsTokenAllowed(sv StateView, token common.Address) (bool, error) {
	raw, exist, err := sv.Get(keys.KeyTokenAllowed(token))
	if err != nil {
		return false, err
	}
	return exist && string(raw) == allowedMark, nil
}

// AllowedTokens 枚举白名单里的全部代币，按地址字节序稳定排序
func (h *ERC20Proxy) AllowedTokens(sv StateView) ([]common.Address, error) {
	prefix := keys.KeyTokenAllowedPrefix()
	kvs, err := sv.Scan(prefix)
	if err != nil {
		return nil, err
	}

	out := make([]common.Address, 0, len(kvs))
	for k, v := range kvs {
		if string(v) != allowedMark {
			continue
		}
		raw, err := hex.DecodeString(strings.TrimPrefix(k, prefix))
		if err != nil || len(raw) != common.AddressLength {
			continue
		}
		out = append(out, common.BytesToAddress(raw))
	}
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i].Bytes(), out[j].Bytes()) < 0
	})
	return out, nil
}

// Credit 给指定地址发行代币（铸造），只对白名单内的代币生效
func (h *ERC20Proxy) Credit(sv StateView, token, to common.Address, amount *big.Int) error {
	allowed, err := h.IsTokenAllowed(sv, token)
	if err != nil {
		return err
	}
	if !allowed {
		return ErrTokenNotAllowed
	}

	if amount == nil || amount.Sign() < 0 {
		return ErrNegativeBalance
	}

	key := keys.KeyBalance(token, to)
	raw, _, err := sv.Get(key)
	if err != nil {
		return err
	}
	bal, err := ParseBalance(string(raw))
	if err != nil {
		return err
	}
	newBal, err := SafeAdd(bal, amount)
	if err != nil {
		return err
	}
	sv.Set(key, []byte(newBal.String()))
	return nil
}

// BalanceOf 查询某地址持有的代币余额，未见过的地址余额为 0
func (h *ERC20Proxy) BalanceOf(sv StateView, token, holder common.Address) (*big.Int, error) {
	raw, _, err := sv.Get(keys.KeyBalance(token, holder))
	if err != nil {
		return nil, err
	}
	return ParseBalance(string(raw))
}
