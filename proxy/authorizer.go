package proxy

import (
	"bytes"
	"encoding/hex"
	"errors"
	"sort"
	"strings"

	"assetproxy/keys"

	"github.com/ethereum/go-ethereum/common"
)

var (
	// ErrAlreadyAuthorized 目标地址已经在授权集合里
	ErrAlreadyAuthorized = errors.New("target already authorized")
	// ErrTargetNotAuthorized 目标地址不在授权集合里
	ErrTargetNotAuthorized = errors.New("target not authorized")
)

// 授权标记的存储值
const authorizedMark = "true"

// Authorizer 授权门：维护允许发起调度的调用方集合。
// 集合本身存在 StateView 里，随调度一起快照与回滚；
// 只有所有者能增删成员。
type Authorizer struct {
	owner common.Address
}

// NewAuthorizer 创建授权门，owner 为唯一的管理地址
func NewAuthorizer(owner common.Address) *Authorizer {
	return &Authorizer{owner: owner}
}

// Owner 返回所有者地址
func (a *Authorizer) Owner() common.Address {
	return a.owner
}

// requireOwner 管理操作的所有者校验
func (a *Authorizer) requireOwner(caller common.Address) error {
	if caller != a.owner || a.owner == (common.Address{}) {
		return ErrNotOwner
	}
	return nil
}

// IsAuthorized 查询某地址是否已授权
func (a *Authorizer) IsAuthorized(sv StateView, addr common.Address) (bool, error) {
	val, exists, err := sv.Get(keys.KeyAuthorized(addr))
	if err != nil {
		return false, err
	}
	return exists && string(val) == authorizedMark, nil
}

// Authorize 把 target 加入授权集合（仅所有者）
// 已存在时返回 ErrAlreadyAuthorized
func (a *Authorizer) Authorize(sv StateView, caller, target common.Address) error {
	if err := a.requireOwner(caller); err != nil {
		return err
	}
	ok, err := a.IsAuthorized(sv, target)
	if err != nil {
		return err
	}
	if ok {
		return ErrAlreadyAuthorized
	}
	sv.Set(keys.KeyAuthorized(target), []byte(authorizedMark))
	return nil
}

// Deauthorize 把 target 移出授权集合（仅所有者）
// 不存在时返回 ErrTargetNotAuthorized
func (a *Authorizer) Deauthorize(sv StateView, caller, target common.Address) error {
	if err := a.requireOwner(caller); err != nil {
		return err
	}
	ok, err := a.IsAuthorized(sv, target)
	if err != nil {
		return err
	}
	if !ok {
		return ErrTargetNotAuthorized
	}
	sv.Del(keys.KeyAuthorized(target))
	return nil
}

// Authorities 枚举当前的授权集合，结果按地址字节序稳定排序
func (a *Authorizer) Authorities(sv StateView) ([]common.Address, error) {
	prefix := keys.KeyAuthorizedPrefix()
	kvs, err := sv.Scan(prefix)
	if err != nil {
		return nil, err
	}

	out := make([]common.Address, 0, len(kvs))
	for k, v := range kvs {
		if string(v) != authorizedMark {
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
