package utils

import (
	"encoding/hex"
	"sync"

	"assetproxy/logs"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/ethereum/go-ethereum/common"
)

// KeyManager 保存单个节点的私钥和推导地址
type KeyManager struct {
	privateKey string         // 私钥（hex字符串）
	address    common.Address // 由私钥推导出的地址
	PrivKey    *secp256k1.PrivateKey
	PubKey     *secp256k1.PublicKey
}

// 单例相关
var (
	keyManagerInstance *KeyManager
	keyManagerOnce     sync.Once
)

// GetKeyManager 获取全局唯一的 KeyManager 实例
func GetKeyManager() *KeyManager {
	keyManagerOnce.Do(func() {
		keyManagerInstance = &KeyManager{}
	})
	return keyManagerInstance
}

func (km *KeyManager) InitKey(priKey string) error {
	priv, err := ParseSecp256k1PrivateKey(priKey)
	if err != nil {
		return err
	}

	km.PrivKey = priv
	km.PubKey = priv.PubKey()
	km.privateKey = priKey
	km.address = DeriveEthereumAddress(priv)

	logs.Debug("[KeyManager] InitKey success. Address=%s\n", km.address.Hex())
	return nil
}

// GetPrivateKey 返回当前节点的私钥字符串
func (km *KeyManager) GetPrivateKey() string {
	return km.privateKey
}

// GetPublicKey 返回压缩公钥的 hex 表示
func (km *KeyManager) GetPublicKey() string {
	if km.PubKey == nil {
		return ""
	}
	return hex.EncodeToString(km.PubKey.SerializeCompressed())
}

// GetAddress 返回当前节点的推导地址
func (km *KeyManager) GetAddress() common.Address {
	return km.address
}
