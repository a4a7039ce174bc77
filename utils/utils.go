package utils

import (
	"encoding/hex"
	"errors"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/crypto/sha3"
)

// Keccak256 对所有输入做一次 keccak-256
func Keccak256(data ...[]byte) []byte {
	h := sha3.NewLegacyKeccak256()
	for _, d := range data {
		h.Write(d)
	}
	return h.Sum(nil)
}

// DeriveEthereumAddress 以太坊式地址推导: keccak256(pubUncompressed[1:]) 最后20字节
func DeriveEthereumAddress(privKey *secp256k1.PrivateKey) common.Address {
	return PubKeyToAddress(privKey.PubKey())
}

// PubKeyToAddress 从公钥推导地址
func PubKeyToAddress(pub *secp256k1.PublicKey) common.Address {
	// uncompressed 公钥 (首字节0x04 + 32字节X + 32字节Y = 65字节)
	pubUncompressed := pub.SerializeUncompressed()

	// keccak-256，跳过首字节 0x04，剩余 64 字节是 X、Y
	digest := Keccak256(pubUncompressed[1:])

	// 取后20字节作为地址
	return common.BytesToAddress(digest[12:])
}

// ParseSecp256k1PrivateKey 解析 16 进制的32字节私钥字符串（可带 0x 前缀）
func ParseSecp256k1PrivateKey(keyStr string) (*secp256k1.PrivateKey, error) {
	if len(keyStr) >= 2 && keyStr[0] == '0' && (keyStr[1] == 'x' || keyStr[1] == 'X') {
		keyStr = keyStr[2:]
	}
	raw, err := hex.DecodeString(keyStr)
	if err != nil {
		return nil, errors.New("invalid private key hex: " + err.Error())
	}
	if len(raw) != 32 {
		return nil, errors.New("invalid private key length in hex (must be 32 bytes)")
	}
	return secp256k1.PrivKeyFromBytes(raw), nil
}

// ParseAddress 解析 0x 开头的地址字符串，非法时报错而不是静默返回零地址
func ParseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, errors.New("invalid address: " + s)
	}
	return common.HexToAddress(s), nil
}
