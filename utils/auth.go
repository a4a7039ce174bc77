package utils

import (
	"encoding/binary"
	"errors"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	secpecdsa "github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"github.com/ethereum/go-ethereum/common"
)

// AdminDigest 计算管理操作的签名摘要：
// keccak256(method || nonce(8字节大端) || payload)
// nonce 单调递增，防止重放
func AdminDigest(method string, nonce uint64, payload []byte) []byte {
	var nb [8]byte
	binary.BigEndian.PutUint64(nb[:], nonce)
	return Keccak256([]byte(method), nb[:], payload)
}

// SignDigest 用 compact 格式签名摘要，结果 65 字节（可恢复公钥）
func SignDigest(priv *secp256k1.PrivateKey, digest []byte) []byte {
	return secpecdsa.SignCompact(priv, digest, true)
}

// RecoverSigner 从 compact 签名恢复签名者地址
func RecoverSigner(signature, digest []byte) (common.Address, error) {
	if len(signature) != 65 {
		return common.Address{}, errors.New("compact signature must be 65 bytes")
	}
	pub, _, err := secpecdsa.RecoverCompact(signature, digest)
	if err != nil {
		return common.Address{}, err
	}
	return PubKeyToAddress(pub), nil
}

// VerifySigner 校验签名并确认签名者就是期望地址
func VerifySigner(expected common.Address, signature, digest []byte) bool {
	got, err := RecoverSigner(signature, digest)
	if err != nil {
		return false
	}
	return got == expected
}
