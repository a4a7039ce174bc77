// crt/cert.go
// 自签名 TLS 证书生成。证书的 Organization 字段写入由证书公钥
// 推导出的 0x 地址，作为节点在握手层的身份标识。
package crt

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"math/big"
	"os"
	"time"

	"assetproxy/logs"
	"assetproxy/utils"

	"github.com/ethereum/go-ethereum/common"
)

// DeriveAddress 按以太坊地址规则从 ECDSA 公钥推导 0x 地址：
// keccak256(未压缩公钥去掉前缀字节) 的末 20 字节
func DeriveAddress(pub *ecdsa.PublicKey) common.Address {
	raw := elliptic.Marshal(pub.Curve, pub.X, pub.Y)
	digest := utils.Keccak256(raw[1:])
	return common.BytesToAddress(digest[12:])
}

// GenerateSelfSignedCert 生成一对自签名证书和私钥并写到指定路径
func GenerateSelfSignedCert(certPath, keyPath string, validityDays int) error {
	if validityDays <= 0 {
		validityDays = 365
	}

	privateKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return err
	}

	// 证书自带身份：公钥推导的 0x 地址写进组织字段
	identity := DeriveAddress(&privateKey.PublicKey)

	template := x509.Certificate{
		SerialNumber: big.NewInt(time.Now().UnixNano()),
		Subject: pkix.Name{
			Organization: []string{identity.Hex()},
		},
		NotBefore: time.Now(),
		NotAfter:  time.Now().Add(time.Duration(validityDays) * 24 * time.Hour),
		KeyUsage:  x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature,
		ExtKeyUsage: []x509.ExtKeyUsage{
			x509.ExtKeyUsageServerAuth,
		},
		BasicConstraintsValid: true,
		DNSNames:              []string{"localhost"},
	}

	certBytes, err := x509.CreateCertificate(rand.Reader, &template, &template, &privateKey.PublicKey, privateKey)
	if err != nil {
		return err
	}

	certFile, err := os.Create(certPath)
	if err != nil {
		return err
	}
	defer certFile.Close()
	if err := pem.Encode(certFile, &pem.Block{Type: "CERTIFICATE", Bytes: certBytes}); err != nil {
		return err
	}

	keyFile, err := os.OpenFile(keyPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer keyFile.Close()
	privBytes, err := x509.MarshalECPrivateKey(privateKey)
	if err != nil {
		return err
	}
	if err := pem.Encode(keyFile, &pem.Block{Type: "EC PRIVATE KEY", Bytes: privBytes}); err != nil {
		return err
	}

	logs.Debug("Certificate and key generated:\nCertificate: %s\nPrivate Key: %s\n", certPath, keyPath)
	logs.Debug("Node identity in certificate: %s\n", identity.Hex())
	return nil
}

// EnsureCert 证书或私钥文件缺失时重新生成一对，都在则复用
func EnsureCert(certPath, keyPath string, validityDays int) error {
	_, certErr := os.Stat(certPath)
	_, keyErr := os.Stat(keyPath)
	if certErr == nil && keyErr == nil {
		return nil
	}
	if err := GenerateSelfSignedCert(certPath, keyPath, validityDays); err != nil {
		return fmt.Errorf("generate self-signed cert: %w", err)
	}
	return nil
}
