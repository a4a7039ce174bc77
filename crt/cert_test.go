package crt

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestGenerateSelfSignedCert(t *testing.T) {
	dir := t.TempDir()
	certPath := filepath.Join(dir, "server.crt")
	keyPath := filepath.Join(dir, "server.key")

	if err := GenerateSelfSignedCert(certPath, keyPath, 30); err != nil {
		t.Fatalf("generate: %v", err)
	}

	// 证书与私钥能组成合法的 TLS 密钥对
	if _, err := tls.LoadX509KeyPair(certPath, keyPath); err != nil {
		t.Fatalf("load key pair: %v", err)
	}

	raw, err := os.ReadFile(certPath)
	if err != nil {
		t.Fatal(err)
	}
	block, _ := pem.Decode(raw)
	if block == nil {
		t.Fatal("no PEM block in cert file")
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		t.Fatalf("parse certificate: %v", err)
	}

	// 组织字段携带 0x 开头的节点身份
	if len(cert.Subject.Organization) != 1 {
		t.Fatalf("want 1 organization entry, got %d", len(cert.Subject.Organization))
	}
	id := cert.Subject.Organization[0]
	if !strings.HasPrefix(id, "0x") || len(id) != 42 {
		t.Fatalf("organization %q is not a 0x address", id)
	}
}

func TestEnsureCertReusesExisting(t *testing.T) {
	dir := t.TempDir()
	certPath := filepath.Join(dir, "server.crt")
	keyPath := filepath.Join(dir, "server.key")

	if err := EnsureCert(certPath, keyPath, 30); err != nil {
		t.Fatalf("first ensure: %v", err)
	}
	before, err := os.ReadFile(certPath)
	if err != nil {
		t.Fatal(err)
	}

	if err := EnsureCert(certPath, keyPath, 30); err != nil {
		t.Fatalf("second ensure: %v", err)
	}
	after, err := os.ReadFile(certPath)
	if err != nil {
		t.Fatal(err)
	}

	if string(before) != string(after) {
		t.Fatal("existing certificate should be reused, not regenerated")
	}
}

func TestEnsureCertRegeneratesWhenKeyMissing(t *testing.T) {
	dir := t.TempDir()
	certPath := filepath.Join(dir, "server.crt")
	keyPath := filepath.Join(dir, "server.key")

	if err := EnsureCert(certPath, keyPath, 30); err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(keyPath); err != nil {
		t.Fatal(err)
	}

	if err := EnsureCert(certPath, keyPath, 30); err != nil {
		t.Fatalf("regenerate: %v", err)
	}
	if _, err := tls.LoadX509KeyPair(certPath, keyPath); err != nil {
		t.Fatalf("regenerated pair should load: %v", err)
	}
}
