// config/config.go
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Config 主配置结构
type Config struct {
	Node     NodeConfig
	Server   ServerConfig
	Database DatabaseConfig
	Dispatch DispatchConfig
	Fees     FeesConfig
	Auth     AuthConfig
}

// NodeConfig 节点基础配置
type NodeConfig struct {
	DataDir  string // "./data"
	Listen   string // ":6001"
	LogLevel int    // logs.LevelInfo
}

// ServerConfig HTTP/3服务器配置
type ServerConfig struct {
	// TLS配置
	TLSMinVersion string // "1.3"
	TLSMaxVersion string // "1.3"

	// QUIC配置
	QUICKeepAlivePeriod time.Duration // 10 * time.Second
	QUICMaxIdleTimeout  time.Duration // 5 * time.Minute
	QUICAllow0RTT       bool          // true

	// HTTP配置
	HTTPTimeout        time.Duration // 30 * time.Second
	MaxRequestBodySize int64         // 10 << 20 (10MB)

	// 限流配置
	RateLimitPerSec int // 每个客户端每秒允许的请求数
	RateLimitBurst  int // 突发上限

	// 证书配置
	CertValidityDays int // 365
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	// BadgerDB配置
	ValueLogFileSize int64         // 64 << 20 (64MB)
	MaxBatchSize     int           // 100
	FlushInterval    time.Duration // 200 * time.Millisecond

	// 写队列配置
	WriteQueueSize      int   // 100000
	WriteBatchSoftLimit int64 // 8 * 1024 * 1024 (8MB)
	MaxCountPerTxn      int   // 500
	PerEntryOverhead    int   // 32

	// 自增发号器一次预取的号段大小
	SequenceBandwidth uint64 // 1000
}

// DispatchConfig 多资产调度引擎配置
type DispatchConfig struct {
	// 嵌套篮子的最大递归深度，防止恶意构造的深层嵌套耗尽栈
	MaxBasketDepth int // 16

	// 单笔 assetData 的最大字节数，超过直接拒绝
	MaxAssetDataBytes int // 1 << 20 (1MB)

	// true 时注册表禁止覆盖已存在的 4 字节标签
	LockRegistrations bool // false

	// 回执 LRU 缓存大小
	ReceiptCacheSize int // 10000

	// 事件查询单次返回上限
	EventQueryLimit int // 1000
}

// FeesConfig 手续费初始配置
type FeesConfig struct {
	TransferFeeBps uint32 // 万分比（basis points），0 表示不收
	FlatFee        string // 固定费（decimal 字符串）
	Collector      string // 收费地址（0x 十六进制）
}

// AuthConfig 授权与管理配置
type AuthConfig struct {
	Owner            string // 所有者地址（0x 十六进制），管理操作只认它
	VerifySignatures bool   // true 时管理接口必须带 secp256k1 签名
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Node: NodeConfig{
			DataDir:  "./data",
			Listen:   ":6001",
			LogLevel: 3, // logs.LevelInfo
		},
		Server: ServerConfig{
			TLSMinVersion:       "1.3",
			TLSMaxVersion:       "1.3",
			QUICKeepAlivePeriod: 10 * time.Second,
			QUICMaxIdleTimeout:  5 * time.Minute,
			QUICAllow0RTT:       true,
			HTTPTimeout:         30 * time.Second,
			MaxRequestBodySize:  10 << 20,
			RateLimitPerSec:     50,
			RateLimitBurst:      100,
			CertValidityDays:    365,
		},
		Database: DatabaseConfig{
			ValueLogFileSize:    64 << 20,
			MaxBatchSize:        100,
			FlushInterval:       200 * time.Millisecond,
			WriteQueueSize:      100000,
			WriteBatchSoftLimit: 8 * 1024 * 1024,
			MaxCountPerTxn:      500,
			PerEntryOverhead:    32,
			SequenceBandwidth:   1000,
		},
		Dispatch: DispatchConfig{
			MaxBasketDepth:    16,
			MaxAssetDataBytes: 1 << 20,
			LockRegistrations: false,
			ReceiptCacheSize:  10000,
			EventQueryLimit:   1000,
		},
		Fees: FeesConfig{
			TransferFeeBps: 0,
			FlatFee:        "0",
			Collector:      "0x0000000000000000000000000000000000000000",
		},
		Auth: AuthConfig{
			Owner:            "",
			VerifySignatures: true,
		},
	}
}

// LoadFromFile 从 JSON 文件加载配置，未出现的字段保持默认值
func LoadFromFile(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate 验证配置合法性
func (c *Config) Validate() error {
	if c.Dispatch.MaxBasketDepth <= 0 {
		return fmt.Errorf("MaxBasketDepth must be positive")
	}
	if c.Dispatch.MaxAssetDataBytes < 68 {
		return fmt.Errorf("MaxAssetDataBytes too small for any valid asset data")
	}
	if c.Fees.TransferFeeBps > 10000 {
		return fmt.Errorf("TransferFeeBps must not exceed 10000")
	}
	if c.Database.MaxBatchSize <= 0 {
		return fmt.Errorf("MaxBatchSize must be positive")
	}
	if c.Database.WriteQueueSize <= 0 {
		return fmt.Errorf("WriteQueueSize must be positive")
	}
	return nil
}
