// fees 手续费配置组件：
// 两个数值参数（比例费 bps + 固定费）加一个收费地址。
// 配置本体落在状态里，内存里保留一份当前值供查询与报价。
package fees

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"assetproxy/config"
	"assetproxy/keys"
	"assetproxy/proxy"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

const (
	// BpsDenominator 比例费的分母：1 bps = 万分之一
	BpsDenominator = 10000
	// MaxTransferFeeBps 比例费上限（100%）
	MaxTransferFeeBps = BpsDenominator
)

var (
	// ErrFeeTooHigh 比例费超过 100%
	ErrFeeTooHigh = errors.New("transfer fee bps exceeds 100%")
	// ErrNegativeFlatFee 固定费为负
	ErrNegativeFlatFee = errors.New("flat fee must not be negative")
)

// Config 手续费配置。Collector 为零地址时表示尚未指定收费方。
type Config struct {
	TransferFeeBps uint32          `json:"transfer_fee_bps"`
	FlatFee        decimal.Decimal `json:"flat_fee"`
	Collector      common.Address  `json:"collector"`
}

// Validate 校验配置参数
func (c *Config) Validate() error {
	if c.TransferFeeBps > MaxTransferFeeBps {
		return ErrFeeTooHigh
	}
	if c.FlatFee.IsNegative() {
		return ErrNegativeFlatFee
	}
	return nil
}

// FromSettings 把节点配置里的手续费段解析成 Config
func FromSettings(fc config.FeesConfig) (Config, error) {
	flat := decimal.Zero
	if fc.FlatFee != "" {
		var err error
		flat, err = decimal.NewFromString(fc.FlatFee)
		if err != nil {
			return Config{}, fmt.Errorf("parse flat fee: %w", err)
		}
	}

	var collector common.Address
	if fc.Collector != "" {
		if !common.IsHexAddress(fc.Collector) {
			return Config{}, fmt.Errorf("invalid fee collector address: %s", fc.Collector)
		}
		collector = common.HexToAddress(fc.Collector)
	}

	cfg := Config{
		TransferFeeBps: fc.TransferFeeBps,
		FlatFee:        flat,
		Collector:      collector,
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Manager 手续费管理器
type Manager struct {
	mu  sync.RWMutex
	cfg Config
}

// NewManager 用初始配置创建管理器
func NewManager(initial Config) *Manager {
	return &Manager{cfg: initial}
}

// Current 返回当前配置的副本
func (m *Manager) Current() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}

// Load 从状态视图读取持久化配置并覆盖内存值。
// 状态里没有记录时保持现有配置不变（启动默认值生效）。
func (m *Manager) Load(sv proxy.StateView) error {
	raw, exist, err := sv.Get(keys.KeyFeesConfig())
	if err != nil {
		return err
	}
	if !exist {
		return nil
	}

	var cfg Config
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return fmt.Errorf("decode fees config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	m.cfg = cfg
	m.mu.Unlock()
	return nil
}

// Update 校验新配置、写入状态视图并更新内存值。
// 所有权校验由管理通道完成。
func (m *Manager) Update(sv proxy.StateView, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	raw, err := json.Marshal(&cfg)
	if err != nil {
		return err
	}
	sv.Set(keys.KeyFeesConfig(), raw)

	m.mu.Lock()
	m.cfg = cfg
	m.mu.Unlock()
	return nil
}

// Quote 按当前配置对一笔调度报价：amount × bps / 10000 + 固定费。
// 只做报价，不划扣；amount 为 nil 时按 0 处理。
func (m *Manager) Quote(amount *big.Int) decimal.Decimal {
	m.mu.RLock()
	cfg := m.cfg
	m.mu.RUnlock()

	if amount == nil {
		amount = big.NewInt(0)
	}

	proportional := decimal.NewFromBigInt(amount, 0).
		Mul(decimal.NewFromInt(int64(cfg.TransferFeeBps))).
		Div(decimal.NewFromInt(BpsDenominator))
	return proportional.Add(cfg.FlatFee)
}
