package fees

import (
	"math/big"
	"testing"

	"assetproxy/config"
	"assetproxy/keys"
	"assetproxy/proxy"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestFromSettings(t *testing.T) {
	cfg, err := FromSettings(config.FeesConfig{
		TransferFeeBps: 25,
		FlatFee:        "1.5",
		Collector:      "0x00000000000000000000000000000000000000aa",
	})
	require.NoError(t, err)
	assert.Equal(t, uint32(25), cfg.TransferFeeBps)
	assert.True(t, cfg.FlatFee.Equal(dec("1.5")))
	assert.Equal(t, common.HexToAddress("0xaa"), cfg.Collector)

	// 空字段走默认值
	cfg, err = FromSettings(config.FeesConfig{})
	require.NoError(t, err)
	assert.True(t, cfg.FlatFee.IsZero())
	assert.Equal(t, common.Address{}, cfg.Collector)

	_, err = FromSettings(config.FeesConfig{FlatFee: "abc"})
	assert.Error(t, err)

	_, err = FromSettings(config.FeesConfig{Collector: "not-an-address"})
	assert.Error(t, err)

	_, err = FromSettings(config.FeesConfig{TransferFeeBps: MaxTransferFeeBps + 1})
	assert.ErrorIs(t, err, ErrFeeTooHigh)
}

func TestManagerUpdateLoadRoundTrip(t *testing.T) {
	sv := proxy.NewStateView(nil, nil)
	m := NewManager(Config{})

	want := Config{
		TransferFeeBps: 50,
		FlatFee:        dec("2.25"),
		Collector:      common.HexToAddress("0xbb"),
	}
	require.NoError(t, m.Update(sv, want))
	assert.Equal(t, uint32(50), m.Current().TransferFeeBps)

	// 持久化记录写在固定 key 下
	raw, exist, err := sv.Get(keys.KeyFeesConfig())
	require.NoError(t, err)
	require.True(t, exist)
	require.NotEmpty(t, raw)

	// 新的管理器从同一个视图加载出相同配置
	fresh := NewManager(Config{})
	require.NoError(t, fresh.Load(sv))
	got := fresh.Current()
	assert.Equal(t, want.TransferFeeBps, got.TransferFeeBps)
	assert.True(t, got.FlatFee.Equal(want.FlatFee))
	assert.Equal(t, want.Collector, got.Collector)
}

func TestManagerLoadMissingKeepsDefaults(t *testing.T) {
	sv := proxy.NewStateView(nil, nil)
	m := NewManager(Config{TransferFeeBps: 10, FlatFee: dec("1")})

	require.NoError(t, m.Load(sv))
	assert.Equal(t, uint32(10), m.Current().TransferFeeBps)
}

func TestManagerUpdateRejectsInvalid(t *testing.T) {
	sv := proxy.NewStateView(nil, nil)
	m := NewManager(Config{})

	err := m.Update(sv, Config{TransferFeeBps: MaxTransferFeeBps + 1})
	assert.ErrorIs(t, err, ErrFeeTooHigh)

	err = m.Update(sv, Config{FlatFee: dec("-1")})
	assert.ErrorIs(t, err, ErrNegativeFlatFee)

	_, exist, getErr := sv.Get(keys.KeyFeesConfig())
	require.NoError(t, getErr)
	assert.False(t, exist, "rejected updates must not persist anything")
}

func TestManagerQuote(t *testing.T) {
	m := NewManager(Config{TransferFeeBps: 25, FlatFee: dec("1.5")})

	// 10000 × 25 / 10000 + 1.5 = 26.5
	q := m.Quote(big.NewInt(10000))
	assert.True(t, q.Equal(dec("26.5")), "got %s", q)

	// 比例部分保留小数：100 × 25 / 10000 = 0.25
	q = m.Quote(big.NewInt(100))
	assert.True(t, q.Equal(dec("1.75")), "got %s", q)

	// nil 金额只收固定费
	q = m.Quote(nil)
	assert.True(t, q.Equal(dec("1.5")))

	// 零配置报价为零
	q = NewManager(Config{}).Quote(big.NewInt(12345))
	assert.True(t, q.IsZero())
}
