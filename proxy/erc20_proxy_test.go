package proxy

import (
	"testing"

	"assetproxy/assetdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestERC20TransferHappyPath(t *testing.T) {
	h := NewERC20Proxy()
	sv := newSeededView(nil)
	token, alice, bob := addr("0x01"), addr("0x02"), addr("0x03")

	h.AllowToken(sv, token)
	require.NoError(t, h.Credit(sv, token, alice, bi(500)))

	err := h.TransferFrom(sv, assetdata.EncodeERC20(token), alice, bob, bi(120))
	require.NoError(t, err)

	aliceBal, err := h.BalanceOf(sv, token, alice)
	require.NoError(t, err)
	assert.Equal(t, int64(380), aliceBal.Int64())

	bobBal, err := h.BalanceOf(sv, token, bob)
	require.NoError(t, err)
	assert.Equal(t, int64(120), bobBal.Int64())
}

func TestERC20TransferInsufficient(t *testing.T) {
	h := NewERC20Proxy()
	sv := newSeededView(nil)
	token, alice, bob := addr("0x01"), addr("0x02"), addr("0x03")

	h.AllowToken(sv, token)
	require.NoError(t, h.Credit(sv, token, alice, bi(99)))

	err := h.TransferFrom(sv, assetdata.EncodeERC20(token), alice, bob, bi(100))
	assert.ErrorIs(t, err, ErrInsufficientBalance)

	bal, _ := h.BalanceOf(sv, token, alice)
	assert.Equal(t, int64(99), bal.Int64())
}

func TestERC20TransferNotAllowed(t *testing.T) {
	h := NewERC20Proxy()
	sv := newSeededView(nil)
	token, alice, bob := addr("0x01"), addr("0x02"), addr("0x03")

	err := h.TransferFrom(sv, assetdata.EncodeERC20(token), alice, bob, bi(0))
	assert.ErrorIs(t, err, ErrTokenNotAllowed, "allow list is checked even for zero amounts")
}

func TestERC20DisallowToken(t *testing.T) {
	h := NewERC20Proxy()
	sv := newSeededView(nil)
	token := addr("0x01")

	h.AllowToken(sv, token)
	ok, err := h.IsTokenAllowed(sv, token)
	require.NoError(t, err)
	require.True(t, ok)

	h.DisallowToken(sv, token)
	ok, err = h.IsTokenAllowed(sv, token)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestERC20CreditRequiresAllowList(t *testing.T) {
	h := NewERC20Proxy()
	sv := newSeededView(nil)

	err := h.Credit(sv, addr("0x01"), addr("0x02"), bi(10))
	assert.ErrorIs(t, err, ErrTokenNotAllowed)
}

func TestERC20TransferNegativeAmount(t *testing.T) {
	h := NewERC20Proxy()
	sv := newSeededView(nil)
	token := addr("0x01")
	h.AllowToken(sv, token)

	err := h.TransferFrom(sv, assetdata.EncodeERC20(token), addr("0x02"), addr("0x03"), bi(-1))
	assert.ErrorIs(t, err, ErrNegativeBalance)
}

func TestERC20AllowedTokensEnumeration(t *testing.T) {
	h := NewERC20Proxy()
	sv := newSeededView(nil)
	a, b, c := addr("0x0a"), addr("0x0b"), addr("0x0c")

	h.AllowToken(sv, c)
	h.AllowToken(sv, a)
	h.AllowToken(sv, b)
	h.DisallowToken(sv, b)

	tokens, err := h.AllowedTokens(sv)
	require.NoError(t, err)
	// 移除的不出现，剩余按地址字节序
	require.Len(t, tokens, 2)
	assert.Equal(t, a, tokens[0])
	assert.Equal(t, c, tokens[1])
}

func TestERC20TransferBadAssetData(t *testing.T) {
	h := NewERC20Proxy()
	sv := newSeededView(nil)

	// 长度不对
	err := h.TransferFrom(sv, []byte{0xf4, 0x72, 0x61, 0xb0, 0x00}, addr("0x02"), addr("0x03"), bi(1))
	assert.ErrorIs(t, err, assetdata.ErrInvalidAssetDataLength)

	// 标签不对
	wrongTag := assetdata.EncodeERC20(addr("0x01"))
	wrongTag[0] ^= 0xff
	err = h.TransferFrom(sv, wrongTag, addr("0x02"), addr("0x03"), bi(1))
	assert.ErrorIs(t, err, assetdata.ErrTagMismatch)
}
