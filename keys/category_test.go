package keys

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestCategorizeKey(t *testing.T) {
	t.Parallel()

	token := common.HexToAddress("0x1111111111111111111111111111111111111111")
	holder := common.HexToAddress("0x2222222222222222222222222222222222222222")

	cases := []struct {
		key      string
		category string
	}{
		{KeyBalance(token, holder), CategoryBalance},
		{KeyNFTOwner(token, big.NewInt(1)), CategoryNFT},
		{KeyTokenAllowed(token), CategoryToken},
		{KeyAuthorized(holder), CategoryAuthorized},
		{KeyProxyRegistration([4]byte{0x94, 0xcf, 0xcd, 0xd7}), CategoryRegistry},
		{KeyFeesConfig(), CategoryFees},
		{KeyReceipt("0xabc"), CategoryReceipt},
		{KeyEvent(1), CategoryEvent},
		{"v1_unknown_thing", CategoryMeta},
	}

	for _, c := range cases {
		if got := CategorizeKey(c.key); got != c.category {
			t.Fatalf("CategorizeKey(%s) = %s, want %s", c.key, got, c.category)
		}
	}
}

func TestIsLedgerKey(t *testing.T) {
	t.Parallel()

	token := common.HexToAddress("0x1111111111111111111111111111111111111111")
	holder := common.HexToAddress("0x2222222222222222222222222222222222222222")

	ledger := []string{
		KeyBalance(token, holder),
		KeyNFTOwner(token, big.NewInt(7)),
		KeyTokenAllowed(token),
	}
	for _, key := range ledger {
		if !IsLedgerKey(key) {
			t.Fatalf("expected ledger key: %s", key)
		}
	}

	flow := []string{
		KeyReceipt("0xabc"),
		KeyEvent(3),
	}
	for _, key := range flow {
		if IsLedgerKey(key) {
			t.Fatalf("unexpected ledger key: %s", key)
		}
		if !IsFlowKey(key) {
			t.Fatalf("expected flow key: %s", key)
		}
	}
}
