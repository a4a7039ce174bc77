package keys

// BusinessKeySpec describes one persisted business key family.
type BusinessKeySpec struct {
	Prefix      string
	KeyBuilder  string
	Description string
}

// businessKeySpecs is the single source of truth for persisted key
// families.
//
// Keep this list in sync with key builders in keys/keys.go.
var businessKeySpecs = []BusinessKeySpec{
	{Prefix: withVer("balance_"), KeyBuilder: "KeyBalance", Description: "Per-token fungible balances"},
	{Prefix: withVer("nft_"), KeyBuilder: "KeyNFTOwner", Description: "NFT ownership records"},
	{Prefix: withVer("token_allowed_"), KeyBuilder: "KeyTokenAllowed", Description: "Fungible token allow list"},
	{Prefix: withVer("authorized_"), KeyBuilder: "KeyAuthorized", Description: "Authorized dispatch callers"},
	{Prefix: withVer("assetproxy_"), KeyBuilder: "KeyProxyRegistration", Description: "Handler registry persistence"},
	{Prefix: withVer("fees_config"), KeyBuilder: "KeyFeesConfig", Description: "Fee configuration"},
	{Prefix: withVer("admin_nonce_"), KeyBuilder: "KeyAdminNonce", Description: "Admin replay protection"},
	{Prefix: withVer("receipt_"), KeyBuilder: "KeyReceipt", Description: "Dispatch receipts"},
	{Prefix: withVer("event_"), KeyBuilder: "KeyEvent", Description: "Event journal"},
}

// BusinessKeySpecs returns a copy of the current business key specs.
// Use this as the canonical list when walking the whole store.
func BusinessKeySpecs() []BusinessKeySpec {
	out := make([]BusinessKeySpec, len(businessKeySpecs))
	copy(out, businessKeySpecs)
	return out
}
