package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"assetproxy/assetdata"
	"assetproxy/config"
	"assetproxy/proxy"
	"assetproxy/service"
	"assetproxy/utils"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/require"
)

// apiEnv 路由级测试环境：真实节点加 httptest，不起网络监听
type apiEnv struct {
	mux   *http.ServeMux
	node  *service.Node
	priv  *secp256k1.PrivateKey
	owner common.Address
	nonce uint64
}

func newAPIEnv(t *testing.T) *apiEnv {
	t.Helper()

	priv, err := secp256k1.GeneratePrivateKey()
	require.NoError(t, err)
	owner := utils.DeriveEthereumAddress(priv)

	cfg := config.DefaultConfig()
	cfg.Node.DataDir = t.TempDir()
	cfg.Database.FlushInterval = 20 * time.Millisecond
	cfg.Auth.Owner = owner.Hex()
	cfg.Auth.VerifySignatures = true

	node, err := service.NewNode(cfg)
	require.NoError(t, err)
	t.Cleanup(node.Close)

	mux := http.NewServeMux()
	NewHandlerManager(node).RegisterRoutes(mux)

	return &apiEnv{mux: mux, node: node, priv: priv, owner: owner}
}

func (e *apiEnv) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	e.mux.ServeHTTP(rec, req)
	return rec
}

func (e *apiEnv) post(t *testing.T, path string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.mux.ServeHTTP(rec, req)
	return rec
}

// adminBody 组装签好名的管理信封。payload 先序列化再签名，
// 信封里用 RawMessage 原样嵌入，保证线上字节和签名字节一致
func (e *apiEnv) adminBody(t *testing.T, method string, payload interface{}) []byte {
	t.Helper()
	payloadRaw, err := json.Marshal(payload)
	require.NoError(t, err)

	e.nonce++
	sig := utils.SignDigest(e.priv, utils.AdminDigest(method, e.nonce, payloadRaw))

	body, err := json.Marshal(map[string]interface{}{
		"caller":    e.owner.Hex(),
		"nonce":     e.nonce,
		"payload":   json.RawMessage(payloadRaw),
		"signature": hexutil.Encode(sig),
	})
	require.NoError(t, err)
	return body
}

func (e *apiEnv) mustAdmin(t *testing.T, path, method string, payload interface{}) {
	t.Helper()
	rec := e.post(t, path, e.adminBody(t, method, payload))
	require.Equal(t, http.StatusOK, rec.Code, "admin %s: %s", path, rec.Body.String())
}

func (e *apiEnv) setupLedger(t *testing.T, caller, token, alice common.Address, amount string) {
	t.Helper()
	e.mustAdmin(t, "/admin/authorize", "authorize", map[string]string{"target": caller.Hex()})
	e.mustAdmin(t, "/admin/allowtoken", "allowtoken", map[string]string{"token": token.Hex()})
	e.mustAdmin(t, "/admin/credit", "credit", map[string]string{
		"token": token.Hex(), "to": alice.Hex(), "amount": amount,
	})
}

func TestHandleDispatchEndToEnd(t *testing.T) {
	env := newAPIEnv(t)
	caller := common.HexToAddress("0xaa02")
	token := common.HexToAddress("0xbb01")
	alice := common.HexToAddress("0xaa03")
	bob := common.HexToAddress("0xaa04")

	env.setupLedger(t, caller, token, alice, "1000")

	body, err := json.Marshal(map[string]string{
		"caller":     caller.Hex(),
		"from":       alice.Hex(),
		"to":         bob.Hex(),
		"asset_data": hexutil.Encode(assetdata.EncodeERC20(token)),
		"amount":     "300",
	})
	require.NoError(t, err)

	rec := env.post(t, "/dispatch", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var rc proxy.Receipt
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rc))
	require.Equal(t, proxy.StatusSucceed, rc.Status)
	require.NotEmpty(t, rc.RequestID)

	// 余额查询
	rec = env.get(t, fmt.Sprintf("/balance?token=%s&holders=%s,%s", token.Hex(), alice.Hex(), bob.Hex()))
	require.Equal(t, http.StatusOK, rec.Code)
	var bal balancesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &bal))
	require.Equal(t, "700", bal.Balances[alice.Hex()])
	require.Equal(t, "300", bal.Balances[bob.Hex()])

	// 回执查询
	rec = env.get(t, "/receipt?id="+rc.RequestID)
	require.Equal(t, http.StatusOK, rec.Code)

	// 事件流水：三个管理事件加一个调度事件
	rec = env.get(t, "/events")
	require.Equal(t, http.StatusOK, rec.Code)
	var evs eventsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &evs))
	require.Equal(t, 4, evs.Count)
	require.Equal(t, service.EventDispatch, evs.Events[3].Type)
}

func TestHandleDispatchEngineFailureStillOK(t *testing.T) {
	env := newAPIEnv(t)
	token := common.HexToAddress("0xbb01")

	body, err := json.Marshal(map[string]string{
		"caller":     "0x00000000000000000000000000000000000000cc",
		"from":       "0x00000000000000000000000000000000000000aa",
		"to":         "0x00000000000000000000000000000000000000ab",
		"asset_data": hexutil.Encode(assetdata.EncodeERC20(token)),
		"amount":     "10",
	})
	require.NoError(t, err)

	rec := env.post(t, "/dispatch", body)
	require.Equal(t, http.StatusOK, rec.Code)

	var rc proxy.Receipt
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rc))
	require.Equal(t, proxy.StatusFailed, rc.Status)
	require.Equal(t, proxy.ErrUnauthorized.Error(), rc.Error)
}

func TestHandleDispatchRejectsBadInput(t *testing.T) {
	env := newAPIEnv(t)

	// 非法十六进制
	body, _ := json.Marshal(map[string]string{
		"caller": "0x00000000000000000000000000000000000000aa",
		"from":   "0x00000000000000000000000000000000000000ab",
		"to":     "0x00000000000000000000000000000000000000ac",
		"asset_data": "zzzz", "amount": "10",
	})
	rec := env.post(t, "/dispatch", body)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	// 负数数量
	body, _ = json.Marshal(map[string]string{
		"caller": "0x00000000000000000000000000000000000000aa",
		"from":   "0x00000000000000000000000000000000000000ab",
		"to":     "0x00000000000000000000000000000000000000ac",
		"asset_data": "0xf47261b0", "amount": "-5",
	})
	rec = env.post(t, "/dispatch", body)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	// GET 不允许
	rec = env.get(t, "/dispatch")
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestAdminBadSignatureGets403(t *testing.T) {
	env := newAPIEnv(t)

	payloadRaw, err := json.Marshal(map[string]string{"target": "0x00000000000000000000000000000000000000aa"})
	require.NoError(t, err)
	// 签名盖在别的 nonce 上
	sig := utils.SignDigest(env.priv, utils.AdminDigest("authorize", 99, payloadRaw))
	body, err := json.Marshal(map[string]interface{}{
		"caller":    env.owner.Hex(),
		"nonce":     1,
		"payload":   json.RawMessage(payloadRaw),
		"signature": hexutil.Encode(sig),
	})
	require.NoError(t, err)

	rec := env.post(t, "/admin/authorize", body)
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAdminStrangerCallerGets403(t *testing.T) {
	env := newAPIEnv(t)

	payloadRaw, err := json.Marshal(map[string]string{"target": "0x00000000000000000000000000000000000000aa"})
	require.NoError(t, err)
	sig := utils.SignDigest(env.priv, utils.AdminDigest("authorize", 1, payloadRaw))
	body, err := json.Marshal(map[string]interface{}{
		"caller":    "0x00000000000000000000000000000000000000cc",
		"nonce":     1,
		"payload":   json.RawMessage(payloadRaw),
		"signature": hexutil.Encode(sig),
	})
	require.NoError(t, err)

	rec := env.post(t, "/admin/authorize", body)
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestHandleRegisterProxyReturnsTag(t *testing.T) {
	env := newAPIEnv(t)

	rec := env.post(t, "/admin/registerproxy",
		env.adminBody(t, "registerproxy", map[string]string{"handler": "erc721"}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp registerProxyResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	require.Equal(t, assetdata.ERC721Tag.String(), resp.Tag)

	// 未知处理器名
	rec = env.post(t, "/admin/registerproxy",
		env.adminBody(t, "registerproxy", map[string]string{"handler": "erc1155"}))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleGetAssetProxy(t *testing.T) {
	env := newAPIEnv(t)

	rec := env.get(t, "/getassetproxy?tag="+assetdata.ERC20Tag.String())
	require.Equal(t, http.StatusOK, rec.Code)
	var resp assetProxyResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.Registered)
	require.Equal(t, "erc20", resp.Handler)

	// 缺席不是错误
	rec = env.get(t, "/getassetproxy?tag=0xdeadbeef")
	require.Equal(t, http.StatusOK, rec.Code)
	resp = assetProxyResponse{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.False(t, resp.Registered)
	require.Empty(t, resp.Handler)

	// 坏标签
	rec = env.get(t, "/getassetproxy?tag=xyz")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleListProxiesCarriesOwnTag(t *testing.T) {
	env := newAPIEnv(t)

	rec := env.get(t, "/proxies")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp proxiesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, assetdata.MultiAssetTag.String(), resp.OwnTag)
	require.Len(t, resp.Proxies, 3)
}

func TestHandleNFTOwner(t *testing.T) {
	env := newAPIEnv(t)
	nft := common.HexToAddress("0xbb02")
	alice := common.HexToAddress("0xaa03")

	rec := env.get(t, "/nftowner?token="+nft.Hex()+"&id=7")
	require.Equal(t, http.StatusNotFound, rec.Code)

	env.mustAdmin(t, "/admin/mint", "mint", map[string]string{
		"token": nft.Hex(), "token_id": "7", "owner": alice.Hex(),
	})

	rec = env.get(t, "/nftowner?token="+nft.Hex()+"&id=7")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp nftOwnerResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, alice.Hex(), resp.Owner)
	require.Equal(t, "7", resp.TokenID)
}

func TestHandleTokenAndNFTListings(t *testing.T) {
	env := newAPIEnv(t)
	token := common.HexToAddress("0xbb01")
	nft := common.HexToAddress("0xbb02")
	alice := common.HexToAddress("0xaa03")

	env.mustAdmin(t, "/admin/allowtoken", "allowtoken", map[string]string{"token": token.Hex()})
	for _, id := range []string{"7", "10"} {
		env.mustAdmin(t, "/admin/mint", "mint", map[string]string{
			"token": nft.Hex(), "token_id": id, "owner": alice.Hex(),
		})
	}

	rec := env.get(t, "/tokens")
	require.Equal(t, http.StatusOK, rec.Code)
	var tokens tokensResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tokens))
	require.Equal(t, 1, tokens.Count)
	require.Equal(t, token.Hex(), tokens.Tokens[0])

	rec = env.get(t, "/nfts?token="+nft.Hex())
	require.Equal(t, http.StatusOK, rec.Code)
	var holdings nftHoldingsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &holdings))
	require.Equal(t, 2, holdings.Count)
	require.Equal(t, alice.Hex(), holdings.Holdings["7"])
	require.Equal(t, alice.Hex(), holdings.Holdings["10"])

	// 地址参数缺失
	rec = env.get(t, "/nfts")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleFeesWithQuote(t *testing.T) {
	env := newAPIEnv(t)

	env.mustAdmin(t, "/admin/setfees", "setfees", map[string]interface{}{
		"transfer_fee_bps": 100,
		"flat_fee":         "0.5",
		"collector":        "0x00000000000000000000000000000000000000fe",
	})

	rec := env.get(t, "/fees?amount=1000")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp feesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, uint32(100), resp.Fees.TransferFeeBps)
	require.Equal(t, "10.5", resp.Quote)
}

func TestHandleAuthoritiesAndStatus(t *testing.T) {
	env := newAPIEnv(t)
	env.mustAdmin(t, "/admin/authorize", "authorize",
		map[string]string{"target": "0x00000000000000000000000000000000000000aa"})

	rec := env.get(t, "/authorities")
	require.Equal(t, http.StatusOK, rec.Code)
	var auths authoritiesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &auths))
	require.Equal(t, 1, auths.Count)

	rec = env.get(t, "/status")
	require.Equal(t, http.StatusOK, rec.Code)
	var st map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	require.Equal(t, env.owner.Hex(), st["owner"])
	require.Contains(t, st, "queue")
	require.Contains(t, st, "go_version")
}

func TestHandleEventsReverse(t *testing.T) {
	env := newAPIEnv(t)
	for _, hex := range []string{"0xa1", "0xa2"} {
		env.mustAdmin(t, "/admin/authorize", "authorize",
			map[string]string{"target": common.HexToAddress(hex).Hex()})
	}

	rec := env.get(t, "/events?limit=1&reverse=true")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp eventsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, 1, resp.Count)
	require.Equal(t, common.HexToAddress("0xa2"), common.HexToAddress(resp.Events[0].Detail["target"]))

	// 坏参数
	rec = env.get(t, "/events?limit=abc")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleReceiptNotFound(t *testing.T) {
	env := newAPIEnv(t)

	rec := env.get(t, "/receipt?id=0xdeadbeef")
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.get(t, "/receipt")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
