// api/query_handlers.go
// 只读查询接口。
package api

import (
	"errors"
	"net/http"
	"runtime"
	"strconv"
	"strings"

	"assetproxy/assetdata"
	"assetproxy/fees"
	"assetproxy/proxy"
	"assetproxy/service"
	"assetproxy/utils"

	"github.com/ethereum/go-ethereum/common"
)

// assetProxyResponse GET /getassetproxy 的响应。
// 未注册的标签不是错误，registered=false 表示查询到了"缺席"
type assetProxyResponse struct {
	Tag        string `json:"tag"`
	Handler    string `json:"handler,omitempty"`
	Registered bool   `json:"registered"`
}

// HandleGetAssetProxy 查询标签对应的处理器
func (hm *HandlerManager) HandleGetAssetProxy(w http.ResponseWriter, r *http.Request) {
	tag, err := assetdata.ParseTag(r.URL.Query().Get("tag"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	name, ok := hm.node.GetAssetProxy(tag)
	writeJSON(w, http.StatusOK, assetProxyResponse{
		Tag:        tag.String(),
		Handler:    name,
		Registered: ok,
	})
}

// proxiesResponse GET /proxies 的响应
type proxiesResponse struct {
	OwnTag  string              `json:"own_tag"`
	Proxies []service.ProxyInfo `json:"proxies"`
}

// HandleListProxies 枚举注册表，并带上引擎自己的多资产标签
func (hm *HandlerManager) HandleListProxies(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, proxiesResponse{
		OwnTag:  hm.node.OwnTypeTag().String(),
		Proxies: hm.node.ListProxies(),
	})
}

// authoritiesResponse GET /authorities 的响应
type authoritiesResponse struct {
	Authorities []string `json:"authorities"`
	Count       int      `json:"count"`
}

// HandleAuthorities 枚举授权集合
func (hm *HandlerManager) HandleAuthorities(w http.ResponseWriter, r *http.Request) {
	addrs, err := hm.node.Authorities()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	out := make([]string, len(addrs))
	for i, a := range addrs {
		out[i] = a.Hex()
	}
	writeJSON(w, http.StatusOK, authoritiesResponse{Authorities: out, Count: len(out)})
}

// balancesResponse GET /balance 的响应
type balancesResponse struct {
	Token    string            `json:"token"`
	Balances map[string]string `json:"balances"`
}

// HandleBalances 批量查询余额：/balance?token=0x..&holders=0xa,0xb
func (hm *HandlerManager) HandleBalances(w http.ResponseWriter, r *http.Request) {
	token, err := parseAddressParam(r, "token")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	rawHolders := r.URL.Query().Get("holders")
	if rawHolders == "" {
		writeError(w, http.StatusBadRequest, errors.New("holders is required"))
		return
	}
	parts := strings.Split(rawHolders, ",")
	holders := make([]common.Address, 0, len(parts))
	for _, p := range parts {
		h, err := utils.ParseAddress(strings.TrimSpace(p))
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		holders = append(holders, h)
	}

	balances, err := hm.node.Balances(token, holders)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, balancesResponse{Token: token.Hex(), Balances: balances})
}

// tokensResponse GET /tokens 的响应
type tokensResponse struct {
	Tokens []string `json:"tokens"`
	Count  int      `json:"count"`
}

// HandleAllowedTokens 枚举白名单代币
func (hm *HandlerManager) HandleAllowedTokens(w http.ResponseWriter, r *http.Request) {
	tokens, err := hm.node.AllowedTokens()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	out := make([]string, len(tokens))
	for i, tk := range tokens {
		out[i] = tk.Hex()
	}
	writeJSON(w, http.StatusOK, tokensResponse{Tokens: out, Count: len(out)})
}

// nftOwnerResponse GET /nftowner 的响应
type nftOwnerResponse struct {
	Token   string `json:"token"`
	TokenID string `json:"token_id"`
	Owner   string `json:"owner"`
}

// HandleNFTOwner 查询 NFT 持有人：/nftowner?token=0x..&id=7
func (hm *HandlerManager) HandleNFTOwner(w http.ResponseWriter, r *http.Request) {
	token, err := parseAddressParam(r, "token")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	tokenID, err := proxy.ParseBalance(r.URL.Query().Get("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	owner, err := hm.node.NFTOwner(token, tokenID)
	if err != nil {
		if errors.Is(err, proxy.ErrNFTNotFound) {
			writeError(w, http.StatusNotFound, err)
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, nftOwnerResponse{
		Token:   token.Hex(),
		TokenID: tokenID.String(),
		Owner:   owner.Hex(),
	})
}

// nftHoldingsResponse GET /nfts 的响应
type nftHoldingsResponse struct {
	Token    string            `json:"token"`
	Holdings map[string]string `json:"holdings"`
	Count    int               `json:"count"`
}

// HandleNFTHoldings 枚举某个合约下已铸造的 token：/nfts?token=0x..
func (hm *HandlerManager) HandleNFTHoldings(w http.ResponseWriter, r *http.Request) {
	token, err := parseAddressParam(r, "token")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	holdings, err := hm.node.NFTHoldings(token)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	out := make(map[string]string, len(holdings))
	for _, h := range holdings {
		out[h.TokenID.String()] = h.Owner.Hex()
	}
	writeJSON(w, http.StatusOK, nftHoldingsResponse{
		Token:    token.Hex(),
		Holdings: out,
		Count:    len(out),
	})
}

// feesResponse GET /fees 的响应，带 amount 参数时附上报价
type feesResponse struct {
	Fees  fees.Config `json:"fees"`
	Quote string      `json:"quote,omitempty"`
}

// HandleFees 查询当前费率：/fees 或 /fees?amount=1000
func (hm *HandlerManager) HandleFees(w http.ResponseWriter, r *http.Request) {
	resp := feesResponse{Fees: hm.node.Fees()}
	if raw := r.URL.Query().Get("amount"); raw != "" {
		amount, err := proxy.ParseBalance(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		resp.Quote = hm.node.QuoteFee(amount)
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleReceipt 按请求ID查回执：/receipt?id=0x..
func (hm *HandlerManager) HandleReceipt(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, errors.New("id is required"))
		return
	}
	rc, found, err := hm.node.Receipt(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, errors.New("receipt not found"))
		return
	}
	writeJSON(w, http.StatusOK, rc)
}

// eventsResponse GET /events 的响应
type eventsResponse struct {
	Events []*service.Event `json:"events"`
	Count  int              `json:"count"`
}

// HandleEvents 查询事件流水：/events?limit=50&reverse=true
func (hm *HandlerManager) HandleEvents(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		limit = n
	}
	reverse := false
	if raw := r.URL.Query().Get("reverse"); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		reverse = b
	}

	evs, err := hm.node.Events(limit, reverse)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, eventsResponse{Events: evs, Count: len(evs)})
}

// statusResponse GET /status 的响应：服务状态加上进程运行时信息
type statusResponse struct {
	*service.StatusInfo
	GoVersion    string `json:"go_version"`
	NumGoroutine int    `json:"num_goroutine"`
}

// HandleStatus 节点状态汇总
func (hm *HandlerManager) HandleStatus(w http.ResponseWriter, r *http.Request) {
	st, err := hm.node.Status()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{
		StatusInfo:   st,
		GoVersion:    runtime.Version(),
		NumGoroutine: runtime.NumGoroutine(),
	})
}
