// api/manager.go
// HTTP 处理器管理：持有服务层引用，注册全部路由。
// 所有响应都是 JSON；管理接口走统一的签名信封。
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"assetproxy/config"
	"assetproxy/logs"
	"assetproxy/proxy"
	"assetproxy/service"
	"assetproxy/utils"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// HandlerManager 管理所有HTTP处理器及其依赖
type HandlerManager struct {
	node        *service.Node
	cfg         *config.Config
	maxBodySize int64
}

// NewHandlerManager 创建新的处理器管理器
func NewHandlerManager(node *service.Node) *HandlerManager {
	cfg := node.Config()
	maxBody := cfg.Server.MaxRequestBodySize
	if maxBody <= 0 {
		maxBody = 10 << 20
	}
	return &HandlerManager{
		node:        node,
		cfg:         cfg,
		maxBodySize: maxBody,
	}
}

// RegisterRoutes 注册所有路由
func (hm *HandlerManager) RegisterRoutes(mux *http.ServeMux) {
	// 调度入口
	mux.HandleFunc("/dispatch", hm.HandleDispatch)

	// 管理接口
	mux.HandleFunc("/admin/registerproxy", hm.HandleRegisterProxy)
	mux.HandleFunc("/admin/authorize", hm.HandleAuthorize)
	mux.HandleFunc("/admin/deauthorize", hm.HandleDeauthorize)
	mux.HandleFunc("/admin/allowtoken", hm.HandleAllowToken)
	mux.HandleFunc("/admin/disallowtoken", hm.HandleDisallowToken)
	mux.HandleFunc("/admin/credit", hm.HandleCredit)
	mux.HandleFunc("/admin/mint", hm.HandleMintNFT)
	mux.HandleFunc("/admin/setfees", hm.HandleSetFees)

	// 查询接口
	mux.HandleFunc("/getassetproxy", hm.HandleGetAssetProxy)
	mux.HandleFunc("/proxies", hm.HandleListProxies)
	mux.HandleFunc("/authorities", hm.HandleAuthorities)
	mux.HandleFunc("/tokens", hm.HandleAllowedTokens)
	mux.HandleFunc("/balance", hm.HandleBalances)
	mux.HandleFunc("/nftowner", hm.HandleNFTOwner)
	mux.HandleFunc("/nfts", hm.HandleNFTHoldings)
	mux.HandleFunc("/fees", hm.HandleFees)
	mux.HandleFunc("/receipt", hm.HandleReceipt)
	mux.HandleFunc("/events", hm.HandleEvents)
	mux.HandleFunc("/status", hm.HandleStatus)
}

// errorResponse 出错响应体
type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON 写出 JSON 响应
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logs.Warn("[API] encode response: %v", err)
	}
}

// writeError 写出错误响应
func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

// requirePost 校验请求方法，非 POST 直接回 405
func requirePost(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

// adminEnvelope 管理请求的公共信封。
// Payload 保留原始字节：签名摘要盖在这些字节上，重排键序会验签失败
type adminEnvelope struct {
	Caller    string          `json:"caller"`
	Nonce     uint64          `json:"nonce"`
	Payload   json.RawMessage `json:"payload"`
	Signature string          `json:"signature"`
}

// decodeAdmin 解析管理请求信封，method 由路由决定
func (hm *HandlerManager) decodeAdmin(w http.ResponseWriter, r *http.Request, method string) (*service.AdminRequest, bool) {
	if !requirePost(w, r) {
		return nil, false
	}

	var env adminEnvelope
	body := http.MaxBytesReader(w, r.Body, hm.maxBodySize)
	if err := json.NewDecoder(body).Decode(&env); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return nil, false
	}

	caller, err := utils.ParseAddress(env.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return nil, false
	}

	var sig []byte
	if env.Signature != "" {
		sig, err = hexutil.Decode(env.Signature)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return nil, false
		}
	}

	return &service.AdminRequest{
		Method:    method,
		Caller:    caller,
		Nonce:     env.Nonce,
		Payload:   env.Payload,
		Signature: sig,
	}, true
}

// adminResult 无返回值管理操作的统一成功响应
type adminResult struct {
	Success bool `json:"success"`
}

// writeAdminResult 按错误类型映射状态码：身份问题 403，其余参数或状态冲突 400
func writeAdminResult(w http.ResponseWriter, err error) {
	if err == nil {
		writeJSON(w, http.StatusOK, adminResult{Success: true})
		return
	}
	writeError(w, adminStatus(err), err)
}

func adminStatus(err error) int {
	switch {
	case errors.Is(err, proxy.ErrNotOwner),
		errors.Is(err, service.ErrBadAdminSignature),
		errors.Is(err, service.ErrStaleAdminNonce):
		return http.StatusForbidden
	default:
		return http.StatusBadRequest
	}
}

// parseAddressParam 解析查询参数里的地址
func parseAddressParam(r *http.Request, name string) (common.Address, error) {
	return utils.ParseAddress(r.URL.Query().Get(name))
}
