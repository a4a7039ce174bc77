// api/admin_handlers.go
// 管理接口：所有端点共用签名信封，payload 的格式各自定义。
package api

import (
	"net/http"
)

// registerProxyResponse 注册结果，带上处理器自己声明的标签
type registerProxyResponse struct {
	Success bool   `json:"success"`
	Tag     string `json:"tag"`
}

// HandleRegisterProxy 把内建处理器挂进注册表
// payload: {"handler":"erc20"}
func (hm *HandlerManager) HandleRegisterProxy(w http.ResponseWriter, r *http.Request) {
	req, ok := hm.decodeAdmin(w, r, "registerproxy")
	if !ok {
		return
	}
	tag, err := hm.node.RegisterProxy(req)
	if err != nil {
		writeError(w, adminStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, registerProxyResponse{Success: true, Tag: tag.String()})
}

// HandleAuthorize 授权调用方
// payload: {"target":"0x..."}
func (hm *HandlerManager) HandleAuthorize(w http.ResponseWriter, r *http.Request) {
	req, ok := hm.decodeAdmin(w, r, "authorize")
	if !ok {
		return
	}
	writeAdminResult(w, hm.node.Authorize(req))
}

// HandleDeauthorize 解除授权
// payload: {"target":"0x..."}
func (hm *HandlerManager) HandleDeauthorize(w http.ResponseWriter, r *http.Request) {
	req, ok := hm.decodeAdmin(w, r, "deauthorize")
	if !ok {
		return
	}
	writeAdminResult(w, hm.node.Deauthorize(req))
}

// HandleAllowToken 代币加入白名单
// payload: {"token":"0x..."}
func (hm *HandlerManager) HandleAllowToken(w http.ResponseWriter, r *http.Request) {
	req, ok := hm.decodeAdmin(w, r, "allowtoken")
	if !ok {
		return
	}
	writeAdminResult(w, hm.node.AllowToken(req))
}

// HandleDisallowToken 代币移出白名单
// payload: {"token":"0x..."}
func (hm *HandlerManager) HandleDisallowToken(w http.ResponseWriter, r *http.Request) {
	req, ok := hm.decodeAdmin(w, r, "disallowtoken")
	if !ok {
		return
	}
	writeAdminResult(w, hm.node.DisallowToken(req))
}

// HandleCredit 增发代币余额
// payload: {"token":"0x...","to":"0x...","amount":"1000"}
func (hm *HandlerManager) HandleCredit(w http.ResponseWriter, r *http.Request) {
	req, ok := hm.decodeAdmin(w, r, "credit")
	if !ok {
		return
	}
	writeAdminResult(w, hm.node.Credit(req))
}

// HandleMintNFT 铸造 NFT
// payload: {"token":"0x...","token_id":"7","owner":"0x..."}
func (hm *HandlerManager) HandleMintNFT(w http.ResponseWriter, r *http.Request) {
	req, ok := hm.decodeAdmin(w, r, "mint")
	if !ok {
		return
	}
	writeAdminResult(w, hm.node.MintNFT(req))
}

// HandleSetFees 更新手续费配置
// payload: {"transfer_fee_bps":25,"flat_fee":"1.5","collector":"0x..."}
func (hm *HandlerManager) HandleSetFees(w http.ResponseWriter, r *http.Request) {
	req, ok := hm.decodeAdmin(w, r, "setfees")
	if !ok {
		return
	}
	writeAdminResult(w, hm.node.SetFees(req))
}
