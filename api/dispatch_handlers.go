// api/dispatch_handlers.go
package api

import (
	"encoding/json"
	"net/http"

	"assetproxy/proxy"
	"assetproxy/service"
	"assetproxy/utils"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// dispatchEnvelope POST /dispatch 的请求体
type dispatchEnvelope struct {
	Caller    string `json:"caller"`
	From      string `json:"from"`
	To        string `json:"to"`
	AssetData string `json:"asset_data"` // 0x 开头的十六进制
	Amount    string `json:"amount"`     // 十进制整数字符串
}

// HandleDispatch 处理一次资产调度请求。
// 引擎层失败同样返回 200，结果看回执里的 status/error；
// 只有请求不合法或数据库故障才回错误码
func (hm *HandlerManager) HandleDispatch(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}

	var env dispatchEnvelope
	body := http.MaxBytesReader(w, r.Body, hm.maxBodySize)
	if err := json.NewDecoder(body).Decode(&env); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	caller, err := utils.ParseAddress(env.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	from, err := utils.ParseAddress(env.From)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	to, err := utils.ParseAddress(env.To)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	assetData, err := hexutil.Decode(env.AssetData)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	amount, err := proxy.ParseBalance(env.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	rc, err := hm.node.Dispatch(&service.DispatchRequest{
		Caller:    caller,
		From:      from,
		To:        to,
		AssetData: assetData,
		Amount:    amount,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, rc)
}
