package routes

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
)

const requestBodyLimit = 1 << 20 // 1 MiB

// stakingRoutes translates the REST surface into node JSON-RPC calls.
type stakingRoutes struct {
	node *NodeClient
}

type stakeRequest struct {
	Caller      string `json:"caller"`
	Beneficiary string `json:"beneficiary,omitempty"`
	Pool        string `json:"pool"`
	Amount      string `json:"amount"`
}

type unstakeRequest struct {
	Caller    string `json:"caller"`
	Pool      string `json:"pool"`
	Account   string `json:"account,omitempty"`
	Recipient string `json:"recipient,omitempty"`
	Amount    string `json:"amount"`
}

type claimRequest struct {
	Caller string `json:"caller"`
	Pool   string `json:"pool"`
}

type pauseRequest struct {
	Caller string `json:"caller"`
	Module string `json:"module"`
}

type shutdownRequest struct {
	Caller string `json:"caller"`
}

type priceRequest struct {
	Symbol string `json:"symbol"`
	Rate   string `json:"rate"`
}

func (sr *stakingRoutes) stake(w http.ResponseWriter, r *http.Request) {
	var req stakeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Caller == "" || req.Pool == "" || req.Amount == "" {
		writeClientError(w, "caller, pool and amount are required")
		return
	}
	method := "lpstake_stake"
	if req.Beneficiary != "" && req.Beneficiary != req.Caller {
		method = "lpstake_stakeFor"
	}
	sr.forward(w, r, method, req)
}

func (sr *stakingRoutes) unstake(w http.ResponseWriter, r *http.Request) {
	var req unstakeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Caller == "" || req.Pool == "" || req.Amount == "" {
		writeClientError(w, "caller, pool and amount are required")
		return
	}
	method := "lpstake_unstake"
	switch {
	case req.Account != "" && req.Account != req.Caller:
		method = "lpstake_unstakeFrom"
	case req.Recipient != "" && req.Recipient != req.Caller:
		method = "lpstake_unstakeFor"
	}
	sr.forward(w, r, method, req)
}

func (sr *stakingRoutes) claim(w http.ResponseWriter, r *http.Request) {
	var req claimRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Caller == "" || req.Pool == "" {
		writeClientError(w, "caller and pool are required")
		return
	}
	sr.forward(w, r, "lpstake_claim", req)
}

func (sr *stakingRoutes) pause(w http.ResponseWriter, r *http.Request) {
	var req pauseRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Caller == "" || req.Module == "" {
		writeClientError(w, "caller and module are required")
		return
	}
	sr.forward(w, r, "lpstake_pause", req)
}

func (sr *stakingRoutes) resume(w http.ResponseWriter, r *http.Request) {
	var req pauseRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Caller == "" || req.Module == "" {
		writeClientError(w, "caller and module are required")
		return
	}
	sr.forward(w, r, "lpstake_resume", req)
}

func (sr *stakingRoutes) shutdown(w http.ResponseWriter, r *http.Request) {
	var req shutdownRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Caller == "" {
		writeClientError(w, "caller is required")
		return
	}
	sr.forward(w, r, "lpstake_shutdown", req)
}

func (sr *stakingRoutes) setPrice(w http.ResponseWriter, r *http.Request) {
	var req priceRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Symbol == "" || req.Rate == "" {
		writeClientError(w, "symbol and rate are required")
		return
	}
	sr.forward(w, r, "lpstake_setManualPrice", req)
}

func (sr *stakingRoutes) listPools(w http.ResponseWriter, r *http.Request) {
	sr.forward(w, r, "lpstake_listPools", nil)
}

func (sr *stakingRoutes) emission(w http.ResponseWriter, r *http.Request) {
	sr.forward(w, r, "lpstake_emissionRate", nil)
}

func (sr *stakingRoutes) poolBalance(w http.ResponseWriter, r *http.Request) {
	sr.forward(w, r, "lpstake_getPoolBalance", map[string]string{
		"pool": chi.URLParam(r, "pool"),
	})
}

func (sr *stakingRoutes) claimable(w http.ResponseWriter, r *http.Request) {
	sr.forward(w, r, "lpstake_claimable", map[string]string{
		"pool": chi.URLParam(r, "pool"),
	})
}

func (sr *stakingRoutes) userBalance(w http.ResponseWriter, r *http.Request) {
	sr.forward(w, r, "lpstake_getUserBalance", map[string]string{
		"pool":    chi.URLParam(r, "pool"),
		"account": chi.URLParam(r, "account"),
	})
}

func (sr *stakingRoutes) boost(w http.ResponseWriter, r *http.Request) {
	sr.forward(w, r, "lpstake_getBoost", map[string]string{
		"pool":    chi.URLParam(r, "pool"),
		"account": chi.URLParam(r, "account"),
	})
}

func (sr *stakingRoutes) history(w http.ResponseWriter, r *http.Request) {
	params := map[string]interface{}{}
	query := r.URL.Query()
	if pool := strings.TrimSpace(query.Get("pool")); pool != "" {
		params["pool"] = pool
	}
	if account := strings.TrimSpace(query.Get("account")); account != "" {
		params["account"] = account
	}
	if raw := strings.TrimSpace(query.Get("cursor")); raw != "" {
		cursor, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			writeClientError(w, "invalid cursor")
			return
		}
		params["cursor"] = cursor
	}
	if raw := strings.TrimSpace(query.Get("limit")); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			writeClientError(w, "invalid limit")
			return
		}
		params["limit"] = limit
	}
	sr.forward(w, r, "lpstake_history", params)
}

// forward relays the call upstream and writes the node's result, mapping
// node error codes onto REST statuses.
func (sr *stakingRoutes) forward(w http.ResponseWriter, r *http.Request, method string, params interface{}) {
	var result json.RawMessage
	err := sr.node.Call(r.Context(), method, params, &result)
	if err != nil {
		var nodeErr *NodeError
		if errors.As(err, &nodeErr) {
			writeJSON(w, nodeErr.HTTPStatus(), map[string]interface{}{
				"error": nodeErr.Message,
				"code":  nodeErr.Code,
			})
			return
		}
		writeJSON(w, http.StatusBadGateway, map[string]interface{}{"error": "upstream unavailable"})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if len(result) == 0 {
		result = json.RawMessage("null")
	}
	_, _ = w.Write(result)
}

func decodeBody(w http.ResponseWriter, r *http.Request, out interface{}) bool {
	reader := http.MaxBytesReader(w, r.Body, requestBodyLimit)
	defer func() {
		_ = reader.Close()
	}()
	decoder := json.NewDecoder(reader)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(out); err != nil {
		writeClientError(w, "invalid JSON body")
		return false
	}
	return true
}

func writeClientError(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, map[string]interface{}{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
