package rpc

import (
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"strings"

	"arcadia/crypto"
	"arcadia/explorer"
	"arcadia/observability"
)

type stakeParams struct {
	Caller      string `json:"caller"`
	Beneficiary string `json:"beneficiary,omitempty"`
	Pool        string `json:"pool"`
	Amount      string `json:"amount"`
}

type unstakeParams struct {
	Caller    string `json:"caller"`
	Pool      string `json:"pool"`
	Account   string `json:"account,omitempty"`
	Recipient string `json:"recipient,omitempty"`
	Amount    string `json:"amount"`
}

type accountParams struct {
	Account string `json:"account"`
}

type poolParams struct {
	Pool string `json:"pool"`
}

type accountPoolParams struct {
	Account string `json:"account"`
	Pool    string `json:"pool"`
}

type claimParams struct {
	Caller string `json:"caller"`
	Pool   string `json:"pool"`
}

type pauseParams struct {
	Caller string `json:"caller"`
	Module string `json:"module"`
}

type shutdownParams struct {
	Caller string `json:"caller"`
}

type manualPriceParams struct {
	Symbol string `json:"symbol"`
	Rate   string `json:"rate"`
}

type historyParams struct {
	Pool    string `json:"pool,omitempty"`
	Account string `json:"account,omitempty"`
	Cursor  uint64 `json:"cursor,omitempty"`
	Limit   int    `json:"limit,omitempty"`
}

type balanceResult struct {
	Amount string `json:"amount"`
}

type boostResult struct {
	Boost string `json:"boost"`
}

type cachedBoostResult struct {
	TimeBoostFactor string `json:"timeBoostFactor"`
	UpdatedAt       uint64 `json:"updatedAt"`
}

type poolInfoResult struct {
	Pool         string `json:"pool"`
	LPToken      string `json:"lpToken"`
	Decimals     uint8  `json:"decimals"`
	Distributor  string `json:"distributor"`
	WeightBps    uint64 `json:"weightBps"`
	PriceFeed    string `json:"priceFeed"`
	RegisteredAt uint64 `json:"registeredAt"`
}

type emissionResult struct {
	ActiveRate    string `json:"activeRate"`
	NextReduction uint64 `json:"nextReduction"`
}

type historyResult struct {
	Receipts []explorer.Receipt `json:"receipts"`
	Cursor   uint64             `json:"cursor"`
}

func decodeParams(w http.ResponseWriter, req *RPCRequest, out interface{}) (int, bool) {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "parameter object required", nil)
		return codeInvalidParams, false
	}
	if err := json.Unmarshal(req.Params[0], out); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return codeInvalidParams, false
	}
	return 0, true
}

func parseAddr(field, value string) ([20]byte, error) {
	decoded, err := crypto.DecodeAddress(strings.TrimSpace(value))
	if err != nil {
		return [20]byte{}, fmt.Errorf("%s: %w", field, err)
	}
	var raw [20]byte
	copy(raw[:], decoded.Bytes())
	return raw, nil
}

func parseAmount(value string) (*big.Int, error) {
	amount, ok := new(big.Int).SetString(strings.TrimSpace(value), 10)
	if !ok {
		return nil, fmt.Errorf("amount must be a base-10 integer")
	}
	return amount, nil
}

func bech32String(raw [20]byte) string {
	return crypto.MustNewAddress(crypto.ARCPrefix, raw[:]).String()
}

func (s *Server) handleStake(w http.ResponseWriter, req *RPCRequest) int {
	var params stakeParams
	if code, ok := decodeParams(w, req, &params); !ok {
		return code
	}
	caller, err := parseAddr("caller", params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return codeInvalidParams
	}
	pool, err := parseAddr("pool", params.Pool)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return codeInvalidParams
	}
	amount, err := parseAmount(params.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return codeInvalidParams
	}
	err = s.node.Stake(caller, pool, amount)
	observability.Staking().RecordOperation("stake", err)
	if err != nil {
		return writeEngineError(w, req.ID, err)
	}
	s.recordPoolTotal(pool)
	writeResult(w, req.ID, true)
	return 0
}

func (s *Server) handleStakeFor(w http.ResponseWriter, req *RPCRequest) int {
	var params stakeParams
	if code, ok := decodeParams(w, req, &params); !ok {
		return code
	}
	caller, err := parseAddr("caller", params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return codeInvalidParams
	}
	beneficiary, err := parseAddr("beneficiary", params.Beneficiary)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return codeInvalidParams
	}
	pool, err := parseAddr("pool", params.Pool)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return codeInvalidParams
	}
	amount, err := parseAmount(params.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return codeInvalidParams
	}
	err = s.node.StakeFor(caller, beneficiary, pool, amount)
	observability.Staking().RecordOperation("stakeFor", err)
	if err != nil {
		return writeEngineError(w, req.ID, err)
	}
	s.recordPoolTotal(pool)
	writeResult(w, req.ID, true)
	return 0
}

func (s *Server) handleUnstake(w http.ResponseWriter, req *RPCRequest) int {
	return s.unstakeCommon(w, req, false)
}

func (s *Server) handleUnstakeFor(w http.ResponseWriter, req *RPCRequest) int {
	return s.unstakeCommon(w, req, true)
}

func (s *Server) unstakeCommon(w http.ResponseWriter, req *RPCRequest, withRecipient bool) int {
	var params unstakeParams
	if code, ok := decodeParams(w, req, &params); !ok {
		return code
	}
	caller, err := parseAddr("caller", params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return codeInvalidParams
	}
	pool, err := parseAddr("pool", params.Pool)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return codeInvalidParams
	}
	amount, err := parseAmount(params.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return codeInvalidParams
	}
	if withRecipient {
		recipient, err := parseAddr("recipient", params.Recipient)
		if err != nil {
			writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
			return codeInvalidParams
		}
		err = s.node.UnstakeFor(caller, pool, amount, recipient)
		observability.Staking().RecordOperation("unstakeFor", err)
		if err != nil {
			return writeEngineError(w, req.ID, err)
		}
	} else {
		err = s.node.Unstake(caller, pool, amount)
		observability.Staking().RecordOperation("unstake", err)
		if err != nil {
			return writeEngineError(w, req.ID, err)
		}
	}
	s.recordPoolTotal(pool)
	writeResult(w, req.ID, true)
	return 0
}

func (s *Server) handleUnstakeFrom(w http.ResponseWriter, req *RPCRequest) int {
	var params unstakeParams
	if code, ok := decodeParams(w, req, &params); !ok {
		return code
	}
	caller, err := parseAddr("caller", params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return codeInvalidParams
	}
	pool, err := parseAddr("pool", params.Pool)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return codeInvalidParams
	}
	account, err := parseAddr("account", params.Account)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return codeInvalidParams
	}
	amount, err := parseAmount(params.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return codeInvalidParams
	}
	err = s.node.UnstakeFrom(caller, pool, account, amount)
	observability.Staking().RecordOperation("unstakeFrom", err)
	if err != nil {
		return writeEngineError(w, req.ID, err)
	}
	s.recordPoolTotal(pool)
	writeResult(w, req.ID, true)
	return 0
}

func (s *Server) handleGetUserBalance(w http.ResponseWriter, req *RPCRequest) int {
	var params accountPoolParams
	if code, ok := decodeParams(w, req, &params); !ok {
		return code
	}
	account, err := parseAddr("account", params.Account)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return codeInvalidParams
	}
	pool, err := parseAddr("pool", params.Pool)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return codeInvalidParams
	}
	balance, err := s.node.UserBalance(account, pool)
	if err != nil {
		return writeEngineError(w, req.ID, err)
	}
	writeResult(w, req.ID, balanceResult{Amount: balance.String()})
	return 0
}

func (s *Server) handleGetPoolBalance(w http.ResponseWriter, req *RPCRequest) int {
	var params poolParams
	if code, ok := decodeParams(w, req, &params); !ok {
		return code
	}
	pool, err := parseAddr("pool", params.Pool)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return codeInvalidParams
	}
	total, err := s.node.PoolBalance(pool)
	if err != nil {
		return writeEngineError(w, req.ID, err)
	}
	writeResult(w, req.ID, balanceResult{Amount: total.String()})
	return 0
}

func (s *Server) handleGetBoost(w http.ResponseWriter, req *RPCRequest) int {
	var params accountParams
	if code, ok := decodeParams(w, req, &params); !ok {
		return code
	}
	account, err := parseAddr("account", params.Account)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return codeInvalidParams
	}
	boost, err := s.node.Boost(account)
	if err != nil {
		return writeEngineError(w, req.ID, err)
	}
	writeResult(w, req.ID, boostResult{Boost: boost.String()})
	return 0
}

func (s *Server) handleGetCachedBoost(w http.ResponseWriter, req *RPCRequest) int {
	var params accountParams
	if code, ok := decodeParams(w, req, &params); !ok {
		return code
	}
	account, err := parseAddr("account", params.Account)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return codeInvalidParams
	}
	boost, err := s.node.CachedBoost(account)
	if err != nil {
		return writeEngineError(w, req.ID, err)
	}
	if boost == nil {
		writeResult(w, req.ID, nil)
		return 0
	}
	writeResult(w, req.ID, cachedBoostResult{
		TimeBoostFactor: boost.TimeBoostFactor.String(),
		UpdatedAt:       boost.LastUpdated,
	})
	return 0
}

func (s *Server) handleGetTimeToFullBoost(w http.ResponseWriter, req *RPCRequest) int {
	var params accountParams
	if code, ok := decodeParams(w, req, &params); !ok {
		return code
	}
	account, err := parseAddr("account", params.Account)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return codeInvalidParams
	}
	remaining, err := s.node.TimeToFullBoost(account)
	if err != nil {
		return writeEngineError(w, req.ID, err)
	}
	writeResult(w, req.ID, map[string]uint64{"seconds": remaining})
	return 0
}

func (s *Server) handleUpdateBoost(w http.ResponseWriter, req *RPCRequest) int {
	var params accountParams
	if code, ok := decodeParams(w, req, &params); !ok {
		return code
	}
	account, err := parseAddr("account", params.Account)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return codeInvalidParams
	}
	boost, err := s.node.UpdateBoost(account)
	observability.Staking().RecordOperation("updateBoost", err)
	if err != nil {
		return writeEngineError(w, req.ID, err)
	}
	writeResult(w, req.ID, cachedBoostResult{
		TimeBoostFactor: boost.TimeBoostFactor.String(),
		UpdatedAt:       boost.LastUpdated,
	})
	return 0
}

func (s *Server) handleCheckpoint(w http.ResponseWriter, req *RPCRequest) int {
	var params poolParams
	if code, ok := decodeParams(w, req, &params); !ok {
		return code
	}
	pool, err := parseAddr("pool", params.Pool)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return codeInvalidParams
	}
	owed, err := s.node.Checkpoint(pool)
	observability.Staking().RecordOperation("checkpoint", err)
	if err != nil {
		return writeEngineError(w, req.ID, err)
	}
	writeResult(w, req.ID, balanceResult{Amount: owed.String()})
	return 0
}

func (s *Server) handleClaimable(w http.ResponseWriter, req *RPCRequest) int {
	var params poolParams
	if code, ok := decodeParams(w, req, &params); !ok {
		return code
	}
	pool, err := parseAddr("pool", params.Pool)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return codeInvalidParams
	}
	owed, err := s.node.Claimable(pool)
	if err != nil {
		return writeEngineError(w, req.ID, err)
	}
	writeResult(w, req.ID, balanceResult{Amount: owed.String()})
	return 0
}

func (s *Server) handleClaim(w http.ResponseWriter, req *RPCRequest) int {
	var params claimParams
	if code, ok := decodeParams(w, req, &params); !ok {
		return code
	}
	caller, err := parseAddr("caller", params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return codeInvalidParams
	}
	pool, err := parseAddr("pool", params.Pool)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return codeInvalidParams
	}
	minted, err := s.node.Claim(caller, pool)
	observability.Staking().RecordOperation("claim", err)
	if err != nil {
		return writeEngineError(w, req.ID, err)
	}
	observability.Staking().RecordMint(minted)
	writeResult(w, req.ID, balanceResult{Amount: minted.String()})
	return 0
}

func (s *Server) handleListPools(w http.ResponseWriter, req *RPCRequest) int {
	if len(req.Params) != 0 {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "no parameters expected", nil)
		return codeInvalidParams
	}
	metas, err := s.node.ListPools()
	if err != nil {
		return writeEngineError(w, req.ID, err)
	}
	result := make([]poolInfoResult, 0, len(metas))
	for _, meta := range metas {
		result = append(result, poolInfoResult{
			Pool:         bech32String(meta.Pool),
			LPToken:      bech32String(meta.LPToken),
			Decimals:     meta.Decimals,
			Distributor:  bech32String(meta.Distributor),
			WeightBps:    meta.WeightBps,
			PriceFeed:    meta.PriceFeed,
			RegisteredAt: meta.RegisteredAt,
		})
	}
	writeResult(w, req.ID, result)
	return 0
}

func (s *Server) handleEmissionRate(w http.ResponseWriter, req *RPCRequest) int {
	if len(req.Params) != 0 {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "no parameters expected", nil)
		return codeInvalidParams
	}
	snapshot, err := s.node.EmissionState()
	if err != nil {
		return writeEngineError(w, req.ID, err)
	}
	writeResult(w, req.ID, emissionResult{
		ActiveRate:    snapshot.ActiveRate.String(),
		NextReduction: snapshot.NextReduction,
	})
	return 0
}

func (s *Server) handleHistory(w http.ResponseWriter, req *RPCRequest) int {
	if s.history == nil {
		writeError(w, http.StatusServiceUnavailable, req.ID, codeServerError, "history index unavailable", nil)
		return codeServerError
	}
	params := historyParams{}
	if len(req.Params) > 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "too many parameters", nil)
		return codeInvalidParams
	}
	if len(req.Params) == 1 {
		if err := json.Unmarshal(req.Params[0], &params); err != nil {
			writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
			return codeInvalidParams
		}
	}

	var (
		receipts []explorer.Receipt
		err      error
	)
	switch {
	case params.Pool != "":
		receipts, err = s.history.ByPool(params.Pool, params.Limit)
	case params.Account != "":
		receipts, err = s.history.ByAccount(params.Account, params.Limit)
	case params.Cursor > 0:
		receipts, err = s.history.After(params.Cursor, params.Limit)
	default:
		receipts, err = s.history.Recent(params.Limit)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, req.ID, codeServerError, err.Error(), nil)
		return codeServerError
	}
	cursor := params.Cursor
	for _, receipt := range receipts {
		if receipt.Sequence > cursor {
			cursor = receipt.Sequence
		}
	}
	writeResult(w, req.ID, historyResult{Receipts: receipts, Cursor: cursor})
	return 0
}

func (s *Server) handlePause(w http.ResponseWriter, req *RPCRequest) int {
	return s.pauseCommon(w, req, true)
}

func (s *Server) handleResume(w http.ResponseWriter, req *RPCRequest) int {
	return s.pauseCommon(w, req, false)
}

func (s *Server) pauseCommon(w http.ResponseWriter, req *RPCRequest, paused bool) int {
	var params pauseParams
	if code, ok := decodeParams(w, req, &params); !ok {
		return code
	}
	caller, err := parseAddr("caller", params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return codeInvalidParams
	}
	if paused {
		err = s.node.Pause(caller, params.Module)
	} else {
		err = s.node.Resume(caller, params.Module)
	}
	if err != nil {
		return writeEngineError(w, req.ID, err)
	}
	observability.Staking().SetPause(paused)
	writeResult(w, req.ID, true)
	return 0
}

func (s *Server) handleShutdown(w http.ResponseWriter, req *RPCRequest) int {
	var params shutdownParams
	if code, ok := decodeParams(w, req, &params); !ok {
		return code
	}
	caller, err := parseAddr("caller", params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return codeInvalidParams
	}
	err = s.node.Shutdown(caller)
	observability.Staking().RecordOperation("shutdown", err)
	if err != nil {
		return writeEngineError(w, req.ID, err)
	}
	observability.Staking().SetShutdown()
	writeResult(w, req.ID, true)
	return 0
}

func (s *Server) handleSetManualPrice(w http.ResponseWriter, req *RPCRequest) int {
	if s.prices == nil {
		writeError(w, http.StatusServiceUnavailable, req.ID, codeServerError, "manual price source unavailable", nil)
		return codeServerError
	}
	var params manualPriceParams
	if code, ok := decodeParams(w, req, &params); !ok {
		return code
	}
	symbol := strings.TrimSpace(params.Symbol)
	if symbol == "" {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "symbol required", nil)
		return codeInvalidParams
	}
	if err := s.prices.SetDecimal(symbol, params.Rate, s.now()); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return codeInvalidParams
	}
	writeResult(w, req.ID, true)
	return 0
}

func (s *Server) recordPoolTotal(pool [20]byte) {
	total, err := s.node.PoolBalance(pool)
	if err != nil {
		return
	}
	observability.Staking().RecordPoolTotal(bech32String(pool), total)
}
