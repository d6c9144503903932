package rpc

import (
	"bytes"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"arcadia/core"
	"arcadia/crypto"
	"arcadia/explorer"
	"arcadia/native/emission"
	"arcadia/native/pricing"
	"arcadia/storage"
)

const testToken = "secret-token"

func addr(suffix byte) [20]byte {
	var raw [20]byte
	raw[len(raw)-1] = suffix
	return raw
}

func bech(suffix byte) string {
	raw := addr(suffix)
	return crypto.MustNewAddress(crypto.ARCPrefix, raw[:]).String()
}

var (
	testPool        = addr(0xA0)
	testToken20     = addr(0xB0)
	testDistributor = addr(0xD0)
	testAuthority   = addr(0xEE)
	alice           = addr(0x01)
)

type testEnv struct {
	server *Server
	node   *core.Node
	now    uint64
	http   *httptest.Server
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	t.Setenv("ARCADIA_RPC_TOKEN", testToken)

	env := &testEnv{now: 1_700_000_000}
	cfg := core.Config{
		Authority:      testAuthority,
		PauseAuthority: testAuthority,
		Pools: []core.PoolConfig{{
			Pool:        testPool,
			LPToken:     testToken20,
			Decimals:    18,
			Distributor: testDistributor,
			WeightBps:   10_000,
			PriceFeed:   "fixed:1000000000000000000",
		}},
		Emission: emission.Config{InitialRate: big.NewInt(1000), ReductionPeriod: 1 << 30},
		Now:      func() uint64 { return env.now },
	}
	node, err := core.NewNode(storage.NewMemDB(), cfg, pricing.NewAggregator(nil, 0))
	if err != nil {
		t.Fatalf("new node: %v", err)
	}
	env.node = node

	history, err := explorer.Open(filepath.Join(t.TempDir(), "receipts.db"))
	if err != nil {
		t.Fatalf("open explorer: %v", err)
	}
	t.Cleanup(func() { _ = history.Close() })
	node.Subscribe(history)

	env.server = NewServer(node, history)
	env.http = httptest.NewServer(env.server.Handler())
	t.Cleanup(env.http.Close)

	if err := node.CreditToken(testToken20, alice, big.NewInt(1_000_000)); err != nil {
		t.Fatalf("credit: %v", err)
	}
	return env
}

func (env *testEnv) call(t *testing.T, method string, params interface{}, authed bool) RPCResponse {
	t.Helper()
	payload := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  method,
	}
	if params != nil {
		payload["params"] = []interface{}{params}
	} else {
		payload["params"] = []interface{}{}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req, err := http.NewRequest(http.MethodPost, env.http.URL+"/", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if authed {
		req.Header.Set("Authorization", "Bearer "+testToken)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()
	var decoded RPCResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return decoded
}

func (env *testEnv) mustStake(t *testing.T, amount string) {
	t.Helper()
	resp := env.call(t, "lpstake_stake", map[string]string{
		"caller": bech(0x01),
		"pool":   bech(0xA0),
		"amount": amount,
	}, true)
	if resp.Error != nil {
		t.Fatalf("stake failed: %+v", resp.Error)
	}
}

func resultAmount(t *testing.T, resp RPCResponse) string {
	t.Helper()
	if resp.Error != nil {
		t.Fatalf("unexpected error: %+v", resp.Error)
	}
	encoded, err := json.Marshal(resp.Result)
	if err != nil {
		t.Fatalf("re-marshal result: %v", err)
	}
	var result balanceResult
	if err := json.Unmarshal(encoded, &result); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	return result.Amount
}

func TestStakeRequiresAuth(t *testing.T) {
	env := newTestEnv(t)
	resp := env.call(t, "lpstake_stake", map[string]string{
		"caller": bech(0x01),
		"pool":   bech(0xA0),
		"amount": "100",
	}, false)
	if resp.Error == nil || resp.Error.Code != codeUnauthorized {
		t.Fatalf("expected unauthorized error, got %+v", resp.Error)
	}
}

func TestStakeAndReadBalance(t *testing.T) {
	env := newTestEnv(t)
	env.mustStake(t, "400")

	resp := env.call(t, "lpstake_getUserBalance", map[string]string{
		"account": bech(0x01),
		"pool":    bech(0xA0),
	}, false)
	if got := resultAmount(t, resp); got != "400" {
		t.Fatalf("expected balance 400, got %s", got)
	}

	resp = env.call(t, "lpstake_getPoolBalance", map[string]string{"pool": bech(0xA0)}, false)
	if got := resultAmount(t, resp); got != "400" {
		t.Fatalf("expected pool total 400, got %s", got)
	}
}

func TestUnknownMethodAndBadJSON(t *testing.T) {
	env := newTestEnv(t)

	resp := env.call(t, "lpstake_unknown", nil, false)
	if resp.Error == nil || resp.Error.Code != codeMethodNotFound {
		t.Fatalf("expected method-not-found, got %+v", resp.Error)
	}

	raw, err := http.Post(env.http.URL+"/", "application/json", strings.NewReader("{not json"))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer raw.Body.Close()
	var decoded RPCResponse
	if err := json.NewDecoder(raw.Body).Decode(&decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Error == nil || decoded.Error.Code != codeParseError {
		t.Fatalf("expected parse error, got %+v", decoded.Error)
	}
}

func TestUnknownPoolMapsToInvalidParams(t *testing.T) {
	env := newTestEnv(t)
	resp := env.call(t, "lpstake_stake", map[string]string{
		"caller": bech(0x01),
		"pool":   bech(0x77),
		"amount": "100",
	}, true)
	if resp.Error == nil || resp.Error.Code != codeInvalidParams {
		t.Fatalf("expected invalid-params for unknown pool, got %+v", resp.Error)
	}
}

func TestPausedMapsToModulePausedCode(t *testing.T) {
	env := newTestEnv(t)
	resp := env.call(t, "lpstake_pause", map[string]string{
		"caller": bech(0xEE),
		"module": "lpstaking",
	}, true)
	if resp.Error != nil {
		t.Fatalf("pause failed: %+v", resp.Error)
	}

	resp = env.call(t, "lpstake_stake", map[string]string{
		"caller": bech(0x01),
		"pool":   bech(0xA0),
		"amount": "100",
	}, true)
	if resp.Error == nil || resp.Error.Code != codeModulePaused {
		t.Fatalf("expected module-paused code, got %+v", resp.Error)
	}

	resp = env.call(t, "lpstake_resume", map[string]string{
		"caller": bech(0xEE),
		"module": "lpstaking",
	}, true)
	if resp.Error != nil {
		t.Fatalf("resume failed: %+v", resp.Error)
	}
}

func TestShutdownMapsToShutdownCode(t *testing.T) {
	env := newTestEnv(t)
	resp := env.call(t, "lpstake_shutdown", map[string]string{"caller": bech(0xEE)}, true)
	if resp.Error != nil {
		t.Fatalf("shutdown failed: %+v", resp.Error)
	}

	resp = env.call(t, "lpstake_stake", map[string]string{
		"caller": bech(0x01),
		"pool":   bech(0xA0),
		"amount": "100",
	}, true)
	if resp.Error == nil || resp.Error.Code != codeShutdown {
		t.Fatalf("expected shutdown code, got %+v", resp.Error)
	}
}

func TestClaimFlowThroughRPC(t *testing.T) {
	env := newTestEnv(t)
	env.mustStake(t, "500")
	env.now += 100

	resp := env.call(t, "lpstake_claimable", map[string]string{"pool": bech(0xA0)}, false)
	if got := resultAmount(t, resp); got != "100000" {
		t.Fatalf("expected claimable 100000, got %s", got)
	}

	resp = env.call(t, "lpstake_claim", map[string]string{
		"caller": bech(0xD0),
		"pool":   bech(0xA0),
	}, true)
	if got := resultAmount(t, resp); got != "100000" {
		t.Fatalf("expected minted 100000, got %s", got)
	}

	// A stranger claiming maps to unauthorized.
	resp = env.call(t, "lpstake_claim", map[string]string{
		"caller": bech(0x01),
		"pool":   bech(0xA0),
	}, true)
	if resp.Error == nil || resp.Error.Code != codeUnauthorized {
		t.Fatalf("expected unauthorized for stranger claim, got %+v", resp.Error)
	}
}

func TestListPoolsAndEmission(t *testing.T) {
	env := newTestEnv(t)

	resp := env.call(t, "lpstake_listPools", nil, false)
	if resp.Error != nil {
		t.Fatalf("list pools: %+v", resp.Error)
	}
	encoded, _ := json.Marshal(resp.Result)
	var pools []poolInfoResult
	if err := json.Unmarshal(encoded, &pools); err != nil {
		t.Fatalf("decode pools: %v", err)
	}
	if len(pools) != 1 || pools[0].Pool != bech(0xA0) || pools[0].WeightBps != 10_000 {
		t.Fatalf("unexpected pools %+v", pools)
	}

	resp = env.call(t, "lpstake_emissionRate", nil, false)
	if resp.Error != nil {
		t.Fatalf("emission rate: %+v", resp.Error)
	}
	encoded, _ = json.Marshal(resp.Result)
	var snapshot emissionResult
	if err := json.Unmarshal(encoded, &snapshot); err != nil {
		t.Fatalf("decode emission: %v", err)
	}
	if snapshot.ActiveRate != "1000" {
		t.Fatalf("expected rate 1000, got %s", snapshot.ActiveRate)
	}
}

func TestHistoryReturnsReceipts(t *testing.T) {
	env := newTestEnv(t)
	env.mustStake(t, "100")
	env.mustStake(t, "200")

	resp := env.call(t, "lpstake_history", map[string]interface{}{"limit": 10}, false)
	if resp.Error != nil {
		t.Fatalf("history: %+v", resp.Error)
	}
	encoded, _ := json.Marshal(resp.Result)
	var result historyResult
	if err := json.Unmarshal(encoded, &result); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	// Each stake emits a staked and a boost event.
	if len(result.Receipts) < 2 {
		t.Fatalf("expected receipts from two stakes, got %d", len(result.Receipts))
	}
	if result.Cursor == 0 {
		t.Fatalf("expected a non-zero cursor")
	}

	resp = env.call(t, "lpstake_history", map[string]interface{}{"account": bech(0x01), "limit": 10}, false)
	if resp.Error != nil {
		t.Fatalf("history by account: %+v", resp.Error)
	}
}

func TestUpdateBoostReportsRefreshTimestamp(t *testing.T) {
	env := newTestEnv(t)
	env.mustStake(t, "400")
	env.now += 40

	resp := env.call(t, "lpstake_updateBoost", map[string]string{"account": bech(0x01)}, false)
	if resp.Error != nil {
		t.Fatalf("update boost: %+v", resp.Error)
	}
	encoded, _ := json.Marshal(resp.Result)
	var refreshed cachedBoostResult
	if err := json.Unmarshal(encoded, &refreshed); err != nil {
		t.Fatalf("decode update result: %v", err)
	}
	if refreshed.UpdatedAt != env.now {
		t.Fatalf("expected refresh stamp %d, got %d", env.now, refreshed.UpdatedAt)
	}
	if refreshed.TimeBoostFactor == "" {
		t.Fatalf("expected a boost factor in the result")
	}

	resp = env.call(t, "lpstake_getCachedBoost", map[string]string{"account": bech(0x01)}, false)
	if resp.Error != nil {
		t.Fatalf("cached boost: %+v", resp.Error)
	}
	encoded, _ = json.Marshal(resp.Result)
	var cached cachedBoostResult
	if err := json.Unmarshal(encoded, &cached); err != nil {
		t.Fatalf("decode cached result: %v", err)
	}
	if cached.UpdatedAt != refreshed.UpdatedAt {
		t.Fatalf("cached stamp %d diverged from refresh stamp %d", cached.UpdatedAt, refreshed.UpdatedAt)
	}
}

func newManualFeedEnv(t *testing.T) *testEnv {
	t.Helper()
	t.Setenv("ARCADIA_RPC_TOKEN", testToken)

	env := &testEnv{now: 1_700_000_000}
	cfg := core.Config{
		Authority:      testAuthority,
		PauseAuthority: testAuthority,
		Pools: []core.PoolConfig{{
			Pool:        testPool,
			LPToken:     testToken20,
			Decimals:    18,
			Distributor: testDistributor,
			WeightBps:   10_000,
			PriceFeed:   "manual:ARCLP",
		}},
		Emission: emission.Config{InitialRate: big.NewInt(1000), ReductionPeriod: 1 << 30},
		Now:      func() uint64 { return env.now },
	}
	agg := pricing.NewAggregator([]string{"manual"}, 0)
	manual := pricing.NewManual()
	agg.Register("manual", manual)
	node, err := core.NewNode(storage.NewMemDB(), cfg, agg)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}
	env.node = node

	env.server = NewServer(node, nil)
	env.server.SetPriceOverrides(manual)
	env.http = httptest.NewServer(env.server.Handler())
	t.Cleanup(env.http.Close)

	if err := node.CreditToken(testToken20, alice, big.NewInt(1_000_000)); err != nil {
		t.Fatalf("credit: %v", err)
	}
	return env
}

func TestManualPriceOverrideThroughRPC(t *testing.T) {
	env := newManualFeedEnv(t)

	// A manual-feed pool is unquotable until an operator pushes a rate.
	resp := env.call(t, "lpstake_stake", map[string]string{
		"caller": bech(0x01),
		"pool":   bech(0xA0),
		"amount": "100",
	}, true)
	if resp.Error == nil {
		t.Fatalf("expected stake to fail before a manual quote exists")
	}

	resp = env.call(t, "lpstake_setManualPrice", map[string]string{"symbol": "ARCLP", "rate": "2.5"}, false)
	if resp.Error == nil || resp.Error.Code != codeUnauthorized {
		t.Fatalf("expected unauthorized override without token, got %+v", resp.Error)
	}

	resp = env.call(t, "lpstake_setManualPrice", map[string]string{"symbol": "ARCLP", "rate": "2.5"}, true)
	if resp.Error != nil {
		t.Fatalf("set manual price: %+v", resp.Error)
	}
	env.mustStake(t, "100")

	resp = env.call(t, "lpstake_setManualPrice", map[string]string{"symbol": "ARCLP", "rate": "-1"}, true)
	if resp.Error == nil || resp.Error.Code != codeInvalidParams {
		t.Fatalf("expected invalid-params for negative rate, got %+v", resp.Error)
	}
	resp = env.call(t, "lpstake_setManualPrice", map[string]string{"symbol": "", "rate": "1"}, true)
	if resp.Error == nil || resp.Error.Code != codeInvalidParams {
		t.Fatalf("expected invalid-params for blank symbol, got %+v", resp.Error)
	}
}

func TestManualPriceUnavailableWithoutSource(t *testing.T) {
	env := newTestEnv(t)
	resp := env.call(t, "lpstake_setManualPrice", map[string]string{"symbol": "ARCLP", "rate": "1"}, true)
	if resp.Error == nil || resp.Error.Code != codeServerError {
		t.Fatalf("expected server error without a wired source, got %+v", resp.Error)
	}
}

func TestOversizedBodyRejected(t *testing.T) {
	env := newTestEnv(t)
	body := strings.Repeat("a", maxRequestBytes+1)
	resp, err := http.Post(env.http.URL+"/", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", resp.StatusCode)
	}
}
