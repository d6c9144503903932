package rpc

import (
	"bytes"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"arcadia/core"
	"arcadia/explorer"
	nativecommon "arcadia/native/common"
	"arcadia/native/lpstaking"
	"arcadia/native/pricing"
	"arcadia/observability"
)

const (
	jsonRPCVersion     = "2.0"
	maxRequestBytes    = 1 << 20 // 1 MiB
	rateLimitWindow    = time.Minute
	maxWritesPerWindow = 30
)

const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeServerError    = -32000
	codeUnauthorized   = -32001
	codeModulePaused   = -32002
	codeShutdown       = -32003
	codeRateLimited    = -32020
)

type rateLimiter struct {
	count       int
	windowStart time.Time
}

// Server exposes the staking node over JSON-RPC 2.0 plus a websocket event
// stream. Privileged methods require the bearer token from ARCADIA_RPC_TOKEN.
type Server struct {
	node    *core.Node
	history *explorer.Store
	prices  *pricing.Manual

	mu           sync.Mutex
	rateLimiters map[string]*rateLimiter
	authToken    string
	now          func() time.Time
}

// NewServer wires a server over the node. The explorer store is optional;
// without it history queries and websocket backlog replay are unavailable.
func NewServer(node *core.Node, history *explorer.Store) *Server {
	token := strings.TrimSpace(os.Getenv("ARCADIA_RPC_TOKEN"))
	return &Server{
		node:         node,
		history:      history,
		rateLimiters: make(map[string]*rateLimiter),
		authToken:    token,
		now:          time.Now,
	}
}

// SetPriceOverrides wires the operator override price source. Without it the
// lpstake_setManualPrice method reports the source as unavailable.
func (s *Server) SetPriceOverrides(manual *pricing.Manual) {
	if s == nil || manual == nil {
		return
	}
	s.prices = manual
}

// Handler returns the HTTP handler serving the RPC endpoint and the event
// stream.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handle)
	mux.HandleFunc("/ws/events", s.handleEventsWS)
	return mux
}

// Start serves the RPC surface on addr until the listener fails.
func (s *Server) Start(addr string) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return server.ListenAndServe()
}

type RPCRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
	ID      int               `json:"id"`
}

type RPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
}

type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func writeError(w http.ResponseWriter, status int, id interface{}, code int, message string, data interface{}) {
	if status <= 0 {
		status = http.StatusBadRequest
	}
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	errObj := &RPCError{Code: code, Message: message}
	if data != nil {
		errObj.Data = data
	}
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Error: errObj}
	_ = json.NewEncoder(w).Encode(resp)
}

func writeResult(w http.ResponseWriter, id interface{}, result interface{}) {
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Result: result}
	_ = json.NewEncoder(w).Encode(resp)
}

// writeEngineError maps engine failures onto the protocol error codes.
func writeEngineError(w http.ResponseWriter, id interface{}, err error) int {
	switch {
	case errors.Is(err, lpstaking.ErrNotAuthority),
		errors.Is(err, lpstaking.ErrNotDistributor),
		errors.Is(err, lpstaking.ErrNotPool):
		writeError(w, http.StatusForbidden, id, codeUnauthorized, err.Error(), nil)
		return codeUnauthorized
	case errors.Is(err, nativecommon.ErrModulePaused):
		writeError(w, http.StatusConflict, id, codeModulePaused, err.Error(), nil)
		return codeModulePaused
	case errors.Is(err, lpstaking.ErrShutdown), errors.Is(err, lpstaking.ErrAlreadyShutdown):
		writeError(w, http.StatusConflict, id, codeShutdown, err.Error(), nil)
		return codeShutdown
	case errors.Is(err, lpstaking.ErrUnknownPool),
		errors.Is(err, lpstaking.ErrInvalidAmount),
		errors.Is(err, lpstaking.ErrInsufficientStake):
		writeError(w, http.StatusBadRequest, id, codeInvalidParams, err.Error(), nil)
		return codeInvalidParams
	default:
		writeError(w, http.StatusInternalServerError, id, codeServerError, err.Error(), nil)
		return codeServerError
	}
}

// privilegedMethods gate every state mutation behind the bearer token.
var privilegedMethods = map[string]bool{
	"lpstake_stake":          true,
	"lpstake_stakeFor":       true,
	"lpstake_unstake":        true,
	"lpstake_unstakeFor":     true,
	"lpstake_unstakeFrom":    true,
	"lpstake_claim":          true,
	"lpstake_pause":          true,
	"lpstake_resume":         true,
	"lpstake_shutdown":       true,
	"lpstake_setManualPrice": true,
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	reader := http.MaxBytesReader(w, r.Body, maxRequestBytes)
	defer func() {
		_ = reader.Close()
	}()

	w.Header().Set("Content-Type", "application/json")

	body, err := io.ReadAll(reader)
	if err != nil {
		status := http.StatusBadRequest
		message := "failed to read request body"
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			status = http.StatusRequestEntityTooLarge
			message = fmt.Sprintf("request body exceeds %d bytes", maxRequestBytes)
			observability.RPC().RecordThrottle("body_too_large")
		}
		writeError(w, status, nil, codeInvalidRequest, message, err.Error())
		return
	}
	if len(bytes.TrimSpace(body)) == 0 {
		writeError(w, http.StatusBadRequest, nil, codeInvalidRequest, "request body required", nil)
		return
	}

	req := &RPCRequest{}
	if err := json.Unmarshal(body, req); err != nil {
		writeError(w, http.StatusBadRequest, nil, codeParseError, "invalid JSON payload", err.Error())
		return
	}
	if req.JSONRPC != "" && req.JSONRPC != jsonRPCVersion {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "unsupported jsonrpc version", req.JSONRPC)
		return
	}
	if req.Method == "" {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "method required", nil)
		return
	}

	started := s.now()
	code := s.dispatch(w, r, req)
	observability.RPC().Observe(req.Method, code, s.now().Sub(started))
}

// dispatch routes the request and returns the protocol error code written, or
// zero on success.
func (s *Server) dispatch(w http.ResponseWriter, r *http.Request, req *RPCRequest) int {
	if privilegedMethods[req.Method] {
		if authErr := s.requireAuth(r); authErr != nil {
			writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
			return authErr.Code
		}
		source := clientSource(r)
		if !s.allowSource(source, s.now()) {
			observability.RPC().RecordThrottle("rate_limit")
			writeError(w, http.StatusTooManyRequests, req.ID, codeRateLimited, "write rate limit exceeded", source)
			return codeRateLimited
		}
	}

	switch req.Method {
	case "lpstake_stake":
		return s.handleStake(w, req)
	case "lpstake_stakeFor":
		return s.handleStakeFor(w, req)
	case "lpstake_unstake":
		return s.handleUnstake(w, req)
	case "lpstake_unstakeFor":
		return s.handleUnstakeFor(w, req)
	case "lpstake_unstakeFrom":
		return s.handleUnstakeFrom(w, req)
	case "lpstake_getUserBalance":
		return s.handleGetUserBalance(w, req)
	case "lpstake_getPoolBalance":
		return s.handleGetPoolBalance(w, req)
	case "lpstake_getBoost":
		return s.handleGetBoost(w, req)
	case "lpstake_getCachedBoost":
		return s.handleGetCachedBoost(w, req)
	case "lpstake_getTimeToFullBoost":
		return s.handleGetTimeToFullBoost(w, req)
	case "lpstake_updateBoost":
		return s.handleUpdateBoost(w, req)
	case "lpstake_checkpoint":
		return s.handleCheckpoint(w, req)
	case "lpstake_claimable":
		return s.handleClaimable(w, req)
	case "lpstake_claim":
		return s.handleClaim(w, req)
	case "lpstake_listPools":
		return s.handleListPools(w, req)
	case "lpstake_emissionRate":
		return s.handleEmissionRate(w, req)
	case "lpstake_history":
		return s.handleHistory(w, req)
	case "lpstake_pause":
		return s.handlePause(w, req)
	case "lpstake_resume":
		return s.handleResume(w, req)
	case "lpstake_shutdown":
		return s.handleShutdown(w, req)
	case "lpstake_setManualPrice":
		return s.handleSetManualPrice(w, req)
	default:
		writeError(w, http.StatusNotFound, req.ID, codeMethodNotFound, fmt.Sprintf("unknown method %s", req.Method), nil)
		return codeMethodNotFound
	}
}

func (s *Server) requireAuth(r *http.Request) *RPCError {
	if s.authToken == "" {
		return &RPCError{Code: codeUnauthorized, Message: "RPC authentication token not configured"}
	}
	header := r.Header.Get("Authorization")
	if header == "" {
		return &RPCError{Code: codeUnauthorized, Message: "missing Authorization header"}
	}
	if !strings.HasPrefix(header, "Bearer ") {
		return &RPCError{Code: codeUnauthorized, Message: "Authorization header must use Bearer scheme"}
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if token == "" {
		return &RPCError{Code: codeUnauthorized, Message: "missing bearer token"}
	}
	if subtle.ConstantTimeCompare([]byte(token), []byte(s.authToken)) != 1 {
		return &RPCError{Code: codeUnauthorized, Message: "invalid RPC credentials"}
	}
	return nil
}

func (s *Server) allowSource(source string, now time.Time) bool {
	if source == "" {
		source = "unknown"
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	limiter, ok := s.rateLimiters[source]
	if !ok {
		limiter = &rateLimiter{windowStart: now}
		s.rateLimiters[source] = limiter
	}
	if now.Sub(limiter.windowStart) >= rateLimitWindow {
		limiter.windowStart = now
		limiter.count = 0
	}
	if limiter.count >= maxWritesPerWindow {
		return false
	}
	limiter.count++
	return true
}

func clientSource(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		if len(parts) > 0 {
			candidate := strings.TrimSpace(parts[0])
			if candidate != "" {
				return candidate
			}
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
