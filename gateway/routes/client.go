package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Upstream JSON-RPC error codes the gateway translates to HTTP statuses.
const (
	rpcCodeInvalidParams = -32602
	rpcCodeUnauthorized  = -32001
	rpcCodeModulePaused  = -32002
	rpcCodeShutdown      = -32003
	rpcCodeRateLimited   = -32020
)

// NodeError is a JSON-RPC error relayed from the staking node.
type NodeError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("node rpc error %d: %s", e.Code, e.Message)
}

// HTTPStatus maps the upstream error code onto the REST response status.
func (e *NodeError) HTTPStatus() int {
	switch e.Code {
	case rpcCodeInvalidParams:
		return http.StatusBadRequest
	case rpcCodeUnauthorized:
		return http.StatusForbidden
	case rpcCodeModulePaused, rpcCodeShutdown:
		return http.StatusConflict
	case rpcCodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusBadGateway
	}
}

// NodeClient forwards gateway requests to the staking node's JSON-RPC
// endpoint, attaching the node bearer token for privileged methods.
type NodeClient struct {
	endpoint string
	token    string
	http     *http.Client
}

func NewNodeClient(endpoint, token string, timeout time.Duration) *NodeClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &NodeClient{
		endpoint: strings.TrimRight(strings.TrimSpace(endpoint), "/"),
		token:    strings.TrimSpace(token),
		http:     &http.Client{Timeout: timeout},
	}
}

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      int           `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *NodeError      `json:"error"`
}

// Call invokes a node method with a single params object and decodes the
// result into out when out is non-nil. A nil params sends an empty list.
func (c *NodeClient) Call(ctx context.Context, method string, params interface{}, out interface{}) error {
	req := rpcRequest{JSONRPC: "2.0", ID: 1, Method: method, Params: []interface{}{}}
	if params != nil {
		req.Params = []interface{}{params}
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal rpc request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build rpc request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("call node: %w", err)
	}
	defer resp.Body.Close()

	var decoded rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return fmt.Errorf("decode node response: %w", err)
	}
	if decoded.Error != nil {
		return decoded.Error
	}
	if out != nil && len(decoded.Result) > 0 {
		if err := json.Unmarshal(decoded.Result, out); err != nil {
			return fmt.Errorf("decode result: %w", err)
		}
	}
	return nil
}
