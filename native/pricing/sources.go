package pricing

import (
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// Manual is an in-memory source used for tests and operator overrides during
// incident response.
type Manual struct {
	mu     sync.RWMutex
	quotes map[string]Quote
}

// NewManual constructs an empty manual source.
func NewManual() *Manual {
	return &Manual{quotes: make(map[string]Quote)}
}

// SetDecimal records the supplied decimal rate for the symbol.
func (m *Manual) SetDecimal(symbol, rate string, ts time.Time) error {
	if m == nil {
		return fmt.Errorf("pricing: manual source not configured")
	}
	parsed, err := ParseDecimalWad(rate)
	if err != nil {
		return err
	}
	m.Set(symbol, parsed, ts)
	return nil
}

// Set stores the provided wad rate for the symbol.
func (m *Manual) Set(symbol string, rate *big.Int, ts time.Time) {
	if m == nil || rate == nil || rate.Sign() <= 0 {
		return
	}
	key := normaliseSymbol(symbol)
	if key == "" {
		return
	}
	m.mu.Lock()
	m.quotes[key] = Quote{Rate: new(big.Int).Set(rate), Timestamp: ts, Source: "manual"}
	m.mu.Unlock()
}

// Quote retrieves the stored rate for the symbol.
func (m *Manual) Quote(symbol string) (Quote, error) {
	if m == nil {
		return Quote{}, fmt.Errorf("pricing: manual source not configured")
	}
	m.mu.RLock()
	stored, ok := m.quotes[normaliseSymbol(symbol)]
	m.mu.RUnlock()
	if !ok {
		return Quote{}, fmt.Errorf("pricing: no manual quote for %s", symbol)
	}
	return stored.Clone(), nil
}

// Fixed quotes one constant rate for every symbol, for stable LP tokens whose
// valuation never moves. Fixed quotes are always fresh.
type Fixed struct {
	rate *big.Int
}

// NewFixed constructs a fixed source; the rate must be a positive wad.
func NewFixed(rate *big.Int) (*Fixed, error) {
	if rate == nil || rate.Sign() <= 0 {
		return nil, fmt.Errorf("pricing: fixed rate must be positive")
	}
	return &Fixed{rate: new(big.Int).Set(rate)}, nil
}

// Quote returns the constant rate with the current time as its timestamp.
func (f *Fixed) Quote(string) (Quote, error) {
	if f == nil {
		return Quote{}, fmt.Errorf("pricing: fixed source not configured")
	}
	return Quote{Rate: new(big.Int).Set(f.rate), Timestamp: time.Now().UTC(), Source: "fixed"}, nil
}

// HTTPDoer abstracts http.Client for ease of testing.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// HTTP adapts an external JSON price API. The endpoint is queried with a
// `symbol` parameter and must answer `{"rate":"<decimal>","timestamp":<unix>}`.
type HTTP struct {
	client   HTTPDoer
	endpoint string
	apiKey   string
}

// NewHTTP constructs the adapter. A nil client falls back to a dedicated
// http.Client with a ten second timeout; the API key is optional.
func NewHTTP(client HTTPDoer, endpoint, apiKey string) *HTTP {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTP{
		client:   client,
		endpoint: strings.TrimSpace(endpoint),
		apiKey:   strings.TrimSpace(apiKey),
	}
}

// Quote fetches and validates a quote for the symbol.
func (o *HTTP) Quote(symbol string) (Quote, error) {
	if o == nil || o.endpoint == "" {
		return Quote{}, fmt.Errorf("pricing: http source not configured")
	}
	req, err := http.NewRequest(http.MethodGet, o.endpoint, nil)
	if err != nil {
		return Quote{}, err
	}
	values := url.Values{}
	values.Set("symbol", normaliseSymbol(symbol))
	req.URL.RawQuery = values.Encode()
	if o.apiKey != "" {
		req.Header.Set("x-api-key", o.apiKey)
	}
	resp, err := o.client.Do(req)
	if err != nil {
		return Quote{}, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Quote{}, fmt.Errorf("pricing: http source status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	var payload struct {
		Rate      string `json:"rate"`
		Timestamp int64  `json:"timestamp"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Quote{}, fmt.Errorf("pricing: http source decode: %w", err)
	}
	rate, err := ParseDecimalWad(payload.Rate)
	if err != nil {
		return Quote{}, err
	}
	ts := time.Now().UTC()
	if payload.Timestamp > 0 {
		ts = time.Unix(payload.Timestamp, 0).UTC()
	}
	return Quote{Rate: rate, Timestamp: ts, Source: "http"}, nil
}
