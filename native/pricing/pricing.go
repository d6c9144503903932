package pricing

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"
)

// Quote captures a wad-scaled USD exchange rate for one LP token symbol,
// together with the timestamp reported by the upstream source and the source
// identifier.
type Quote struct {
	Rate      *big.Int
	Timestamp time.Time
	Source    string
}

// Clone returns a deep copy of the quote.
func (q Quote) Clone() Quote {
	clone := Quote{Timestamp: q.Timestamp, Source: q.Source}
	if q.Rate != nil {
		clone.Rate = new(big.Int).Set(q.Rate)
	}
	return clone
}

// Source resolves a wad exchange rate for an LP token symbol.
type Source interface {
	Quote(symbol string) (Quote, error)
}

// ErrNoFreshQuote indicates that no registered source produced a quote within
// the configured freshness window.
var ErrNoFreshQuote = errors.New("pricing: no fresh quote available")

// ErrUnknownSource indicates a feed binding referencing a source that was
// never registered.
var ErrUnknownSource = errors.New("pricing: source not registered")

var wad = big.NewInt(1_000_000_000_000_000_000)

// Aggregator consults registered sources in priority order until one returns
// a sufficiently fresh quote.
type Aggregator struct {
	mu       sync.RWMutex
	priority []string
	sources  map[string]Source
	maxAge   time.Duration
	now      func() time.Time
}

// NewAggregator constructs an aggregator with the provided priority order and
// freshness window. A zero maxAge disables the staleness check.
func NewAggregator(priority []string, maxAge time.Duration) *Aggregator {
	return &Aggregator{
		priority: append([]string{}, priority...),
		sources:  make(map[string]Source),
		maxAge:   maxAge,
		now:      time.Now,
	}
}

// Register wires a named source. Registering a name absent from the priority
// list appends it at the end.
func (a *Aggregator) Register(name string, source Source) {
	if a == nil || source == nil {
		return
	}
	name = strings.TrimSpace(strings.ToLower(name))
	if name == "" {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, known := a.sources[name]; !known {
		found := false
		for _, existing := range a.priority {
			if existing == name {
				found = true
				break
			}
		}
		if !found {
			a.priority = append(a.priority, name)
		}
	}
	a.sources[name] = source
}

// SetMaxAge updates the freshness window applied to quotes.
func (a *Aggregator) SetMaxAge(maxAge time.Duration) {
	if a == nil {
		return
	}
	a.mu.Lock()
	a.maxAge = maxAge
	a.mu.Unlock()
}

// SetNowFunc overrides the clock used for freshness checks in tests.
func (a *Aggregator) SetNowFunc(now func() time.Time) {
	if a == nil || now == nil {
		return
	}
	a.mu.Lock()
	a.now = now
	a.mu.Unlock()
}

// Quote consults every source in priority order and returns the first fresh,
// positive quote.
func (a *Aggregator) Quote(symbol string) (Quote, error) {
	if a == nil {
		return Quote{}, fmt.Errorf("pricing: aggregator not configured")
	}
	symbol = normaliseSymbol(symbol)
	if symbol == "" {
		return Quote{}, fmt.Errorf("pricing: symbol required")
	}
	a.mu.RLock()
	priority := append([]string{}, a.priority...)
	sources := make(map[string]Source, len(a.sources))
	for name, source := range a.sources {
		sources[name] = source
	}
	maxAge := a.maxAge
	now := a.now()
	a.mu.RUnlock()

	var lastErr error
	for _, name := range priority {
		source, ok := sources[name]
		if !ok {
			continue
		}
		quote, err := source.Quote(symbol)
		if err != nil {
			lastErr = err
			continue
		}
		if quote.Rate == nil || quote.Rate.Sign() <= 0 {
			continue
		}
		if maxAge > 0 && !quote.Timestamp.IsZero() && now.Sub(quote.Timestamp) > maxAge {
			continue
		}
		return quote.Clone(), nil
	}
	if lastErr != nil {
		return Quote{}, fmt.Errorf("%w: %v", ErrNoFreshQuote, lastErr)
	}
	return Quote{}, ErrNoFreshQuote
}

// QuoteFrom consults a single named source, still applying the freshness
// window. Used by feed bindings that pin a pool to one source.
func (a *Aggregator) QuoteFrom(name, symbol string) (Quote, error) {
	if a == nil {
		return Quote{}, fmt.Errorf("pricing: aggregator not configured")
	}
	name = strings.TrimSpace(strings.ToLower(name))
	a.mu.RLock()
	source, ok := a.sources[name]
	maxAge := a.maxAge
	now := a.now()
	a.mu.RUnlock()
	if !ok {
		return Quote{}, fmt.Errorf("%w: %s", ErrUnknownSource, name)
	}
	quote, err := source.Quote(normaliseSymbol(symbol))
	if err != nil {
		return Quote{}, err
	}
	if quote.Rate == nil || quote.Rate.Sign() <= 0 {
		return Quote{}, fmt.Errorf("pricing: source %s returned invalid rate", name)
	}
	if maxAge > 0 && !quote.Timestamp.IsZero() && now.Sub(quote.Timestamp) > maxAge {
		return Quote{}, ErrNoFreshQuote
	}
	return quote.Clone(), nil
}

func normaliseSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// ParseDecimalWad converts a decimal string such as "1.25" into a wad.
func ParseDecimalWad(value string) (*big.Int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, fmt.Errorf("pricing: rate required")
	}
	rat, ok := new(big.Rat).SetString(trimmed)
	if !ok {
		return nil, fmt.Errorf("pricing: invalid rate %q", value)
	}
	if rat.Sign() <= 0 {
		return nil, fmt.Errorf("pricing: rate must be positive")
	}
	scaled := new(big.Int).Mul(rat.Num(), wad)
	return scaled.Quo(scaled, rat.Denom()), nil
}
