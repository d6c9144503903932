package pricing

import (
	"fmt"
	"math/big"
	"strings"
)

// Binding describes how one pool's LP token is priced: a feed spec plus the
// token's native decimals. Feed specs:
//
//	fixed:<wad>    constant rate
//	manual:<SYM>   operator override source
//	http:<SYM>     HTTP adapter source
//	<SYM>          aggregator sweep in priority order
type Binding struct {
	Feed     string
	Decimals uint8
}

// BindingSource resolves the feed binding registered for a pool.
type BindingSource interface {
	Binding(pool [20]byte) (Binding, error)
}

// Service is the engine-facing price source: it resolves each pool's binding
// and answers through the aggregator. It satisfies the staking engine's
// PriceSource collaborator interface.
type Service struct {
	bindings   BindingSource
	aggregator *Aggregator
}

// NewService wires a service over the binding source and aggregator.
func NewService(bindings BindingSource, aggregator *Aggregator) *Service {
	return &Service{bindings: bindings, aggregator: aggregator}
}

// ExchangeRate returns the pool's wad USD rate per whole LP token.
func (s *Service) ExchangeRate(pool [20]byte) (*big.Int, error) {
	if s == nil || s.bindings == nil || s.aggregator == nil {
		return nil, fmt.Errorf("pricing: service not configured")
	}
	binding, err := s.bindings.Binding(pool)
	if err != nil {
		return nil, err
	}
	feed := strings.TrimSpace(binding.Feed)
	if feed == "" {
		return nil, fmt.Errorf("pricing: pool %x has no feed binding", pool)
	}

	if raw, ok := strings.CutPrefix(feed, "fixed:"); ok {
		rate, ok := new(big.Int).SetString(strings.TrimSpace(raw), 10)
		if !ok {
			return nil, fmt.Errorf("pricing: invalid fixed feed %q", feed)
		}
		fixed, err := NewFixed(rate)
		if err != nil {
			return nil, fmt.Errorf("pricing: invalid fixed feed %q: %w", feed, err)
		}
		quote, err := fixed.Quote("")
		if err != nil {
			return nil, err
		}
		return quote.Rate, nil
	}
	if symbol, ok := strings.CutPrefix(feed, "manual:"); ok {
		quote, err := s.aggregator.QuoteFrom("manual", symbol)
		if err != nil {
			return nil, err
		}
		return quote.Rate, nil
	}
	if symbol, ok := strings.CutPrefix(feed, "http:"); ok {
		quote, err := s.aggregator.QuoteFrom("http", symbol)
		if err != nil {
			return nil, err
		}
		return quote.Rate, nil
	}
	quote, err := s.aggregator.Quote(feed)
	if err != nil {
		return nil, err
	}
	return quote.Rate, nil
}

// LPTokenDecimals returns the native decimals of the pool's LP token.
func (s *Service) LPTokenDecimals(pool [20]byte) (uint8, error) {
	if s == nil || s.bindings == nil {
		return 0, fmt.Errorf("pricing: service not configured")
	}
	binding, err := s.bindings.Binding(pool)
	if err != nil {
		return 0, err
	}
	return binding.Decimals, nil
}
