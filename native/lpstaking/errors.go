package lpstaking

import "errors"

// Wiring errors: the engine refuses to operate until its collaborators are
// configured. These never surface to end users.
var (
	errNilState       = errors.New("lpstaking engine: state not configured")
	errNilRegistry    = errors.New("lpstaking engine: pool registry not configured")
	errNilPriceSource = errors.New("lpstaking engine: price source not configured")
	errNilRateOracle  = errors.New("lpstaking engine: rate oracle not configured")
	errNilRewardSink  = errors.New("lpstaking engine: reward sink not configured")
	errNilIssuer      = errors.New("lpstaking engine: token issuer not configured")
	errNilVault       = errors.New("lpstaking engine: asset vault not configured")
)

// Precondition violations. Each fails the whole operation atomically.
var (
	ErrUnknownPool       = errors.New("lpstaking: pool not registered")
	ErrInvalidAmount     = errors.New("lpstaking: amount must be positive")
	ErrInsufficientStake = errors.New("lpstaking: insufficient staked balance")
	ErrShutdown          = errors.New("lpstaking: engine is shut down")
	ErrAlreadyShutdown   = errors.New("lpstaking: engine already shut down")
)

// Authorization failures for identity-restricted operations.
var (
	ErrNotDistributor = errors.New("lpstaking: caller is not the pool distributor")
	ErrNotPool        = errors.New("lpstaking: caller is not the registered pool")
	ErrNotAuthority   = errors.New("lpstaking: caller is not the emergency authority")
)
