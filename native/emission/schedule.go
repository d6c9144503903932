package emission

import (
	"errors"
	"fmt"
	"math/big"
	"time"

	"arcadia/core/events"
)

var (
	errNilStore   = errors.New("emission: store not configured")
	errNilWeights = errors.New("emission: weight source not configured")

	// ErrNotInitialised is returned when the schedule is queried before
	// genesis wiring has seeded the persisted state.
	ErrNotInitialised = errors.New("emission: schedule not initialised")
)

var (
	wad         = big.NewInt(1_000_000_000_000_000_000)
	basisPoints = big.NewInt(10_000)
)

// secondsPerYear is the default reduction period.
const secondsPerYear uint64 = 365 * 24 * 60 * 60

// Snapshot is the persisted schedule state: the active global rate in ARC
// base units per second and the next reduction boundary. The active rate
// changes only through NotifyRateUpdate, which keeps rate*elapsed
// integration exact between notifications.
type Snapshot struct {
	ActiveRate    *big.Int
	NextReduction uint64
}

// Clone returns a deep copy of the snapshot.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}
	dup := &Snapshot{NextReduction: s.NextReduction}
	if s.ActiveRate != nil {
		dup.ActiveRate = new(big.Int).Set(s.ActiveRate)
	}
	return dup
}

// Store persists the schedule singleton. Absent state comes back nil.
type Store interface {
	EmissionState() (*Snapshot, error)
	PutEmissionState(*Snapshot) error
}

// WeightSource resolves a pool's share of the global rate in basis points.
type WeightSource interface {
	WeightBps(pool [20]byte) (uint64, error)
}

// Config shapes the schedule at genesis.
type Config struct {
	// InitialRate is the genesis global rate in ARC base units per second.
	InitialRate *big.Int
	// ReductionFactor is the wad multiplier applied at every boundary,
	// e.g. 0.6 for a 40% yearly cut.
	ReductionFactor *big.Int
	// ReductionPeriod is the boundary spacing in seconds; zero defaults to
	// one year.
	ReductionPeriod uint64
}

// Schedule implements the staking engine's inflation-rate collaborator.
type Schedule struct {
	store   Store
	weights WeightSource
	config  Config
	emitter events.Emitter
	now     func() uint64
}

// NewSchedule constructs a schedule over the provided store and weights.
func NewSchedule(store Store, weights WeightSource, config Config) *Schedule {
	if config.ReductionPeriod == 0 {
		config.ReductionPeriod = secondsPerYear
	}
	if config.ReductionFactor == nil {
		config.ReductionFactor = new(big.Int).Set(wad)
	}
	if config.InitialRate == nil {
		config.InitialRate = big.NewInt(0)
	}
	return &Schedule{
		store:   store,
		weights: weights,
		config:  config,
		emitter: events.NoopEmitter{},
		now:     func() uint64 { return uint64(time.Now().Unix()) },
	}
}

// SetEmitter wires the event emitter. Nil restores the no-op default.
func (s *Schedule) SetEmitter(emitter events.Emitter) {
	if s == nil {
		return
	}
	if emitter == nil {
		s.emitter = events.NoopEmitter{}
		return
	}
	s.emitter = emitter
}

// SetNowFunc overrides the schedule clock for tests.
func (s *Schedule) SetNowFunc(now func() uint64) {
	if s == nil || now == nil {
		return
	}
	s.now = now
}

// Initialize seeds the persisted state at genesis time. Re-running against
// an initialised store is a no-op so restarts stay idempotent.
func (s *Schedule) Initialize(genesis uint64) error {
	if s == nil || s.store == nil {
		return errNilStore
	}
	existing, err := s.store.EmissionState()
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}
	return s.store.PutEmissionState(&Snapshot{
		ActiveRate:    new(big.Int).Set(s.config.InitialRate),
		NextReduction: genesis + s.config.ReductionPeriod,
	})
}

// CurrentRate returns the pool's entitlement in ARC base units per second:
// the active global rate scaled by the pool's weight.
func (s *Schedule) CurrentRate(pool [20]byte) (*big.Int, error) {
	if s == nil || s.store == nil {
		return nil, errNilStore
	}
	if s.weights == nil {
		return nil, errNilWeights
	}
	snapshot, err := s.store.EmissionState()
	if err != nil {
		return nil, err
	}
	if snapshot == nil {
		return nil, ErrNotInitialised
	}
	weight, err := s.weights.WeightBps(pool)
	if err != nil {
		return nil, fmt.Errorf("emission: query pool weight: %w", err)
	}
	rate := new(big.Int).Mul(snapshot.ActiveRate, new(big.Int).SetUint64(weight))
	return rate.Quo(rate, basisPoints), nil
}

// NotifyRateUpdate rolls the active rate across every reduction boundary the
// clock has passed. Called by the engine after every claim so the rate is
// never stale when an accrual interval opens.
func (s *Schedule) NotifyRateUpdate() error {
	if s == nil || s.store == nil {
		return errNilStore
	}
	snapshot, err := s.store.EmissionState()
	if err != nil {
		return err
	}
	if snapshot == nil {
		return ErrNotInitialised
	}
	now := s.now()
	if now < snapshot.NextReduction {
		return nil
	}

	oldRate := new(big.Int).Set(snapshot.ActiveRate)
	rate := new(big.Int).Set(snapshot.ActiveRate)
	next := snapshot.NextReduction
	for now >= next {
		rate.Mul(rate, s.config.ReductionFactor)
		rate.Quo(rate, wad)
		next += s.config.ReductionPeriod
	}
	snapshot.ActiveRate = rate
	snapshot.NextReduction = next
	if err := s.store.PutEmissionState(snapshot); err != nil {
		return err
	}

	s.emitter.Emit(events.EmissionRateUpdated{
		OldRate:       oldRate,
		NewRate:       new(big.Int).Set(rate),
		NextReduction: next,
	})
	return nil
}

// Active returns the persisted schedule state for display surfaces.
func (s *Schedule) Active() (*Snapshot, error) {
	if s == nil || s.store == nil {
		return nil, errNilStore
	}
	snapshot, err := s.store.EmissionState()
	if err != nil {
		return nil, err
	}
	if snapshot == nil {
		return nil, ErrNotInitialised
	}
	return snapshot.Clone(), nil
}
