package emission

import (
	"errors"
	"math/big"
	"testing"
)

type memStore struct {
	snapshot *Snapshot
}

func (m *memStore) EmissionState() (*Snapshot, error) { return m.snapshot.Clone(), nil }

func (m *memStore) PutEmissionState(s *Snapshot) error {
	m.snapshot = s.Clone()
	return nil
}

type staticWeights struct {
	weights map[[20]byte]uint64
}

func (s *staticWeights) WeightBps(pool [20]byte) (uint64, error) {
	return s.weights[pool], nil
}

func pool(suffix byte) [20]byte {
	var raw [20]byte
	raw[len(raw)-1] = suffix
	return raw
}

const genesis uint64 = 1_700_000_000

func newTestSchedule(initialRate int64, factorNum, factorDen int64, period uint64, weights map[[20]byte]uint64) (*Schedule, *memStore, *uint64) {
	store := &memStore{}
	factor := new(big.Int).Mul(big.NewInt(factorNum), wad)
	factor.Quo(factor, big.NewInt(factorDen))
	schedule := NewSchedule(store, &staticWeights{weights: weights}, Config{
		InitialRate:     big.NewInt(initialRate),
		ReductionFactor: factor,
		ReductionPeriod: period,
	})
	now := genesis
	schedule.SetNowFunc(func() uint64 { return now })
	return schedule, store, &now
}

func TestInitializeIsIdempotent(t *testing.T) {
	schedule, store, _ := newTestSchedule(1000, 1, 2, 100, nil)
	if err := schedule.Initialize(genesis); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	store.snapshot.ActiveRate = big.NewInt(555)
	if err := schedule.Initialize(genesis); err != nil {
		t.Fatalf("re-initialize: %v", err)
	}
	if store.snapshot.ActiveRate.Cmp(big.NewInt(555)) != 0 {
		t.Fatalf("re-initialize overwrote live state")
	}
}

func TestCurrentRateScalesByWeight(t *testing.T) {
	heavy := pool(0x01)
	light := pool(0x02)
	schedule, _, _ := newTestSchedule(1000, 1, 2, 100, map[[20]byte]uint64{
		heavy: 7500,
		light: 2500,
	})
	if err := schedule.Initialize(genesis); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	rate, err := schedule.CurrentRate(heavy)
	if err != nil {
		t.Fatalf("current rate: %v", err)
	}
	if rate.Cmp(big.NewInt(750)) != 0 {
		t.Fatalf("expected 750 for 75%% weight, got %s", rate)
	}
	rate, err = schedule.CurrentRate(light)
	if err != nil {
		t.Fatalf("current rate: %v", err)
	}
	if rate.Cmp(big.NewInt(250)) != 0 {
		t.Fatalf("expected 250 for 25%% weight, got %s", rate)
	}

	// Unweighted pools emit nothing.
	rate, err = schedule.CurrentRate(pool(0x09))
	if err != nil {
		t.Fatalf("current rate: %v", err)
	}
	if rate.Sign() != 0 {
		t.Fatalf("expected zero rate for unweighted pool, got %s", rate)
	}
}

func TestNotifyRollsSingleBoundary(t *testing.T) {
	schedule, store, now := newTestSchedule(1000, 1, 2, 100, nil)
	if err := schedule.Initialize(genesis); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	// Before the boundary nothing changes.
	*now = genesis + 99
	if err := schedule.NotifyRateUpdate(); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if store.snapshot.ActiveRate.Cmp(big.NewInt(1000)) != 0 {
		t.Fatalf("rate changed before the boundary: %s", store.snapshot.ActiveRate)
	}

	*now = genesis + 100
	if err := schedule.NotifyRateUpdate(); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if store.snapshot.ActiveRate.Cmp(big.NewInt(500)) != 0 {
		t.Fatalf("expected halved rate, got %s", store.snapshot.ActiveRate)
	}
	if store.snapshot.NextReduction != genesis+200 {
		t.Fatalf("expected next boundary at +200, got %d", store.snapshot.NextReduction)
	}
}

func TestNotifyRollsManyBoundariesAtOnce(t *testing.T) {
	schedule, store, now := newTestSchedule(1000, 1, 2, 100, nil)
	if err := schedule.Initialize(genesis); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	// Three and a half periods pass without any claim: one notify must
	// cross all three boundaries.
	*now = genesis + 350
	if err := schedule.NotifyRateUpdate(); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if store.snapshot.ActiveRate.Cmp(big.NewInt(125)) != 0 {
		t.Fatalf("expected 1000/8 after three cuts, got %s", store.snapshot.ActiveRate)
	}
	if store.snapshot.NextReduction != genesis+400 {
		t.Fatalf("expected next boundary at +400, got %d", store.snapshot.NextReduction)
	}
}

func TestQueriesFailBeforeInitialisation(t *testing.T) {
	schedule, _, _ := newTestSchedule(1000, 1, 2, 100, nil)
	if _, err := schedule.CurrentRate(pool(0x01)); !errors.Is(err, ErrNotInitialised) {
		t.Fatalf("expected ErrNotInitialised, got %v", err)
	}
	if err := schedule.NotifyRateUpdate(); !errors.Is(err, ErrNotInitialised) {
		t.Fatalf("expected ErrNotInitialised, got %v", err)
	}
	if _, err := schedule.Active(); !errors.Is(err, ErrNotInitialised) {
		t.Fatalf("expected ErrNotInitialised, got %v", err)
	}
}
