package lpstaking

import (
	"math/big"
	"testing"
)

const day = 24 * 60 * 60

func wadFrac(num, den int64) *big.Int {
	out := new(big.Int).Mul(wad, big.NewInt(num))
	return out.Quo(out, big.NewInt(den))
}

func storedFactor(t *testing.T, env *testEnv, user [20]byte) *big.Int {
	t.Helper()
	boost := env.state.boosts[user]
	if boost == nil || boost.TimeBoostFactor == nil {
		t.Fatalf("no persisted boost for %x", user)
	}
	return boost.TimeBoostFactor
}

func TestFirstStakeInitialisesStartingFactor(t *testing.T) {
	env := newTestEnv(t)
	pool := env.registry.pools[0]
	user := addr(0x01)

	mustStake(t, env, user, pool, 100)

	if got := storedFactor(t, env, user); got.Cmp(timeStartingFactor) != 0 {
		t.Fatalf("expected starting factor %s, got %s", timeStartingFactor, got)
	}
}

func TestColdStartResetAfterFullExit(t *testing.T) {
	env := newTestEnv(t)
	pool := env.registry.pools[0]
	user := addr(0x01)

	mustStake(t, env, user, pool, 100)
	env.advance(20 * day)
	if err := env.engine.Unstake(user, pool, big.NewInt(100)); err != nil {
		t.Fatalf("unstake: %v", err)
	}
	// The exit refresh banked 20 days of growth before zeroing the stake.
	if got := storedFactor(t, env, user); got.Cmp(timeStartingFactor) <= 0 {
		t.Fatalf("expected grown factor before re-entry, got %s", got)
	}

	env.advance(5 * day)
	mustStake(t, env, user, pool, 100)
	if got := storedFactor(t, env, user); got.Cmp(timeStartingFactor) != 0 {
		t.Fatalf("re-entry must reset to starting factor, got %s", got)
	}
}

func TestPureTimeRefreshGrowsLinearly(t *testing.T) {
	env := newTestEnv(t)
	pool := env.registry.pools[0]
	user := addr(0x01)
	mustStake(t, env, user, pool, 100)

	env.advance(15 * day)
	if _, err := env.engine.UpdateBoost(user); err != nil {
		t.Fatalf("updateBoost: %v", err)
	}
	// Half the ramp: 0.1 + 0.5*0.9 = 0.55.
	if got := storedFactor(t, env, user); got.Cmp(wadFrac(55, 100)) != 0 {
		t.Fatalf("expected factor 0.55, got %s", got)
	}

	env.advance(15 * day)
	if _, err := env.engine.UpdateBoost(user); err != nil {
		t.Fatalf("updateBoost: %v", err)
	}
	if got := storedFactor(t, env, user); got.Cmp(wad) != 0 {
		t.Fatalf("expected fully ramped factor, got %s", got)
	}

	// The factor is capped at one no matter how long the stake ages.
	env.advance(90 * day)
	if _, err := env.engine.UpdateBoost(user); err != nil {
		t.Fatalf("updateBoost: %v", err)
	}
	if got := storedFactor(t, env, user); got.Cmp(wad) != 0 {
		t.Fatalf("factor must stay capped at one, got %s", got)
	}
}

func TestFreshStakeDilutesAgedBoost(t *testing.T) {
	env := newTestEnv(t)
	pool := env.registry.pools[0]
	user := addr(0x01)
	mustStake(t, env, user, pool, 100)

	env.advance(30 * day)
	mustStake(t, env, user, pool, 100)

	// Fully ramped factor 1.0 blended half-and-half with fresh stake at
	// 0.1 lands at 0.55.
	if got := storedFactor(t, env, user); got.Cmp(wadFrac(55, 100)) != 0 {
		t.Fatalf("expected blended factor 0.55, got %s", got)
	}
}

func TestBoostScenarioSingleStaker(t *testing.T) {
	env := newTestEnv(t)
	pool := env.registry.pools[0]
	user := addr(0x01)
	mustStake(t, env, user, pool, 100)

	// Sole staker: stakeBoost = 1 + 1.0*50 = 51; timeBoost starts at 0.1,
	// so the combined multiplier opens at 5.1.
	boost, err := env.engine.Boost(user)
	if err != nil {
		t.Fatalf("boost: %v", err)
	}
	if boost.Cmp(wadFrac(51, 10)) != 0 {
		t.Fatalf("expected opening boost 5.1, got %s", boost)
	}

	// After the full ramp the raw product 51 clamps to the ceiling.
	env.advance(30 * day)
	boost, err = env.engine.Boost(user)
	if err != nil {
		t.Fatalf("boost: %v", err)
	}
	if boost.Cmp(maxBoost) != 0 {
		t.Fatalf("expected max boost, got %s", boost)
	}
}

func TestBoostReflectsStakeShare(t *testing.T) {
	env := newTestEnv(t)
	pool := env.registry.pools[0]
	small := addr(0x01)
	large := addr(0x02)
	mustStake(t, env, small, pool, 100)
	mustStake(t, env, large, pool, 300)

	// 25% share: stakeBoost = 1 + 0.25*50 = 13.5; time factor 0.1 -> 1.35.
	boost, err := env.engine.Boost(small)
	if err != nil {
		t.Fatalf("boost: %v", err)
	}
	if boost.Cmp(wadFrac(135, 100)) != 0 {
		t.Fatalf("expected boost 1.35 at quarter share, got %s", boost)
	}
}

func TestBoostBounds(t *testing.T) {
	env := newTestEnv(t)
	pool := env.registry.pools[0]
	user := addr(0x01)

	// No stake anywhere: the floor applies.
	boost, err := env.engine.Boost(user)
	if err != nil {
		t.Fatalf("boost: %v", err)
	}
	if boost.Cmp(minBoost) != 0 {
		t.Fatalf("expected min boost for zero stake, got %s", boost)
	}

	mustStake(t, env, user, pool, 100)
	for _, elapsed := range []uint64{0, day, 7 * day, 30 * day, 365 * day} {
		env.now = testGenesis + elapsed
		boost, err := env.engine.Boost(user)
		if err != nil {
			t.Fatalf("boost at +%ds: %v", elapsed, err)
		}
		if boost.Cmp(minBoost) < 0 || boost.Cmp(maxBoost) > 0 {
			t.Fatalf("boost %s out of bounds at +%ds", boost, elapsed)
		}
	}

	env.state.shutdown = true
	boost, err = env.engine.Boost(user)
	if err != nil {
		t.Fatalf("boost after shutdown: %v", err)
	}
	if boost.Cmp(minBoost) != 0 {
		t.Fatalf("expected min boost after shutdown, got %s", boost)
	}
}

func TestBoostIsPureProjection(t *testing.T) {
	env := newTestEnv(t)
	pool := env.registry.pools[0]
	user := addr(0x01)
	mustStake(t, env, user, pool, 100)
	persisted := new(big.Int).Set(storedFactor(t, env, user))

	env.advance(10 * day)
	if _, err := env.engine.Boost(user); err != nil {
		t.Fatalf("boost: %v", err)
	}
	if got := storedFactor(t, env, user); got.Cmp(persisted) != 0 {
		t.Fatalf("projection must not persist: %s -> %s", persisted, got)
	}

	cached, err := env.engine.CachedBoost(user)
	if err != nil {
		t.Fatalf("cachedBoost: %v", err)
	}
	if cached.TimeBoostFactor.Cmp(persisted) != 0 {
		t.Fatalf("cached boost must return the stored factor")
	}
	if cached.LastUpdated != testGenesis {
		t.Fatalf("cached boost must return the stored timestamp")
	}
}

func TestUpdateBoostFailsAfterShutdown(t *testing.T) {
	env := newTestEnv(t)
	user := addr(0x01)
	mustStake(t, env, user, env.registry.pools[0], 100)

	env.state.shutdown = true
	if _, err := env.engine.UpdateBoost(user); err != ErrShutdown {
		t.Fatalf("expected ErrShutdown, got %v", err)
	}
}

func TestTimeToFullBoost(t *testing.T) {
	env := newTestEnv(t)
	pool := env.registry.pools[0]
	user := addr(0x01)

	remaining, err := env.engine.TimeToFullBoost(user)
	if err != nil {
		t.Fatalf("timeToFullBoost: %v", err)
	}
	if remaining != increasePeriodSeconds {
		t.Fatalf("unknown account must report the full ramp, got %d", remaining)
	}

	mustStake(t, env, user, pool, 100)
	remaining, err = env.engine.TimeToFullBoost(user)
	if err != nil {
		t.Fatalf("timeToFullBoost: %v", err)
	}
	if remaining != increasePeriodSeconds {
		t.Fatalf("fresh stake must report the full ramp, got %d", remaining)
	}

	env.advance(10 * day)
	remaining, err = env.engine.TimeToFullBoost(user)
	if err != nil {
		t.Fatalf("timeToFullBoost: %v", err)
	}
	if remaining != 20*day {
		t.Fatalf("expected 20 days remaining, got %d", remaining)
	}

	env.advance(25 * day)
	remaining, err = env.engine.TimeToFullBoost(user)
	if err != nil {
		t.Fatalf("timeToFullBoost: %v", err)
	}
	if remaining != 0 {
		t.Fatalf("expected zero remaining past the ramp, got %d", remaining)
	}
}
