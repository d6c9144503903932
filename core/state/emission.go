package state

import "math/big"

var emissionKeyBytes = []byte("emission/state")

// EmissionState is the persisted singleton behind the emission schedule: the
// active global rate in ARC base units per second and the next scheduled
// reduction boundary. Only NotifyRateUpdate mutates it.
type EmissionState struct {
	ActiveRate    *big.Int
	NextReduction uint64
}

// Emission loads the persisted emission state, nil before first
// initialisation.
func (m *Manager) Emission() (*EmissionState, error) {
	stored := new(EmissionState)
	ok, err := m.read(hashKey(emissionKeyBytes), stored)
	if err != nil || !ok {
		return nil, err
	}
	return stored, nil
}

// PutEmission persists the emission state singleton.
func (m *Manager) PutEmission(state *EmissionState) error {
	if state.ActiveRate == nil {
		state.ActiveRate = big.NewInt(0)
	}
	return m.write(hashKey(emissionKeyBytes), state)
}
