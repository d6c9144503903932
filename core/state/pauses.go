package state

import "sort"

var pausesKeyBytes = []byte("pauses")

// PausedModules returns the persisted set of paused module names, sorted.
func (m *Manager) PausedModules() ([]string, error) {
	var modules []string
	if _, err := m.read(hashKey(pausesKeyBytes), &modules); err != nil {
		return nil, err
	}
	return modules, nil
}

// SetPaused adds or removes a module from the persisted pause set.
func (m *Manager) SetPaused(module string, paused bool) error {
	modules, err := m.PausedModules()
	if err != nil {
		return err
	}
	set := make(map[string]bool, len(modules)+1)
	for _, name := range modules {
		set[name] = true
	}
	if paused {
		set[module] = true
	} else {
		delete(set, module)
	}
	updated := make([]string, 0, len(set))
	for name := range set {
		updated = append(updated, name)
	}
	sort.Strings(updated)
	return m.write(hashKey(pausesKeyBytes), updated)
}

// IsPaused reports whether a module is paused. Read errors fail closed as
// not-paused; the persisted set is tiny and only mutated through SetPaused.
func (m *Manager) IsPaused(module string) bool {
	modules, err := m.PausedModules()
	if err != nil {
		return false
	}
	for _, name := range modules {
		if name == module {
			return true
		}
	}
	return false
}
