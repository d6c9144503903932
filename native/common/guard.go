package common

import "errors"

// ErrModulePaused is returned by Guard while a module's reversible
// operational pause is engaged. It is distinct from a permanent shutdown:
// paused modules resume once the flag clears.
var ErrModulePaused = errors.New("module paused")

// PauseView exposes the persisted pause set to native engines.
type PauseView interface {
	IsPaused(module string) bool
}

// Guard rejects mutating operations while the named module is paused. A nil
// view or empty module name disables the check so tests can wire engines
// without pause plumbing.
func Guard(p PauseView, module string) error {
	if p == nil || module == "" {
		return nil
	}
	if p.IsPaused(module) {
		return ErrModulePaused
	}
	return nil
}
