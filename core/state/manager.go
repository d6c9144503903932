package state

import (
	"fmt"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"arcadia/storage"
)

// Manager reads and writes the node's persistent records. Every record key is
// a keccak hash of a namespaced plaintext key; values are RLP. Mutating
// operations run inside an overlay: writes buffer in memory until Commit
// flushes them in one batch, and Discard drops them, which is what makes each
// public operation atomic.
type Manager struct {
	db      storage.Database
	overlay map[string][]byte
}

// NewManager creates a state manager over the provided database.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db}
}

// Begin opens a fresh overlay. Calling Begin with an overlay already open is
// a programming error.
func (m *Manager) Begin() {
	if m.overlay != nil {
		panic("state: overlay already open")
	}
	m.overlay = make(map[string][]byte)
}

// Commit flushes the open overlay to the database in a single batch.
func (m *Manager) Commit() error {
	if m.overlay == nil {
		return nil
	}
	pairs := make([]storage.KV, 0, len(m.overlay))
	for key, value := range m.overlay {
		pairs = append(pairs, storage.KV{Key: []byte(key), Value: value})
	}
	m.overlay = nil
	if len(pairs) == 0 {
		return nil
	}
	if err := m.db.WriteBatch(pairs); err != nil {
		return fmt.Errorf("state: commit overlay: %w", err)
	}
	return nil
}

// Discard drops the open overlay without writing anything.
func (m *Manager) Discard() {
	m.overlay = nil
}

func hashKey(prefix []byte, parts ...[]byte) []byte {
	buf := append([]byte(nil), prefix...)
	for _, part := range parts {
		buf = append(buf, part...)
	}
	return ethcrypto.Keccak256(buf)
}

// readRaw returns the stored bytes for a hashed key, overlay first. Absent
// keys come back nil with a nil error.
func (m *Manager) readRaw(key []byte) ([]byte, error) {
	if m.overlay != nil {
		if value, ok := m.overlay[string(key)]; ok {
			return value, nil
		}
	}
	value, err := m.db.Get(key)
	if err != nil {
		if err == storage.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}
	return value, nil
}

// writeRaw buffers the pair in the overlay, or writes through when no
// overlay is open (genesis wiring runs outside operations).
func (m *Manager) writeRaw(key, value []byte) error {
	if m.overlay != nil {
		m.overlay[string(key)] = append([]byte(nil), value...)
		return nil
	}
	return m.db.Put(key, value)
}

func (m *Manager) read(key []byte, out interface{}) (bool, error) {
	data, err := m.readRaw(key)
	if err != nil {
		return false, err
	}
	if len(data) == 0 {
		return false, nil
	}
	if err := rlp.DecodeBytes(data, out); err != nil {
		return false, fmt.Errorf("state: decode record: %w", err)
	}
	return true, nil
}

func (m *Manager) write(key []byte, value interface{}) error {
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return fmt.Errorf("state: encode record: %w", err)
	}
	return m.writeRaw(key, encoded)
}
