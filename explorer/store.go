package explorer

import (
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"
	"lukechampine.com/blake3"

	"arcadia/core/events"
	"arcadia/core/types"
	"arcadia/observability"
)

var (
	bucketReceipts  = []byte("receipts")
	bucketByPool    = []byte("idx_pool")
	bucketByAccount = []byte("idx_account")
)

// Receipt is the indexed record of one node event: a uuid identity, a
// monotonically increasing sequence usable as a stream cursor, and a BLAKE3
// digest of the canonical payload for tamper checks downstream.
type Receipt struct {
	ID         string            `json:"id"`
	Sequence   uint64            `json:"sequence"`
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
	Digest     string            `json:"digest"`
	ObservedAt int64             `json:"observedAt"`
}

// payloadEvent is satisfied by every typed node event that carries a
// broadcastable attribute payload.
type payloadEvent interface {
	Event() *types.Event
}

// Store is a bbolt-backed receipt index. It subscribes to the node as an
// event emitter, persists every event as a receipt, and serves history
// queries and live stream subscriptions.
type Store struct {
	db  *bbolt.DB
	now func() time.Time

	mu      sync.Mutex
	subs    map[uint64]chan Receipt
	nextSub uint64
}

// Open opens (or creates) the receipt index at path.
func Open(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("explorer: open %s: %w", path, err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		for _, bucket := range [][]byte{bucketReceipts, bucketByPool, bucketByAccount} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("explorer: init buckets: %w", err)
	}
	return &Store{
		db:   db,
		now:  time.Now,
		subs: make(map[uint64]chan Receipt),
	}, nil
}

// Close closes the underlying database and drops all live subscribers.
func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	for id, ch := range s.subs {
		close(ch)
		delete(s.subs, id)
	}
	s.mu.Unlock()
	return s.db.Close()
}

// SetNowFunc overrides the receipt clock for tests.
func (s *Store) SetNowFunc(now func() time.Time) {
	if s == nil || now == nil {
		return
	}
	s.now = now
}

// Emit satisfies events.Emitter. Indexing failures are logged, never
// propagated: the emitting operation has already committed.
func (s *Store) Emit(evt events.Event) {
	if s == nil || evt == nil {
		return
	}
	payload, ok := evt.(payloadEvent)
	if !ok {
		return
	}
	receipt, err := s.Index(payload.Event())
	if err != nil {
		slog.Error("explorer: index event", "type", evt.EventType(), "error", err)
		return
	}
	observability.Events().RecordEvent(evt.EventType())
	s.publish(receipt)
}

// Index persists one event payload and returns the stored receipt.
func (s *Store) Index(evt *types.Event) (Receipt, error) {
	if s == nil || evt == nil {
		return Receipt{}, fmt.Errorf("explorer: event must not be nil")
	}
	attrs := make(map[string]string, len(evt.Attributes))
	for key, value := range evt.Attributes {
		attrs[key] = value
	}
	receipt := Receipt{
		ID:         uuid.NewString(),
		Type:       evt.Type,
		Attributes: attrs,
		ObservedAt: s.now().Unix(),
	}
	digest, err := payloadDigest(evt.Type, attrs)
	if err != nil {
		return Receipt{}, err
	}
	receipt.Digest = digest

	err = s.db.Update(func(tx *bbolt.Tx) error {
		receipts := tx.Bucket(bucketReceipts)
		seq, err := receipts.NextSequence()
		if err != nil {
			return err
		}
		receipt.Sequence = seq

		encoded, err := json.Marshal(receipt)
		if err != nil {
			return err
		}
		key := sequenceKey(seq)
		if err := receipts.Put(key, encoded); err != nil {
			return err
		}
		if pool := attrs["pool"]; pool != "" {
			if err := tx.Bucket(bucketByPool).Put(indexKey(pool, seq), key); err != nil {
				return err
			}
		}
		if account := attrs["account"]; account != "" {
			if err := tx.Bucket(bucketByAccount).Put(indexKey(account, seq), key); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return Receipt{}, fmt.Errorf("explorer: store receipt: %w", err)
	}
	return receipt, nil
}

// LastSequence returns the highest assigned receipt sequence.
func (s *Store) LastSequence() (uint64, error) {
	var last uint64
	err := s.db.View(func(tx *bbolt.Tx) error {
		last = tx.Bucket(bucketReceipts).Sequence()
		return nil
	})
	return last, err
}

// After returns up to limit receipts with sequence strictly greater than
// cursor, oldest first. A zero cursor replays from the beginning.
func (s *Store) After(cursor uint64, limit int) ([]Receipt, error) {
	limit = clampLimit(limit)
	out := make([]Receipt, 0, limit)
	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(bucketReceipts).Cursor()
		for key, value := c.Seek(sequenceKey(cursor + 1)); key != nil && len(out) < limit; key, value = c.Next() {
			receipt, err := decodeReceipt(value)
			if err != nil {
				return err
			}
			out = append(out, receipt)
		}
		return nil
	})
	return out, err
}

// Recent returns the newest receipts, newest first.
func (s *Store) Recent(limit int) ([]Receipt, error) {
	limit = clampLimit(limit)
	out := make([]Receipt, 0, limit)
	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(bucketReceipts).Cursor()
		for key, value := c.Last(); key != nil && len(out) < limit; key, value = c.Prev() {
			receipt, err := decodeReceipt(value)
			if err != nil {
				return err
			}
			out = append(out, receipt)
		}
		return nil
	})
	return out, err
}

// ByPool returns the newest receipts indexed for the pool address, newest
// first.
func (s *Store) ByPool(pool string, limit int) ([]Receipt, error) {
	return s.byIndex(bucketByPool, pool, limit)
}

// ByAccount returns the newest receipts indexed for the account address,
// newest first.
func (s *Store) ByAccount(account string, limit int) ([]Receipt, error) {
	return s.byIndex(bucketByAccount, account, limit)
}

func (s *Store) byIndex(bucket []byte, key string, limit int) ([]Receipt, error) {
	limit = clampLimit(limit)
	out := make([]Receipt, 0, limit)
	if key == "" {
		return out, nil
	}
	prefix := append([]byte(key), 0x00)
	err := s.db.View(func(tx *bbolt.Tx) error {
		receipts := tx.Bucket(bucketReceipts)
		c := tx.Bucket(bucket).Cursor()
		// Walk the prefix range backwards so newest entries come first.
		var matches [][]byte
		for k, v := c.Seek(prefix); k != nil && hasPrefix(k, prefix); k, v = c.Next() {
			matches = append(matches, v)
		}
		for i := len(matches) - 1; i >= 0 && len(out) < limit; i-- {
			value := receipts.Get(matches[i])
			if value == nil {
				continue
			}
			receipt, err := decodeReceipt(value)
			if err != nil {
				return err
			}
			out = append(out, receipt)
		}
		return nil
	})
	return out, err
}

// Subscribe registers a live receipt channel. The returned cancel function
// must be called when the consumer is done; slow consumers drop receipts
// rather than block indexing.
func (s *Store) Subscribe(buffer int) (<-chan Receipt, func()) {
	if buffer <= 0 {
		buffer = 64
	}
	ch := make(chan Receipt, buffer)
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	s.mu.Unlock()
	cancel := func() {
		s.mu.Lock()
		if existing, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(existing)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *Store) publish(receipt Receipt) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- receipt:
		default:
		}
	}
}

// payloadDigest hashes the canonical payload: the event type and the
// attribute map in Go's deterministic (sorted-key) JSON encoding.
func payloadDigest(eventType string, attrs map[string]string) (string, error) {
	encoded, err := json.Marshal(attrs)
	if err != nil {
		return "", err
	}
	hasher := blake3.New(32, nil)
	hasher.Write([]byte(eventType))
	hasher.Write([]byte{0x00})
	hasher.Write(encoded)
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

func sequenceKey(seq uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, seq)
	return key
}

func indexKey(value string, seq uint64) []byte {
	key := append([]byte(value), 0x00)
	return append(key, sequenceKey(seq)...)
}

func hasPrefix(key, prefix []byte) bool {
	if len(key) < len(prefix) {
		return false
	}
	for i := range prefix {
		if key[i] != prefix[i] {
			return false
		}
	}
	return true
}

func decodeReceipt(value []byte) (Receipt, error) {
	var receipt Receipt
	if err := json.Unmarshal(value, &receipt); err != nil {
		return Receipt{}, fmt.Errorf("explorer: decode receipt: %w", err)
	}
	return receipt, nil
}

func clampLimit(limit int) int {
	const maxLimit = 500
	if limit <= 0 {
		return 50
	}
	if limit > maxLimit {
		return maxLimit
	}
	return limit
}
