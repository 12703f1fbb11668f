// Package store persists the order book's resting orders across a
// restart. It is optional: an engine constructed without one simply
// starts and stops with an empty book every time.
package store

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"order-matching-engine/internal/models"
)

// ErrCorruptSnapshot is returned by Load when the snapshot file exists
// but cannot be decoded as a snapshot envelope, or carries a version
// this store does not recognize.
var ErrCorruptSnapshot = errors.New("store: corrupt snapshot")

// currentSnapshotVersion is the only version this store knows how to
// read, per spec section 6's `{ "version": 1, "orders": [...] }` shape.
const currentSnapshotVersion = 1

// snapshotEnvelope is the on-disk shape of a snapshot file.
type snapshotEnvelope struct {
	Version int             `json:"version"`
	Orders  []*models.Order `json:"orders"`
}

// OrderStore persists a point-in-time list of resting orders to a
// single JSON file. Save is atomic: it writes to a temp file in the
// same directory and renames it over the target, so a crash mid-write
// never leaves a half-written snapshot for Load to trip over.
type OrderStore struct {
	path string
	log  zerolog.Logger
}

// NewOrderStore constructs an OrderStore backed by path.
func NewOrderStore(path string, log zerolog.Logger) *OrderStore {
	return &OrderStore{path: path, log: log}
}

// Save writes orders to the snapshot file, replacing any previous
// content. Only orders with remaining quantity are worth persisting;
// callers are expected to pass OrderBook.Snapshot's output directly,
// which already excludes filled and cancelled orders.
func (s *OrderStore) Save(orders []*models.Order) error {
	envelope := snapshotEnvelope{Version: currentSnapshotVersion, Orders: orders}
	data, err := json.MarshalIndent(envelope, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".snapshot-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return err
	}

	s.log.Info().Int("orders", len(orders)).Str("path", s.path).Msg("order book snapshot saved")
	return nil
}

// Load reads the snapshot file and returns its orders. A missing file
// is not an error: it means no prior snapshot exists, and Load returns
// an empty slice. A present-but-malformed file, or one whose version
// this store doesn't recognize, returns ErrCorruptSnapshot.
func (s *OrderStore) Load() ([]*models.Order, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var envelope snapshotEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, ErrCorruptSnapshot
	}
	if envelope.Version != currentSnapshotVersion {
		return nil, ErrCorruptSnapshot
	}
	return envelope.Orders, nil
}

// Clear removes the snapshot file, if any. Used by tests and by
// operators resetting book state between runs.
func (s *OrderStore) Clear() error {
	err := os.Remove(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
