package result

import (
	"fmt"
	"log/slog"
	"os"

	"wasmut.dev/pkg/wasmut/pkg"
)

// Spill is an append-only store of Entry values backed by pkg.FileSpill
// (a gob-encoded, temp-file-backed generic spill) rather than an
// in-memory slice, so a run over a large candidate set doesn't have to
// hold every Entry in memory at once before reporting.
type Spill struct {
	inner pkg.FileSpill[Entry]
}

// NewSpill creates a Spill backed by a fresh temp file under dir (the
// system temp dir if dir is empty).
func NewSpill(dir string) (*Spill, error) {
	if dir == "" {
		dir = os.TempDir()
	}
	inner, err := pkg.NewFileSpill[Entry](dir)
	if err != nil {
		return nil, fmt.Errorf("result: create spill: %w", err)
	}
	slog.Debug("opened result spill", "path", inner.Path())
	return &Spill{inner: inner}, nil
}

func (s *Spill) Path() string { return s.inner.Path() }

func (s *Spill) Len() uint64 { return s.inner.Len() }

// Append records one Entry. Safe for concurrent use by multiple worker
// goroutines.
func (s *Spill) Append(e Entry) error { return s.inner.Append(e) }

// Range replays every recorded entry in append order.
func (s *Spill) Range(fn func(index uint64, e Entry) error) error { return s.inner.Range(fn) }

// Close releases the backing file. The spill file itself is left on disk
// under the caller's temp dir; callers that want it removed call os.Remove
// on Path() after Close.
func (s *Spill) Close() error { return s.inner.Close() }
