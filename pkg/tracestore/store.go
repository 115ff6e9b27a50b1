// Package tracestore provides BadgerDB-backed storage for per-run syscall
// traces.
package tracestore

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/fortiblox/zilkworm/internal/codec"
	"github.com/fortiblox/zilkworm/pkg/host"
)

var (
	ErrClosed      = errors.New("trace store closed")
	ErrRunNotFound = errors.New("run not found")
	ErrInvalidRun  = errors.New("invalid run id")
	ErrFinished    = errors.New("run already finished")
)

// Key prefixes.
var (
	// prefixEvent + len(runID) + runID + seq (8 bytes BE)
	prefixEvent = []byte{0x01}

	// prefixRun + len(runID) + runID
	prefixRun = []byte{0x02}
)

// Config contains configuration for BadgerDB.
type Config struct {
	// Path is the directory path for the database.
	Path string

	// InMemory runs the database in memory (for testing).
	InMemory bool

	// SyncWrites ensures writes are synced to disk.
	SyncWrites bool

	// Logger is an optional logger. Set to nil to disable logging.
	Logger badger.Logger
}

// DefaultConfig returns default configuration.
func DefaultConfig(path string) Config {
	return Config{Path: path}
}

// RunMeta describes a recorded run.
type RunMeta struct {
	ID       string    `cbor:"id"`
	Program  string    `cbor:"program"`
	Started  time.Time `cbor:"started"`
	Finished time.Time `cbor:"finished"`
	Events   uint64    `cbor:"events"`
	ExitCode uint32    `cbor:"exit_code"`
	Cycles   uint64    `cbor:"cycles"`
	Err      string    `cbor:"err,omitempty"`
}

// Store holds syscall traces.
type Store struct {
	db     *badger.DB
	closed atomic.Bool
}

// Open opens or creates a store.
func Open(cfg Config) (*Store, error) {
	opts := badger.DefaultOptions(cfg.Path)
	if cfg.InMemory {
		opts = opts.WithInMemory(true)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithLogger(cfg.Logger)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return &Store{db: db}, nil
}

func runPart(prefix []byte, runID string) []byte {
	key := make([]byte, 0, len(prefix)+1+len(runID)+8)
	key = append(key, prefix...)
	key = append(key, byte(len(runID)))
	return append(key, runID...)
}

func eventKey(runID string, seq uint64) []byte {
	return binary.BigEndian.AppendUint64(runPart(prefixEvent, runID), seq)
}

func checkRunID(runID string) error {
	if runID == "" || len(runID) > 255 {
		return fmt.Errorf("%w: %q", ErrInvalidRun, runID)
	}
	return nil
}

// Recorder returns a host.Recorder that buffers the events of run runID.
// Finish writes them together with the run metadata.
func (s *Store) Recorder(runID, program string) (*RunRecorder, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	if err := checkRunID(runID); err != nil {
		return nil, err
	}
	return &RunRecorder{
		store: s,
		batch: s.db.NewWriteBatch(),
		meta:  RunMeta{ID: runID, Program: program, Started: time.Now().UTC()},
	}, nil
}

// Events returns the events of run runID in sequence order.
func (s *Store) Events(runID string) ([]host.Event, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	if err := checkRunID(runID); err != nil {
		return nil, err
	}
	if _, err := s.Run(runID); err != nil {
		return nil, err
	}

	var out []host.Event
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = runPart(prefixEvent, runID)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var ev host.Event
				if err := codec.Unmarshal(val, &ev); err != nil {
					return err
				}
				out = append(out, ev)
				return nil
			})
			if err != nil {
				return fmt.Errorf("decode event: %w", err)
			}
		}
		return nil
	})
	return out, err
}

// Run returns the metadata of run runID.
func (s *Store) Run(runID string) (*RunMeta, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	var meta RunMeta
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(runPart(prefixRun, runID))
		if err == badger.ErrKeyNotFound {
			return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return codec.Unmarshal(val, &meta)
		})
	})
	if err != nil {
		return nil, err
	}
	return &meta, nil
}

// Runs returns every recorded run, most recently started first.
func (s *Store) Runs() ([]RunMeta, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	var out []RunMeta
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefixRun
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var m RunMeta
				if err := codec.Unmarshal(val, &m); err != nil {
					return err
				}
				out = append(out, m)
				return nil
			})
			if err != nil {
				return fmt.Errorf("decode run: %w", err)
			}
		}
		return nil
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].Started.After(out[j].Started) })
	return out, err
}

// Close closes the database.
func (s *Store) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.db.Close()
}

// RunRecorder records the events of one run.
type RunRecorder struct {
	store *Store
	batch *badger.WriteBatch

	mu       sync.Mutex
	meta     RunMeta
	finished bool
}

// Record implements host.Recorder.
func (r *RunRecorder) Record(ev host.Event) error {
	data, err := codec.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.finished {
		return ErrFinished
	}
	if err := r.batch.Set(eventKey(r.meta.ID, ev.Seq), data); err != nil {
		return err
	}
	r.meta.Events++
	return nil
}

// Finish writes the buffered events and the run metadata. rep may be nil
// when the run faulted; runErr is stored as the run's error.
func (r *RunRecorder) Finish(rep *host.Report, runErr error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.finished {
		return ErrFinished
	}
	r.finished = true

	r.meta.Finished = time.Now().UTC()
	if rep != nil {
		r.meta.ExitCode = rep.ExitCode
		r.meta.Cycles = rep.Cycles
	}
	if runErr != nil {
		r.meta.Err = runErr.Error()
	}
	data, err := codec.Marshal(r.meta)
	if err != nil {
		r.batch.Cancel()
		return fmt.Errorf("encode run: %w", err)
	}
	if err := r.batch.Set(runPart(prefixRun, r.meta.ID), data); err != nil {
		r.batch.Cancel()
		return err
	}
	return r.batch.Flush()
}

// Meta returns the run metadata recorded so far.
func (r *RunRecorder) Meta() RunMeta {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.meta
}

var _ host.Recorder = (*RunRecorder)(nil)
