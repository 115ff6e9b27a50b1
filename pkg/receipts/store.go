// Package receipts provides persistent storage for proof receipts, indexed
// by seal and by claim.
package receipts

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/fortiblox/zilkworm/internal/codec"
	"github.com/fortiblox/zilkworm/internal/types"
	"github.com/fortiblox/zilkworm/pkg/abi"
	"github.com/fortiblox/zilkworm/pkg/host"
	"github.com/fortiblox/zilkworm/pkg/prover"
)

var (
	// ErrReceiptNotFound is returned when a receipt doesn't exist.
	ErrReceiptNotFound = errors.New("receipt not found")

	// ErrInvalidReceipt is returned for a receipt whose seal or digest
	// does not match its contents.
	ErrInvalidReceipt = errors.New("invalid receipt")

	// ErrClosed is returned when operating on a closed store.
	ErrClosed = errors.New("receipt store closed")
)

// Bucket names.
var (
	// bucketReceipts stores receipts keyed by seal.
	bucketReceipts = []byte("receipts")

	// bucketClaims maps vk digest ‖ public values digest to seal.
	bucketClaims = []byte("claims")

	bucketMetadata = []byte("metadata")
)

var keyReceiptCount = []byte("receipt_count")

// Config holds receipt store options.
type Config struct {
	// Path is the database file.
	Path string

	// NoSync disables fsync after each write.
	NoSync bool

	// ReadOnly opens the database in read-only mode.
	ReadOnly bool
}

// DefaultConfig returns the default configuration for a database at path.
func DefaultConfig(path string) Config {
	return Config{Path: path}
}

// Store is a bbolt-backed receipt store. It implements host.ProofVerifier
// so stored receipts can satisfy VERIFY_PROOF.
type Store struct {
	db     *bolt.DB
	config Config

	mu     sync.RWMutex
	count  uint64
	closed bool
}

// Open creates or opens a store.
func Open(config Config) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(config.Path), 0755); err != nil {
		return nil, fmt.Errorf("create directory: %w", err)
	}

	db, err := bolt.Open(config.Path, 0600, &bolt.Options{
		Timeout:  5 * time.Second,
		NoSync:   config.NoSync,
		ReadOnly: config.ReadOnly,
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	s := &Store{db: db, config: config}
	if !config.ReadOnly {
		if err := s.initBuckets(); err != nil {
			db.Close()
			return nil, fmt.Errorf("init buckets: %w", err)
		}
	}
	if err := s.loadCount(); err != nil {
		db.Close()
		return nil, fmt.Errorf("load metadata: %w", err)
	}
	return s, nil
}

func (s *Store) initBuckets() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketReceipts, bucketClaims, bucketMetadata} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("create bucket %s: %w", name, err)
			}
		}
		return nil
	})
}

func (s *Store) loadCount() error {
	return s.db.View(func(tx *bolt.Tx) error {
		meta := tx.Bucket(bucketMetadata)
		if meta == nil {
			return nil
		}
		if v := meta.Get(keyReceiptCount); len(v) == 8 {
			s.count = binary.BigEndian.Uint64(v)
		}
		return nil
	})
}

func claimKey(vk abi.VKDigest, pv abi.PublicValuesDigest) []byte {
	key := make([]byte, 0, 2*types.DigestSize)
	key = append(key, types.DigestFromWords(vk).Bytes()...)
	return append(key, pv[:]...)
}

// Put stores r. Storing the same receipt twice is a no-op.
func (s *Store) Put(r *prover.Receipt) error {
	if sha256.Sum256(r.PublicValues) != r.PublicValuesDigest {
		return fmt.Errorf("%w: public values digest", ErrInvalidReceipt)
	}
	if prover.Seal(r.VK, r.PublicValuesDigest) != r.Seal {
		return fmt.Errorf("%w: seal", ErrInvalidReceipt)
	}
	data, err := codec.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode receipt: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	added := false
	err = s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketReceipts)
		if b.Get(r.Seal[:]) != nil {
			return nil
		}
		if err := b.Put(r.Seal[:], data); err != nil {
			return err
		}
		if err := tx.Bucket(bucketClaims).Put(claimKey(r.VK, r.PublicValuesDigest), r.Seal[:]); err != nil {
			return err
		}
		var cnt [8]byte
		binary.BigEndian.PutUint64(cnt[:], s.count+1)
		added = true
		return tx.Bucket(bucketMetadata).Put(keyReceiptCount, cnt[:])
	})
	if err == nil && added {
		s.count++
	}
	return err
}

// Get returns the receipt with the given seal.
func (s *Store) Get(seal types.Digest) (*prover.Receipt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	var r *prover.Receipt
	err := s.db.View(func(tx *bolt.Tx) error {
		var err error
		r, err = getReceipt(tx, seal[:])
		return err
	})
	return r, err
}

// Find returns the receipt proving (vk, pv).
func (s *Store) Find(vk abi.VKDigest, pv abi.PublicValuesDigest) (*prover.Receipt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	var r *prover.Receipt
	err := s.db.View(func(tx *bolt.Tx) error {
		seal := tx.Bucket(bucketClaims).Get(claimKey(vk, pv))
		if seal == nil {
			return ErrReceiptNotFound
		}
		var err error
		r, err = getReceipt(tx, seal)
		return err
	})
	return r, err
}

func getReceipt(tx *bolt.Tx, seal []byte) (*prover.Receipt, error) {
	data := tx.Bucket(bucketReceipts).Get(seal)
	if data == nil {
		return nil, ErrReceiptNotFound
	}
	var r prover.Receipt
	if err := codec.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode receipt: %w", err)
	}
	return &r, nil
}

// List returns the stored receipts of program in seal order, or every
// receipt when program is empty.
func (s *Store) List(program string) ([]*prover.Receipt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	var out []*prover.Receipt
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketReceipts).ForEach(func(k, v []byte) error {
			var r prover.Receipt
			if err := codec.Unmarshal(v, &r); err != nil {
				return fmt.Errorf("decode receipt %x: %w", k, err)
			}
			if program == "" || r.Program == program {
				out = append(out, &r)
			}
			return nil
		})
	})
	return out, err
}

// Count returns the number of stored receipts.
func (s *Store) Count() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.count
}

// VerifyClaim implements host.ProofVerifier.
func (s *Store) VerifyClaim(vk abi.VKDigest, pv abi.PublicValuesDigest) error {
	if _, err := s.Find(vk, pv); err != nil {
		if errors.Is(err, ErrReceiptNotFound) {
			return fmt.Errorf("%w: %s", host.ErrProofNotFound, host.Claim{VK: vk, PublicValues: pv})
		}
		return err
	}
	return nil
}

// Close closes the store.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

var _ host.ProofVerifier = (*Store)(nil)
