package graphstore

import (
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/outofforest/graphstore/allocator"
	"github.com/outofforest/graphstore/blocks"
	"github.com/outofforest/graphstore/keystore"
	"github.com/outofforest/graphstore/objectstore"
	"github.com/outofforest/graphstore/persistence"
	"github.com/outofforest/graphstore/pkg/filedev"
)

// DataFileName is the name of the block file inside the store directory.
const DataFileName = "data"

// ErrClosed is returned if store has been closed.
var ErrClosed = objectstore.ErrClosed

// Store is the object graph persisted in the directory.
type Store struct {
	id      uint64
	log     *zap.Logger
	blocks  *persistence.Store
	objects *objectstore.Store

	mu     sync.Mutex
	closed bool
}

// Open opens the store in the directory. Directory is created if it does not exist.
// Each call returns a separate store. Stores opened on the same directory at the same time overwrite each
// other's root, use Registry.Open to share one store per directory.
func Open(dir string, opts ...Option) (*Store, error) {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}

	dir, err := filepath.Abs(dir)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, errors.Wrapf(persistence.ErrIOFailure, "creating directory %s: %s", dir, err)
	}

	id := storeID(dir)
	log := cfg.log.With(zap.String("store", strconv.FormatUint(id, 16)))

	alloc, err := allocator.Open(dir, log)
	if err != nil {
		return nil, err
	}

	snapshot := cfg.version
	if snapshot == 0 {
		// Allocating one address makes everything committed so far visible.
		snapshot, err = alloc.Next()
		if err != nil {
			return nil, err
		}
	}
	log = log.With(zap.Uint64("snapshot", uint64(snapshot)))

	dev, err := filedev.Open(filepath.Join(dir, DataFileName))
	if err != nil {
		return nil, errors.Wrapf(persistence.ErrIOFailure, "opening data file: %s", err)
	}
	blockStore, err := persistence.OpenStore(dev, cfg.blockSize, log)
	if err != nil {
		_ = dev.Close()
		return nil, err
	}

	objects, err := objectstore.New(keystore.New(blockStore, alloc, log), snapshot, log)
	if err != nil {
		_ = blockStore.Close()
		return nil, err
	}

	log.Info("Store opened", zap.String("dir", dir))

	return &Store{
		id:      id,
		log:     log,
		blocks:  blockStore,
		objects: objects,
	}, nil
}

// Root returns the root object.
func (s *Store) Root() *objectstore.Handle {
	return s.objects.Root()
}

// ID returns the identifier of the store derived from its directory.
func (s *Store) ID() uint64 {
	return s.id
}

// Snapshot returns the version the store reads at.
func (s *Store) Snapshot() blocks.BlockAddress {
	return s.objects.Snapshot()
}

// History returns versions committed under the key, oldest first.
func (s *Store) History(key blocks.BlockAddress) ([]blocks.BlockAddress, error) {
	return s.objects.History(key)
}

// Resolve returns the value stored under the address.
func (s *Store) Resolve(address blocks.BlockAddress) (any, error) {
	return s.objects.Resolve(address)
}

// Owns returns true if handle belongs to this store.
func (s *Store) Owns(h *objectstore.Handle) bool {
	return h != nil && h.Store() == s.objects
}

// Close closes the store. Closing it again does nothing.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	s.objects.Close()
	if err := s.blocks.Close(); err != nil {
		return err
	}
	s.log.Info("Store closed")
	return nil
}

func (s *Store) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.closed
}

func storeID(dir string) uint64 {
	return xxhash.Sum64String(dir)
}
