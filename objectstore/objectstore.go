package objectstore

import (
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/outofforest/graphstore/blocks"
	"github.com/outofforest/graphstore/cache"
	"github.com/outofforest/graphstore/keystore"
)

var (
	// ErrUnsupportedValueType is returned if value of unsupported kind is written.
	ErrUnsupportedValueType = errors.New("unsupported value type")

	// ErrInvalidArrayLength is returned if array length is set to value which is not a non-negative integer.
	ErrInvalidArrayLength = errors.New("invalid array length")

	// ErrClosed is returned if store has been closed.
	ErrClosed = errors.New("store closed")
)

// UndefinedValue is the type of Undefined.
type UndefinedValue struct{}

// Undefined is returned for properties which do not exist. It may also be stored explicitly.
var Undefined = UndefinedValue{}

// Store materializes the graph stored in key store. Each resolved address is kept resident,
// so every path reaching the same address returns the same value.
type Store struct {
	mu       sync.Mutex
	keys     *keystore.Store
	cache    *cache.Cache
	snapshot blocks.BlockAddress
	log      *zap.Logger
	root     *Handle
	closed   bool
}

// New returns new object store reading the graph as of the snapshot.
// If the root record does not exist at all, it is created.
func New(keys *keystore.Store, snapshot blocks.BlockAddress, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}

	s := &Store{
		keys:     keys,
		cache:    cache.New(),
		snapshot: snapshot,
		log:      log,
	}

	e, exists, err := keys.Get(blocks.RootAddress, snapshot)
	if err != nil {
		return nil, err
	}
	switch {
	case exists && e.Type != blocks.ObjectType:
		return nil, errors.Wrapf(blocks.ErrDecodeFailure, "root record is of type %q", e.Type)
	case !exists:
		history, err := keys.History(blocks.RootAddress)
		if err != nil {
			return nil, err
		}
		e = blocks.NewObject()
		if len(history) == 0 {
			if _, err := keys.Set(blocks.RootAddress, e); err != nil {
				return nil, err
			}
			log.Debug("Root created")
		} else {
			// Root exists but is newer than the snapshot, empty root is presented.
			log.Debug("Root not visible at snapshot", zap.Uint64("firstVersion", uint64(history[0])))
		}
	}

	s.root = s.newHandle(blocks.RootAddress, e)
	return s, nil
}

// Root returns the root handle.
func (s *Store) Root() *Handle {
	return s.root
}

// Snapshot returns the snapshot the store reads at.
func (s *Store) Snapshot() blocks.BlockAddress {
	return s.snapshot
}

// History returns versions committed under the key, oldest first.
func (s *Store) History(key blocks.BlockAddress) ([]blocks.BlockAddress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, errors.WithStack(ErrClosed)
	}
	return s.keys.History(key)
}

// Resolve returns the value stored under the address.
func (s *Store) Resolve(address blocks.BlockAddress) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, errors.WithStack(ErrClosed)
	}
	return s.resolve(address)
}

// Resident returns the number of values kept in memory.
func (s *Store) Resident() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.cache.Len()
}

// Close marks the store as closed. Handles return ErrClosed afterwards.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.closed {
		hits, misses := s.cache.Stats()
		s.log.Debug("Object store closed", zap.Int("resident", s.cache.Len()),
			zap.Uint64("hits", hits), zap.Uint64("misses", misses))
	}
	s.closed = true
}

func (s *Store) resolve(address blocks.BlockAddress) (any, error) {
	if v, exists := s.cache.Get(address); exists {
		return v, nil
	}

	e, exists, err := s.keys.Get(address, s.snapshot)
	if err != nil {
		return nil, err
	}
	if !exists {
		return Undefined, nil
	}

	switch e.Type {
	case blocks.NumberType, blocks.BooleanType, blocks.StringType:
		s.cache.Set(address, e.Value)
		return e.Value, nil
	case blocks.UndefinedType:
		s.cache.Set(address, Undefined)
		return Undefined, nil
	case blocks.NullType:
		return nil, nil
	case blocks.ArrayType, blocks.ObjectType:
		h := s.newHandle(address, e)
		s.log.Debug("Handle materialized", zap.Uint64("address", uint64(address)), zap.String("type", string(e.Type)))
		return h, nil
	default:
		return nil, errors.Wrapf(blocks.ErrDecodeFailure, "cannot materialize type %q of key %d", e.Type, address)
	}
}

func (s *Store) newHandle(key blocks.BlockAddress, e blocks.Envelope) *Handle {
	h := &Handle{
		store:    s,
		key:      key,
		envelope: e,
	}
	s.cache.Set(key, h)
	return h
}

func (s *Store) checkOpen() error {
	if s.closed {
		return errors.WithStack(ErrClosed)
	}
	return nil
}
