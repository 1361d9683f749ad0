package keystore

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/outofforest/graphstore/blocks"
	"github.com/outofforest/graphstore/persistence"
)

// Allocator issues new addresses.
type Allocator interface {
	Next() (blocks.BlockAddress, error)
}

// Store represents the key store keeping the version chain of each key.
// The block at the key address stores the chain, each chain entry is the address of one committed envelope.
type Store struct {
	blocks    *persistence.Store
	allocator Allocator
	log       *zap.Logger
}

// New returns new key store.
func New(blockStore *persistence.Store, allocator Allocator, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{
		blocks:    blockStore,
		allocator: allocator,
		log:       log,
	}
}

// Allocate returns new address which may be used as a key.
func (s *Store) Allocate() (blocks.BlockAddress, error) {
	return s.allocator.Next()
}

// Set commits new version of the envelope under the key. Address of the version is returned.
func (s *Store) Set(key blocks.BlockAddress, e blocks.Envelope) (blocks.BlockAddress, error) {
	payload, err := blocks.EncodeEnvelope(e)
	if err != nil {
		return 0, err
	}
	if int64(len(payload)) > s.blocks.BlockSize() {
		return 0, errors.Wrapf(blocks.ErrRecordOverflow, "envelope of key %d takes %d bytes, block size is %d",
			key, len(payload), s.blocks.BlockSize())
	}

	version, err := s.allocator.Next()
	if err != nil {
		return 0, err
	}
	if err := s.blocks.WriteBlock(version, payload); err != nil {
		return 0, err
	}

	chain, err := s.loadChain(key)
	if err != nil {
		return 0, err
	}

	if err := s.storeChain(key, chain, version); err != nil {
		return 0, err
	}
	return version, nil
}

// Get returns the envelope of the key visible at the snapshot.
// The newest version not greater than the snapshot is returned.
func (s *Store) Get(key, snapshot blocks.BlockAddress) (blocks.Envelope, bool, error) {
	version, exists, err := s.Resolve(key, snapshot)
	if !exists || err != nil {
		return blocks.Envelope{}, false, err
	}

	payload, exists, err := s.blocks.ReadBlock(version)
	if err != nil {
		return blocks.Envelope{}, false, err
	}
	if !exists {
		return blocks.Envelope{}, false, errors.Wrapf(blocks.ErrDecodeFailure, "version %d of key %d is missing", version, key)
	}

	e, err := blocks.DecodeEnvelope(payload)
	if err != nil {
		return blocks.Envelope{}, false, errors.WithMessagef(err, "decoding version %d of key %d", version, key)
	}
	return e, true, nil
}

// Resolve returns the address of the newest version of the key not greater than the snapshot.
func (s *Store) Resolve(key, snapshot blocks.BlockAddress) (blocks.BlockAddress, bool, error) {
	chain, err := s.loadChain(key)
	if err != nil {
		return 0, false, err
	}

	var segments int
	for {
		if version, exists := chain.Find(snapshot); exists {
			return version, true, nil
		}
		if chain.Prev == 0 {
			return 0, false, nil
		}

		segments++
		prev := chain.Prev
		chain, err = s.loadOlderSegment(key, chain)
		if err != nil {
			return 0, false, err
		}
		s.log.Debug("Chain segment followed", zap.Uint64("key", uint64(key)), zap.Uint64("segment", uint64(prev)),
			zap.Int("depth", segments))
	}
}

// History returns addresses of all versions committed under the key, oldest first.
func (s *Store) History(key blocks.BlockAddress) ([]blocks.BlockAddress, error) {
	chain, err := s.loadChain(key)
	if err != nil {
		return nil, err
	}

	segments := [][]blocks.BlockAddress{chain.Entries}
	for chain.Prev != 0 {
		chain, err = s.loadOlderSegment(key, chain)
		if err != nil {
			return nil, err
		}
		segments = append(segments, chain.Entries)
	}

	var history []blocks.BlockAddress
	for i := len(segments) - 1; i >= 0; i-- {
		history = append(history, segments[i]...)
	}
	return history, nil
}

// loadChain loads the chain of the key. Chain which does not exist or cannot be decoded is treated as empty.
func (s *Store) loadChain(key blocks.BlockAddress) (blocks.Chain, error) {
	payload, exists, err := s.blocks.ReadBlock(key)
	if !exists || err != nil {
		return blocks.Chain{}, err
	}

	chain, err := blocks.DecodeChain(payload)
	if err != nil {
		s.log.Debug("Undecodable chain treated as empty", zap.Uint64("key", uint64(key)), zap.Error(err))
		return blocks.Chain{}, nil
	}
	return chain, nil
}

// loadOlderSegment loads the segment spilled from the chain. Contrary to the head of the chain, segment must exist
// and all its entries must be lower than the entries of the newer segment.
func (s *Store) loadOlderSegment(key blocks.BlockAddress, newer blocks.Chain) (blocks.Chain, error) {
	payload, exists, err := s.blocks.ReadBlock(newer.Prev)
	if err != nil {
		return blocks.Chain{}, err
	}
	if !exists {
		return blocks.Chain{}, errors.Wrapf(blocks.ErrDecodeFailure, "segment %d of key %d is missing", newer.Prev, key)
	}
	chain, err := blocks.DecodeChain(payload)
	if err != nil {
		return blocks.Chain{}, errors.WithMessagef(err, "decoding segment %d of key %d", newer.Prev, key)
	}

	last, exists := chain.Last()
	if !exists || len(newer.Entries) == 0 || last >= newer.Entries[0] {
		return blocks.Chain{}, errors.Wrapf(blocks.ErrDecodeFailure, "invalid segment %d in chain of key %d",
			newer.Prev, key)
	}
	return chain, nil
}

// storeChain appends version to the chain and stores it under the key.
// If the chain does not fit into the block, the current chain is moved to new block and the key
// gets the chain starting with the link to it.
func (s *Store) storeChain(key blocks.BlockAddress, chain blocks.Chain, version blocks.BlockAddress) error {
	appended := blocks.Chain{
		Prev:    chain.Prev,
		Entries: append(append(make([]blocks.BlockAddress, 0, len(chain.Entries)+1), chain.Entries...), version),
	}
	payload, err := blocks.EncodeChain(appended)
	if err != nil {
		return err
	}
	if int64(len(payload)) <= s.blocks.BlockSize() {
		return s.blocks.WriteBlock(key, payload)
	}

	if len(chain.Entries) == 0 {
		return errors.Wrapf(blocks.ErrRecordOverflow, "chain of key %d does not fit into block of size %d",
			key, s.blocks.BlockSize())
	}

	segment, err := s.allocator.Next()
	if err != nil {
		return err
	}
	segmentPayload, err := blocks.EncodeChain(chain)
	if err != nil {
		return err
	}
	if err := s.blocks.WriteBlock(segment, segmentPayload); err != nil {
		return err
	}

	payload, err = blocks.EncodeChain(blocks.Chain{
		Prev:    segment,
		Entries: []blocks.BlockAddress{version},
	})
	if err != nil {
		return err
	}

	s.log.Debug("Chain spilled", zap.Uint64("key", uint64(key)), zap.Uint64("segment", uint64(segment)),
		zap.Int("entries", len(chain.Entries)))
	return s.blocks.WriteBlock(key, payload)
}
