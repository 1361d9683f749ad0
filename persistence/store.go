package persistence

import (
	"bytes"
	"io"

	"github.com/cespare/xxhash/v2"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/outofforest/graphstore/blocks"
)

// Dev is the interface required from the device.
type Dev interface {
	io.ReadWriteSeeker
	Sync() error
	Size() int64
	Close() error
}

// ErrIOFailure is returned if operation on the device fails.
var ErrIOFailure = errors.New("io failure")

// Store represents the block file. Each block is a fixed-size record padded with filler.
type Store struct {
	dev       Dev
	blockSize int64
	filler    []byte
	log       *zap.Logger
}

// OpenStore opens the block file on the device.
func OpenStore(dev Dev, blockSize int64, log *zap.Logger) (*Store, error) {
	if blockSize <= 0 {
		return nil, errors.Errorf("invalid block size: %d", blockSize)
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &Store{
		dev:       dev,
		blockSize: blockSize,
		filler:    bytes.Repeat([]byte{blocks.Filler}, int(blockSize)),
		log:       log,
	}, nil
}

// BlockSize returns the size of the block.
func (s *Store) BlockSize() int64 {
	return s.blockSize
}

// ReadBlock reads the record from the addressed block and returns it with the padding trimmed.
// If the device is shorter than the record or the record is empty, false is returned.
func (s *Store) ReadBlock(address blocks.BlockAddress) ([]byte, bool, error) {
	offset, err := s.offset(address)
	if err != nil {
		return nil, false, err
	}
	if offset+s.blockSize > s.dev.Size() {
		return nil, false, nil
	}

	if _, err := s.dev.Seek(offset, io.SeekStart); err != nil {
		return nil, false, ioFailure(err, "seeking to block %d", address)
	}

	p := make([]byte, s.blockSize)
	n, err := io.ReadFull(s.dev, p)
	switch {
	case errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF):
		s.log.Debug("Short read", zap.Uint64("address", uint64(address)), zap.Int("bytes", n))
		return nil, false, nil
	case err != nil:
		return nil, false, ioFailure(err, "reading block %d", address)
	}

	payload := bytes.TrimRight(p, " \x00")
	if len(payload) == 0 {
		return nil, false, nil
	}

	if ce := s.log.Check(zap.DebugLevel, "Block read"); ce != nil {
		ce.Write(zap.Uint64("address", uint64(address)), zap.Int("size", len(payload)),
			zap.Uint64("digest", xxhash.Sum64(payload)))
	}
	return payload, true, nil
}

// WriteBlock writes the payload padded to the block size into the addressed block.
// If the device is shorter than the block offset, the gap is filled with filler first.
func (s *Store) WriteBlock(address blocks.BlockAddress, payload []byte) error {
	if int64(len(payload)) > s.blockSize {
		return errors.Wrapf(blocks.ErrRecordOverflow, "record of %d bytes does not fit into block %d of size %d",
			len(payload), address, s.blockSize)
	}
	offset, err := s.offset(address)
	if err != nil {
		return err
	}

	if size := s.dev.Size(); size < offset {
		if err := s.fill(size, offset); err != nil {
			return err
		}
	}

	p := make([]byte, s.blockSize)
	copy(p, payload)
	copy(p[len(payload):], s.filler)

	if _, err := s.dev.Seek(offset, io.SeekStart); err != nil {
		return ioFailure(err, "seeking to block %d", address)
	}
	if _, err := s.dev.Write(p); err != nil {
		return ioFailure(err, "writing block %d", address)
	}

	if ce := s.log.Check(zap.DebugLevel, "Block written"); ce != nil {
		ce.Write(zap.Uint64("address", uint64(address)), zap.Int("size", len(payload)),
			zap.Uint64("digest", xxhash.Sum64(payload)))
	}
	return nil
}

// Sync forces data to be written to the dev.
func (s *Store) Sync() error {
	if err := s.dev.Sync(); err != nil {
		return ioFailure(err, "syncing")
	}
	return nil
}

// Close syncs and closes the device.
func (s *Store) Close() error {
	if err := s.Sync(); err != nil {
		return err
	}
	if err := s.dev.Close(); err != nil {
		return ioFailure(err, "closing")
	}
	return nil
}

func (s *Store) offset(address blocks.BlockAddress) (int64, error) {
	if uint64(address) > uint64((1<<63-1)/s.blockSize-1) {
		return 0, errors.Errorf("block address %d out of range", address)
	}
	return int64(address) * s.blockSize, nil
}

func (s *Store) fill(from, to int64) error {
	if _, err := s.dev.Seek(from, io.SeekStart); err != nil {
		return ioFailure(err, "seeking to offset %d", from)
	}
	for from < to {
		n := s.blockSize
		if to-from < n {
			n = to - from
		}
		if _, err := s.dev.Write(s.filler[:n]); err != nil {
			return ioFailure(err, "filling gap at offset %d", from)
		}
		from += n
	}

	s.log.Debug("Gap filled", zap.Int64("offset", to))
	return nil
}

func ioFailure(err error, format string, args ...any) error {
	return errors.Wrapf(ioError{err: err}, format, args...)
}

// ioError keeps the device error as the cause while matching ErrIOFailure.
type ioError struct {
	err error
}

func (e ioError) Error() string {
	return ErrIOFailure.Error() + ": " + e.err.Error()
}

func (e ioError) Unwrap() error {
	return e.err
}

func (e ioError) Is(target error) bool {
	return target == ErrIOFailure
}
