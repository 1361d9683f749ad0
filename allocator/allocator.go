package allocator

import (
	"bytes"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/outofforest/graphstore/blocks"
)

// FileName is the name of the file storing the counter.
const FileName = "version"

// Allocator issues monotonic addresses. The same counter is used to allocate blocks and to mark versions.
type Allocator struct {
	path string
	last blocks.BlockAddress
	log  *zap.Logger
}

// Open opens the allocator persisted in the directory. If the counter file does not exist, counting starts from 0.
func Open(dir string, log *zap.Logger) (*Allocator, error) {
	if log == nil {
		log = zap.NewNop()
	}

	path := filepath.Join(dir, FileName)
	last, err := load(path)
	if err != nil {
		return nil, err
	}

	return &Allocator{
		path: path,
		last: last,
		log:  log,
	}, nil
}

// Next increments the counter, persists it and returns the new value.
func (a *Allocator) Next() (blocks.BlockAddress, error) {
	// Counter is reloaded so the value persisted on disk is always the source of truth.
	last, err := load(a.path)
	if err != nil {
		return 0, err
	}
	if last < a.last {
		return 0, errors.Errorf("counter in %s went backwards from %d to %d", a.path, a.last, last)
	}

	next := last + 1
	if err := store(a.path, next); err != nil {
		return 0, err
	}
	a.last = next

	a.log.Debug("Address allocated", zap.Uint64("address", uint64(next)))
	return next, nil
}

// Current returns the last allocated value.
func (a *Allocator) Current() blocks.BlockAddress {
	return a.last
}

func load(path string) (blocks.BlockAddress, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, errors.WithStack(err)
	}

	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return 0, nil
	}
	v, err := strconv.ParseUint(string(data), 10, 64)
	if err != nil {
		return 0, errors.Wrapf(blocks.ErrDecodeFailure, "invalid counter in %s: %q", path, data)
	}
	return blocks.BlockAddress(v), nil
}

func store(path string, v blocks.BlockAddress) error {
	tmpPath := path + ".tmp"

	f, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return errors.WithStack(err)
	}
	if _, err := f.WriteString(strconv.FormatUint(uint64(v), 10)); err != nil {
		_ = f.Close()
		return errors.WithStack(err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return errors.WithStack(err)
	}
	if err := f.Close(); err != nil {
		return errors.WithStack(err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return errors.WithStack(err)
	}
	return nil
}
