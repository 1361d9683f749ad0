package graphstore

import (
	"go.uber.org/zap"

	"github.com/outofforest/graphstore/blocks"
)

type config struct {
	version   blocks.BlockAddress
	log       *zap.Logger
	blockSize int64
}

func defaultConfig() config {
	return config{
		log:       zap.NewNop(),
		blockSize: blocks.BlockSize,
	}
}

// Option configures the store.
type Option func(c *config)

// WithVersion sets the snapshot the store reads at. By default everything committed before opening is visible.
func WithVersion(version blocks.BlockAddress) Option {
	return func(c *config) {
		c.version = version
	}
}

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) Option {
	return func(c *config) {
		if log != nil {
			c.log = log
		}
	}
}

// WithBlockSize sets the size of the block in the data file.
// All the stores opened on the same directory must use the same block size.
func WithBlockSize(blockSize int64) Option {
	return func(c *config) {
		c.blockSize = blockSize
	}
}
