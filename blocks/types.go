package blocks

import (
	"math"

	"github.com/pkg/errors"
)

// BlockSize is the default size of the record stored in the data file.
const BlockSize int64 = 1000

// Filler is the byte used to pad records and fill gaps in the data file.
const Filler byte = ' '

// BlockAddress is the address (index) of the block. Addresses double as version numbers.
type BlockAddress uint64

// RootAddress is the address of the root record.
const RootAddress BlockAddress = 0

// Unrestricted is the snapshot under which every committed version is visible.
const Unrestricted BlockAddress = math.MaxUint64

var (
	// ErrDecodeFailure is returned if stored bytes do not parse as a valid record.
	ErrDecodeFailure = errors.New("decode failure")

	// ErrRecordOverflow is returned if encoded record does not fit into the block.
	ErrRecordOverflow = errors.New("record overflow")
)
