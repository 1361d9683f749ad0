package blocks

import (
	"encoding/json"
	"math"

	"github.com/pkg/errors"
)

// Chain is the version chain segment stored in the block of the key.
// Entries are addresses of committed envelopes in increasing order. If Prev is not zero,
// older entries continue in the segment stored at Prev.
type Chain struct {
	Prev    BlockAddress
	Entries []BlockAddress
}

// Last returns the newest entry of the segment.
func (c Chain) Last() (BlockAddress, bool) {
	if len(c.Entries) == 0 {
		return 0, false
	}
	return c.Entries[len(c.Entries)-1], true
}

// Find returns the newest entry not greater than snapshot.
func (c Chain) Find(snapshot BlockAddress) (BlockAddress, bool) {
	for i := len(c.Entries) - 1; i >= 0; i-- {
		if c.Entries[i] <= snapshot {
			return c.Entries[i], true
		}
	}
	return 0, false
}

// EncodeChain encodes the chain segment as block payload.
// The link to older segment is stored as negated first element.
func EncodeChain(c Chain) ([]byte, error) {
	list := make([]int64, 0, len(c.Entries)+1)
	if c.Prev != 0 {
		if c.Prev > math.MaxInt64 {
			return nil, errors.Errorf("address %d out of range", c.Prev)
		}
		list = append(list, -int64(c.Prev))
	}
	for _, a := range c.Entries {
		if a == 0 || a > math.MaxInt64 {
			return nil, errors.Errorf("address %d out of range", a)
		}
		list = append(list, int64(a))
	}

	data, err := json.Marshal(list)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return encodeRecord(data)
}

// DecodeChain decodes the chain segment from block payload.
func DecodeChain(payload []byte) (Chain, error) {
	data, err := decodeRecord(payload)
	if err != nil {
		return Chain{}, err
	}

	var list []int64
	if err := json.Unmarshal(data, &list); err != nil {
		return Chain{}, errors.Wrap(ErrDecodeFailure, err.Error())
	}

	var c Chain
	for i, v := range list {
		switch {
		case v < 0 && i == 0:
			c.Prev = BlockAddress(-v)
		case v <= 0:
			return Chain{}, errors.Wrapf(ErrDecodeFailure, "invalid chain entry %d", v)
		default:
			c.Entries = append(c.Entries, BlockAddress(v))
		}
	}
	return c, nil
}
