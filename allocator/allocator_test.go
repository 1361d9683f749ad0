package allocator

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/outofforest/graphstore/blocks"
)

func TestMonotonicity(t *testing.T) {
	requireT := require.New(t)

	dir := t.TempDir()

	a, err := Open(dir, nil)
	requireT.NoError(err)
	requireT.EqualValues(0, a.Current())

	var last blocks.BlockAddress
	for i := 0; i < 50; i++ {
		next, err := a.Next()
		requireT.NoError(err)
		requireT.Greater(next, last)
		last = next
	}
	requireT.EqualValues(50, last)
	requireT.Equal(last, a.Current())

	content, err := os.ReadFile(filepath.Join(dir, FileName))
	requireT.NoError(err)
	requireT.Equal("50", string(content))

	// Reopen continues from persisted value

	a2, err := Open(dir, nil)
	requireT.NoError(err)
	requireT.Equal(last, a2.Current())

	next, err := a2.Next()
	requireT.NoError(err)
	requireT.EqualValues(51, next)
}

func TestFirstAllocationIsOne(t *testing.T) {
	requireT := require.New(t)

	a, err := Open(t.TempDir(), nil)
	requireT.NoError(err)

	next, err := a.Next()
	requireT.NoError(err)
	requireT.EqualValues(1, next)
}

func TestCorruptedCounter(t *testing.T) {
	requireT := require.New(t)

	dir := t.TempDir()
	requireT.NoError(os.WriteFile(filepath.Join(dir, FileName), []byte("abc"), 0o600))

	_, err := Open(dir, nil)
	requireT.ErrorIs(err, blocks.ErrDecodeFailure)
}

func TestCounterGoingBackwards(t *testing.T) {
	requireT := require.New(t)

	dir := t.TempDir()

	a, err := Open(dir, nil)
	requireT.NoError(err)
	for i := 0; i < 3; i++ {
		_, err := a.Next()
		requireT.NoError(err)
	}

	requireT.NoError(os.WriteFile(filepath.Join(dir, FileName), []byte("1\n"), 0o600))

	_, err = a.Next()
	requireT.Error(err)
}
