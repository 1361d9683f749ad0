package objectstore

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/outofforest/graphstore/blocks"
	"github.com/outofforest/graphstore/keystore"
	"github.com/outofforest/graphstore/persistence"
	"github.com/outofforest/graphstore/pkg/memdev"
)

// go test -bench=. -run=^$ -cpuprofile profile.out -benchtime=5x
// go tool pprof -http="localhost:8000" pprofbin ./profile.out

func BenchmarkObjectStore(b *testing.B) {
	const size = 1000

	b.StopTimer()
	b.ResetTimer()

	requireT := require.New(b)

	for bi := 0; bi < b.N; bi++ {
		alloc := &counter{}
		bs, err := persistence.OpenStore(memdev.New(0), blocks.BlockSize, nil)
		requireT.NoError(err)
		keys := keystore.New(bs, alloc, nil)

		snapshot, err := alloc.Next()
		requireT.NoError(err)
		s, err := New(keys, snapshot, nil)
		requireT.NoError(err)

		b.StartTimer()
		func() {
			for i := 0; i < size; i++ {
				_ = s.Root().Set(strconv.Itoa(i%10), item{Field1: i, Field2: "value"})
			}
		}()

		snapshot, err = alloc.Next()
		requireT.NoError(err)
		s, err = New(keys, snapshot, nil)
		requireT.NoError(err)

		func() {
			for i := 0; i < size; i++ {
				v, _ := s.Root().Get(strconv.Itoa(i % 10))
				_, _ = v.(*Handle).Get("Field1")
			}
		}()
		b.StopTimer()
	}
}
