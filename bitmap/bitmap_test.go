package bitmap_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/trungnguyen10/blockfs/bitmap"
	"github.com/trungnguyen10/blockfs/device"
	blockfserrors "github.com/trungnguyen10/blockfs/errors"
	"github.com/trungnguyen10/blockfs/layout"
)

func TestNewAllocatesFromDataStart(t *testing.T) {
	bm := bitmap.New()

	first, err := bm.Alloc()
	require.NoError(t, err)
	require.EqualValues(t, layout.DataStartBlock, first)

	second, err := bm.Alloc()
	require.NoError(t, err)
	require.EqualValues(t, layout.DataStartBlock+1, second)
}

func TestReleaseMakesABlockAllocatableAgain(t *testing.T) {
	bm := bitmap.New()

	first, err := bm.Alloc()
	require.NoError(t, err)

	bm.Release(first)
	require.True(t, bm.IsFree(first))

	reused, err := bm.Alloc()
	require.NoError(t, err)
	require.Equal(t, first, reused)
}

func TestAllocExhaustion(t *testing.T) {
	bm := bitmap.New()

	for i := 0; i < layout.TotalDataBlocks; i++ {
		_, err := bm.Alloc()
		require.NoError(t, err)
	}

	_, err := bm.Alloc()
	require.ErrorIs(t, err, blockfserrors.ErrOutOfSpace)
}

func TestFlushAndLoadRoundTrip(t *testing.T) {
	dev := device.NewMemoryDevice()
	require.NoError(t, dev.Init())

	bm := bitmap.New()
	a, err := bm.Alloc()
	require.NoError(t, err)
	b, err := bm.Alloc()
	require.NoError(t, err)

	require.NoError(t, bm.Flush(dev))

	loaded, err := bitmap.Load(dev)
	require.NoError(t, err)

	require.False(t, loaded.IsFree(a))
	require.False(t, loaded.IsFree(b))

	c, err := loaded.Alloc()
	require.NoError(t, err)
	require.NotEqual(t, a, c)
	require.NotEqual(t, b, c)
}
