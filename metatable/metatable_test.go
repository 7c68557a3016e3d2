package metatable_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/trungnguyen10/blockfs/device"
	blockfserrors "github.com/trungnguyen10/blockfs/errors"
	"github.com/trungnguyen10/blockfs/layout"
	"github.com/trungnguyen10/blockfs/metatable"
)

func TestCreateThenGetRoundTrip(t *testing.T) {
	mt := metatable.New()
	require.NoError(t, mt.Create(5))

	r := mt.Get(5)
	r.Size = 1234
	r.BlockCount = 3
	r.Direct[0] = 250
	mt.Set(5, r)

	got := mt.Get(5)
	require.EqualValues(t, 1234, got.Size)
	require.EqualValues(t, 3, got.BlockCount)
	require.EqualValues(t, 250, got.Direct[0])
}

func TestCreateRejectsAlreadyActiveSlot(t *testing.T) {
	mt := metatable.New()
	require.NoError(t, mt.Create(0))
	require.ErrorIs(t, mt.Create(0), blockfserrors.ErrFileAlreadyExists)
}

func TestResetDeactivatesSlot(t *testing.T) {
	mt := metatable.New()
	require.NoError(t, mt.Create(1))
	mt.Reset(1)
	require.False(t, mt.IsActive(1))
	require.Zero(t, mt.Get(1).Size)
}

func TestFlushAndLoadRoundTripDistinguishesInactiveSlots(t *testing.T) {
	dev := device.NewMemoryDevice()
	require.NoError(t, dev.Init())

	mt := metatable.New()
	require.NoError(t, mt.Create(2))
	r := mt.Get(2)
	r.Size = 71680
	r.BlockCount = 140
	r.Indirect = 300
	mt.Set(2, r)

	require.NoError(t, mt.Flush(dev))

	loaded, err := metatable.Load(dev)
	require.NoError(t, err)

	require.True(t, loaded.IsActive(2))
	require.EqualValues(t, 71680, loaded.Get(2).Size)
	require.EqualValues(t, 300, loaded.Get(2).Indirect)

	require.False(t, loaded.IsActive(0))
	require.False(t, loaded.IsActive(layout.MaxFiles-1))
}

func TestIndirectBlockRoundTrip(t *testing.T) {
	dev := device.NewMemoryDevice()
	require.NoError(t, dev.Init())

	pointers := make([]uint32, layout.PointersPerIndirectBlock)
	pointers[0] = 250
	pointers[127] = 4999

	require.NoError(t, metatable.WriteIndirectBlock(dev, layout.DataStartBlock, pointers))

	got, err := metatable.ReadIndirectBlock(dev, layout.DataStartBlock)
	require.NoError(t, err)
	require.EqualValues(t, 250, got[0])
	require.EqualValues(t, 4999, got[127])
	require.Zero(t, got[1])
}
