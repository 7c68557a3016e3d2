package directory_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/trungnguyen10/blockfs/device"
	"github.com/trungnguyen10/blockfs/directory"
	blockfserrors "github.com/trungnguyen10/blockfs/errors"
	"github.com/trungnguyen10/blockfs/layout"
)

func TestAddAndLookup(t *testing.T) {
	d := directory.New()

	id, err := d.Add("hello.txt")
	require.NoError(t, err)

	got, ok := d.Lookup("hello.txt")
	require.True(t, ok)
	require.Equal(t, id, got)
	require.True(t, d.Exists("hello.txt"))
}

func TestAddRejectsEmptyAndOverlongNames(t *testing.T) {
	d := directory.New()

	_, err := d.Add("")
	require.ErrorIs(t, err, blockfserrors.ErrIllegalFilename)

	_, err = d.Add(string(make([]byte, layout.MaxFilenameLength+1)))
	require.ErrorIs(t, err, blockfserrors.ErrIllegalFilename)
}

func TestAddRejectsDuplicateName(t *testing.T) {
	d := directory.New()
	_, err := d.Add("a")
	require.NoError(t, err)

	_, err = d.Add("a")
	require.ErrorIs(t, err, blockfserrors.ErrFileAlreadyExists)
}

func TestAddFailsWhenFull(t *testing.T) {
	d := directory.New()
	for i := 0; i < layout.MaxFiles; i++ {
		_, err := d.Add(fmt.Sprintf("file%d", i))
		require.NoError(t, err)
	}

	_, err := d.Add("one-too-many")
	require.ErrorIs(t, err, blockfserrors.ErrOutOfSpace)
}

func TestMarkOpenRejectsDoubleOpen(t *testing.T) {
	d := directory.New()
	id, err := d.Add("a")
	require.NoError(t, err)

	require.NoError(t, d.MarkOpen(id))
	require.ErrorIs(t, d.MarkOpen(id), blockfserrors.ErrFileOpen)

	d.MarkClosed(id)
	require.NoError(t, d.MarkOpen(id))
}

func TestRemoveFreesSlot(t *testing.T) {
	d := directory.New()
	id, err := d.Add("a")
	require.NoError(t, err)

	require.NoError(t, d.Remove(id))
	require.False(t, d.Exists("a"))

	again, err := d.Add("a")
	require.NoError(t, err)
	require.Equal(t, id, again)
}

func TestFlushAndLoadRoundTrip(t *testing.T) {
	dev := device.NewMemoryDevice()
	require.NoError(t, dev.Init())

	d := directory.New()
	id, err := d.Add("roundtrip.bin")
	require.NoError(t, err)
	require.NoError(t, d.Flush(dev))

	loaded, err := directory.Load(dev)
	require.NoError(t, err)

	got, ok := loaded.Lookup("roundtrip.bin")
	require.True(t, ok)
	require.Equal(t, id, got)
	require.Equal(t, 1, loaded.Count())
}
