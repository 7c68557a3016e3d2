package device

import (
	"io"

	blockfserrors "github.com/trungnguyen10/blockfs/errors"
	"github.com/xaionaro-go/bytesextra"
)

// MemoryDevice is a BlockDevice backed entirely by a byte slice. It exists
// for tests, where paying for a real file on disk isn't worth it. The
// backing slice is fixed at
// TotalBlocks*BlockSize bytes, matching the original's in-memory
// software disk.
type MemoryDevice struct {
	stream io.ReadWriteSeeker
}

// NewMemoryDevice allocates a zero-filled in-memory block device.
func NewMemoryDevice() *MemoryDevice {
	data := make([]byte, TotalBlocks*BlockSize)
	return &MemoryDevice{stream: bytesextra.NewReadWriteSeeker(data)}
}

func (dev *MemoryDevice) Init() error {
	zero := make([]byte, TotalBlocks*BlockSize)
	dev.stream = bytesextra.NewReadWriteSeeker(zero)
	return nil
}

func (dev *MemoryDevice) Size() uint {
	return TotalBlocks
}

func (dev *MemoryDevice) ReadBlock(index uint, buf []byte) error {
	if err := checkBounds(index, len(buf)); err != nil {
		return err
	}
	if _, err := dev.stream.Seek(int64(index)*BlockSize, io.SeekStart); err != nil {
		return blockfserrors.ErrIOFailed.Wrap(err)
	}
	if _, err := io.ReadFull(dev.stream, buf); err != nil {
		return blockfserrors.ErrIOFailed.Wrap(err)
	}
	return nil
}

func (dev *MemoryDevice) WriteBlock(index uint, buf []byte) error {
	if err := checkBounds(index, len(buf)); err != nil {
		return err
	}
	if _, err := dev.stream.Seek(int64(index)*BlockSize, io.SeekStart); err != nil {
		return blockfserrors.ErrIOFailed.Wrap(err)
	}
	if _, err := dev.stream.Write(buf); err != nil {
		return blockfserrors.ErrIOFailed.Wrap(err)
	}
	return nil
}
