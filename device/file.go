package device

import (
	"io"
	"os"

	blockfserrors "github.com/trungnguyen10/blockfs/errors"
)

// FileDevice is a BlockDevice backed by a regular file on the host
// filesystem, addressed starting at byte 0. This is the form a real backing
// container takes outside of tests: one file, TotalBlocks*BlockSize bytes
// long.
type FileDevice struct {
	file *os.File
}

// OpenFileDevice opens an existing backing file without touching its
// contents.
func OpenFileDevice(path string) (*FileDevice, error) {
	file, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if err != nil {
		return nil, blockfserrors.ErrIOFailed.Wrap(err)
	}
	return &FileDevice{file: file}, nil
}

// CreateFileDevice creates (or truncates) a backing file and zero-fills it.
func CreateFileDevice(path string) (*FileDevice, error) {
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, blockfserrors.ErrIOFailed.Wrap(err)
	}
	dev := &FileDevice{file: file}
	if err := dev.Init(); err != nil {
		file.Close()
		return nil, err
	}
	return dev, nil
}

func (dev *FileDevice) Init() error {
	if err := dev.file.Truncate(0); err != nil {
		return blockfserrors.ErrIOFailed.Wrap(err)
	}
	if err := dev.file.Truncate(TotalBlocks * BlockSize); err != nil {
		return blockfserrors.ErrIOFailed.Wrap(err)
	}
	return nil
}

func (dev *FileDevice) Size() uint {
	return TotalBlocks
}

func (dev *FileDevice) seekToBlock(index uint) error {
	_, err := dev.file.Seek(int64(index)*BlockSize, io.SeekStart)
	if err != nil {
		return blockfserrors.ErrIOFailed.Wrap(err)
	}
	return nil
}

func (dev *FileDevice) ReadBlock(index uint, buf []byte) error {
	if err := checkBounds(index, len(buf)); err != nil {
		return err
	}
	if err := dev.seekToBlock(index); err != nil {
		return err
	}
	if _, err := io.ReadFull(dev.file, buf); err != nil {
		return blockfserrors.ErrIOFailed.Wrap(err)
	}
	return nil
}

func (dev *FileDevice) WriteBlock(index uint, buf []byte) error {
	if err := checkBounds(index, len(buf)); err != nil {
		return err
	}
	if err := dev.seekToBlock(index); err != nil {
		return err
	}
	if _, err := dev.file.Write(buf); err != nil {
		return blockfserrors.ErrIOFailed.Wrap(err)
	}
	return nil
}

// Close flushes and closes the backing file.
func (dev *FileDevice) Close() error {
	return dev.file.Close()
}
