package blockfs

import (
	"github.com/hashicorp/go-multierror"

	"github.com/trungnguyen10/blockfs/bitmap"
	"github.com/trungnguyen10/blockfs/device"
	"github.com/trungnguyen10/blockfs/directory"
	blockfserrors "github.com/trungnguyen10/blockfs/errors"
	"github.com/trungnguyen10/blockfs/layout"
	"github.com/trungnguyen10/blockfs/metatable"
)

// FS is the filesystem facade from spec.md §4.6: it holds the singletons
// for Bitmap, MetaTable and Directory, lazily loads them from the backing
// device on first use, and is the only place cross-component rules
// (open-before-read, not-open-before-delete) are enforced.
type FS struct {
	dev device.BlockDevice

	dir  *directory.Directory
	meta *metatable.MetaTable
	bm   *bitmap.Bitmap

	initialized bool
}

// Mount binds an FS facade to dev without touching it. The backing device
// is read lazily on the first call that needs it.
func Mount(dev device.BlockDevice) *FS {
	return &FS{dev: dev}
}

// Format zero-fills dev and writes a fresh, empty directory, metadata and
// bitmap region, the equivalent of the original's init_fs on a blank
// container.
func Format(dev device.BlockDevice) error {
	if err := dev.Init(); err != nil {
		return blockfserrors.ErrIOFailed.Wrap(err)
	}

	dir := directory.New()
	if err := dir.Flush(dev); err != nil {
		return err
	}

	meta := metatable.New()
	if err := meta.Flush(dev); err != nil {
		return err
	}

	bm := bitmap.New()
	if err := bm.Flush(dev); err != nil {
		return err
	}
	return nil
}

// initFS performs the lazy load described in spec.md §4.6: load Directory,
// load MetaTable, and either load Bitmap from disk or initialize it to
// all-free when MetaTable has no active records (a never-formatted device
// reads back as all zero bits, i.e. every block used).
// Failures from the independent directory and metadata loads are aggregated
// with go-multierror rather than stopping at the first one, since the caller
// benefits from seeing every region that's out of shape; a bitmap load
// failure is returned on its own.
func (fs *FS) initFS() error {
	if fs.initialized {
		return nil
	}

	var merr *multierror.Error

	dir, err := directory.Load(fs.dev)
	if err != nil {
		merr = multierror.Append(merr, err)
	}

	meta, err := metatable.Load(fs.dev)
	if err != nil {
		merr = multierror.Append(merr, err)
	}

	if merr.ErrorOrNil() != nil {
		return blockfserrors.ErrIOFailed.Wrap(merr)
	}

	var bm *bitmap.Bitmap
	if activeRecordCount(meta) == 0 {
		bm = bitmap.New()
	} else {
		bm, err = bitmap.Load(fs.dev)
		if err != nil {
			return err
		}
	}

	fs.dir = dir
	fs.meta = meta
	fs.bm = bm
	fs.initialized = true
	return nil
}

// activeRecordCount counts active metadata records, used only to decide
// whether the bitmap region can be trusted on load.
func activeRecordCount(meta *metatable.MetaTable) int {
	n := 0
	for id := 0; id < layout.MaxFiles; id++ {
		if meta.IsActive(id) {
			n++
		}
	}
	return n
}

// Stat returns the fixed geometry of this filesystem (spec.md §12,
// supplemented from the original's print_specs).
func (fs *FS) Stat() Geometry {
	return stat()
}

// EnsureLoaded triggers the lazy directory/metadata/bitmap load if it
// hasn't happened yet. Callers that only need to inspect in-memory state
// (OpenFileIDs, DebugDirectoryEntry, DebugRecord) without performing a
// create/open/delete first should call this to guarantee that state exists.
func (fs *FS) EnsureLoaded() error {
	return fs.initFS()
}

// CreateFile implements spec.md §6 create_file: nonexistent→existent-open.
func (fs *FS) CreateFile(name string) (h *Handle, err error) {
	defer func() { setLastError(err) }()

	if err := fs.initFS(); err != nil {
		return nil, err
	}

	id, err := fs.dir.Add(name)
	if err != nil {
		return nil, err
	}
	if err := fs.meta.Create(id); err != nil {
		return nil, err
	}

	if err := fs.dir.MarkOpen(id); err != nil {
		return nil, err
	}

	if err := fs.meta.Flush(fs.dev); err != nil {
		return nil, err
	}
	if err := fs.dir.Flush(fs.dev); err != nil {
		return nil, err
	}

	return &Handle{fs: fs, id: id, mode: ReadWrite}, nil
}

// OpenFile implements spec.md §6 open_file: existent-closed→existent-open.
func (fs *FS) OpenFile(name string, mode FileMode) (h *Handle, err error) {
	defer func() { setLastError(err) }()

	if err := fs.initFS(); err != nil {
		return nil, err
	}

	id, ok := fs.dir.Lookup(name)
	if !ok {
		return nil, blockfserrors.ErrFileNotFound
	}
	if err := fs.dir.MarkOpen(id); err != nil {
		return nil, err
	}

	return &Handle{fs: fs, id: id, mode: mode}, nil
}

// Close implements spec.md §6 close_file: existent-open→existent-closed.
func (fs *FS) Close(h *Handle) (err error) {
	defer func() { setLastError(err) }()

	if h == nil {
		return blockfserrors.ErrIOFailed
	}
	if !fs.dir.IsOpen(h.id) {
		return blockfserrors.ErrFileNotOpen
	}
	fs.dir.MarkClosed(h.id)
	return nil
}

// DeleteFile implements spec.md §6 delete_file and §4.5 Delete: release
// every block the file owns, then destroy its directory entry and
// metadata record.
func (fs *FS) DeleteFile(name string) (err error) {
	defer func() { setLastError(err) }()

	if err := fs.initFS(); err != nil {
		return err
	}

	id, ok := fs.dir.Lookup(name)
	if !ok {
		return blockfserrors.ErrFileNotFound
	}
	if fs.dir.IsOpen(id) {
		return blockfserrors.ErrFileOpen
	}

	record := fs.meta.Get(id)
	if err := fs.releaseAllBlocks(record); err != nil {
		return err
	}

	fs.meta.Reset(id)
	if err := fs.dir.Remove(id); err != nil {
		return err
	}

	if err := fs.bm.Flush(fs.dev); err != nil {
		return err
	}
	if err := fs.meta.Flush(fs.dev); err != nil {
		return err
	}
	if err := fs.dir.Flush(fs.dev); err != nil {
		return err
	}
	return nil
}

// FileExists implements spec.md §6 file_exists. Unlike the other calls it
// reports failure through its bool return rather than an error.
func (fs *FS) FileExists(name string) bool {
	if err := fs.initFS(); err != nil {
		setLastError(err)
		return false
	}
	setLastError(nil)
	return fs.dir.Exists(name)
}

// OpenFileIDs returns every currently open file id (spec.md §12,
// supplemented from the original's print_opened_files).
func (fs *FS) OpenFileIDs() []int {
	if fs.dir == nil {
		return nil
	}
	return fs.dir.OpenIDs()
}

// DebugDirectoryEntry returns the filename stored at id, if any (spec.md
// §12, supplemented from the original's print_entry).
func (fs *FS) DebugDirectoryEntry(id int) (string, bool) {
	if fs.dir == nil {
		return "", false
	}
	return fs.dir.Name(id)
}

// DebugRecord returns the decoded metadata record stored at id (spec.md §12,
// supplemented from the original's print_inode).
func (fs *FS) DebugRecord(id int) metatable.Record {
	if fs.meta == nil {
		return metatable.Record{}
	}
	return fs.meta.Get(id)
}

// releaseAllBlocks frees every data block and the indirect block (if any)
// a record owns, zero-filling each one first so stale bytes never become
// observable to whoever allocates it next (spec.md §9, "newly allocated
// blocks' contents": we resolve the open question by zero-filling on
// release rather than on allocation).
func (fs *FS) releaseAllBlocks(record metatable.Record) error {
	for _, ptr := range record.Direct {
		if ptr == 0 {
			continue
		}
		if err := fs.zeroAndRelease(uint(ptr)); err != nil {
			return err
		}
	}

	if record.Indirect != 0 {
		pointers, err := metatable.ReadIndirectBlock(fs.dev, uint(record.Indirect))
		if err != nil {
			return err
		}
		for _, ptr := range pointers {
			if ptr == 0 {
				continue
			}
			if err := fs.zeroAndRelease(uint(ptr)); err != nil {
				return err
			}
		}
		if err := fs.zeroAndRelease(uint(record.Indirect)); err != nil {
			return err
		}
	}
	return nil
}

func (fs *FS) zeroAndRelease(blockIndex uint) error {
	zero := make([]byte, layout.BlockSize)
	if err := fs.dev.WriteBlock(blockIndex, zero); err != nil {
		return blockfserrors.ErrIOFailed.Wrap(err)
	}
	fs.bm.Release(blockIndex)
	return nil
}
