package blockfs

import (
	blockfserrors "github.com/trungnguyen10/blockfs/errors"
	"github.com/trungnguyen10/blockfs/layout"
	"github.com/trungnguyen10/blockfs/metatable"
)

// resolveBlock implements spec.md §4.5's block-index mapping: for logical
// block lb of a file backed by record, return the physical block that
// holds it. indirectPointers is the already-loaded contents of record's
// indirect block (nil if record.Indirect is 0 and lb < layout.DirectPointers).
func resolveBlock(record metatable.Record, indirectPointers []uint32, lb int) (uint, error) {
	if lb < layout.DirectPointers {
		ptr := record.Direct[lb]
		if ptr == 0 {
			return 0, blockfserrors.ErrIOFailed.WithMessage("logical block has no backing pointer")
		}
		return uint(ptr), nil
	}

	idx := lb - layout.DirectPointers
	if idx < 0 || idx >= len(indirectPointers) || indirectPointers[idx] == 0 {
		return 0, blockfserrors.ErrIOFailed.WithMessage("logical block has no backing pointer")
	}
	return uint(indirectPointers[idx]), nil
}

// ensureBlocks grows record so that every logical block in
// [record.BlockCount, targetLB] has a backing physical block, allocating
// from fs.bm as needed (spec.md §4.5 step 3). Blocks at or past
// layout.DirectPointers are backed through an indirect block, allocated on
// the first crossing if record.Indirect is still 0. It stops at the first
// allocation failure rather than rolling back what it already acquired —
// those blocks remain legitimately owned by the file.
//
// It returns whether an allocation failed partway (outOfSpace); record is
// mutated in place with whatever was successfully allocated either way.
func (fs *FS) ensureBlocks(record *metatable.Record, targetLB int) (outOfSpace bool, err error) {
	current := int(record.BlockCount)
	if targetLB < current {
		return false, nil
	}

	var indirectPointers []uint32
	if record.Indirect != 0 {
		indirectPointers, err = metatable.ReadIndirectBlock(fs.dev, uint(record.Indirect))
		if err != nil {
			return false, err
		}
	}

	persistIndirect := func() error {
		if record.Indirect == 0 {
			return nil
		}
		return metatable.WriteIndirectBlock(fs.dev, uint(record.Indirect), indirectPointers)
	}

	for lb := current; lb <= targetLB; lb++ {
		if lb >= layout.DirectPointers && record.Indirect == 0 {
			indirectBlockIdx, aerr := fs.bm.Alloc()
			if aerr != nil {
				return true, nil
			}
			record.Indirect = uint32(indirectBlockIdx)
			indirectPointers = make([]uint32, layout.PointersPerIndirectBlock)
		}

		physical, aerr := fs.bm.Alloc()
		if aerr != nil {
			if perr := persistIndirect(); perr != nil {
				return false, perr
			}
			return true, nil
		}

		if lb < layout.DirectPointers {
			record.Direct[lb] = uint32(physical)
		} else {
			indirectPointers[lb-layout.DirectPointers] = uint32(physical)
		}
		record.BlockCount = uint32(lb + 1)
	}

	if err := persistIndirect(); err != nil {
		return false, err
	}
	return false, nil
}

// loadIndirectPointers is a small convenience wrapper used by Read/Write to
// fetch a record's indirect block contents only when the record actually
// has one.
func (fs *FS) loadIndirectPointers(record metatable.Record) ([]uint32, error) {
	if record.Indirect == 0 {
		return nil, nil
	}
	return metatable.ReadIndirectBlock(fs.dev, uint(record.Indirect))
}

// Read implements spec.md §4.5 Read. It never allocates and never mutates
// metadata; it returns the number of bytes actually copied into buf, which
// may be less than len(buf) if the file doesn't have that many bytes left.
func (h *Handle) Read(buf []byte) (n int, err error) {
	defer func() { setLastError(err) }()

	fs := h.fs
	if !fs.dir.IsOpen(h.id) {
		return 0, blockfserrors.ErrFileNotOpen
	}

	record := fs.meta.Get(h.id)
	size := uint64(record.Size)
	p := h.position
	if p >= size {
		return 0, nil
	}

	toRead := size - p
	if uint64(len(buf)) < toRead {
		toRead = uint64(len(buf))
	}
	if toRead == 0 {
		return 0, nil
	}

	indirectPointers, err := fs.loadIndirectPointers(record)
	if err != nil {
		return 0, err
	}

	firstLB := int(p / layout.BlockSize)
	lastLB := int((p + toRead - 1) / layout.BlockSize)

	blockBuf := make([]byte, layout.BlockSize)
	var delivered uint64

	for lb := firstLB; lb <= lastLB; lb++ {
		physical, rerr := resolveBlock(record, indirectPointers, lb)
		if rerr != nil {
			return int(delivered), rerr
		}
		if rerr := fs.dev.ReadBlock(physical, blockBuf); rerr != nil {
			return int(delivered), blockfserrors.ErrIOFailed.Wrap(rerr)
		}

		startOff := uint64(0)
		if lb == firstLB {
			startOff = p % layout.BlockSize
		}
		avail := layout.BlockSize - startOff
		remaining := toRead - delivered
		want := avail
		if remaining < want {
			want = remaining
		}

		copy(buf[delivered:delivered+want], blockBuf[startOff:startOff+want])
		delivered += want
	}

	h.position += delivered
	return int(delivered), nil
}

// Write implements spec.md §4.5 Write. It returns the number of bytes
// actually written; when the request is clamped by the maximum file size
// or cut short by space exhaustion, the returned count still reflects
// exactly what was written, alongside the corresponding error — matching
// spec.md's partial-completion contract, expressed through Go's (n, error)
// return instead of a side-channel status variable.
func (h *Handle) Write(buf []byte) (n int, err error) {
	defer func() { setLastError(err) }()

	fs := h.fs
	if !fs.dir.IsOpen(h.id) {
		return 0, blockfserrors.ErrFileNotOpen
	}
	if h.mode != ReadWrite {
		return 0, blockfserrors.ErrFileReadOnly
	}

	record := fs.meta.Get(h.id)
	p := h.position

	var clampErr error
	bytesToWrite := uint64(len(buf))
	if p >= layout.MaxFileSize {
		bytesToWrite = 0
		clampErr = blockfserrors.ErrExceedsMaxFileSize
	} else if p+bytesToWrite > layout.MaxFileSize {
		bytesToWrite = layout.MaxFileSize - p
		clampErr = blockfserrors.ErrExceedsMaxFileSize
	}

	if bytesToWrite == 0 {
		return 0, clampErr
	}

	lastLB := int((p + bytesToWrite - 1) / layout.BlockSize)
	outOfSpace, err := fs.ensureBlocks(&record, lastLB)
	if err != nil {
		return 0, err
	}

	if outOfSpace {
		allocatedEnd := uint64(record.BlockCount) * layout.BlockSize
		if allocatedEnd <= p {
			bytesToWrite = 0
		} else {
			bytesToWrite = allocatedEnd - p
			lastLB = int((p + bytesToWrite - 1) / layout.BlockSize)
		}
		clampErr = blockfserrors.ErrOutOfSpace
	}

	if bytesToWrite == 0 {
		fs.meta.Set(h.id, record)
		if ferr := fs.persistRegions(); ferr != nil {
			return 0, ferr
		}
		return 0, clampErr
	}

	indirectPointers, err := fs.loadIndirectPointers(record)
	if err != nil {
		return 0, err
	}

	firstLB := int(p / layout.BlockSize)
	blockBuf := make([]byte, layout.BlockSize)
	var written uint64

	for lb := firstLB; lb <= lastLB; lb++ {
		physical, rerr := resolveBlock(record, indirectPointers, lb)
		if rerr != nil {
			return int(written), rerr
		}

		startOff := uint64(0)
		if lb == firstLB {
			startOff = p % layout.BlockSize
		}
		avail := layout.BlockSize - startOff
		remaining := bytesToWrite - written
		want := avail
		if remaining < want {
			want = remaining
		}

		if startOff == 0 && want == layout.BlockSize {
			copy(blockBuf, buf[written:written+want])
		} else {
			if rerr := fs.dev.ReadBlock(physical, blockBuf); rerr != nil {
				return int(written), blockfserrors.ErrIOFailed.Wrap(rerr)
			}
			copy(blockBuf[startOff:startOff+want], buf[written:written+want])
		}

		if rerr := fs.dev.WriteBlock(physical, blockBuf); rerr != nil {
			return int(written), blockfserrors.ErrIOFailed.Wrap(rerr)
		}
		written += want
	}

	newEnd := p + written
	if newEnd > uint64(record.Size) {
		record.Size = uint32(newEnd)
	}
	fs.meta.Set(h.id, record)
	if ferr := fs.persistRegions(); ferr != nil {
		return int(written), ferr
	}

	h.position = newEnd
	return int(written), clampErr
}

// Seek implements spec.md §4.5 Seek, including the documented
// "position = size - 1 after extending seek" quirk, kept contractual for
// compatibility rather than corrected.
func (h *Handle) Seek(pos uint64) (err error) {
	defer func() { setLastError(err) }()

	fs := h.fs
	if !fs.dir.IsOpen(h.id) {
		return blockfserrors.ErrFileNotOpen
	}
	if pos >= layout.MaxFileSize {
		return blockfserrors.ErrExceedsMaxFileSize
	}

	record := fs.meta.Get(h.id)
	if pos <= uint64(record.Size) {
		h.position = pos
		return nil
	}

	targetLB := int(pos / layout.BlockSize)
	outOfSpace, err := fs.ensureBlocks(&record, targetLB)
	if err != nil {
		return err
	}

	newSize := uint64(record.BlockCount) * layout.BlockSize
	if outOfSpace {
		record.Size = uint32(newSize)
		fs.meta.Set(h.id, record)
		if ferr := fs.persistRegions(); ferr != nil {
			return ferr
		}
		if newSize == 0 {
			h.position = 0
		} else {
			h.position = newSize - 1
		}
		return blockfserrors.ErrOutOfSpace
	}

	record.Size = uint32(pos + 1)
	fs.meta.Set(h.id, record)
	if ferr := fs.persistRegions(); ferr != nil {
		return ferr
	}
	h.position = uint64(record.Size) - 1
	return nil
}

// Length implements spec.md §6 file_length.
func (h *Handle) Length() (length uint64, err error) {
	defer func() { setLastError(err) }()

	if !h.fs.dir.IsOpen(h.id) {
		return 0, blockfserrors.ErrFileNotOpen
	}
	return uint64(h.fs.meta.Get(h.id).Size), nil
}

// Close releases h's open-set membership. It's equivalent to fs.Close(h)
// and exists so callers holding only a Handle don't need the FS too.
func (h *Handle) Close() (err error) {
	return h.fs.Close(h)
}

// persistRegions writes the metadata and bitmap regions back to the
// device, the persistence order spec.md §5 specifies after data blocks:
// "data blocks → metadata record → bitmap → directory entry". Write/Seek
// never touch the directory region, so only these two are flushed here.
func (fs *FS) persistRegions() error {
	if err := fs.meta.Flush(fs.dev); err != nil {
		return err
	}
	if err := fs.bm.Flush(fs.dev); err != nil {
		return err
	}
	return nil
}
