package metatable

import (
	"fmt"

	blockfserrors "github.com/trungnguyen10/blockfs/errors"
	"github.com/trungnguyen10/blockfs/device"
	"github.com/trungnguyen10/blockfs/layout"
)

// MetaTable is the fixed array of layout.MaxFiles Records described in
// spec.md §3/§4.3, indexed by file id. Per spec.md §3's "a record is active
// iff byte 0 ≠ 0", an inactive slot is encoded as 64 raw zero bytes, not as
// an all-zero-digit ASCII record — ASCII-encoding "0000000..." would leave
// byte 0 equal to the digit '0' (0x30), which is not zero and would wrongly
// read back as active. active tracks that distinction in memory so Flush
// can reproduce it.
type MetaTable struct {
	records [layout.MaxFiles]Record
	active  [layout.MaxFiles]bool
}

// New returns an all-inactive MetaTable, used when formatting a fresh
// container.
func New() *MetaTable {
	return &MetaTable{}
}

// Load reads the metadata region from dev. A slot whose first raw byte is 0
// is inactive; anything else is decoded as an ASCII record.
func Load(dev device.BlockDevice) (*MetaTable, error) {
	raw := make([]byte, layout.MetadataBlockCount*layout.BlockSize)
	for i := 0; i < layout.MetadataBlockCount; i++ {
		buf := raw[i*layout.BlockSize : (i+1)*layout.BlockSize]
		if err := dev.ReadBlock(uint(layout.MetadataStartBlock+i), buf); err != nil {
			return nil, blockfserrors.ErrIOFailed.Wrap(err)
		}
	}

	mt := &MetaTable{}
	for id := 0; id < layout.MaxFiles; id++ {
		start := id * layout.RecordSize
		slice := raw[start : start+layout.RecordSize]
		if slice[0] == 0 {
			continue
		}
		r, err := decodeRecord(slice)
		if err != nil {
			return nil, blockfserrors.ErrIOFailed.WithMessage(
				fmt.Sprintf("decoding metadata record %d: %s", id, err))
		}
		mt.records[id] = r
		mt.active[id] = true
	}
	return mt, nil
}

// Flush writes every record back to the metadata region on dev, writing
// raw zero bytes for inactive slots instead of an ASCII-encoded zero
// record.
func (mt *MetaTable) Flush(dev device.BlockDevice) error {
	raw := make([]byte, layout.MetadataBlockCount*layout.BlockSize)
	for id := 0; id < layout.MaxFiles; id++ {
		if !mt.active[id] {
			continue
		}
		encoded, err := encodeRecord(mt.records[id])
		if err != nil {
			return blockfserrors.ErrIOFailed.WithMessage(
				fmt.Sprintf("encoding metadata record %d: %s", id, err))
		}
		copy(raw[id*layout.RecordSize:], encoded)
	}

	for i := 0; i < layout.MetadataBlockCount; i++ {
		buf := raw[i*layout.BlockSize : (i+1)*layout.BlockSize]
		if err := dev.WriteBlock(uint(layout.MetadataStartBlock+i), buf); err != nil {
			return blockfserrors.ErrIOFailed.Wrap(err)
		}
	}
	return nil
}

// Get returns the Record stored at id.
func (mt *MetaTable) Get(id int) Record {
	return mt.records[id]
}

// IsActive reports whether id currently holds an active record.
func (mt *MetaTable) IsActive(id int) bool {
	return mt.active[id]
}

// Set overwrites the Record stored at id. The slot must already be active
// (created via Create); Set never changes activeness.
func (mt *MetaTable) Set(id int, r Record) {
	mt.records[id] = r
}

// Create initializes the record at id to size=0, blocks=0 and marks it
// active, requiring the slot to be empty first (spec.md §4.3, "create(id):
// requires the slot empty").
func (mt *MetaTable) Create(id int) error {
	if mt.active[id] {
		return blockfserrors.ErrFileAlreadyExists
	}
	mt.records[id] = Record{}
	mt.active[id] = true
	return nil
}

// Reset zeroes the record at id and marks it inactive, called when a file
// is deleted (spec.md §4.3, "destroy(id): zero the slot").
func (mt *MetaTable) Reset(id int) {
	mt.records[id] = Record{}
	mt.active[id] = false
}

// BlockPointers returns every data-block pointer a Record references, in
// logical order: the direct pointers followed by whatever's stored in the
// indirect block (if any); zero pointers are skipped. indirectBlock, when
// non-nil, is the already
// loaded contents of the indirect block; pass nil if r.Indirect is 0.
func BlockPointers(r Record, indirectBlock []uint32) []uint32 {
	pointers := make([]uint32, 0, layout.DirectPointers+len(indirectBlock))
	for _, ptr := range r.Direct {
		if ptr != 0 {
			pointers = append(pointers, ptr)
		}
	}
	for _, ptr := range indirectBlock {
		if ptr != 0 {
			pointers = append(pointers, ptr)
		}
	}
	return pointers
}

// ReadIndirectBlock decodes the fixed-width ASCII decimal pointer array
// stored in the indirect block at blockIndex, using the same AddressWidth
// field packing as every other pointer in the filesystem. The array always
// has layout.PointersPerIndirectBlock entries; unused slots are 0.
func ReadIndirectBlock(dev device.BlockDevice, blockIndex uint) ([]uint32, error) {
	buf := make([]byte, layout.BlockSize)
	if err := dev.ReadBlock(blockIndex, buf); err != nil {
		return nil, blockfserrors.ErrIOFailed.Wrap(err)
	}

	pointers := make([]uint32, layout.PointersPerIndirectBlock)
	for i := range pointers {
		field := buf[i*pointerFieldWidth : (i+1)*pointerFieldWidth]
		value, err := decodeDecimalField(field)
		if err != nil {
			return nil, blockfserrors.ErrIOFailed.WithMessage(
				fmt.Sprintf("decoding indirect pointer %d: %s", i, err))
		}
		pointers[i] = uint32(value)
	}
	return pointers, nil
}

// WriteIndirectBlock encodes pointers (padded/truncated to
// layout.PointersPerIndirectBlock entries) and writes them to the indirect
// block at blockIndex.
func WriteIndirectBlock(dev device.BlockDevice, blockIndex uint, pointers []uint32) error {
	buf := make([]byte, layout.BlockSize)
	for i := 0; i < layout.PointersPerIndirectBlock; i++ {
		var ptr uint32
		if i < len(pointers) {
			ptr = pointers[i]
		}
		field := buf[i*pointerFieldWidth : (i+1)*pointerFieldWidth]
		text := fmt.Sprintf("%0*d", pointerFieldWidth, ptr)
		copy(field, text)
	}
	if err := dev.WriteBlock(blockIndex, buf); err != nil {
		return blockfserrors.ErrIOFailed.Wrap(err)
	}
	return nil
}
