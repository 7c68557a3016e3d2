// Package directory implements the flat-namespace directory region from
// spec.md §3/§4.4: a fixed array of layout.MaxFiles dirents, each mapping a
// filename to a file id (and, by construction, to the metadata record at
// the same id in the metatable package). The on-disk layout — a name field
// with a zero byte marking an unused slot, and the open-file tracking
// separate from the on-disk entries — is grounded on
// original_source/filesystem.c's DirStruct (load_dir_from_disk, get_entry,
// add_entry, delete_entry, add_to_opened_files/is_opened). The simple
// flat-directory parsing idiom (trim padding, split stem from fixed-width
// trailing field) also mirrors drivers/lbr/driver.go's RawDirent handling in
// the teacher repo.
package directory

import (
	"fmt"
	"strconv"
	"strings"

	blockfserrors "github.com/trungnguyen10/blockfs/errors"
	"github.com/trungnguyen10/blockfs/device"
	"github.com/trungnguyen10/blockfs/layout"
)

const (
	nameFieldWidth = layout.DirentSize - layout.AddressWidth
	idFieldWidth   = layout.AddressWidth
)

func init() {
	if nameFieldWidth-1 != layout.MaxFilenameLength {
		panic("directory: nameFieldWidth inconsistent with layout.MaxFilenameLength")
	}
}

// slot is one fixed-width dirent, decoded into its two logical fields.
type slot struct {
	name string // empty means the slot is free
	id   int
}

// Directory holds every dirent in memory plus the set of currently-open file
// ids. It never changes layout.MaxFiles allocation; Add reuses the first
// free slot in index order, and that slot's index doubles as the file id
// used to index into the metatable.
type Directory struct {
	slots  [layout.MaxFiles]slot
	opened map[int]bool
}

// New returns an empty Directory, used when formatting a fresh container.
func New() *Directory {
	return &Directory{opened: make(map[int]bool)}
}

// Load reads the directory region from dev and decodes every slot.
func Load(dev device.BlockDevice) (*Directory, error) {
	raw := make([]byte, layout.DirectoryBlockCount*layout.BlockSize)
	for i := 0; i < layout.DirectoryBlockCount; i++ {
		buf := raw[i*layout.BlockSize : (i+1)*layout.BlockSize]
		if err := dev.ReadBlock(uint(layout.DirectoryStartBlock+i), buf); err != nil {
			return nil, blockfserrors.ErrIOFailed.Wrap(err)
		}
	}

	d := &Directory{opened: make(map[int]bool)}
	for id := 0; id < layout.MaxFiles; id++ {
		start := id * layout.DirentSize
		s, err := decodeSlot(raw[start : start+layout.DirentSize])
		if err != nil {
			return nil, blockfserrors.ErrIOFailed.WithMessage(
				fmt.Sprintf("decoding directory slot %d: %s", id, err))
		}
		d.slots[id] = s
	}
	return d, nil
}

// Flush writes every slot back to the directory region on dev. The size of
// the directory is never stored on disk; Count always recomputes it by
// scanning for non-empty names, so Flush only has to write what Load can
// parse back unambiguously.
func (d *Directory) Flush(dev device.BlockDevice) error {
	raw := make([]byte, layout.DirectoryBlockCount*layout.BlockSize)
	for id := 0; id < layout.MaxFiles; id++ {
		encoded, err := encodeSlot(d.slots[id])
		if err != nil {
			return blockfserrors.ErrIOFailed.WithMessage(
				fmt.Sprintf("encoding directory slot %d: %s", id, err))
		}
		copy(raw[id*layout.DirentSize:], encoded)
	}

	for i := 0; i < layout.DirectoryBlockCount; i++ {
		buf := raw[i*layout.BlockSize : (i+1)*layout.BlockSize]
		if err := dev.WriteBlock(uint(layout.DirectoryStartBlock+i), buf); err != nil {
			return blockfserrors.ErrIOFailed.Wrap(err)
		}
	}
	return nil
}

// Count returns the number of occupied slots.
func (d *Directory) Count() int {
	n := 0
	for _, s := range d.slots {
		if s.name != "" {
			n++
		}
	}
	return n
}

// Lookup returns the file id for name, if any.
func (d *Directory) Lookup(name string) (id int, ok bool) {
	for i, s := range d.slots {
		if s.name == name {
			return i, true
		}
	}
	return 0, false
}

// Exists reports whether name currently has a directory entry.
func (d *Directory) Exists(name string) bool {
	_, ok := d.Lookup(name)
	return ok
}

// Name returns the filename stored at id, if the slot is occupied.
func (d *Directory) Name(id int) (string, bool) {
	if id < 0 || id >= layout.MaxFiles {
		return "", false
	}
	if d.slots[id].name == "" {
		return "", false
	}
	return d.slots[id].name, true
}

// Add claims the first free slot for name and returns its id. It fails with
// ErrIllegalFilename for an empty or overlong name, ErrFileAlreadyExists if
// name is already present, and ErrOutOfSpace if every slot is occupied
// (spec.md §4.4/§8, "801st file").
func (d *Directory) Add(name string) (int, error) {
	if name == "" || len(name) > layout.MaxFilenameLength {
		return 0, blockfserrors.ErrIllegalFilename
	}
	if d.Exists(name) {
		return 0, blockfserrors.ErrFileAlreadyExists
	}

	for id := 0; id < layout.MaxFiles; id++ {
		if d.slots[id].name == "" {
			d.slots[id] = slot{name: name, id: id}
			return id, nil
		}
	}
	return 0, blockfserrors.ErrOutOfSpace
}

// Remove frees the slot at id. Callers are responsible for checking the
// file isn't open first (spec.md §4.4: deleting an open file is an error).
func (d *Directory) Remove(id int) error {
	if id < 0 || id >= layout.MaxFiles || d.slots[id].name == "" {
		return blockfserrors.ErrFileNotFound
	}
	d.slots[id] = slot{}
	return nil
}

// MarkOpen records id as open. It fails with ErrFileOpen if it's already
// open, mirroring original_source/filesystem.c's add_to_opened_files /
// is_opened pair.
func (d *Directory) MarkOpen(id int) error {
	if d.opened[id] {
		return blockfserrors.ErrFileOpen
	}
	d.opened[id] = true
	return nil
}

// MarkClosed clears id's open flag.
func (d *Directory) MarkClosed(id int) {
	delete(d.opened, id)
}

// IsOpen reports whether id is currently open.
func (d *Directory) IsOpen(id int) bool {
	return d.opened[id]
}

// OpenIDs returns every currently open file id, in no particular order.
func (d *Directory) OpenIDs() []int {
	ids := make([]int, 0, len(d.opened))
	for id := range d.opened {
		ids = append(ids, id)
	}
	return ids
}

// encodeSlot packs s into exactly layout.DirentSize bytes: the name,
// zero-padded, followed by a zero-padded ASCII decimal id field. A free slot
// (empty name) encodes as all zero bytes.
func encodeSlot(s slot) ([]byte, error) {
	buf := make([]byte, layout.DirentSize)
	if s.name == "" {
		return buf, nil
	}
	if len(s.name) > layout.MaxFilenameLength {
		return nil, blockfserrors.ErrIllegalFilename
	}
	copy(buf[:nameFieldWidth], s.name)

	idText := fmt.Sprintf("%0*d", idFieldWidth, s.id)
	if len(idText) != idFieldWidth {
		return nil, blockfserrors.ErrIOFailed.WithMessage(
			fmt.Sprintf("file id %d does not fit in a %d-digit field", s.id, idFieldWidth))
	}
	copy(buf[nameFieldWidth:], idText)
	return buf, nil
}

// decodeSlot is the inverse of encodeSlot.
func decodeSlot(buf []byte) (slot, error) {
	if len(buf) != layout.DirentSize {
		return slot{}, blockfserrors.ErrIOFailed.WithMessage("short directory slot buffer")
	}
	if buf[0] == 0 {
		return slot{}, nil
	}

	nameBytes := buf[:nameFieldWidth]
	name := string(nameBytes)
	if idx := strings.IndexByte(name, 0); idx >= 0 {
		name = name[:idx]
	}

	idText := strings.TrimSpace(string(buf[nameFieldWidth:]))
	id, err := strconv.Atoi(idText)
	if err != nil {
		return slot{}, blockfserrors.ErrIOFailed.Wrap(err)
	}

	return slot{name: name, id: id}, nil
}
