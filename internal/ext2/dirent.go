package ext2

import (
	"encoding/binary"

	"owos-riscv/internal/gfile"
)

// dirEntry is one variable-length directory record: a fixed 8-byte
// header (inode, rec_len, name_len, file_type) followed by name_len
// bytes of name, padded by rec_len to the next 4-byte boundary.
type dirEntry struct {
	Inode   uint32
	RecLen  uint16
	NameLen uint8
	Type    uint8
	Name    string
}

const dirEntryHeaderSize = 8

// parseDirEntries decodes every directory record packed into one
// filesystem block. A zero inode marks a deleted entry, per ext2
// convention, and is skipped rather than surfaced.
func parseDirEntries(block []byte) []dirEntry {
	var out []dirEntry
	le := binary.LittleEndian
	off := 0
	for off+dirEntryHeaderSize <= len(block) {
		recLen := le.Uint16(block[off+4:])
		if recLen < dirEntryHeaderSize {
			break // corrupt record; stop rather than loop forever
		}
		inode := le.Uint32(block[off:])
		nameLen := block[off+6]
		ftype := block[off+7]
		if inode != 0 && int(off+dirEntryHeaderSize+int(nameLen)) <= len(block) {
			name := string(block[off+dirEntryHeaderSize : off+dirEntryHeaderSize+int(nameLen)])
			out = append(out, dirEntry{Inode: inode, RecLen: recLen, NameLen: nameLen, Type: ftype, Name: name})
		}
		off += int(recLen)
	}
	return out
}

// entryTypeFromDirentType maps the directory record's file_type byte
// (when the filesystem feature is enabled) onto the gfile vtable
// classification. file_type can be unreliable (0, "unknown"); callers
// that need an authoritative type should prefer Inode.EntryType.
func entryTypeFromDirentType(t uint8) gfile.EntryType {
	switch t {
	case 1:
		return gfile.EntryFile
	case 2:
		return gfile.EntryDir
	case 7:
		return gfile.EntrySymlink
	default:
		return gfile.EntryUnknown
	}
}

// lookupInDirBlock scans one directory block for name, returning the
// matching entry's inode number. The comparison is byte-exact and
// case-sensitive.
func lookupInDirBlock(block []byte, name string) (uint32, bool) {
	for _, e := range parseDirEntries(block) {
		if e.Name == name {
			return e.Inode, true
		}
	}
	return 0, false
}
