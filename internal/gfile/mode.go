package gfile

// Mode_t is the permission-bit portion of an on-disk inode's mode word
// (mode & 0x1FF), surfaced read-only so ls(1)-style tooling built on
// List can report permissions. The kernel enforces none of them.
type Mode_t uint16

// Standard POSIX permission bits within Mode_t.
const (
	ModeOwnerRead  Mode_t = 0o0400
	ModeOwnerWrite Mode_t = 0o0200
	ModeOwnerExec  Mode_t = 0o0100
	ModeGroupRead  Mode_t = 0o0040
	ModeGroupWrite Mode_t = 0o0020
	ModeGroupExec  Mode_t = 0o0010
	ModeOtherRead  Mode_t = 0o0004
	ModeOtherWrite Mode_t = 0o0002
	ModeOtherExec  Mode_t = 0o0001
)

// String renders the permission bits the way `ls -l` would, e.g.
// "rwxr-xr-x". It never reports the type character ext2 encodes
// alongside these bits; callers needing that prepend EntryType
// themselves.
func (m Mode_t) String() string {
	bits := [9]struct {
		mask Mode_t
		ch   byte
	}{
		{ModeOwnerRead, 'r'}, {ModeOwnerWrite, 'w'}, {ModeOwnerExec, 'x'},
		{ModeGroupRead, 'r'}, {ModeGroupWrite, 'w'}, {ModeGroupExec, 'x'},
		{ModeOtherRead, 'r'}, {ModeOtherWrite, 'w'}, {ModeOtherExec, 'x'},
	}
	out := make([]byte, 9)
	for i, b := range bits {
		if m&b.mask != 0 {
			out[i] = b.ch
		} else {
			out[i] = '-'
		}
	}
	return string(out)
}
