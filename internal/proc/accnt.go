package proc

import "time"

// Accnt_t accumulates per-process user/system time. One hart, a
// cooperative non-preemptive scheduler: Utadd/Systadd need no
// locking. The dispatch loop charges the slice between resume and
// trap entry as user time and Finish charges trap servicing as system
// time; exit merges a dead child's record into its parent.
type Accnt_t struct {
	// Userns is nanoseconds of user time consumed.
	Userns int64
	// Sysns is nanoseconds of system time consumed.
	Sysns int64
}

// Utadd adds delta nanoseconds to the user-time counter.
func (a *Accnt_t) Utadd(delta int64) {
	a.Userns += delta
}

// Systadd adds delta nanoseconds to the system-time counter.
func (a *Accnt_t) Systadd(delta int64) {
	a.Sysns += delta
}

// Now returns the current time in nanoseconds.
func (a *Accnt_t) Now() int64 {
	return time.Now().UnixNano()
}

// Finish charges the time elapsed since inttime (a Now timestamp taken
// at trap entry) as system time.
func (a *Accnt_t) Finish(inttime int64) {
	a.Systadd(a.Now() - inttime)
}

// Add merges another accounting record into this one.
func (a *Accnt_t) Add(n *Accnt_t) {
	a.Userns += n.Userns
	a.Sysns += n.Sysns
}
