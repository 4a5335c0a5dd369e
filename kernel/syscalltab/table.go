// Package syscalltab implements the fixed-arity Linux x86-64 syscall
// dispatch table: registration, errno translation, and the process-
// control handlers every guest program needs regardless of which
// filesystem/VFS layer is wired in above it.
package syscalltab

import (
	"vklinux/kernel/hv"
	"vklinux/kernel/mm"
	"vklinux/kernel/signal"
)

// NR is the number of slots in this table (syscall numbers 0 through
// NR-1 fit), matching
// original_source/include/noah.h's NR_SYSCALLS bound loosely (the Linux
// x86-64 table tops out a little above 450 as of recent kernels).
const NR = 512

// Context is the per-task view a syscall handler needs. kernel.Task
// implements it; syscalltab never imports the kernel package directly so
// that concrete file/VFS handlers registered from elsewhere can depend on
// syscalltab without pulling in the whole kernel package, mirroring the
// spec's "external collaborators register through this protocol" design.
type Context interface {
	VCPU() *hv.VCPU
	Mem() *mm.AddressSpace
	Pid() int32
	Tid() int32
	PPid() int32
	SetClearChildTID(addr uint64)
	SigHand() *signal.SigHand
	SigMask() signal.Set
	SetSigMask(signal.Set)
	Rlimit(resource int) (cur, max uint64)
	SetRlimit(resource int, cur, max uint64)
	Wait4(pid int32, options int) (childPid int32, status uint32, err error)
	Exit(status int32, group bool)
}

// HandlerFunc is the fixed six-argument shape every syscall handler
// takes, mirroring sc_handler_table's uniform signature in the source
// this is grounded on: every handler ignores the arguments it doesn't
// need rather than the table carrying per-entry arity metadata.
type HandlerFunc func(ctx Context, a0, a1, a2, a3, a4, a5 uint64) int64

type entry struct {
	name string
	fn   HandlerFunc
}

var table [NR]entry

// Register installs fn as the handler for syscall number nr under name.
// Called from init() in this package for the process-control handlers,
// and from any external package (a filesystem/VFS layer, say) that wants
// to extend the table without syscalltab needing to know about it ahead
// of time.
func Register(nr int, name string, fn HandlerFunc) {
	table[nr] = entry{name: name, fn: fn}
}

// Lookup returns the handler and tracer name registered for nr, or
// (nil, "", false) if nr is outside the implemented surface.
func Lookup(nr uint64) (HandlerFunc, string, bool) {
	if nr >= NR || table[nr].fn == nil {
		return nil, "", false
	}
	return table[nr].fn, table[nr].name, true
}

// Dispatch runs the syscall numbered nr with the given arguments,
// returning -ENOSYS if nr names no registered handler, per
// original_source/src/main.c's handle_syscall. The kernel's VM-exit
// dispatcher does not call Dispatch: it uses Lookup and raises SIGSYS
// for an unknown number.
func Dispatch(ctx Context, nr uint64, a0, a1, a2, a3, a4, a5 uint64) int64 {
	fn, _, ok := Lookup(nr)
	if !ok {
		return -int64(ENOSYS)
	}
	return fn(ctx, a0, a1, a2, a3, a4, a5)
}
