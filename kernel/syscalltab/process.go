package syscalltab

import (
	"golang.org/x/sys/unix"

	"vklinux/kernel/hv"
)

// Linux x86-64 syscall numbers this file registers handlers for, per
// original_source/src/proc/process.c.
const (
	nrGetpid           = 39
	nrExit             = 60
	nrWait4            = 61
	nrUname            = 63
	nrGetuid           = 102
	nrGetgid           = 104
	nrSetuid           = 105
	nrSetgid           = 106
	nrGeteuid          = 107
	nrGetegid          = 108
	nrSetpgid          = 109
	nrGetppid          = 110
	nrGetpgrp          = 111
	nrSetsid           = 112
	nrGetgroups        = 115
	nrSetgroups        = 116
	nrSetresuid        = 117
	nrGetresuid        = 118
	nrSetresgid        = 119
	nrGetresgid        = 120
	nrGetpgid          = 121
	nrGetsid           = 124
	nrCapget           = 125
	nrGetpriority      = 140
	nrSetpriority      = 141
	nrSchedGetaffinity = 204
	nrArchPrctl        = 158
	nrSetTidAddress    = 218
	nrExitGroup        = 231
	nrSetRobustList    = 273
	nrGetrlimit        = 97
	nrSetrlimit        = 160
	nrGetrusage        = 98
	nrGettid           = 186
)

func init() {
	Register(nrGetpid, "getpid", scGetpid)
	Register(nrGettid, "gettid", scGettid)
	Register(nrGetppid, "getppid", scGetppid)
	Register(nrGetuid, "getuid", scGetuid)
	Register(nrGeteuid, "geteuid", scGeteuid)
	Register(nrGetgid, "getgid", scGetgid)
	Register(nrGetegid, "getegid", scGetegid)
	Register(nrSetuid, "setuid", scSetuid)
	Register(nrSetgid, "setgid", scSetgid)
	Register(nrSetpgid, "setpgid", scSetpgid)
	Register(nrGetpgrp, "getpgrp", scGetpgrp)
	Register(nrGetpgid, "getpgid", scGetpgid)
	Register(nrGetsid, "getsid", scGetsid)
	Register(nrSetsid, "setsid", scSetsid)
	Register(nrGetgroups, "getgroups", scGetgroups)
	Register(nrSetgroups, "setgroups", scSetgroups)
	Register(nrSetresuid, "setresuid", scSetresuid)
	Register(nrGetresuid, "getresuid", scGetresuid)
	Register(nrSetresgid, "setresgid", scSetresgid)
	Register(nrGetresgid, "getresgid", scGetresgid)
	Register(nrGetrlimit, "getrlimit", scGetrlimit)
	Register(nrSetrlimit, "setrlimit", scSetrlimit)
	Register(nrGetrusage, "getrusage", scGetrusage)
	Register(nrGetpriority, "getpriority", scGetpriority)
	Register(nrSetpriority, "setpriority", scSetpriority)
	Register(nrSchedGetaffinity, "sched_getaffinity", scSchedGetaffinity)
	Register(nrExit, "exit", scExit)
	Register(nrExitGroup, "exit_group", scExitGroup)
	Register(nrWait4, "wait4", scWait4)
	Register(nrCapget, "capget", scCapget)
	Register(nrUname, "uname", scUname)
	Register(nrArchPrctl, "arch_prctl", scArchPrctl)
	Register(nrSetTidAddress, "set_tid_address", scSetTidAddress)
	Register(nrSetRobustList, "set_robust_list", scSetRobustList)
}

// scGetpid, scGettid, scGetppid report the identity values a Task
// already carries; no host syscall is needed since clone()/fork()
// stamp these in at task-creation time rather than having every caller
// re-query the host, per original_source's proc.pid/proc.tid fields.
func scGetpid(ctx Context, a0, a1, a2, a3, a4, a5 uint64) int64  { return int64(ctx.Pid()) }
func scGettid(ctx Context, a0, a1, a2, a3, a4, a5 uint64) int64  { return int64(ctx.Tid()) }
func scGetppid(ctx Context, a0, a1, a2, a3, a4, a5 uint64) int64 { return int64(ctx.PPid()) }

// The credential syscalls below pass straight through to the host: this
// kernel never models a separate guest/host UID space, mirroring
// original_source's proc_getuid family of one-line passthroughs.
func scGetuid(ctx Context, a0, a1, a2, a3, a4, a5 uint64) int64  { return int64(unix.Getuid()) }
func scGeteuid(ctx Context, a0, a1, a2, a3, a4, a5 uint64) int64 { return int64(unix.Geteuid()) }
func scGetgid(ctx Context, a0, a1, a2, a3, a4, a5 uint64) int64  { return int64(unix.Getgid()) }
func scGetegid(ctx Context, a0, a1, a2, a3, a4, a5 uint64) int64 { return int64(unix.Getegid()) }

func scSetuid(ctx Context, a0, a1, a2, a3, a4, a5 uint64) int64 {
	return Syswrap(0, unix.Setuid(int(int32(a0))))
}

func scSetgid(ctx Context, a0, a1, a2, a3, a4, a5 uint64) int64 {
	return Syswrap(0, unix.Setgid(int(int32(a0))))
}

func scSetpgid(ctx Context, a0, a1, a2, a3, a4, a5 uint64) int64 {
	return Syswrap(0, unix.Setpgid(int(int32(a0)), int(int32(a1))))
}

func scGetpgrp(ctx Context, a0, a1, a2, a3, a4, a5 uint64) int64 {
	pgid, err := unix.Getpgid(0)
	return Syswrap(int64(pgid), err)
}

func scGetpgid(ctx Context, a0, a1, a2, a3, a4, a5 uint64) int64 {
	pgid, err := unix.Getpgid(int(int32(a0)))
	return Syswrap(int64(pgid), err)
}

func scGetsid(ctx Context, a0, a1, a2, a3, a4, a5 uint64) int64 {
	sid, err := unix.Getsid(int(int32(a0)))
	return Syswrap(int64(sid), err)
}

func scSetsid(ctx Context, a0, a1, a2, a3, a4, a5 uint64) int64 {
	sid, err := unix.Setsid()
	return Syswrap(int64(sid), err)
}

// scGetgroups/scSetgroups copy a Linux gid_t[] from/to guest memory; a
// count of 0 with a non-null buffer still needs the real group count
// back, matching getgroups(2)'s "probe" calling convention.
func scGetgroups(ctx Context, a0, a1, a2, a3, a4, a5 uint64) int64 {
	groups, err := unix.Getgroups()
	if err != nil {
		return Syswrap(0, err)
	}
	if a0 == 0 {
		return int64(len(groups))
	}
	if int(a0) < len(groups) {
		return -EINVAL
	}
	buf := make([]byte, len(groups)*4)
	for i, g := range groups {
		putU32(buf[i*4:], uint32(g))
	}
	if err := ctx.Mem().CopyToUser(a1, buf, len(buf)); err != nil {
		return -EFAULT
	}
	return int64(len(groups))
}

func scSetgroups(ctx Context, a0, a1, a2, a3, a4, a5 uint64) int64 {
	n := int(a0)
	if n == 0 {
		return Syswrap(0, unix.Setgroups(nil))
	}
	buf := make([]byte, n*4)
	if err := ctx.Mem().CopyFromUser(buf, a1, len(buf)); err != nil {
		return -EFAULT
	}
	groups := make([]int, n)
	for i := range groups {
		groups[i] = int(getU32(buf[i*4:]))
	}
	return Syswrap(0, unix.Setgroups(groups))
}

func scSetresuid(ctx Context, a0, a1, a2, a3, a4, a5 uint64) int64 {
	return Syswrap(0, unix.Setreuid(int(int32(a0)), int(int32(a1))))
}

func scGetresuid(ctx Context, a0, a1, a2, a3, a4, a5 uint64) int64 {
	ruid, euid := unix.Getuid(), unix.Geteuid()
	if err := putUID(ctx, a0, ruid); err != nil {
		return -EFAULT
	}
	if err := putUID(ctx, a1, euid); err != nil {
		return -EFAULT
	}
	if err := putUID(ctx, a2, euid); err != nil {
		return -EFAULT
	}
	return 0
}

func scSetresgid(ctx Context, a0, a1, a2, a3, a4, a5 uint64) int64 {
	return Syswrap(0, unix.Setregid(int(int32(a0)), int(int32(a1))))
}

func scGetresgid(ctx Context, a0, a1, a2, a3, a4, a5 uint64) int64 {
	rgid, egid := unix.Getgid(), unix.Getegid()
	if err := putUID(ctx, a0, rgid); err != nil {
		return -EFAULT
	}
	if err := putUID(ctx, a1, egid); err != nil {
		return -EFAULT
	}
	if err := putUID(ctx, a2, egid); err != nil {
		return -EFAULT
	}
	return 0
}

func putUID(ctx Context, addr uint64, v int) error {
	if addr == 0 {
		return nil
	}
	var buf [4]byte
	putU32(buf[:], uint32(v))
	return ctx.Mem().CopyToUser(addr, buf[:], 4)
}

func putU32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}

func getU32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

// Linux rlimit resource numbers, matching the kernel package's own copy
// in rlimit.go that Task.Rlimit translates to host resource numbers.
const (
	rlimitStack = 3
	rlimitAs    = 9
)

func scGetrlimit(ctx Context, a0, a1, a2, a3, a4, a5 uint64) int64 {
	cur, max := ctx.Rlimit(int(a0))
	var buf [16]byte
	putU64(buf[0:8], cur)
	putU64(buf[8:16], max)
	if err := ctx.Mem().CopyToUser(a1, buf[:], 16); err != nil {
		return -EFAULT
	}
	return 0
}

func scSetrlimit(ctx Context, a0, a1, a2, a3, a4, a5 uint64) int64 {
	var buf [16]byte
	if err := ctx.Mem().CopyFromUser(buf[:], a1, 16); err != nil {
		return -EFAULT
	}
	ctx.SetRlimit(int(a0), getU64(buf[0:8]), getU64(buf[8:16]))
	return 0
}

func putU64(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
}

func getU64(b []byte) uint64 {
	var v uint64
	for i := 0; i < 8; i++ {
		v |= uint64(b[i]) << (8 * i)
	}
	return v
}

// scGetrusage reports zeroed resource usage: this kernel doesn't track
// per-task CPU/memory accounting, mirroring original_source's stubbed
// getrusage that zero-fills struct rusage rather than failing the call.
func scGetrusage(ctx Context, a0, a1, a2, a3, a4, a5 uint64) int64 {
	var zero [144]byte
	if err := ctx.Mem().CopyToUser(a1, zero[:], len(zero)); err != nil {
		return -EFAULT
	}
	return 0
}

func scGetpriority(ctx Context, a0, a1, a2, a3, a4, a5 uint64) int64 {
	pri, err := unix.Getpriority(int(a0), int(a1))
	// Linux returns 20-pri (niceness shifted into [1,40]); darwin's
	// getpriority already returns the nice value directly.
	return Syswrap(int64(20-pri), err)
}

func scSetpriority(ctx Context, a0, a1, a2, a3, a4, a5 uint64) int64 {
	return Syswrap(0, unix.Setpriority(int(a0), int(a1), int(int32(a2))))
}

// scSchedGetaffinity reports a single-CPU mask: this kernel runs every
// task on whatever OS thread Go schedules it to and never models guest
// CPU affinity beyond "one logical CPU exists".
func scSchedGetaffinity(ctx Context, a0, a1, a2, a3, a4, a5 uint64) int64 {
	if a2 == 0 {
		return -EINVAL
	}
	buf := make([]byte, a2)
	buf[0] = 0x01
	if err := ctx.Mem().CopyToUser(a1, buf, len(buf)); err != nil {
		return -EFAULT
	}
	return 8
}

func scExit(ctx Context, a0, a1, a2, a3, a4, a5 uint64) int64 {
	ctx.Exit(int32(a0), false)
	return 0
}

func scExitGroup(ctx Context, a0, a1, a2, a3, a4, a5 uint64) int64 {
	ctx.Exit(int32(a0), true)
	return 0
}

func scWait4(ctx Context, a0, a1, a2, a3, a4, a5 uint64) int64 {
	pid, status, err := ctx.Wait4(int32(int(a0)), int(a2))
	if err != nil {
		return Syswrap(0, err)
	}
	if a1 != 0 {
		var buf [4]byte
		putU32(buf[:], status)
		if err := ctx.Mem().CopyToUser(a1, buf[:], 4); err != nil {
			return -EFAULT
		}
	}
	return int64(pid)
}

// scCapget reports an empty capability set: this kernel never denies a
// syscall on capability grounds, so every bit comes back zero rather
// than the handler failing outright.
func scCapget(ctx Context, a0, a1, a2, a3, a4, a5 uint64) int64 {
	if a1 == 0 {
		return 0
	}
	var zero [8]byte
	if err := ctx.Mem().CopyToUser(a1, zero[:], len(zero)); err != nil {
		return -EFAULT
	}
	return 0
}

// scUname fills the Linux-shaped struct utsname (6 fields, 65 bytes
// each) the guest expects. Release/version are fixed strings since
// nothing downstream inspects them closely, mirroring original_source's
// static utsname bring-up, but nodename is the real host hostname via
// unix.Gethostname, matching original_source/src/proc/process.c's
// gethostname() call rather than a hardcoded name.
func scUname(ctx Context, a0, a1, a2, a3, a4, a5 uint64) int64 {
	const fieldLen = 65
	nodename, err := unix.Gethostname()
	if err != nil {
		nodename = "vklinux"
	}
	fields := []string{"Linux", nodename, "4.6.4", "#1 SMP", "x86_64", ""}
	buf := make([]byte, fieldLen*6)
	for i, f := range fields {
		copy(buf[i*fieldLen:], f)
	}
	if err := ctx.Mem().CopyToUser(a0, buf, len(buf)); err != nil {
		return -EFAULT
	}
	return 0
}

// arch_prctl subfunctions, per the x86-64 ABI.
const (
	archSetFS = 0x1002
	archGetFS = 0x1003
	archSetGS = 0x1001
	archGetGS = 0x1004
)

// scArchPrctl installs or reads the FS/GS base MSR directly, used to
// implement thread-local storage for the guest's libc/pthread runtime.
func scArchPrctl(ctx Context, a0, a1, a2, a3, a4, a5 uint64) int64 {
	v := ctx.VCPU()
	switch a0 {
	case archSetFS:
		v.WriteMSR(hv.MSRFSBase, a1)
	case archSetGS:
		v.WriteMSR(hv.MSRGSBase, a1)
	case archGetFS, archGetGS:
		msr := uint32(hv.MSRFSBase)
		if a0 == archGetGS {
			msr = hv.MSRGSBase
		}
		val := v.ReadMSR(msr)
		var buf [8]byte
		putU64(buf[:], val)
		if err := ctx.Mem().CopyToUser(a1, buf[:], 8); err != nil {
			return -EFAULT
		}
	default:
		return -EINVAL
	}
	return 0
}

// scSetTidAddress installs CLEAR_CHILD_TID and returns the caller's
// tid, matching set_tid_address(2)'s contract.
func scSetTidAddress(ctx Context, a0, a1, a2, a3, a4, a5 uint64) int64 {
	ctx.SetClearChildTID(a0)
	return int64(ctx.Tid())
}

// scSetRobustList is accepted and ignored: no syscall in this table
// ever returns through a robust-futex unwind path, so there is nothing
// for the kernel to do with the list head it's handed.
func scSetRobustList(ctx Context, a0, a1, a2, a3, a4, a5 uint64) int64 {
	return 0
}
