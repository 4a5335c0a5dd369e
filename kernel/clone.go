package kernel

import (
	"golang.org/x/sys/unix"

	"vklinux/kernel/hv"
	"vklinux/kernel/syscalltab"
)

// Linux clone(2) flag bits this kernel recognises, per
// original_source/include/noah.h's clone flag constants.
const (
	CloneVM            = 0x00000100
	CloneFS            = 0x00000200
	CloneFiles         = 0x00000400
	CloneSighand       = 0x00000800
	CloneVfork         = 0x00004000
	CloneParent        = 0x00008000
	CloneThread        = 0x00010000
	CloneSettls        = 0x00080000
	CloneParentSettid  = 0x00100000
	CloneChildCleartid = 0x00200000
	CloneChildSettid   = 0x01000000
)

// Clone implements clone(2)'s two distinct paths per spec.md §4.8: a real
// host-level fork() for a process clone (the common CLONE_VM and
// CLONE_THREAD unset case), and an in-process goroutine carrying a fresh
// VCPU that shares the caller's address space for a thread clone
// (CLONE_VM|CLONE_THREAD both set). Any other combination of those two
// flags is rejected, mirroring original_source's validation that a
// caller never asks for shared memory without shared threading or
// vice versa. A flag bit outside the set below (the recognised flags,
// CLONE_SYSVSEM, and the exit-signal low byte) is rejected with -EINVAL.
func Clone(t *Task, flags, newSP, parentTID, childTID, tls uint64) int64 {
	const (
		cloneSysvsem = 0x00040000
		cloneSignal  = 0x000000ff
		cloneKnown   = CloneVM | CloneFS | CloneFiles | CloneSighand | CloneVfork | CloneParent |
			CloneThread | cloneSysvsem | CloneSettls | CloneParentSettid | CloneChildCleartid |
			CloneChildSettid | cloneSignal
	)
	if flags&^cloneKnown != 0 {
		return -int64(syscalltab.EINVAL)
	}

	vm := flags&CloneVM != 0
	thread := flags&CloneThread != 0

	switch {
	case vm && thread:
		return cloneThread(t, newSP, childTID, tls, flags)
	case !vm && !thread:
		return cloneProcess(t, parentTID, childTID, flags)
	default:
		return -int64(syscalltab.EINVAL)
	}
}

// cloneProcess implements the process-fork path: snapshot the VCPU,
// tear down the VM (Hypervisor.framework permits only one live VM per
// host process), fork the host process itself, then have both halves
// recreate their VM from the snapshot, per original_source's
// vmm_snapshot/fork/vmm_restore sequence in src/syscall/fork.c.
func cloneProcess(t *Task, parentTID, childTID, flags uint64) int64 {
	if t.proc.taskCount() > 1 {
		// A multi-threaded process forking would need every other
		// thread suspended before the real fork(); not supported.
		return -int64(syscalltab.ENOSYS)
	}

	snap := t.VCPU().Capture()
	space := t.Mem()
	t.vmm.Destroy()

	pid, _, errno := unix.RawSyscall(unix.SYS_FORK, 0, 0, 0)
	if errno != 0 {
		t.vmm = hv.Reentry(snap, space)
		return syscalltab.Syswrap(0, errno)
	}

	if pid == 0 {
		// Child: fresh pid, parent's old pid becomes ppid, one task.
		t.vmm = hv.Reentry(snap, space)
		t.vmm.VCPU.WriteReg(hv.RegRAX, 0)
		t.ppid = t.pid
		t.pid = int32(unix.Getpid())
		t.tid = t.pid
		if flags&CloneChildSettid != 0 && childTID != 0 {
			var buf [4]byte
			putLE32(buf[:], uint32(t.tid))
			_ = t.Mem().CopyToUser(childTID, buf[:], 4)
		}
		return 0
	}

	// Parent.
	t.vmm = hv.Reentry(snap, space)
	if flags&CloneParentSettid != 0 && parentTID != 0 {
		var buf [4]byte
		putLE32(buf[:], uint32(pid))
		_ = t.Mem().CopyToUser(parentTID, buf[:], 4)
	}
	return int64(pid)
}

// cloneThread implements the shared-memory thread-clone path: the new
// task gets its own VCPU (a VM can only be driven by the thread that
// owns it) seeded from a snapshot of the caller's registers, with RSP
// and TLS overridden the way a pthread's initial stack/TLS setup would
// be, then runs on a freshly locked OS thread. original_source's
// equivalent spawns a pthread running the same vcpu_loop the parent
// thread runs.
func cloneThread(t *Task, newSP, childTID, tls uint64, flags uint64) int64 {
	snap := t.VCPU().Capture()
	vmm := hv.CloneVCPU(snap, t.Mem(), t.vmm.KernBrk())
	vmm.VCPU.WriteReg(hv.RegRAX, 0)
	if newSP != 0 {
		vmm.VCPU.WriteReg(hv.RegRSP, newSP)
	}
	if flags&CloneSettls != 0 {
		vmm.VCPU.WriteMSR(hv.MSRFSBase, tls)
	}

	tid := t.proc.nextThreadTID()
	child := newTask(t.proc, vmm, t.pid, tid, t.ppid)
	child.sigMask = t.sigMask

	if flags&CloneChildCleartid != 0 {
		child.clearChildTID = childTID
	}
	if flags&CloneChildSettid != 0 && childTID != 0 {
		var buf [4]byte
		putLE32(buf[:], uint32(tid))
		_ = child.Mem().CopyToUser(childTID, buf[:], 4)
	}

	spawnTask(func() {
		Run(child)
	})

	return int64(tid)
}

func putLE32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}
