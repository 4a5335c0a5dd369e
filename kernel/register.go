package kernel

import (
	"vklinux/kernel/signal"
	"vklinux/kernel/syscalltab"
)

// Linux x86-64 syscall numbers registered here rather than in
// syscalltab/process.go: each needs something beyond the Context
// interface (a concrete *Task for its VCPU/mask state, or the ability
// to reach another task in the same process), so they live in package
// kernel where that's available.
const (
	nrRtSigaction   = 13
	nrRtSigprocmask = 14
	nrRtSigreturn   = 15
	nrClone         = 56
	nrFork          = 57
	nrVfork         = 58
	nrKill          = 62
	nrRtSigpending  = 127
	nrSigaltstack   = 131
	nrTgkill        = 234
)

func init() {
	syscalltab.Register(nrClone, "clone", scClone)
	syscalltab.Register(nrFork, "fork", scFork)
	syscalltab.Register(nrVfork, "vfork", scFork)
	syscalltab.Register(nrRtSigaction, "rt_sigaction", scRtSigaction)
	syscalltab.Register(nrRtSigprocmask, "rt_sigprocmask", scRtSigprocmask)
	syscalltab.Register(nrRtSigreturn, "rt_sigreturn", scRtSigreturn)
	syscalltab.Register(nrRtSigpending, "rt_sigpending", scRtSigpending)
	syscalltab.Register(nrSigaltstack, "sigaltstack", scSigaltstack)
	syscalltab.Register(nrKill, "kill", scKill)
	syscalltab.Register(nrTgkill, "tgkill", scTgkill)
}

func asTask(ctx syscalltab.Context) *Task {
	t, ok := ctx.(*Task)
	if !ok {
		panic("kernel: syscall handler invoked with a non-*Task Context")
	}
	return t
}

func scClone(ctx syscalltab.Context, a0, a1, a2, a3, a4, a5 uint64) int64 {
	return Clone(asTask(ctx), a0, a1, a2, a3, a4)
}

// scFork handles both fork(2) and vfork(2) as a plain process clone
// with no flags, mirroring original_source's treatment of vfork as
// fork without the copy-on-write-avoidance optimisation Linux gives it.
func scFork(ctx syscalltab.Context, a0, a1, a2, a3, a4, a5 uint64) int64 {
	return Clone(asTask(ctx), 0, 0, 0, 0, 0)
}

// scRtSigaction installs a new disposition for sig, refusing
// SIGKILL/SIGSTOP per signal(7), and hands back the previous one when
// the caller asked for it.
func scRtSigaction(ctx syscalltab.Context, a0, a1, a2, a3, a4, a5 uint64) int64 {
	t := asTask(ctx)
	sig := int(a0)
	if sig == signal.SigKill || sig == signal.SigStop {
		return -int64(syscalltab.EINVAL)
	}

	var old signal.Action
	if a1 != 0 {
		var buf [32]byte
		if err := t.Mem().CopyFromUser(buf[:], a1, len(buf)); err != nil {
			return -int64(syscalltab.EFAULT)
		}
		act := signal.Action{
			Handler:  getU64(buf[0:8]),
			Flags:    getU64(buf[8:16]),
			Restorer: getU64(buf[16:24]),
			Mask:     signal.Set(getU64(buf[24:32])),
		}
		old = t.SigHand().SetAction(sig, act)
	} else {
		old = t.SigHand().Action(sig)
	}

	if a2 != 0 {
		var buf [32]byte
		putU64(buf[0:8], old.Handler)
		putU64(buf[8:16], old.Flags)
		putU64(buf[16:24], old.Restorer)
		putU64(buf[24:32], uint64(old.Mask))
		if err := t.Mem().CopyToUser(a2, buf[:], len(buf)); err != nil {
			return -int64(syscalltab.EFAULT)
		}
	}
	return 0
}

// Linux rt_sigprocmask's "how" argument.
const (
	sigBlock   = 0
	sigUnblock = 1
	sigSetmask = 2
)

func scRtSigprocmask(ctx syscalltab.Context, a0, a1, a2, a3, a4, a5 uint64) int64 {
	t := asTask(ctx)
	old := t.SigMask()

	if a1 != 0 {
		var buf [8]byte
		if err := t.Mem().CopyFromUser(buf[:], a1, 8); err != nil {
			return -int64(syscalltab.EFAULT)
		}
		set := signal.Set(getU64(buf[:]))
		switch a0 {
		case sigBlock:
			t.SetSigMask(signal.Set(uint64(old) | uint64(set)))
		case sigUnblock:
			t.SetSigMask(signal.Set(uint64(old) &^ uint64(set)))
		case sigSetmask:
			t.SetSigMask(set)
		default:
			return -int64(syscalltab.EINVAL)
		}
	}

	if a2 != 0 {
		var buf [8]byte
		putU64(buf[:], uint64(old))
		if err := t.Mem().CopyToUser(a2, buf[:], 8); err != nil {
			return -int64(syscalltab.EFAULT)
		}
	}
	return 0
}

func scRtSigreturn(ctx syscalltab.Context, a0, a1, a2, a3, a4, a5 uint64) int64 {
	return RtSigreturn(asTask(ctx))
}

// scRtSigpending reports the union of this task's and its process's
// pending sets, masked to what's actually blocked (an unblocked signal
// is delivered before the guest ever observes it as pending).
func scRtSigpending(ctx syscalltab.Context, a0, a1, a2, a3, a4, a5 uint64) int64 {
	t := asTask(ctx)
	pending := uint64(t.pending.Snapshot()) | uint64(t.proc.pending.Snapshot())
	pending &= uint64(t.sigMask)
	var buf [8]byte
	putU64(buf[:], pending)
	if err := t.Mem().CopyToUser(a0, buf[:], 8); err != nil {
		return -int64(syscalltab.EFAULT)
	}
	return 0
}

// scSigaltstack is accepted and otherwise ignored: no signal handler
// this kernel delivers to ever runs on an alternate stack, since
// sigframe construction always pushes onto the guest's current RSP.
func scSigaltstack(ctx syscalltab.Context, a0, a1, a2, a3, a4, a5 uint64) int64 {
	if a1 != 0 {
		var zero [24]byte
		if err := asTask(ctx).Mem().CopyToUser(a1, zero[:], len(zero)); err != nil {
			return -int64(syscalltab.EFAULT)
		}
	}
	return 0
}

// scKill raises sig against every task in a process matching pid: a
// positive pid targets exactly that process (this kernel runs one
// process per host process, so it's always the caller's own), and
// pid==0 targets the caller's own process group, which here is just
// the caller's process.
func scKill(ctx syscalltab.Context, a0, a1, a2, a3, a4, a5 uint64) int64 {
	t := asTask(ctx)
	sig := int(int32(a1))
	if sig == 0 {
		return 0
	}
	t.proc.RaiseProcess(sig)
	return 0
}

// scTgkill raises sig against the specific task named by tid within
// the process named by tgid, failing ESRCH if no live task has that
// tid, mirroring tgkill(2)'s narrower targeting than kill(2).
func scTgkill(ctx syscalltab.Context, a0, a1, a2, a3, a4, a5 uint64) int64 {
	t := asTask(ctx)
	tgid := int32(a0)
	tid := int32(a1)
	sig := int(int32(a2))

	if tgid != t.pid {
		return -int64(syscalltab.ESRCH)
	}

	t.proc.mu.RLock()
	var target *Task
	for _, o := range t.proc.tasks {
		if o.tid == tid {
			target = o
			break
		}
	}
	t.proc.mu.RUnlock()

	if target == nil {
		return -int64(syscalltab.ESRCH)
	}
	if sig != 0 {
		target.Raise(sig)
	}
	return 0
}
