package kernel

import (
	"vklinux/kernel/hv"
	"vklinux/kernel/signal"
	"vklinux/kernel/syscalltab"
)

// shouldDeliver is spec.md §4.7's "should deliver" predicate: the signal
// is not 0 and is not currently blocked by the task's mask.
func shouldDeliver(mask signal.Set, sig int) bool {
	return sig != 0 && !mask.Has(sig)
}

// scanPending walks bits 1..32 of pending looking for the first one
// should Deliver accepts, mirroring get_procsig_to_deliver/
// get_tasksig_to_deliver's shared scan order.
func scanPending(pending signal.Set, mask signal.Set) int {
	for sig := 1; sig <= 32; sig++ {
		if pending.Has(sig) && shouldDeliver(mask, sig) {
			return sig
		}
	}
	return 0
}

// deliverPending runs spec.md §4.7's delivery path at the top of a main
// loop iteration, before the VCPU re-enters the guest: a process-scoped
// signal is tried first, then a task-scoped one, with the task-scoped
// pick using a compare-and-clear retry loop since the pending bit can be
// raced by an asynchronous host signal handler on another thread.
func deliverPending(t *Task) {
	proc := t.proc

	proc.mu.Lock()
	sig := scanPending(proc.pending.Snapshot(), t.sigMask)
	if sig != 0 {
		proc.pending.Clear(sig)
	}
	proc.mu.Unlock()

	if sig != 0 {
		deliverOne(t, sig)
		return
	}

	for {
		snap := t.pending.Snapshot()
		sig = scanPending(snap, t.sigMask)
		if sig == 0 {
			return
		}
		prev := t.pending.Clear(sig)
		if !prev.Has(sig) {
			// Raced with another clearer; the bit was already gone by
			// the time this retry observed it, so rescan.
			continue
		}
		break
	}
	deliverOne(t, sig)
}

// deliverOne builds the sigframe for sig and points the VCPU at the
// handler, re-marking the signal pending if frame construction faults,
// per spec.md §4.7.
func deliverOne(t *Task, sig int) {
	act := t.SigHand().Action(sig)
	oldmask := t.sigMask
	if err := signal.Deliver(t.VCPU(), t.Mem(), sig, act, oldmask); err != nil {
		t.pending.Set(sig)
		return
	}
	t.sigMask = oldmask.Add(sig) | act.Mask
}

// RaiseProcess marks sig pending at process scope, for signals every
// task should be eligible to handle (e.g. kill() targeting a pid),
// mirroring LINUX_SIGADDSET(&proc.sigpending, sig).
func (p *Process) RaiseProcess(sig int) { p.pending.Set(sig) }

// Raise marks sig pending on this specific task, mirroring
// sigbits_addbit(task.sigpending, sig): used both by tgkill-style
// targeted delivery and internally when the dispatcher synthesises a
// guest crash signal (SIGSEGV on #PF, SIGILL on a non-SYSCALL #UD,
// SIGSYS on an unknown syscall number).
func (t *Task) Raise(sig int) { t.pending.Set(sig) }

// RtSigreturn implements the rt_sigreturn syscall: it restores the
// architectural state setup_sigframe saved and the pre-signal mask, per
// spec.md §4.7 and open question (b).
func RtSigreturn(t *Task) int64 {
	oldmask, err := signal.Return(t.VCPU(), t.Mem())
	if err != nil {
		return -int64(syscalltab.EFAULT)
	}
	t.sigMask = oldmask
	// handleUD advances RIP by 2 past the trapping SYSCALL once this
	// returns; step back so the guest resumes exactly at the saved RIP.
	v := t.VCPU()
	v.WriteReg(hv.RegRIP, v.ReadReg(hv.RegRIP)-2)
	return int64(v.ReadReg(hv.RegRAX))
}
