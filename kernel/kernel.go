package kernel

import (
	"runtime"

	"golang.org/x/sys/unix"

	"vklinux/kernel/hv"
)

// Kernel is the top-level handle a command-line entrypoint holds: the
// single process-global Process plus whatever bookkeeping Boot needs to
// start the first task. Everything else (syscall dispatch, signal
// delivery, clone) operates on *Process/*Task directly; Kernel exists
// only to give main() one thing to construct and hold onto.
type Kernel struct {
	Proc *Process
}

// Boot creates the process-global state rooted at root, mirroring
// original_source's init_vkernel: a fresh Process with no tasks yet.
// The caller still has to call NewInitialTask on the goroutine that will
// own the first VCPU.
func Boot(root string) *Kernel {
	return &Kernel{Proc: NewProcess(root)}
}

// NewInitialTask locks the calling goroutine to its OS thread (a Task's
// VCPU may only ever be driven from the thread that created it, per
// spec.md §4.8) and brings up the first VM/VCPU pair, with pid/ppid
// taken from the real host process since the first task IS the host
// process rather than something cloned into existence.
func (k *Kernel) NewInitialTask() *Task {
	runtime.LockOSThread()
	vmm := hv.Create()
	pid := int32(unix.Getpid())
	ppid := int32(unix.Getppid())
	return newTask(k.Proc, vmm, pid, pid, ppid)
}

// spawnTask starts run on a freshly locked OS thread, used by the
// thread-clone path in clone.go to give a new Task its own dedicated
// thread the way a real pthread_create does. The goroutine never
// returns the thread to the scheduler pool (see hostThreadExit) so the
// lock lasts for the task's entire lifetime.
func spawnTask(run func()) {
	go func() {
		runtime.LockOSThread()
		run()
	}()
}
