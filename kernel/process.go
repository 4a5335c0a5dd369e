// Package kernel wires the shadow address space, VCPU controller, syscall
// table, and signal subsystem together into the process/task lifecycle
// spec.md §3/§4.8 describes: a single process-global Process value and one
// Task per host thread, threaded explicitly through every handler rather
// than recovered from implicit thread-local storage (Go has no portable
// TLS primitive; spec.md §9's "Design notes" explicitly sanctions a
// top-level value threaded through every handler as the strategy for the
// source's global mutable state).
package kernel

import (
	"sync"
	"sync/atomic"

	"vklinux/kernel/hv"
	"vklinux/kernel/mm"
	"vklinux/kernel/signal"
)

// Process is the process-global singleton of spec.md §3: a reference
// count of tasks (len(tasks)), the task list itself, a reader/writer
// lock, the shared signal-disposition table, the process-wide pending
// set, and the filesystem root path concrete VFS handlers consume.
type Process struct {
	mu    sync.RWMutex
	tasks []*Task

	nextTID int32 // bump-allocated for thread-clone tids; process-fork tids come from the real host pid

	root    string
	sigHand *signal.SigHand
	pending signal.PendingBits

	futex futexTable
}

// NewProcess returns a process rooted at root with no tasks yet.
func NewProcess(root string) *Process {
	return &Process{root: root, sigHand: signal.NewSigHand()}
}

// Root returns the chroot-style mount root concrete file/VFS handlers
// resolve paths against.
func (p *Process) Root() string { return p.root }

// addTask appends t to the task list under the writer lock.
func (p *Process) addTask(t *Task) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tasks = append(p.tasks, t)
}

// removeTask unlinks t from the task list under the writer lock.
func (p *Process) removeTask(t *Task) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, o := range p.tasks {
		if o == t {
			p.tasks = append(p.tasks[:i], p.tasks[i+1:]...)
			return
		}
	}
}

// taskCount reports the number of live tasks under the reader lock.
func (p *Process) taskCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.tasks)
}

func (p *Process) nextThreadTID() int32 {
	return atomic.AddInt32(&p.nextTID, 1)
}

// Task is the per-host-thread execution context of spec.md §3/§4.8: the
// VCPU and memory manager it drives, its identity, its signal mask and
// pending bitmap, and the clone-installed TID bookkeeping. Exactly one
// Task exists per live host thread/goroutine pair; it is created on
// thread entry and discarded at thread exit, and is passed explicitly to
// every syscall handler and dispatcher call rather than recovered from
// thread-local storage.
type Task struct {
	proc *Process
	vmm  *hv.VMM

	pid  int32
	tid  int32
	ppid int32

	sigMask signal.Set
	pending signal.PendingBits

	setChildTID   uint64
	clearChildTID uint64
}

// newTask constructs a Task bound to vmm and registers it with proc.
func newTask(proc *Process, vmm *hv.VMM, pid, tid, ppid int32) *Task {
	t := &Task{proc: proc, vmm: vmm, pid: pid, tid: tid, ppid: ppid}
	proc.addTask(t)
	return t
}

func (t *Task) VMM() *hv.VMM           { return t.vmm }
func (t *Task) VCPU() *hv.VCPU         { return t.vmm.VCPU }
func (t *Task) Mem() *mm.AddressSpace  { return t.vmm.Space }
func (t *Task) Pid() int32             { return t.pid }
func (t *Task) Tid() int32             { return t.tid }
func (t *Task) PPid() int32            { return t.ppid }
func (t *Task) Process() *Process      { return t.proc }
func (t *Task) SigHand() *signal.SigHand { return t.proc.sigHand }
func (t *Task) SigMask() signal.Set      { return t.sigMask }
func (t *Task) SetSigMask(s signal.Set)  { t.sigMask = s }

// SetClearChildTID installs the CLEAR_CHILD_TID address clone() or
// set_tid_address() names: Exit zeroes this address and futex-wakes one
// waiter when the task exits, per spec.md §4.8.
func (t *Task) SetClearChildTID(addr uint64) { t.clearChildTID = addr }

// Exit implements spec.md §4.8's exit/exit_group: clearing
// clear_child_tid and waking a futex waiter, then either tearing down
// the whole host process (exit_group, or the last task of a process
// exiting) or just this task's VCPU and task-list entry.
func (t *Task) Exit(status int32, group bool) {
	if t.clearChildTID != 0 {
		var zero [8]byte
		_ = t.Mem().CopyToUser(t.clearChildTID, zero[:], 8)
		t.proc.futex.WakeOne(t.clearChildTID)
	}

	if group || t.proc.taskCount() == 1 {
		t.vmm.Destroy()
		hostExit(int(status))
		return
	}

	t.vmm.VCPU.Close()
	t.proc.removeTask(t)
	hostThreadExit()
}
