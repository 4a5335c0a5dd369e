package kernel

import (
	"os"
	"runtime"
)

// hostExit terminates the entire host process, mirroring the source's
// _exit(reason) call when the last task of a process exits.
func hostExit(status int) { os.Exit(status) }

// hostThreadExit ends the calling goroutine/OS thread without touching
// the rest of the process, mirroring pthread_exit for a non-last task.
// The goroutine that runs a Task's main loop always calls
// runtime.LockOSThread on entry (see spawnTask), so Goexit here
// also retires that OS thread rather than returning it to the scheduler
// pool, matching the "destroyed at thread exit" lifetime spec.md §3
// requires of a VCPU's owning thread.
func hostThreadExit() { runtime.Goexit() }
