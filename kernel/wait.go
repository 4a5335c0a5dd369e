package kernel

import (
	"golang.org/x/sys/unix"

	"vklinux/kernel/signal"
)

// waitOptsToHost translates the Linux WNOHANG/WUNTRACED bits a wait4
// syscall handler receives into the host wait4 options, mirroring
// original_source's linux_to_darwin_waitopts.
func waitOptsToHost(linuxOpts int) int {
	const (
		lWNOHANG   = 1
		lWUNTRACED = 2
	)
	var opts int
	if linuxOpts&lWNOHANG != 0 {
		opts |= unix.WNOHANG
	}
	if linuxOpts&lWUNTRACED != 0 {
		opts |= unix.WUNTRACED
	}
	return opts
}

// packLinuxStatus repacks a host wait status into the Linux-shaped
// encoding a guest's wait4(2) expects (exited: status<<8; signalled: the
// Linux signal number, | 0x80 on core dump; stopped: signal<<8 | 0x7f),
// mirroring original_source's wait4 handler.
func packLinuxStatus(ws unix.WaitStatus) uint32 {
	switch {
	case ws.Exited():
		return uint32(ws.ExitStatus()) << 8
	case ws.Signaled():
		st := uint32(signal.DarwinToLinux(int(ws.Signal())))
		if ws.CoreDump() {
			st |= 0x80
		}
		return st
	case ws.Stopped():
		return uint32(signal.DarwinToLinux(int(ws.StopSignal())))<<8 | 0x7f
	default:
		return 0
	}
}

// Wait4 waits on a real host child process (every Linux guest child maps
// 1:1 to a forked host process, per spec.md §4.8's process-clone path)
// and repacks the result into Linux's wait4 ABI.
func (t *Task) Wait4(pid int32, options int) (childPid int32, status uint32, err error) {
	var ws unix.WaitStatus
	wpid, werr := unix.Wait4(int(pid), &ws, waitOptsToHost(options), nil)
	if werr != nil {
		return 0, 0, werr
	}
	return int32(wpid), packLinuxStatus(ws), nil
}
