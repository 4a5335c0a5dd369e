package signal

import "golang.org/x/sys/unix"

// Linux x86-64 signal numbers. Fixed ABI values; several diverge from the
// BSD/Darwin numbering the host reports (SIGBUS, SIGUSR1/2, SIGCHLD,
// SIGSYS among them), which is exactly why the translation tables below
// exist.
const (
	SIGHUP    = 1
	SIGINT    = 2
	SIGQUIT   = 3
	SIGILL    = 4
	SIGTRAP   = 5
	SIGABRT   = 6
	SIGBUS    = 7
	SIGFPE    = 8
	SIGKILL   = 9
	SIGUSR1   = 10
	SIGSEGV   = 11
	SIGUSR2   = 12
	SIGPIPE   = 13
	SIGALRM   = 14
	SIGTERM   = 15
	SIGSTKFLT = 16
	SIGCHLD   = 17
	SIGCONT   = 18
	SIGSTOP   = 19
	SIGTSTP   = 20
	SIGTTIN   = 21
	SIGTTOU   = 22
	SIGURG    = 23
	SIGXCPU   = 24
	SIGXFSZ   = 25
	SIGVTALRM = 26
	SIGPROF   = 27
	SIGWINCH  = 28
	SIGIO     = 29
	SIGPWR    = 30
	SIGSYS    = 31
)

// darwinToLinux maps a host (Darwin) signal number to its Linux
// counterpart, mirroring darwin_to_linux_signal in the source this is
// grounded on. Signals with the same number on both platforms are still
// listed explicitly for clarity and to catch transcription mistakes.
var darwinToLinux = map[int]int{
	unix.SIGHUP:    SIGHUP,
	unix.SIGINT:    SIGINT,
	unix.SIGQUIT:   SIGQUIT,
	unix.SIGILL:    SIGILL,
	unix.SIGTRAP:   SIGTRAP,
	unix.SIGABRT:   SIGABRT,
	unix.SIGFPE:    SIGFPE,
	unix.SIGKILL:   SIGKILL,
	unix.SIGSEGV:   SIGSEGV,
	unix.SIGPIPE:   SIGPIPE,
	unix.SIGALRM:   SIGALRM,
	unix.SIGTERM:   SIGTERM,
	unix.SIGCONT:   SIGCONT,
	unix.SIGSTOP:   SIGSTOP,
	unix.SIGTSTP:   SIGTSTP,
	unix.SIGTTIN:   SIGTTIN,
	unix.SIGTTOU:   SIGTTOU,
	unix.SIGURG:    SIGURG,
	unix.SIGXCPU:   SIGXCPU,
	unix.SIGXFSZ:   SIGXFSZ,
	unix.SIGVTALRM: SIGVTALRM,
	unix.SIGPROF:   SIGPROF,
	unix.SIGWINCH:  SIGWINCH,
	unix.SIGIO:     SIGIO,
	unix.SIGBUS:    SIGBUS,
	unix.SIGUSR1:   SIGUSR1,
	unix.SIGUSR2:   SIGUSR2,
	unix.SIGCHLD:   SIGCHLD,
	unix.SIGSYS:    SIGSYS,
}

var linuxToDarwin = func() map[int]int {
	m := make(map[int]int, len(darwinToLinux))
	for d, l := range darwinToLinux {
		m[l] = d
	}
	return m
}()

// DarwinToLinux translates a host signal number to its Linux equivalent,
// returning 0 if the host raised something this kernel doesn't model.
func DarwinToLinux(sig int) int { return darwinToLinux[sig] }

// LinuxToDarwin translates a Linux signal number to the host signal
// number that should be raised/masked/actioned to deliver it, returning
// 0 for a Linux signal with no host equivalent.
func LinuxToDarwin(sig int) int { return linuxToDarwin[sig] }
