package kernel

import "golang.org/x/sys/unix"

// Linux x86-64 RLIMIT_* resource numbers, per original_source's
// getrlimit/setrlimit switch over l_resource. Fixed ABI values, not a
// design choice.
const (
	RlimitCPU    = 0
	RlimitFSize  = 1
	RlimitData   = 2
	RlimitStack  = 3
	RlimitCore   = 4
	RlimitRSS    = 5
	RlimitNProc  = 6
	RlimitNofile = 7
	RlimitMemlock = 8
	RlimitAs     = 9
)

// linuxToHostRlimit mirrors original_source's getrlimit switch
// (LINUX_RLIMIT_* -> host RLIMIT_*); resources original_source leaves
// unmapped (the switch's implicit default, resource stays 0/RLIMIT_CPU)
// are intentionally not carried forward as silent aliasing.
var linuxToHostRlimit = map[int]int{
	RlimitCPU:     unix.RLIMIT_CPU,
	RlimitFSize:   unix.RLIMIT_FSIZE,
	RlimitData:    unix.RLIMIT_DATA,
	RlimitStack:   unix.RLIMIT_STACK,
	RlimitCore:    unix.RLIMIT_CORE,
	RlimitRSS:     unix.RLIMIT_RSS,
	RlimitNProc:   unix.RLIMIT_NPROC,
	RlimitNofile:  unix.RLIMIT_NOFILE,
	RlimitMemlock: unix.RLIMIT_MEMLOCK,
	RlimitAs:      unix.RLIMIT_AS,
}

// Rlimit reads the host resource limit for the Linux resource number
// resource, translating via linuxToHostRlimit per original_source's
// getrlimit. An unrecognised Linux resource number, or a failed host
// Getrlimit, yields (0, 0).
func (t *Task) Rlimit(resource int) (cur, max uint64) {
	hostRes, ok := linuxToHostRlimit[resource]
	if !ok {
		return 0, 0
	}
	var rl unix.Rlimit
	if err := unix.Getrlimit(hostRes, &rl); err != nil {
		return 0, 0
	}
	return rl.Cur, rl.Max
}

// SetRlimit does nothing: no host limit is changed, and the setrlimit
// handler still reports success to the guest.
func (t *Task) SetRlimit(resource int, cur, max uint64) {}
