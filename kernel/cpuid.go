package kernel

// cpuid executes the native CPUID instruction and returns the four
// result registers, for the CPUID vm-exit's passthrough handling (the
// guest is meant to see the host's actual CPU identification, per
// spec.md §4.5). cpuidAsm is implemented in cpuid_amd64.s since Go
// exposes no portable way to issue CPUID from pure Go.
func cpuid(leaf uint32) (eax, ebx, ecx, edx uint32) {
	return cpuidAsm(leaf, 0)
}

// cpuidAsm is declared here and defined in cpuid_amd64.s.
func cpuidAsm(eaxIn, ecxIn uint32) (eax, ebx, ecx, edx uint32)
