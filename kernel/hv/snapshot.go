//go:build darwin && amd64

package hv

// VcpuSnapshot is a totally-ordered capture of a VCPU's architectural
// state: every register in AllRegisters, every VMCS field in
// AllVMCSFields, and the FPU state blob, per spec.md §3/§4.4. It is used
// both for fork (where the host VM is torn down and rebuilt) and for
// thread-clone (where a fresh VCPU inherits the parent's state).
type VcpuSnapshot struct {
	Regs map[Register]uint64
	VMCS map[VMCSField]uint64
	FPU  []byte
}

// fpuStateSize matches the legacy FXSAVE area layout this snapshot
// preserves verbatim.
const fpuStateSize = 512

// Capture reads every tracked register and VMCS field plus the FPU
// state, in the fixed orders AllRegisters/AllVMCSFields define.
func (v *VCPU) Capture() *VcpuSnapshot {
	s := &VcpuSnapshot{
		Regs: make(map[Register]uint64, len(AllRegisters)),
		VMCS: make(map[VMCSField]uint64, len(AllVMCSFields)),
		FPU:  make([]byte, fpuStateSize),
	}
	for _, r := range AllRegisters {
		s.Regs[r] = v.ReadReg(r)
	}
	for _, f := range AllVMCSFields {
		s.VMCS[f] = v.ReadVMCS(f)
	}
	copy(s.FPU, v.readFPUState())
	return s
}

// Restore writes every captured register and the FPU state back, and
// writes every captured VMCS field that is NOT in the host-state restore
// mask: those fields describe host state that the hypervisor itself must
// reinitialise on vmm.Create, not state that should be replayed from a
// stale snapshot, per original_source's vmcs_restore.
func (v *VCPU) Restore(s *VcpuSnapshot) {
	for _, r := range AllRegisters {
		v.WriteReg(r, s.Regs[r])
	}
	for _, f := range AllVMCSFields {
		if hostStateRestoreMask[f] {
			continue
		}
		v.WriteVMCS(f, s.VMCS[f])
	}
	v.writeFPUState(s.FPU)
}
