//go:build darwin && amd64

package hv

import "log"

// roVMCSFields silently tolerate a write failure: writing to a read-only
// VMCS field during restore is expected to be rejected by the hypervisor
// and is not itself a bug, per spec.md §4.4.
var roVMCSFields = map[VMCSField]bool{
	VMCSROExitReason:     true,
	VMCSROExitQualific:   true,
	VMCSROVMExitInstrLen: true,
	VMCSROVMExitIRQInfo:  true,
}

// VCPU is the controller for a single hypervisor-provided virtual CPU.
// At most one exists per host thread (spec.md §3); callers are
// responsible for locking the owning goroutine to its OS thread with
// runtime.LockOSThread before calling any method here, since
// Hypervisor.framework requires every hv_vcpu_* call for a given VCPU to
// happen on the thread that created it.
type VCPU struct {
	id VCPUID
}

// CreateVCPU creates a new VCPU bound to the calling OS thread.
func CreateVCPU() (*VCPU, error) {
	id, err := vcpuCreate()
	if err != nil {
		return nil, err
	}
	return &VCPU{id: id}, nil
}

// Close destroys the VCPU. Any hypervisor failure here is a
// configuration/driver bug per spec.md §7 and is fatal.
func (v *VCPU) Close() {
	if err := vcpuDestroy(v.id); err != nil {
		log.Fatalf("hv: vcpu_destroy: %v", err)
	}
}

// Run enters the guest and returns at the next VM exit. A failure of the
// hypervisor call itself aborts the process, which spec.md §7 treats as
// an unrecoverable host hypervisor failure.
func (v *VCPU) Run() {
	if err := vcpuRun(v.id); err != nil {
		log.Fatalf("hv: vcpu_run: %v", err)
	}
}

// ReadReg reads a general-purpose/segment register. Any hypervisor error
// here aborts the process.
func (v *VCPU) ReadReg(r Register) uint64 {
	val, err := vcpuReadRegister(v.id, r)
	if err != nil {
		log.Fatalf("hv: read register %v: %v", r, err)
	}
	return val
}

// WriteReg writes a general-purpose/segment register.
func (v *VCPU) WriteReg(r Register, val uint64) {
	if err := vcpuWriteRegister(v.id, r, val); err != nil {
		log.Fatalf("hv: write register %v: %v", r, err)
	}
}

// ReadVMCS reads a VMCS field.
func (v *VCPU) ReadVMCS(f VMCSField) uint64 {
	val, err := vcpuReadVMCS(v.id, f)
	if err != nil {
		log.Fatalf("hv: read vmcs %v: %v", f, err)
	}
	return val
}

// WriteVMCS writes a VMCS field. Failures writing a read-only field are
// swallowed, per spec.md §4.4; any other failure aborts the process.
func (v *VCPU) WriteVMCS(f VMCSField, val uint64) {
	if err := vcpuWriteVMCS(v.id, f, val); err != nil {
		if roVMCSFields[f] {
			return
		}
		log.Fatalf("hv: write vmcs %v: %v", f, err)
	}
}

// ReadMSR reads a model-specific register.
func (v *VCPU) ReadMSR(msr uint32) uint64 {
	val, err := vcpuReadMSR(v.id, msr)
	if err != nil {
		log.Fatalf("hv: read msr %#x: %v", msr, err)
	}
	return val
}

// WriteMSR writes a model-specific register.
func (v *VCPU) WriteMSR(msr uint32, val uint64) {
	if err := vcpuWriteMSR(v.id, msr, val); err != nil {
		log.Fatalf("hv: write msr %#x: %v", msr, err)
	}
}

// EnableNativeMSR exposes a host MSR directly to the guest without VM
// exits, used for TSC, TSC_AUX, and KERNEL_GS_BASE per init_msr.
func (v *VCPU) EnableNativeMSR(msr uint32) {
	if err := vcpuEnableNativeMSR(v.id, msr, true); err != nil {
		log.Fatalf("hv: enable native msr %#x: %v", msr, err)
	}
}

func (v *VCPU) readFPUState() []byte {
	buf := make([]byte, fpuStateSize)
	if err := vcpuReadFPState(v.id, buf); err != nil {
		log.Fatalf("hv: read fpstate: %v", err)
	}
	return buf
}

func (v *VCPU) writeFPUState(buf []byte) {
	if err := vcpuWriteFPState(v.id, buf); err != nil {
		log.Fatalf("hv: write fpstate: %v", err)
	}
}
