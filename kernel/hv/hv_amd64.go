//go:build darwin && amd64

// Package hv binds the macOS Hypervisor.framework x86 API and layers the
// VCPU controller, VMM lifecycle, and snapshot/restore machinery spec.md
// §4.4 describes on top of it. Every exported call here is a thin checked
// wrapper over a single hv_* entry point, following the same
// checked-syscall-wrapper idiom the teacher uses for its ioctl calls,
// re-targeted from /dev/kvm to the real host hypervisor.
package hv

/*
#cgo LDFLAGS: -framework Hypervisor
#include <Hypervisor/hv.h>
#include <Hypervisor/hv_vmx.h>
#include <Hypervisor/hv_arch_vmx.h>
#include <stdlib.h>

static hv_return_t go_hv_vm_create(void) {
	return hv_vm_create(HV_VM_DEFAULT);
}
*/
import "C"

import (
	"fmt"
	"unsafe"
)

// Return mirrors hv_return_t; a non-zero value is always an error.
type Return C.hv_return_t

func (r Return) Error() string {
	switch C.hv_return_t(r) {
	case C.HV_SUCCESS:
		return "success"
	case C.HV_ERROR:
		return "hv: error"
	case C.HV_BUSY:
		return "hv: busy"
	case C.HV_BAD_ARGUMENT:
		return "hv: bad argument"
	case C.HV_NO_RESOURCES:
		return "hv: no resources"
	case C.HV_NO_DEVICE:
		return "hv: no device"
	case C.HV_DENIED:
		return "hv: denied"
	default:
		return fmt.Sprintf("hv: unknown error %#x", uint32(r))
	}
}

func (r Return) ok() bool { return C.hv_return_t(r) == C.HV_SUCCESS }

func check(r C.hv_return_t, op string) error {
	if Return(r).ok() {
		return nil
	}
	return fmt.Errorf("%s: %w", op, Return(r))
}

// VCPUID is an opaque per-thread VCPU handle.
type VCPUID C.hv_vcpuid_t

// vmCreate maps to hv_vm_create(HV_VM_DEFAULT). There is exactly one VM
// per process at a time — spec.md §4.8 exists precisely because the
// framework forbids more than one simultaneously.
func vmCreate() error { return check(C.go_hv_vm_create(), "hv_vm_create") }

func vmDestroy() error { return check(C.hv_vm_destroy(), "hv_vm_destroy") }

// MemFlags mirrors hv_memory_flags_t.
type MemFlags C.hv_memory_flags_t

const (
	MemRead  MemFlags = C.HV_MEMORY_READ
	MemWrite MemFlags = C.HV_MEMORY_WRITE
	MemExec  MemFlags = C.HV_MEMORY_EXEC
)

func vmMap(haddr unsafe.Pointer, gaddr, size uint64, flags MemFlags) error {
	r := C.hv_vm_map(haddr, C.hv_gpaddr_t(gaddr), C.size_t(size), C.hv_memory_flags_t(flags))
	return check(r, "hv_vm_map")
}

func vmUnmap(gaddr, size uint64) error {
	return check(C.hv_vm_unmap(C.hv_gpaddr_t(gaddr), C.size_t(size)), "hv_vm_unmap")
}

func vcpuCreate() (VCPUID, error) {
	var id C.hv_vcpuid_t
	r := C.hv_vcpu_create(&id, C.HV_VCPU_DEFAULT)
	return VCPUID(id), check(r, "hv_vcpu_create")
}

func vcpuDestroy(id VCPUID) error {
	return check(C.hv_vcpu_destroy(C.hv_vcpuid_t(id)), "hv_vcpu_destroy")
}

func vcpuRun(id VCPUID) error {
	return check(C.hv_vcpu_run(C.hv_vcpuid_t(id)), "hv_vcpu_run")
}

func vcpuReadRegister(id VCPUID, reg Register) (uint64, error) {
	var v C.uint64_t
	r := C.hv_vcpu_read_register(C.hv_vcpuid_t(id), reg.c(), &v)
	return uint64(v), check(r, "hv_vcpu_read_register")
}

func vcpuWriteRegister(id VCPUID, reg Register, v uint64) error {
	return check(C.hv_vcpu_write_register(C.hv_vcpuid_t(id), reg.c(), C.uint64_t(v)), "hv_vcpu_write_register")
}

func vcpuReadVMCS(id VCPUID, field VMCSField) (uint64, error) {
	var v C.uint64_t
	r := C.hv_vmx_vcpu_read_vmcs(C.hv_vcpuid_t(id), C.uint32_t(field.raw()), &v)
	return uint64(v), check(r, "hv_vmx_vcpu_read_vmcs")
}

func vcpuWriteVMCS(id VCPUID, field VMCSField, v uint64) error {
	return check(C.hv_vmx_vcpu_write_vmcs(C.hv_vcpuid_t(id), C.uint32_t(field.raw()), C.uint64_t(v)), "hv_vmx_vcpu_write_vmcs")
}

func vcpuReadFPState(id VCPUID, buf []byte) error {
	r := C.hv_vcpu_read_fpstate(C.hv_vcpuid_t(id), unsafe.Pointer(&buf[0]), C.size_t(len(buf)))
	return check(r, "hv_vcpu_read_fpstate")
}

func vcpuWriteFPState(id VCPUID, buf []byte) error {
	r := C.hv_vcpu_write_fpstate(C.hv_vcpuid_t(id), unsafe.Pointer(&buf[0]), C.size_t(len(buf)))
	return check(r, "hv_vcpu_write_fpstate")
}

func vcpuReadMSR(id VCPUID, msr uint32) (uint64, error) {
	var v C.uint64_t
	r := C.hv_vcpu_read_msr(C.hv_vcpuid_t(id), C.uint32_t(msr), &v)
	return uint64(v), check(r, "hv_vcpu_read_msr")
}

func vcpuWriteMSR(id VCPUID, msr uint32, v uint64) error {
	return check(C.hv_vcpu_write_msr(C.hv_vcpuid_t(id), C.uint32_t(msr), C.uint64_t(v)), "hv_vcpu_write_msr")
}

func vcpuEnableNativeMSR(id VCPUID, msr uint32, enable bool) error {
	var c C.boolean_t
	if enable {
		c = 1
	}
	return check(C.hv_vcpu_enable_native_msr(C.hv_vcpuid_t(id), C.uint32_t(msr), c), "hv_vcpu_enable_native_msr")
}

func readCapability(cap Capability) (uint64, error) {
	var v C.uint64_t
	r := C.hv_vmx_read_capability(C.hv_vmx_capability_t(cap.raw()), &v)
	return uint64(v), check(r, "hv_vmx_read_capability")
}
