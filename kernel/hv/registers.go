//go:build darwin && amd64

package hv

/*
#include <Hypervisor/hv.h>
#include <Hypervisor/hv_vmx.h>
#include <Hypervisor/hv_arch_vmx.h>
*/
import "C"

// Register names the general-purpose, instruction-pointer, flags, and
// segment registers the VCPU controller can read/write, per spec.md §4.4.
type Register int

const (
	RegRAX Register = iota
	RegRBX
	RegRCX
	RegRDX
	RegRDI
	RegRSI
	RegRSP
	RegRBP
	RegR8
	RegR9
	RegR10
	RegR11
	RegR12
	RegR13
	RegR14
	RegR15
	RegRIP
	RegRFLAGS
	RegCR0
	RegCR2
	RegCR3
	RegCR4
	RegCS
	RegSS
	RegDS
	RegES
	RegFS
	RegGS
	RegTR
	RegLDTR
)

// AllRegisters is the fixed, totally-ordered register list captured by a
// VcpuSnapshot, per spec.md §3.
var AllRegisters = []Register{
	RegRAX, RegRBX, RegRCX, RegRDX, RegRDI, RegRSI, RegRSP, RegRBP,
	RegR8, RegR9, RegR10, RegR11, RegR12, RegR13, RegR14, RegR15,
	RegRIP, RegRFLAGS, RegCR0, RegCR2, RegCR3, RegCR4,
	RegCS, RegSS, RegDS, RegES, RegFS, RegGS, RegTR, RegLDTR,
}

func (r Register) c() C.hv_x86_reg_t {
	switch r {
	case RegRAX:
		return C.HV_X86_RAX
	case RegRBX:
		return C.HV_X86_RBX
	case RegRCX:
		return C.HV_X86_RCX
	case RegRDX:
		return C.HV_X86_RDX
	case RegRDI:
		return C.HV_X86_RDI
	case RegRSI:
		return C.HV_X86_RSI
	case RegRSP:
		return C.HV_X86_RSP
	case RegRBP:
		return C.HV_X86_RBP
	case RegR8:
		return C.HV_X86_R8
	case RegR9:
		return C.HV_X86_R9
	case RegR10:
		return C.HV_X86_R10
	case RegR11:
		return C.HV_X86_R11
	case RegR12:
		return C.HV_X86_R12
	case RegR13:
		return C.HV_X86_R13
	case RegR14:
		return C.HV_X86_R14
	case RegR15:
		return C.HV_X86_R15
	case RegRIP:
		return C.HV_X86_RIP
	case RegRFLAGS:
		return C.HV_X86_RFLAGS
	case RegCR0:
		return C.HV_X86_CR0
	case RegCR2:
		return C.HV_X86_CR2
	case RegCR3:
		return C.HV_X86_CR3
	case RegCR4:
		return C.HV_X86_CR4
	case RegCS:
		return C.HV_X86_CS
	case RegSS:
		return C.HV_X86_SS
	case RegDS:
		return C.HV_X86_DS
	case RegES:
		return C.HV_X86_ES
	case RegFS:
		return C.HV_X86_FS
	case RegGS:
		return C.HV_X86_GS
	case RegTR:
		return C.HV_X86_TR
	case RegLDTR:
		return C.HV_X86_LDTR
	default:
		panic("hv: unknown register")
	}
}

// VMCSField names the VMCS fields the VCPU controller reads/writes.
// Field values come directly from Hypervisor.framework's hv_vmx.h /
// hv_arch_vmx.h, grounded on original_source/include/x86/vmx.h's
// VMCS_* naming.
type VMCSField uint32

const (
	VMCSGuestCR0 VMCSField = iota
	VMCSGuestCR3
	VMCSGuestCR4
	VMCSGuestCS
	VMCSGuestSS
	VMCSGuestDS
	VMCSGuestES
	VMCSGuestFS
	VMCSGuestGS
	VMCSGuestTR
	VMCSGuestLDTR
	VMCSGuestCSBase
	VMCSGuestSSBase
	VMCSGuestDSBase
	VMCSGuestESBase
	VMCSGuestFSBase
	VMCSGuestGSBase
	VMCSGuestTRBase
	VMCSGuestLDTRBase
	VMCSGuestGDTRBase
	VMCSGuestGDTRLimit
	VMCSGuestIDTRBase
	VMCSGuestIDTRLimit
	VMCSGuestCSLimit
	VMCSGuestCSAR
	VMCSGuestSSAR
	VMCSGuestDSAR
	VMCSGuestESAR
	VMCSGuestFSAR
	VMCSGuestGSAR
	VMCSGuestTRAR
	VMCSGuestLDTRAR
	VMCSCtrlPinBased
	VMCSCtrlCPUBased
	VMCSCtrlCPUBased2
	VMCSCtrlExcBitmap
	VMCSCtrlCR0Mask
	VMCSCtrlCR0Shadow
	VMCSCtrlCR4Mask
	VMCSCtrlCR4Shadow
	VMCSCtrlVMEntryControls
	VMCSCtrlVMExitControls
	VMCSGuestIA32EFER
	VMCSGuestPhysicalAddress
	VMCSROExitReason
	VMCSROExitQualific
	VMCSROVMExitInstrLen
	VMCSROVMExitIRQInfo
	VMCSHostCR0
	VMCSHostCR3
	VMCSHostCR4
	VMCSVPID
	vmcsFieldCount
)

// hostStateRestoreMask is the set of VMCS fields vcpu_restore must NOT
// copy from a snapshot: host-state fields must be reinitialised by the
// hypervisor itself, not replayed, per original_source's vmm.c
// restore_mask[] (VPID, every HOST_*, GUEST_PHYSICAL_ADDRESS, every RO_*).
var hostStateRestoreMask = map[VMCSField]bool{
	VMCSVPID:                 true,
	VMCSHostCR0:              true,
	VMCSHostCR3:              true,
	VMCSHostCR4:              true,
	VMCSGuestPhysicalAddress: true,
	VMCSROExitReason:         true,
	VMCSROExitQualific:       true,
	VMCSROVMExitInstrLen:     true,
	VMCSROVMExitIRQInfo:      true,
}

// AllVMCSFields is the fixed, totally-ordered list of VMCS fields a
// VcpuSnapshot captures.
var AllVMCSFields = func() []VMCSField {
	fs := make([]VMCSField, 0, vmcsFieldCount)
	for f := VMCSField(0); f < vmcsFieldCount; f++ {
		fs = append(fs, f)
	}
	return fs
}()

// raw maps a VMCSField to the real hv_vmx.h field identifier. Because the
// public Hypervisor.framework headers use plain #define integers rather
// than a Go-visible enum, this table is populated from the same constants
// original_source/include/x86/vmx.h names (VMCS_GUEST_CR3 etc.) — see
// hv_vmx.h for the authoritative numeric values.
func (f VMCSField) raw() uint32 {
	switch f {
	case VMCSGuestCR0:
		return C.VMCS_GUEST_CR0
	case VMCSGuestCR3:
		return C.VMCS_GUEST_CR3
	case VMCSGuestCR4:
		return C.VMCS_GUEST_CR4
	case VMCSGuestCS:
		return C.VMCS_GUEST_CS
	case VMCSGuestSS:
		return C.VMCS_GUEST_SS
	case VMCSGuestDS:
		return C.VMCS_GUEST_DS
	case VMCSGuestES:
		return C.VMCS_GUEST_ES
	case VMCSGuestFS:
		return C.VMCS_GUEST_FS
	case VMCSGuestGS:
		return C.VMCS_GUEST_GS
	case VMCSGuestTR:
		return C.VMCS_GUEST_TR
	case VMCSGuestLDTR:
		return C.VMCS_GUEST_LDTR
	case VMCSGuestCSBase:
		return C.VMCS_GUEST_CS_BASE
	case VMCSGuestSSBase:
		return C.VMCS_GUEST_SS_BASE
	case VMCSGuestDSBase:
		return C.VMCS_GUEST_DS_BASE
	case VMCSGuestESBase:
		return C.VMCS_GUEST_ES_BASE
	case VMCSGuestFSBase:
		return C.VMCS_GUEST_FS_BASE
	case VMCSGuestGSBase:
		return C.VMCS_GUEST_GS_BASE
	case VMCSGuestTRBase:
		return C.VMCS_GUEST_TR_BASE
	case VMCSGuestLDTRBase:
		return C.VMCS_GUEST_LDTR_BASE
	case VMCSGuestGDTRBase:
		return C.VMCS_GUEST_GDTR_BASE
	case VMCSGuestGDTRLimit:
		return C.VMCS_GUEST_GDTR_LIMIT
	case VMCSGuestIDTRBase:
		return C.VMCS_GUEST_IDTR_BASE
	case VMCSGuestIDTRLimit:
		return C.VMCS_GUEST_IDTR_LIMIT
	case VMCSGuestCSLimit:
		return C.VMCS_GUEST_CS_LIMIT
	case VMCSGuestCSAR:
		return C.VMCS_GUEST_CS_AR
	case VMCSGuestSSAR:
		return C.VMCS_GUEST_SS_AR
	case VMCSGuestDSAR:
		return C.VMCS_GUEST_DS_AR
	case VMCSGuestESAR:
		return C.VMCS_GUEST_ES_AR
	case VMCSGuestFSAR:
		return C.VMCS_GUEST_FS_AR
	case VMCSGuestGSAR:
		return C.VMCS_GUEST_GS_AR
	case VMCSGuestTRAR:
		return C.VMCS_GUEST_TR_AR
	case VMCSGuestLDTRAR:
		return C.VMCS_GUEST_LDTR_AR
	case VMCSCtrlPinBased:
		return C.VMCS_CTRL_PIN_BASED
	case VMCSCtrlCPUBased:
		return C.VMCS_CTRL_CPU_BASED
	case VMCSCtrlCPUBased2:
		return C.VMCS_CTRL_CPU_BASED2
	case VMCSCtrlExcBitmap:
		return C.VMCS_CTRL_EXC_BITMAP
	case VMCSCtrlCR0Mask:
		return C.VMCS_CTRL_CR0_MASK
	case VMCSCtrlCR0Shadow:
		return C.VMCS_CTRL_CR0_SHADOW
	case VMCSCtrlCR4Mask:
		return C.VMCS_CTRL_CR4_MASK
	case VMCSCtrlCR4Shadow:
		return C.VMCS_CTRL_CR4_SHADOW
	case VMCSCtrlVMEntryControls:
		return C.VMCS_CTRL_VMENTRY_CONTROLS
	case VMCSCtrlVMExitControls:
		return C.VMCS_CTRL_VMEXIT_CONTROLS
	case VMCSGuestIA32EFER:
		return C.VMCS_GUEST_IA32_EFER
	case VMCSGuestPhysicalAddress:
		return C.VMCS_GUEST_PHYSICAL_ADDRESS
	case VMCSROExitReason:
		return C.VMCS_RO_EXIT_REASON
	case VMCSROExitQualific:
		return C.VMCS_RO_EXIT_QUALIFIC
	case VMCSROVMExitInstrLen:
		return C.VMCS_RO_VMEXIT_INSTR_LEN
	case VMCSROVMExitIRQInfo:
		return C.VMCS_RO_VMEXIT_IRQ_INFO
	case VMCSHostCR0:
		return C.VMCS_HOST_CR0
	case VMCSHostCR3:
		return C.VMCS_HOST_CR3
	case VMCSHostCR4:
		return C.VMCS_HOST_CR4
	case VMCSVPID:
		return C.VMCS_VPID
	default:
		panic("hv: unknown VMCS field")
	}
}

// Capability names the hv_vmx_read_capability fields init_vmcs reads to
// translate allowed/required control bits via cap2ctrl, per
// original_source/src/vmm.c.
type Capability int

const (
	CapPinBased Capability = iota
	CapProcBased
	CapProcBased2
	CapEntry
	CapExit
)

func (c Capability) raw() uint32 {
	switch c {
	case CapPinBased:
		return C.HV_VMX_CAP_PINBASED
	case CapProcBased:
		return C.HV_VMX_CAP_PROCBASED
	case CapProcBased2:
		return C.HV_VMX_CAP_PROCBASED2
	case CapEntry:
		return C.HV_VMX_CAP_ENTRY
	case CapExit:
		return C.HV_VMX_CAP_EXIT
	default:
		panic("hv: unknown capability")
	}
}
