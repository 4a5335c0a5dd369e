package kernel

import (
	"encoding/binary"
	"log"

	"vklinux/kernel/hv"
	"vklinux/kernel/signal"
	"vklinux/kernel/syscalltab"
)

// opSyscall is the 2-byte SYSCALL instruction encoding (0F 05), read
// little-endian once the guest's bytes are copied in, per spec.md §4.5's
// is_syscall check.
const opSyscall = 0x050f

// Run is the per-task main loop: deliver a pending signal, enter the
// guest, then dispatch whatever the VM exit reason says happened, per
// spec.md §4.5. Run never returns: exit()/exit_group() end the goroutine
// or the host process from underneath it through hostThreadExit or
// hostExit.
func Run(t *Task) {
	for {
		deliverPending(t)
		t.VCPU().Run()

		reason := hv.Classify(t.VCPU().ReadVMCS(hv.VMCSROExitReason))
		switch reason {
		case hv.ExitExtInt:
			// Host handled it; nothing for the guest to see.
		case hv.ExitIRQWindow:
			// No-op, per spec.md §4.5.
		case hv.ExitEPTViolation:
			// Guest faults are surfaced as regular exceptions; no
			// separate handling needed here.
		case hv.ExitVMCall:
			log.Fatal("kernel: guest executed VMCALL, which it should never do")
		case hv.ExitCPUID:
			handleCPUID(t)
		case hv.ExitExcNMI:
			handleException(t)
		default:
			Warnk.Printf("unhandled vm exit reason %v", reason)
		}
	}
}

// handleCPUID executes the native CPUID instruction with the guest's
// requested leaf and writes the results back, advancing RIP past the
// 2-byte CPUID instruction, per spec.md §4.5.
func handleCPUID(t *Task) {
	v := t.VCPU()
	leaf := uint32(v.ReadReg(hv.RegRAX))
	eax, ebx, ecx, edx := cpuid(leaf)
	v.WriteReg(hv.RegRAX, uint64(eax))
	v.WriteReg(hv.RegRBX, uint64(ebx))
	v.WriteReg(hv.RegRCX, uint64(ecx))
	v.WriteReg(hv.RegRDX, uint64(edx))
	v.WriteReg(hv.RegRIP, v.ReadReg(hv.RegRIP)+2)
}

// handleException classifies a VMX_REASON_EXC_NMI exit per Intel SDM
// Table 24-15: external/NMI interrupts are ignored, hardware/software
// exceptions are dispatched by vector, with #UD specifically checked
// for the SYSCALL instruction this hypervisor configuration traps
// rather than executes natively.
func handleException(t *Task) {
	v := t.VCPU()
	info := v.ReadVMCS(hv.VMCSROVMExitIRQInfo)
	intType, vector := hv.DecodeIRQInfo(info)

	switch intType {
	case hv.IntTypeExternal, hv.IntTypeNMI:
		return
	case hv.IntTypeHardwareExc, hv.IntTypeSoftwareExc:
		// fall through to vector dispatch below
	default:
		log.Fatalf("kernel: unexpected vm-exit interrupt type %d", intType)
	}

	switch vector {
	case hv.VecPF:
		gladdr := v.ReadVMCS(hv.VMCSROExitQualific)
		Warnk.Printf("page fault at guest linear address %#x", gladdr)
		t.Raise(signal.SIGSEGV)
	case hv.VecUD:
		handleUD(t)
	default:
		instlen := v.ReadVMCS(hv.VMCSROVMExitInstrLen)
		rip := v.ReadReg(hv.RegRIP)
		Warnk.Printf("exception vector %d at rip %#x (instlen %d)", vector, rip, instlen)
		t.Raise(signal.SIGSEGV)
	}
}

// handleUD implements is_syscall/handle_syscall: a 2-byte #UD at RIP that
// decodes to 0F 05 is the guest's SYSCALL instruction (trapped because
// this VMX configuration never enables native SYSCALL support); anything
// else is a genuine invalid opcode, raising SIGILL.
func handleUD(t *Task) {
	v := t.VCPU()
	instlen := v.ReadVMCS(hv.VMCSROVMExitInstrLen)
	rip := v.ReadReg(hv.RegRIP)

	if instlen == 2 {
		var op [2]byte
		if err := t.Mem().CopyFromUser(op[:], rip, 2); err == nil && isSyscallInsn(op, instlen) {
			dispatchSyscall(t)
			rip = v.ReadReg(hv.RegRIP) // reload for execve, which rewrites RIP itself
			v.WriteReg(hv.RegRIP, rip+2)
			return
		}
	}

	Warnk.Printf("invalid opcode at rip %#x", rip)
	t.Raise(signal.SIGILL)
}

// isSyscallInsn reports whether the two bytes trapped by a #UD exit are
// the SYSCALL instruction's 0F 05 encoding, per spec.md §4.5's is_syscall
// check. Split out from handleUD so the decode itself is testable
// without a live VCPU.
func isSyscallInsn(op [2]byte, instlen uint64) bool {
	return instlen == 2 && binary.LittleEndian.Uint16(op[:]) == opSyscall
}

// dispatchSyscall implements handle_syscall: load the six ABI argument
// registers, look up and run the handler, and write the return value to
// RAX, per spec.md §4.6. An out-of-range syscall number raises SIGSYS on
// the caller instead of returning -ENOSYS, per spec.md §4.6/§8.
func dispatchSyscall(t *Task) {
	v := t.VCPU()
	nr := v.ReadReg(hv.RegRAX)

	fn, name, ok := syscalltab.Lookup(nr)
	if !ok {
		Warnk.Printf("unknown system call: %d", nr)
		t.Raise(signal.SIGSYS)
		return
	}

	a0 := v.ReadReg(hv.RegRDI)
	a1 := v.ReadReg(hv.RegRSI)
	a2 := v.ReadReg(hv.RegRDX)
	a3 := v.ReadReg(hv.RegR10)
	a4 := v.ReadReg(hv.RegR8)
	a5 := v.ReadReg(hv.RegR9)

	ret := fn(t, a0, a1, a2, a3, a4, a5)
	Strace.Printf("[%d] %s(%#x, %#x, %#x, %#x, %#x, %#x) = %d", t.Tid(), name, a0, a1, a2, a3, a4, a5, ret)
	v.WriteReg(hv.RegRAX, uint64(ret))
}
