package signal

import (
	"encoding/binary"
	"fmt"

	"vklinux/kernel/hv"
	"vklinux/kernel/mm"
)

// nrRtSigreturn is the Linux x86-64 syscall number for rt_sigreturn.
const nrRtSigreturn = 15

// frameRegs is the fixed, totally-ordered register list a sigcontext
// saves and restores: general-purpose registers plus RIP/RFLAGS, mirroring
// the vcpu_reg loop in original_source's setup_sigframe (which the
// original leaves FIXME for segment/FPU state — this port keeps the same
// scope deliberately, since nothing downstream needs more than this to
// resume correctly).
var frameRegs = []hv.Register{
	hv.RegRAX, hv.RegRBX, hv.RegRCX, hv.RegRDX, hv.RegRDI, hv.RegRSI,
	hv.RegRBP, hv.RegR8, hv.RegR9, hv.RegR10, hv.RegR11, hv.RegR12,
	hv.RegR13, hv.RegR14, hv.RegR15, hv.RegRIP, hv.RegRFLAGS,
}

// frameSize is pretcode(8) + retcode(14) + sigcontext(regs + signum(8) +
// oldmask(8)).
var frameSize = 8 + 14 + len(frameRegs)*8 + 8 + 8

const retcodeOffset = 8

// retcodeBytes is pop %eax; mov $nrRtSigreturn, %eax; syscall, matching
// the byte-for-byte trampoline original_source's retcode_bin builds, so
// that a real return from the handler (a `ret` off this stack frame)
// lands on an instruction sequence that re-enters the kernel through
// rt_sigreturn.
func retcodeBytes() []byte {
	b := make([]byte, 14)
	b[0] = 0x58 // pop %eax
	b[1] = 0xb8 // mov $imm32, %eax
	binary.LittleEndian.PutUint32(b[2:6], nrRtSigreturn)
	b[6] = 0x0f // syscall
	b[7] = 0x05
	return b
}

// Deliver pushes a sigframe for sig onto the task's stack and points the
// VCPU at the handler, following original_source's setup_sigframe: the
// frame carries a return trampoline, the pre-signal register state, the
// signal number, and the mask to restore on return. It returns an error
// only on a guest-memory fault, mirroring -EFAULT there.
func Deliver(v *hv.VCPU, mem *mm.AddressSpace, sig int, act Action, oldmask Set) error {
	frame := make([]byte, frameSize)
	off := 0

	rsp := v.ReadReg(hv.RegRSP) - uint64(frameSize)

	pretcode := rsp + retcodeOffset
	if act.hasRestorer() {
		pretcode = act.Restorer
	}
	binary.LittleEndian.PutUint64(frame[off:], pretcode)
	off += 8

	copy(frame[off:], retcodeBytes())
	off += 14

	for _, r := range frameRegs {
		binary.LittleEndian.PutUint64(frame[off:], v.ReadReg(r))
		off += 8
	}
	binary.LittleEndian.PutUint64(frame[off:], uint64(sig))
	off += 8
	binary.LittleEndian.PutUint64(frame[off:], uint64(oldmask))
	off += 8

	if err := mem.CopyToUser(rsp, frame, len(frame)); err != nil {
		return fmt.Errorf("signal: deliver sig %d: %w", sig, err)
	}

	v.WriteReg(hv.RegRSP, rsp)
	v.WriteReg(hv.RegRDI, uint64(sig))
	v.WriteReg(hv.RegRSI, 0) // TODO: siginfo_t is not yet modeled
	v.WriteReg(hv.RegRDX, 0) // TODO: ucontext_t is not yet modeled
	v.WriteReg(hv.RegRIP, act.Handler)
	return nil
}

// Return implements rt_sigreturn: it pops the sigcontext the most recent
// Deliver pushed back off the stack, restores every saved register, and
// returns the mask that was active before that signal was delivered so
// the caller can restore the task's blocked-signal mask. The original's
// rt_sigreturn is a stub that only prints a message and returns 0,
// leaving the VCPU pointed at whatever the handler's `ret` landed on
// instead of the interrupted program counter; this reconstructs the
// actual saved context instead, since a signal handler that never
// resumes its interrupted program isn't a usable signal implementation.
func Return(v *hv.VCPU, mem *mm.AddressSpace) (oldmask Set, err error) {
	// The handler's `ret` consumes pretcode (8 bytes), landing RIP and RSP
	// on retcode itself; retcode's `pop %eax` then consumes another 8
	// bytes of stack. So by the time `syscall` traps back in, RSP sits 16
	// bytes past the frame base regardless of how much of the 14-byte
	// retcode field that pop actually touched, and the sigcontext (which
	// starts right after the fixed-size pretcode+retcode prefix) is a
	// further 6 bytes on.
	sigctxSize := len(frameRegs)*8 + 16
	rsp := v.ReadReg(hv.RegRSP)
	sigctxAddr := rsp + 6

	frame := make([]byte, sigctxSize)
	if err := mem.CopyFromUser(frame, sigctxAddr, sigctxSize); err != nil {
		return 0, fmt.Errorf("signal: rt_sigreturn: %w", err)
	}

	off := 0
	for _, r := range frameRegs {
		v.WriteReg(r, binary.LittleEndian.Uint64(frame[off:]))
		off += 8
	}
	off += 8 // signum, not needed on restore
	oldmask = Set(binary.LittleEndian.Uint64(frame[off:]))

	return oldmask, nil
}
