//go:build darwin && amd64

package hv

// maxAddr64 is the highest canonical guest-virtual address this spec's
// 47-bit address space permits (one page below the 2^47 ceiling).
const maxAddr64 = (uint64(1) << 47) - 4096

// Context is a convenience register-window over a VCPU, grouping the
// registers the syscall ABI and signal machinery touch by name instead of
// by raw Register constant, mirroring the teacher's register-window
// accessor shape.
type Context struct {
	v *VCPU
}

// NewContext wraps v in a Context.
func NewContext(v *VCPU) *Context { return &Context{v: v} }

func (c *Context) IP() uint64     { return c.v.ReadReg(RegRIP) }
func (c *Context) SetIP(ip uint64) { c.v.WriteReg(RegRIP, ip) }

func (c *Context) SP() uint64      { return c.v.ReadReg(RegRSP) }
func (c *Context) SetSP(sp uint64) { c.v.WriteReg(RegRSP, sp) }

func (c *Context) Flags() uint64      { return c.v.ReadReg(RegRFLAGS) }
func (c *Context) SetFlags(f uint64)  { c.v.WriteReg(RegRFLAGS, f) }

// Return is the x86-64 SYSCALL return-value register, RAX.
func (c *Context) Return() uint64      { return c.v.ReadReg(RegRAX) }
func (c *Context) SetReturn(v uint64)  { c.v.WriteReg(RegRAX, v) }

// SyscallArgs returns the six syscall-ABI argument registers in order:
// RDI, RSI, RDX, R10, R8, R9 (R10 replaces RCX, which SYSCALL clobbers
// with the post-instruction RIP).
func (c *Context) SyscallArgs() [6]uint64 {
	return [6]uint64{
		c.v.ReadReg(RegRDI),
		c.v.ReadReg(RegRSI),
		c.v.ReadReg(RegRDX),
		c.v.ReadReg(RegR10),
		c.v.ReadReg(RegR8),
		c.v.ReadReg(RegR9),
	}
}

// SyscallNR is the syscall number register, RAX, read before the handler
// overwrites it with a return value.
func (c *Context) SyscallNR() uint64 { return c.v.ReadReg(RegRAX) }

// TLS is the thread-local-storage base, stored in the FS segment base
// VMCS field. arch_prctl(ARCH_SET_FS, ...) and clone's CLONE_SETTLS do
// not go through SetTLS: they write the IA32_FS_BASE MSR (MSRFSBase).
func (c *Context) TLS() uint64 { return c.v.ReadVMCS(VMCSGuestFSBase) }

func (c *Context) SetTLS(base uint64) { c.v.WriteVMCS(VMCSGuestFSBase, base) }

// ValidUserAddr reports whether addr falls within the canonical
// user-accessible range this guest's page tables can represent.
func ValidUserAddr(addr uint64) bool { return addr <= maxAddr64 }
