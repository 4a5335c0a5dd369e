//go:build darwin && amd64

package hv

import (
	"log"
	"unsafe"

	"vklinux/kernel/mm"
)

// Control-register and EFER bits used by init_page/init_special_regs,
// per original_source/src/vmm.c.
const (
	cr0PE = 0x00000001
	cr0NE = 0x00000020
	cr0PG = 0x80000000

	cr4PAE   = 0x00000020
	cr4OSFXSR = 0x00000200
	cr4VMXE  = 0x00002000

	eferLME = 0x00000100
	eferLMA = 0x00000400

	cpuBasedHLT      = 1 << 7
	cpuBasedCR8Load  = 1 << 19
	cpuBasedCR8Store = 1 << 20

	vmEntryLoadEFER   = 1 << 15
	vmEntryGuestIA32E = 1 << 9
	vmExitLoadEFER    = 1 << 21

	msrTimeStampCounter = 0x00000010
	msrTSCAux           = 0xc0000103
	msrKernelGSBase     = 0xc0000102

	segNull = 0
	segCode = 1
	segData = 2

	descUnusable = 0x00010000
)

func gsel(seg, rpl uint64) uint64 { return (seg << 3) | rpl }

// capToCtrl implements the cap2ctrl macro from original_source/src/vmm.c:
// the requested control bits are ORed with the "must-be-1" low half of
// the capability MSR, then masked against the "may-be-1" high half.
func capToCtrl(cap, ctrl uint64) uint64 {
	return (ctrl | (cap & 0xffffffff)) & (cap >> 32)
}

// kernBrk is the bump-allocated guest-physical watermark used by kmap,
// starting at the same address original_source's noah_kern_brk does.
const kernBrkBase = 0x0000007fc0000000

// VMM pairs one VCPU with the process's single hypervisor VM
// (Hypervisor.framework forbids more than one VM per process — spec.md
// §4.8's fork path exists because of this), plus the address space used
// to track every mapped region for EPT rebuild. A thread clone gets its
// own VMM from CloneVCPU, with its own VCPU in the same VM and Space.
type VMM struct {
	VCPU    *VCPU
	Space   *mm.AddressSpace
	kernBrk uint64

	pml4 []byte
	pdp  []byte
	gdt  []byte
	idt  []byte
}

// Create brings up a fresh VM + VCPU and runs the full guest-kernel
// bring-up sequence in the exact order original_source's vmm_create /
// init_vkernel use: init_vmcs, init_msr, init_page, init_special_regs,
// init_segment, init_idt, init_regs.
func Create() *VMM {
	if err := vmCreate(); err != nil {
		log.Fatalf("hv: %v", err)
	}
	cpu, err := CreateVCPU()
	if err != nil {
		log.Fatalf("hv: %v", err)
	}

	m := &VMM{VCPU: cpu, Space: mm.NewAddressSpace(), kernBrk: kernBrkBase}
	m.initVMCS()
	m.initMSR()
	m.initPage()
	m.initSpecialRegs()
	m.initSegment()
	m.initIDT()
	m.initRegs()
	return m
}

// KernBrk reports the current guest-physical bump-allocator watermark,
// so a thread-clone child's VMM can inherit it via CloneVCPU rather than
// restart from kernBrkBase and risk colliding with the parent's kmap
// allocations.
func (m *VMM) KernBrk() uint64 { return m.kernBrk }

// Destroy tears down the VCPU and VM. Used both for an ordinary process
// exit and as the first half of a process-clone's
// snapshot/destroy/fork/restore sequence.
func (m *VMM) Destroy() {
	m.VCPU.Close()
	if err := vmDestroy(); err != nil {
		log.Fatalf("hv: %v", err)
	}
}

// Reentry recreates the VM and VCPU after a host-level fork (or for the
// very first task of a restored snapshot), restoring architectural state
// from a snapshot and re-mapping every tracked region into the fresh
// EPT, in this order: create the VM, create the VCPU, init_msr, restore
// registers, VMCS fields and FPU state (VCPU.Restore), then restore_ept.
func Reentry(snap *VcpuSnapshot, space *mm.AddressSpace) *VMM {
	if err := vmCreate(); err != nil {
		log.Fatalf("hv: %v", err)
	}
	cpu, err := CreateVCPU()
	if err != nil {
		log.Fatalf("hv: %v", err)
	}
	m := &VMM{VCPU: cpu, Space: space, kernBrk: kernBrkBase}
	m.initMSR()
	cpu.Restore(snap)
	m.restoreEPT()
	return m
}

// CloneVCPU creates a new VCPU inside the process's single already-live
// VM and restores snap onto it, implementing spec.md §4.8's thread-clone
// path: "spawn a host thread whose entry point creates its own VCPU from
// the snapshot" — a sibling VCPU sharing the parent's VM and EPT, not a
// second VM (Hypervisor.framework permits only one VM per process, which
// is why the fork path in Reentry tears the old one down first; a thread
// clone must not go through that same teardown since the parent's VCPU
// is still live in the same VM). space is the caller's Space, shared
// unchanged since the new VCPU runs in the same address space; kernBrk
// carries forward the parent's guest-physical bump-allocator watermark
// so a later kmap from either task never collides with the other's.
func CloneVCPU(snap *VcpuSnapshot, space *mm.AddressSpace, kernBrk uint64) *VMM {
	cpu, err := CreateVCPU()
	if err != nil {
		log.Fatalf("hv: %v", err)
	}
	m := &VMM{VCPU: cpu, Space: space, kernBrk: kernBrk}
	m.initMSR()
	cpu.Restore(snap)
	return m
}

func (m *VMM) restoreEPT() {
	for _, r := range m.Space.Regions() {
		if err := vmMap(unsafe.Pointer(uintptr(r.HostPtr)), r.GuestAddr, r.Length, protFlags(r.Prot)); err != nil {
			log.Fatalf("hv: restore ept: %v", err)
		}
	}
}

func protFlags(p mm.Prot) MemFlags {
	var f MemFlags
	if p&mm.ProtRead != 0 {
		f |= MemRead
	}
	if p&mm.ProtWrite != 0 {
		f |= MemWrite
	}
	if p&mm.ProtExec != 0 {
		f |= MemExec
	}
	return f
}

// Mmap maps a host-backed range into the guest at gaddr, updating the
// hypervisor's EPT, the shadow page tables, and the tracked region list
// together, per spec.md §4.1/§4.2's "single vmm_map operation" contract.
func (m *VMM) Mmap(gaddr uint64, size uint64, prot mm.Prot, host unsafe.Pointer) {
	_ = vmUnmap(gaddr, size) // best-effort; original_source unmaps before remapping too
	if err := vmMap(host, gaddr, size, protFlags(prot)); err != nil {
		log.Fatalf("hv: vmm_mmap: %v", err)
	}
	m.Space.Map(gaddr, uint64(uintptr(host)), size, prot)
}

// kmap bump-allocates the next guest-physical range, maps it 1:1 onto
// ptr, and returns the guest address, mirroring original_source's kmap.
func (m *VMM) kmap(ptr unsafe.Pointer, size uint64, prot mm.Prot) uint64 {
	g := m.kernBrk
	m.Mmap(g, size, prot, ptr)
	m.kernBrk += size
	return g
}

func (m *VMM) initVMCS() {
	pin, err := readCapability(CapPinBased)
	if err != nil {
		log.Fatalf("hv: %v", err)
	}
	proc, err := readCapability(CapProcBased)
	if err != nil {
		log.Fatalf("hv: %v", err)
	}
	proc2, err := readCapability(CapProcBased2)
	if err != nil {
		log.Fatalf("hv: %v", err)
	}
	entry, err := readCapability(CapEntry)
	if err != nil {
		log.Fatalf("hv: %v", err)
	}
	exit, err := readCapability(CapExit)
	if err != nil {
		log.Fatalf("hv: %v", err)
	}

	v := m.VCPU
	v.WriteVMCS(VMCSCtrlPinBased, capToCtrl(pin, 0))
	v.WriteVMCS(VMCSCtrlCPUBased, capToCtrl(proc, cpuBasedHLT|cpuBasedCR8Load|cpuBasedCR8Store))
	v.WriteVMCS(VMCSCtrlCPUBased2, capToCtrl(proc2, 0))
	v.WriteVMCS(VMCSCtrlVMEntryControls, capToCtrl(entry, vmEntryLoadEFER|vmEntryGuestIA32E))
	v.WriteVMCS(VMCSCtrlVMExitControls, capToCtrl(exit, vmExitLoadEFER))
	// Trap every exception, including #UD, so the SYSCALL instruction
	// (which this configuration never lets the guest execute natively)
	// vectors to the exit dispatcher, per spec.md §4.5.
	v.WriteVMCS(VMCSCtrlExcBitmap, 0xffffffff)
	v.WriteVMCS(VMCSCtrlCR0Shadow, 0)
	v.WriteVMCS(VMCSCtrlCR4Mask, 0)
	v.WriteVMCS(VMCSCtrlCR4Shadow, 0)
}

func (m *VMM) initMSR() {
	m.VCPU.EnableNativeMSR(msrTimeStampCounter)
	m.VCPU.EnableNativeMSR(msrTSCAux)
	m.VCPU.EnableNativeMSR(msrKernelGSBase)
}

// initPage installs a single PML4 entry pointing at a single PDP whose
// 512 entries identity-map the first 512 GiB of guest memory with 1 GiB
// pages; it then points the guest CR3 at the PML4.
func (m *VMM) initPage() {
	if m.pml4 == nil {
		m.pml4 = make([]byte, 4096)
	}
	if m.pdp == nil {
		m.pdp = make([]byte, 4096)
	}
	for i := 0; i < 512; i++ {
		putle64(m.pdp, i*8, uint64(i)<<30|mm.PtePS|mm.PteU|mm.PteW|mm.PteP)
	}
	pml4G := m.kmap(unsafe.Pointer(&m.pml4[0]), 4096, mm.ProtRead|mm.ProtWrite)
	pdpG := m.kmap(unsafe.Pointer(&m.pdp[0]), 4096, mm.ProtRead|mm.ProtWrite)

	entry := mm.PteU | mm.PteW | mm.PteP | (pdpG & 0x000ffffffffff000)
	putle64(m.pml4, 0, entry)

	m.VCPU.WriteVMCS(VMCSGuestCR0, cr0PG|cr0PE|cr0NE)
	m.VCPU.WriteVMCS(VMCSGuestCR3, pml4G)
}

func (m *VMM) initSpecialRegs() {
	v := m.VCPU
	cr4 := v.ReadVMCS(VMCSGuestCR4)
	v.WriteVMCS(VMCSGuestCR4, cr4|cr4PAE|cr4OSFXSR|cr4VMXE)

	efer := v.ReadVMCS(VMCSGuestIA32EFER)
	v.WriteVMCS(VMCSGuestIA32EFER, efer|eferLME|eferLMA)
}

// initSegment installs a flat 3-entry long-mode GDT (null/code/data,
// matching the exact descriptor values original_source hardcodes) and
// points every segment register at the flat data/code selectors.
func (m *VMM) initSegment() {
	if m.gdt == nil {
		m.gdt = make([]byte, 4096)
	}
	putle64(m.gdt, segNull*8, 0)
	putle64(m.gdt, segCode*8, 0x0020980000000000)
	putle64(m.gdt, segData*8, 0x0000900000000000)
	gdtG := m.kmap(unsafe.Pointer(&m.gdt[0]), 4096, mm.ProtRead|mm.ProtWrite)

	v := m.VCPU
	v.WriteVMCS(VMCSGuestGDTRBase, gdtG)
	v.WriteVMCS(VMCSGuestGDTRLimit, 3*8-1)

	v.WriteVMCS(VMCSGuestTRBase, 0)
	v.WriteVMCS(VMCSGuestTRAR, 0x0000008b)
	v.WriteVMCS(VMCSGuestLDTRBase, 0)
	v.WriteVMCS(VMCSGuestLDTRAR, descUnusable)

	const codesegAR = 0x0000209B
	const datasegAR = 0x00000093

	v.WriteVMCS(VMCSGuestCSBase, 0)
	v.WriteVMCS(VMCSGuestCSLimit, 0)
	v.WriteVMCS(VMCSGuestCSAR, codesegAR)

	v.WriteVMCS(VMCSGuestDSBase, 0)
	v.WriteVMCS(VMCSGuestDSAR, datasegAR)
	v.WriteVMCS(VMCSGuestESBase, 0)
	v.WriteVMCS(VMCSGuestESAR, datasegAR)
	v.WriteVMCS(VMCSGuestFSBase, 0)
	v.WriteVMCS(VMCSGuestFSAR, datasegAR)
	v.WriteVMCS(VMCSGuestGSBase, 0)
	v.WriteVMCS(VMCSGuestGSAR, datasegAR)
	v.WriteVMCS(VMCSGuestSSAR, datasegAR)

	v.WriteReg(RegCS, gsel(segCode, 0))
	v.WriteReg(RegDS, gsel(segData, 0))
	v.WriteReg(RegES, gsel(segData, 0))
	v.WriteReg(RegFS, gsel(segData, 0))
	v.WriteReg(RegGS, gsel(segData, 0))
	v.WriteReg(RegSS, gsel(segData, 0))
	v.WriteReg(RegTR, 0)
	v.WriteReg(RegLDTR, 0)
}

func (m *VMM) initIDT() {
	if m.idt == nil {
		m.idt = make([]byte, 4096) // 256 * 16-byte gate descriptors, rounded up
	}
	idtG := m.kmap(unsafe.Pointer(&m.idt[0]), 4096, mm.ProtRead|mm.ProtWrite)
	m.VCPU.WriteVMCS(VMCSGuestIDTRBase, idtG)
	m.VCPU.WriteVMCS(VMCSGuestIDTRLimit, uint64(len(m.idt)-1))
}

func (m *VMM) initRegs() {
	m.VCPU.WriteReg(RegRFLAGS, 0x2)
}

func putle64(buf []byte, off int, v uint64) {
	for i := 0; i < 8; i++ {
		buf[off+i] = byte(v >> (8 * i))
	}
}
