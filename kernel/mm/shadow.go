package mm

const pageSize = 4096

// Prot mirrors the hypervisor's HV_MEMORY_* protection bits, translated
// into shadow-table permission bits by ToPTE.
type Prot uint32

const (
	ProtRead  Prot = 1 << 0
	ProtWrite Prot = 1 << 1
	ProtExec  Prot = 1 << 2
)

// ToPTE translates a Prot value to shadow page-table permission bits, per
// spec.md §4.1/original_source vmm.c vmm_mmap: every mapping is at least
// user+present, writeable iff ProtWrite, executable unless ProtExec is
// absent.
func ToPTE(p Prot) uint64 {
	perm := uint64(PteU | PteP)
	if p&ProtWrite != 0 {
		perm |= PteW
	}
	if p&ProtExec == 0 {
		perm |= PteNX
	}
	return perm
}

// ErrFault is returned by user-memory accessors on a page-table miss.
type ErrFault struct{ Addr uint64 }

func (e *ErrFault) Error() string { return "bad address" }

// Space holds the pair of shadow radix trees that must always be updated
// in lockstep with each other and with the hypervisor's EPT: g2h
// (guest-physical -> host-virtual) and h2g (host-virtual -> guest-physical).
type Space struct {
	G2H *PageTable
	H2G *PageTable
}

// NewSpace returns an empty pair of shadow trees.
func NewSpace() *Space {
	return &Space{G2H: New(), H2G: New()}
}

// Map installs a page-aligned range [gaddr, gaddr+size) <-> [haddr,
// haddr+size) into both shadow trees, one 4 KiB page at a time. The
// caller is responsible for the corresponding hv_vm_map/hv_vm_unmap call;
// this only maintains the shadow bookkeeping, matching the division of
// labour in original_source's vmm_mmap (hypervisor call + two page_map_help
// loops).
func (s *Space) Map(gaddr, haddr, size uint64, prot Prot) {
	perm := ToPTE(prot)
	for off := uint64(0); off < size; off += pageSize {
		s.G2H.Map(gaddr+off, haddr+off, perm)
		s.H2G.MapUnchecked(haddr+off, gaddr+off, perm)
	}
}

// Unmap clears a page-aligned range from both shadow trees.
func (s *Space) Unmap(gaddr, haddr, size uint64) {
	for off := uint64(0); off < size; off += pageSize {
		s.G2H.Unmap(gaddr + off)
		s.H2G.Unmap(haddr + off)
	}
}

// GuestToHost translates a guest-physical address to host-virtual,
// implementing spec.md's g2h(). A miss is reported via ok=false; callers
// that must surface this to the guest use ErrFault.
func (s *Space) GuestToHost(gaddr uint64) (haddr uint64, ok bool) {
	v, _, ok := s.G2H.Walk(gaddr)
	return v, ok
}

// HostToGuest translates a host-virtual address to guest-physical,
// implementing spec.md's h2g().
func (s *Space) HostToGuest(haddr uint64) (gaddr uint64, ok bool) {
	v, _, ok := s.H2G.Walk(haddr)
	return v, ok
}
