package mm

import "sort"

// Region describes one mapped range of guest memory, per spec.md §3.
type Region struct {
	HostPtr   uint64
	GuestAddr uint64
	Length    uint64
	Prot      Prot
}

func (r Region) end() uint64 { return r.GuestAddr + r.Length }

// overlaps reports whether r and [addr, addr+length) share any byte.
func (r Region) overlaps(addr, length uint64) bool {
	return addr < r.end() && r.GuestAddr < addr+length
}

// AddressSpace is the ordered, non-overlapping region set of spec.md §4.2,
// plus the shadow page tables it keeps in sync. It is the single
// authoritative region list — spec.md §9 open question (a) resolves the
// source's vmm_vm_regions/mm_regions duplication into this one structure.
type AddressSpace struct {
	Shadow  *Space
	regions []Region // kept sorted by GuestAddr, non-overlapping
}

// NewAddressSpace returns an empty address space.
func NewAddressSpace() *AddressSpace {
	return &AddressSpace{Shadow: NewSpace()}
}

// Regions returns a snapshot of the current region list, in guest-address
// order. Callers must not mutate the returned slice.
func (a *AddressSpace) Regions() []Region {
	out := make([]Region, len(a.regions))
	copy(out, a.regions)
	return out
}

// Map records a new region, splitting or evicting any existing region
// that overlaps [gaddr, gaddr+length), then updates the shadow page
// tables for the new range. This mirrors original_source's record_region
// followed by the page_map_help loops in vmm_mmap.
func (a *AddressSpace) Map(gaddr, haddr, length uint64, prot Prot) {
	a.recordRegion(gaddr, length, haddr, prot)
	a.Shadow.Map(gaddr, haddr, length, prot)
}

// Unmap removes [gaddr, gaddr+length) from the region list and the shadow
// page tables. Host-virtual addresses for the unmapped range are looked
// up in the g2h tree before its entries are cleared.
func (a *AddressSpace) Unmap(gaddr, length uint64) {
	for off := uint64(0); off < length; off += pageSize {
		if haddr, ok := a.Shadow.GuestToHost(gaddr + off); ok {
			a.Shadow.G2H.Unmap(gaddr + off)
			a.Shadow.H2G.Unmap(haddr)
		}
	}
	a.recordUnmap(gaddr, length)
}

// recordRegion performs the split/evict/insert sequence described in
// spec.md §4.2, preserving the pre-map prot of any surviving fragment.
func (a *AddressSpace) recordRegion(gaddr, length, haddr uint64, prot Prot) {
	var kept []Region
	for _, r := range a.regions {
		if !r.overlaps(gaddr, length) {
			kept = append(kept, r)
			continue
		}
		// Left fragment survives if the existing region starts before
		// the new mapping.
		if r.GuestAddr < gaddr {
			kept = append(kept, Region{
				HostPtr:   r.HostPtr,
				GuestAddr: r.GuestAddr,
				Length:    gaddr - r.GuestAddr,
				Prot:      r.Prot,
			})
		}
		// Right fragment survives if the existing region ends after
		// the new mapping.
		if r.end() > gaddr+length {
			delta := (gaddr + length) - r.GuestAddr
			kept = append(kept, Region{
				HostPtr:   r.HostPtr + delta,
				GuestAddr: gaddr + length,
				Length:    r.end() - (gaddr + length),
				Prot:      r.Prot,
			})
		}
		// Fully-contained fragments are dropped entirely.
	}
	kept = append(kept, Region{HostPtr: haddr, GuestAddr: gaddr, Length: length, Prot: prot})
	sort.Slice(kept, func(i, j int) bool { return kept[i].GuestAddr < kept[j].GuestAddr })
	a.regions = kept
}

// recordUnmap removes [gaddr, gaddr+length) from the region list the same
// way recordRegion would for an empty replacement mapping.
func (a *AddressSpace) recordUnmap(gaddr, length uint64) {
	var kept []Region
	for _, r := range a.regions {
		if !r.overlaps(gaddr, length) {
			kept = append(kept, r)
			continue
		}
		if r.GuestAddr < gaddr {
			kept = append(kept, Region{
				HostPtr:   r.HostPtr,
				GuestAddr: r.GuestAddr,
				Length:    gaddr - r.GuestAddr,
				Prot:      r.Prot,
			})
		}
		if r.end() > gaddr+length {
			delta := (gaddr + length) - r.GuestAddr
			kept = append(kept, Region{
				HostPtr:   r.HostPtr + delta,
				GuestAddr: gaddr + length,
				Length:    r.end() - (gaddr + length),
				Prot:      r.Prot,
			})
		}
	}
	sort.Slice(kept, func(i, j int) bool { return kept[i].GuestAddr < kept[j].GuestAddr })
	a.regions = kept
}

// RebuildShadow re-inserts every tracked region into fresh shadow page
// tables. It rebuilds only the g2h/h2g trees; the hypervisor's EPT is not
// touched here (hv.Reentry re-maps the regions into a new EPT itself).
func (a *AddressSpace) RebuildShadow() {
	a.Shadow = NewSpace()
	for _, r := range a.regions {
		a.Shadow.Map(r.GuestAddr, r.HostPtr, r.Length, r.Prot)
	}
}
