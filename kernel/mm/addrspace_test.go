package mm_test

import (
	"testing"

	"vklinux/kernel/mm"
)

func regionsEqual(t *testing.T, got []mm.Region, want []mm.Region) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("region count = %d, want %d (%+v)", len(got), len(want), got)
	}
	for i := range got {
		if got[i] != want[i] {
			t.Fatalf("region[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestAddressSpaceMapIsOrderedAndNonOverlapping(t *testing.T) {
	a := mm.NewAddressSpace()
	a.Map(0x3000, 0x100003000, 0x1000, mm.ProtRead)
	a.Map(0x1000, 0x100001000, 0x1000, mm.ProtRead)
	a.Map(0x2000, 0x100002000, 0x1000, mm.ProtRead)

	regions := a.Regions()
	for i := 1; i < len(regions); i++ {
		if regions[i-1].GuestAddr >= regions[i].GuestAddr {
			t.Fatalf("regions not sorted: %+v", regions)
		}
		if regions[i-1].GuestAddr+regions[i-1].Length > regions[i].GuestAddr {
			t.Fatalf("regions overlap: %+v", regions)
		}
	}
}

func TestAddressSpaceSplitOnOverlap(t *testing.T) {
	a := mm.NewAddressSpace()
	a.Map(0x1000, 0x100001000, 0x3000, mm.ProtRead) // [0x1000, 0x4000)
	a.Map(0x2000, 0x200002000, 0x1000, mm.ProtWrite) // punches a hole at [0x2000,0x3000)

	regionsEqual(t, a.Regions(), []mm.Region{
		{HostPtr: 0x100001000, GuestAddr: 0x1000, Length: 0x1000, Prot: mm.ProtRead},
		{HostPtr: 0x200002000, GuestAddr: 0x2000, Length: 0x1000, Prot: mm.ProtWrite},
		{HostPtr: 0x100002000 + 0x1000, GuestAddr: 0x3000, Length: 0x1000, Prot: mm.ProtRead},
	})
}

func TestAddressSpaceUnmapDropsRegion(t *testing.T) {
	a := mm.NewAddressSpace()
	a.Map(0x5000, 0x300005000, 0x1000, mm.ProtRead)
	a.Unmap(0x5000, 0x1000)

	regionsEqual(t, a.Regions(), nil)
	if _, ok := a.Shadow.GuestToHost(0x5000); ok {
		t.Fatal("shadow mapping survived Unmap")
	}
}

func TestAddressSpaceRebuildShadow(t *testing.T) {
	a := mm.NewAddressSpace()
	a.Map(0x6000, 0x400006000, 0x1000, mm.ProtRead|mm.ProtWrite)

	a.RebuildShadow()

	if haddr, ok := a.Shadow.GuestToHost(0x6000); !ok || haddr != 0x400006000 {
		t.Fatalf("after rebuild: GuestToHost(0x6000) = (%#x, %v)", haddr, ok)
	}
}
