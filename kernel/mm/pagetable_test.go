package mm_test

import (
	"testing"

	"vklinux/kernel/mm"
)

func TestPageTableMapWalk(t *testing.T) {
	pt := mm.New()
	const g = 0x1000
	const h = 0x7f0000001000
	perm := uint64(mm.PteU | mm.PteW)

	pt.Map(g, h, perm)

	got, gotPerm, ok := pt.Walk(g)
	if !ok {
		t.Fatalf("walk(%#x): miss after map", g)
	}
	if got != h {
		t.Errorf("walk(%#x) = %#x, want %#x", g, got, h)
	}
	wantPerm := perm | mm.PteP | mm.PtePS
	if gotPerm != wantPerm {
		t.Errorf("walk(%#x) perm = %#x, want %#x", g, gotPerm, wantPerm)
	}
}

func TestPageTableUnmapIsMiss(t *testing.T) {
	pt := mm.New()
	pt.Map(0x2000, 0x500000002000, mm.PteW)
	pt.Unmap(0x2000)

	if _, _, ok := pt.Walk(0x2000); ok {
		t.Fatalf("walk after unmap: expected miss")
	}
}

func TestPageTableOffsetWithinPage(t *testing.T) {
	pt := mm.New()
	pt.Map(0x3000, 0x600000003000, mm.PteW)

	got, _, ok := pt.Walk(0x3123)
	if !ok {
		t.Fatalf("walk(0x3123): expected hit via containing page")
	}
	if want := uint64(0x600000003123); got != want {
		t.Errorf("walk(0x3123) = %#x, want %#x", got, want)
	}
}

func TestPageTableGuestLimitPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("Map with bit-47 address: expected panic")
		}
	}()
	mm.New().Map(1<<47, 0, 0)
}

func TestShadowSpaceRoundTrip(t *testing.T) {
	s := mm.NewSpace()
	const g = 0x10000
	const h = 0x7f1000010000
	s.Map(g, h, 0x4000, mm.ProtRead|mm.ProtWrite)

	for _, off := range []uint64{0, 0x1000, 0x2fff, 0x3fff} {
		gh, ok := s.GuestToHost(g + off)
		if !ok || gh != h+off {
			t.Fatalf("GuestToHost(%#x) = (%#x, %v), want (%#x, true)", g+off, gh, ok, h+off)
		}
		hg, ok := s.HostToGuest(h + off)
		if !ok || hg != g+off {
			t.Fatalf("HostToGuest(%#x) = (%#x, %v), want (%#x, true)", h+off, hg, ok, g+off)
		}
	}
}

func TestShadowSpaceUnmap(t *testing.T) {
	s := mm.NewSpace()
	s.Map(0x20000, 0x7f2000020000, 0x1000, mm.ProtRead)
	s.Unmap(0x20000, 0x7f2000020000, 0x1000)

	if _, ok := s.GuestToHost(0x20000); ok {
		t.Fatal("GuestToHost after unmap: expected miss")
	}
	if _, ok := s.HostToGuest(0x7f2000020000); ok {
		t.Fatal("HostToGuest after unmap: expected miss")
	}
}
