package mm_test

import (
	"bytes"
	"testing"
	"unsafe"

	"vklinux/kernel/mm"
)

// backingPage allocates a page-aligned-enough buffer to stand in for guest
// RAM and returns its host-virtual address for mapping into an
// AddressSpace. Tests map a single guest page onto it.
func backingPage(t *testing.T) (buf []byte, haddr uint64) {
	t.Helper()
	buf = make([]byte, 8192) // generous over-allocation; we map one 4K page inside it
	haddr = uint64(uintptr(unsafe.Pointer(&buf[0])))
	return buf, haddr
}

func TestUserCopyRoundTrip(t *testing.T) {
	buf, haddr := backingPage(t)
	a := mm.NewAddressSpace()
	const gaddr = 0x400000
	a.Map(gaddr, haddr, 0x1000, mm.ProtRead|mm.ProtWrite)

	want := []byte("hello, guest\x00padding")
	if err := a.CopyToUser(gaddr+0x10, want, len(want)); err != nil {
		t.Fatalf("CopyToUser: %v", err)
	}

	got := make([]byte, len(want))
	if err := a.CopyFromUser(got, gaddr+0x10, len(got)); err != nil {
		t.Fatalf("CopyFromUser: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("round trip = %q, want %q", got, want)
	}
	_ = buf
}

func TestUserCopyFaultsOutsideMapping(t *testing.T) {
	a := mm.NewAddressSpace()
	got := make([]byte, 4)
	err := a.CopyFromUser(got, 0xdead0000, 4)
	if err == nil {
		t.Fatal("CopyFromUser outside any mapping: expected fault")
	}
	var fault *mm.ErrFault
	if !errorsAs(err, &fault) {
		t.Fatalf("CopyFromUser error = %v, want *ErrFault", err)
	}
}

func TestStrncpyFromUser(t *testing.T) {
	buf, haddr := backingPage(t)
	_ = buf
	a := mm.NewAddressSpace()
	const gaddr = 0x500000
	a.Map(gaddr, haddr, 0x1000, mm.ProtRead|mm.ProtWrite)

	src := append([]byte("short\x00trailer"), 0)
	if err := a.CopyToUser(gaddr, src, len(src)); err != nil {
		t.Fatalf("CopyToUser: %v", err)
	}

	dst := make([]byte, 32)
	n, err := a.StrncpyFromUser(dst, gaddr, len(dst))
	if err != nil {
		t.Fatalf("StrncpyFromUser: %v", err)
	}
	if n != len("short") {
		t.Fatalf("StrncpyFromUser length = %d, want %d", n, len("short"))
	}
	if string(dst[:n]) != "short" {
		t.Fatalf("StrncpyFromUser = %q, want %q", dst[:n], "short")
	}
}

// errorsAs is a tiny local helper so the test doesn't need to import
// errors just for this one assertion style.
func errorsAs(err error, target **mm.ErrFault) bool {
	f, ok := err.(*mm.ErrFault)
	if ok {
		*target = f
	}
	return ok
}
