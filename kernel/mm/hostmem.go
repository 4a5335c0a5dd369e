package mm

import "unsafe"

// hostBytes views n bytes of host memory starting at the given
// host-virtual address as a Go byte slice. haddr values originate from
// the host memory handed to kernel/hv.VMM.Mmap (mmap'd guest RAM, or the
// Go-allocated pages kmap maps), so the conversion back to a pointer is
// sound for the lifetime of that mapping.
func hostBytes(haddr uint64, n int) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(uintptr(haddr))), n)
}
