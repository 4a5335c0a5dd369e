package mm

// CopyFromUser copies n bytes from guest address src into dst, page-wise
// through the g2h shadow tree. It is the only path by which the host
// reads guest memory; it never assumes the guest range is contiguous in
// host memory across a page boundary. Returns ErrFault on any miss.
func (a *AddressSpace) CopyFromUser(dst []byte, src uint64, n int) error {
	return a.userCopy(dst, src, n, true)
}

// CopyToUser copies n bytes from host memory into guest address dst,
// symmetric to CopyFromUser.
func (a *AddressSpace) CopyToUser(dst uint64, src []byte, n int) error {
	return a.userCopy(src, dst, n, false)
}

// userCopy walks the guest range a page at a time, copying into/out of
// buf depending on fromGuest, and reports the first faulting address hit.
func (a *AddressSpace) userCopy(buf []byte, guest uint64, n int, fromGuest bool) error {
	done := 0
	for done < n {
		pageOff := guest % pageSize
		chunk := int(pageSize - pageOff)
		if chunk > n-done {
			chunk = n - done
		}
		haddr, ok := a.Shadow.GuestToHost(guest)
		if !ok {
			return &ErrFault{Addr: guest}
		}
		host := hostBytes(haddr, chunk)
		if fromGuest {
			copy(buf[done:done+chunk], host)
		} else {
			copy(host, buf[done:done+chunk])
		}
		done += chunk
		guest += uint64(chunk)
	}
	return nil
}

// StrncpyFromUser copies from guest address src into dst until a NUL byte
// is found or nMax bytes have been copied, returning the copied length
// (excluding any NUL) or an error on a page-table miss.
func (a *AddressSpace) StrncpyFromUser(dst []byte, src uint64, nMax int) (int, error) {
	for i := 0; i < nMax; i++ {
		haddr, ok := a.Shadow.GuestToHost(src + uint64(i))
		if !ok {
			return 0, &ErrFault{Addr: src + uint64(i)}
		}
		b := hostBytes(haddr, 1)[0]
		if i < len(dst) {
			dst[i] = b
		}
		if b == 0 {
			return i, nil
		}
	}
	return nMax, nil
}

// StrnlenUser returns the length of the NUL-terminated guest string at
// addr, up to a limit, or an error on a page-table miss before either the
// NUL or the limit is reached.
func (a *AddressSpace) StrnlenUser(addr uint64, limit int) (int, error) {
	for i := 0; i < limit; i++ {
		haddr, ok := a.Shadow.GuestToHost(addr + uint64(i))
		if !ok {
			return 0, &ErrFault{Addr: addr + uint64(i)}
		}
		if hostBytes(haddr, 1)[0] == 0 {
			return i, nil
		}
	}
	return limit, nil
}
