package main

import (
	"debug/elf"
	"fmt"
	"io"
	"unsafe"

	"golang.org/x/sys/unix"

	"vklinux/kernel/hv"
	"vklinux/kernel/mm"
)

// guestStackTop and guestStackSize pin the initial stack the same way
// original_source's vmm_create reserves a fixed guest-virtual range for
// it rather than placing it relative to the loaded image.
const (
	guestStackTop  = 0x0000007ffffff000
	guestStackSize = 8 << 20
)

// loadedImage carries the two addresses the initial task's registers
// need once the ELF has been mapped in: where execution starts, and
// where the stack (already populated with argv/envp/auxv) begins.
type loadedImage struct {
	entry uint64
	sp    uint64
}

// loadELF maps every PT_LOAD segment of path into the guest, builds the
// initial stack image (argv, envp, and the auxiliary vector a Linux
// dynamic loader/libc expects), and returns the registers the first
// task's RIP/RSP should be seeded with. File I/O sits outside the core
// kernel's scope (spec.md §1); this is the one piece of it a working
// entrypoint cannot avoid doing itself.
func loadELF(vmm *hv.VMM, path string, argv, envp []string) (loadedImage, error) {
	f, err := elf.Open(path)
	if err != nil {
		return loadedImage{}, fmt.Errorf("open elf: %w", err)
	}
	defer f.Close()

	if f.Machine != elf.EM_X86_64 || f.Class != elf.ELFCLASS64 {
		return loadedImage{}, fmt.Errorf("unsupported elf: %s/%s", f.Machine, f.Class)
	}

	for _, prog := range f.Progs {
		if prog.Type != elf.PT_LOAD {
			continue
		}
		if err := mapSegment(vmm, f, prog); err != nil {
			return loadedImage{}, err
		}
	}

	sp, err := buildStack(vmm, f, argv, envp)
	if err != nil {
		return loadedImage{}, err
	}

	return loadedImage{entry: f.Entry, sp: sp}, nil
}

// mapSegment backs one PT_LOAD segment with anonymous host memory sized
// to the containing page range, copies in its file contents, zeroes the
// bss tail (MemSz beyond FileSz), and hands the whole range to the VMM
// as a single mapping.
func mapSegment(vmm *hv.VMM, f *elf.File, prog *elf.Prog) error {
	const pageSize = 1 << 12
	gaddr := prog.Vaddr &^ (pageSize - 1)
	off := prog.Vaddr - gaddr
	size := (off + prog.Memsz + pageSize - 1) &^ (pageSize - 1)

	host, err := unix.Mmap(-1, 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return fmt.Errorf("map segment: %w", err)
	}

	sr := prog.Open()
	if _, err := io.ReadFull(sr, host[off:off+prog.Filesz]); err != nil {
		return fmt.Errorf("read segment: %w", err)
	}

	vmm.Mmap(gaddr, size, progProt(prog.Flags), unsafe.Pointer(&host[0]))
	return nil
}

func progProt(flags elf.ProgFlag) mm.Prot {
	var p mm.Prot
	if flags&elf.PF_R != 0 {
		p |= mm.ProtRead
	}
	if flags&elf.PF_W != 0 {
		p |= mm.ProtWrite
	}
	if flags&elf.PF_X != 0 {
		p |= mm.ProtExec
	}
	return p
}

// buildStack lays out argc, argv[], NULL, envp[], NULL, the auxiliary
// vector, then the argument/environment strings themselves, matching
// the Linux x86-64 process-startup stack image a libc's _start expects.
func buildStack(vmm *hv.VMM, f *elf.File, argv, envp []string) (uint64, error) {
	host, err := unix.Mmap(-1, 0, guestStackSize, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return 0, fmt.Errorf("map stack: %w", err)
	}
	gaddr := guestStackTop - guestStackSize
	vmm.Mmap(gaddr, guestStackSize, mm.ProtRead|mm.ProtWrite, unsafe.Pointer(&host[0]))

	top := guestStackSize
	writeStr := func(s string) uint64 {
		n := len(s) + 1
		top -= n
		copy(host[top:], s)
		host[top+n-1] = 0
		return gaddr + uint64(top)
	}

	argvAddrs := make([]uint64, len(argv))
	for i, a := range argv {
		argvAddrs[i] = writeStr(a)
	}
	envAddrs := make([]uint64, len(envp))
	for i, e := range envp {
		envAddrs[i] = writeStr(e)
	}

	var table []uint64
	table = append(table, uint64(len(argv)))
	table = append(table, argvAddrs...)
	table = append(table, 0)
	table = append(table, envAddrs...)
	table = append(table, 0)
	table = append(table, elfAuxv(f)...)
	table = append(table, 0, 0) // AT_NULL

	top -= len(table) * 8
	top &^= 0xf
	for i, w := range table {
		putU64(host[top+i*8:], w)
	}

	return gaddr + uint64(top), nil
}

// elfAuxv builds the handful of AT_* entries a libc startup path reads
// before it ever calls into the kernel, per the x86-64 auxv contract.
func elfAuxv(f *elf.File) []uint64 {
	const (
		atPagesz = 6
		atEntry  = 9
	)
	return []uint64{
		atPagesz, 4096,
		atEntry, f.Entry,
	}
}

func putU64(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
}
