// Command vklinux runs a single Linux x86-64 ELF binary as a guest under
// Apple's Hypervisor.framework, translating its syscalls onto the host
// the way original_source's noah does.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"

	"vklinux/kernel"
	"vklinux/kernel/hv"
)

func main() {
	os.Exit(run())
}

func run() int {
	var outPath, warnPath, stracePath, mntPath string
	flag.StringVar(&outPath, "o", "", "printk output file")
	flag.StringVar(&outPath, "output", "", "printk output file")
	flag.StringVar(&warnPath, "w", "", "warnk output file")
	flag.StringVar(&stracePath, "s", "", "strace output file")
	flag.StringVar(&stracePath, "strace", "", "strace output file")
	flag.StringVar(&mntPath, "m", "", "chroot-style mount root")
	flag.StringVar(&mntPath, "mnt", "", "chroot-style mount root")
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "usage: vklinux [options] <elf> [args...]")
		return 1
	}

	if err := openLogSinks(outPath, warnPath, stracePath); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	realUID := unix.Getuid()
	if err := unix.Seteuid(realUID); err != nil {
		fmt.Fprintln(os.Stderr, "drop privilege:", err)
		return 1
	}

	if mntPath == "" {
		mntPath = defaultMnt()
	}
	if mntPath != filepath.Clean(mntPath) || !filepath.IsAbs(mntPath) {
		if abs, err := filepath.Abs(mntPath); err == nil {
			mntPath = abs
		}
	}
	if realUID != 0 {
		// Chroot-style mount roots are refused to an unprivileged
		// caller, per spec.md §6; the root path is still recorded for
		// whatever plain path-prefixing a VFS-layer caller wants.
		kernel.Warnk.Printf("running unprivileged; mount root %q is not enforced as a chroot", mntPath)
	}

	k := kernel.Boot(mntPath)
	t := k.NewInitialTask()

	image, err := loadELF(t.VMM(), flag.Arg(0), flag.Args(), os.Environ())
	if err != nil {
		fmt.Fprintln(os.Stderr, "load elf:", err)
		return 1
	}

	v := t.VCPU()
	v.WriteReg(hv.RegRIP, image.entry)
	v.WriteReg(hv.RegRSP, image.sp)

	kernel.Printk.Printf("starting %s at entry %#x", flag.Arg(0), image.entry)
	kernel.Run(t)
	return 0
}

// defaultMnt mirrors original_source's default_mnt(): "<exe-dir>/../mnt"
// when no -m/--mnt flag names an explicit root.
func defaultMnt() string {
	exe, err := os.Executable()
	if err != nil {
		return "mnt"
	}
	return filepath.Join(filepath.Dir(exe), "..", "mnt")
}

func openLogSinks(outPath, warnPath, stracePath string) error {
	open := func(path string, set func(*os.File)) error {
		if path == "" {
			return nil
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("open %s: %w", path, err)
		}
		set(f)
		return nil
	}
	if err := open(outPath, func(f *os.File) { kernel.SetPrintk(f) }); err != nil {
		return err
	}
	if err := open(warnPath, func(f *os.File) { kernel.SetWarnk(f) }); err != nil {
		return err
	}
	if err := open(stracePath, func(f *os.File) { kernel.SetStrace(f) }); err != nil {
		return err
	}
	return nil
}
