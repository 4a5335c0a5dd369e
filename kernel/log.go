package kernel

import (
	"io"
	"log"
)

// The three independent log sinks spec.md §6's -o/-w/-s flags select,
// mirroring original_source's printk/warnk/strace split. Each defaults
// to a discarding logger so a kernel used without any of those flags
// never touches the filesystem to produce output nobody asked for.
var (
	Printk = log.New(io.Discard, "", 0)
	Warnk  = log.New(io.Discard, "", 0)
	Strace = log.New(io.Discard, "", 0)
)

// SetPrintk, SetWarnk, SetStrace point the corresponding sink at w,
// called once from main() after the CLI flags naming their target
// files have been parsed and opened.
func SetPrintk(w io.Writer) { Printk = log.New(w, "", log.LstdFlags) }
func SetWarnk(w io.Writer)  { Warnk = log.New(w, "", log.LstdFlags) }
func SetStrace(w io.Writer) { Strace = log.New(w, "", 0) }
