package kernel

import "testing"

func TestIsSyscallInsnRecognizesOpcode(t *testing.T) {
	op := [2]byte{0x0f, 0x05} // SYSCALL, little-endian per spec.md §4.5
	if !isSyscallInsn(op, 2) {
		t.Fatalf("0F 05 at instlen 2 should decode as SYSCALL")
	}
}

func TestIsSyscallInsnRejectsOtherOpcodes(t *testing.T) {
	op := [2]byte{0x90, 0x90} // two NOPs, not SYSCALL
	if isSyscallInsn(op, 2) {
		t.Fatalf("two NOPs must not decode as SYSCALL")
	}
}

func TestIsSyscallInsnRejectsWrongLength(t *testing.T) {
	op := [2]byte{0x0f, 0x05}
	if isSyscallInsn(op, 1) {
		t.Fatalf("a 1-byte #UD can never be the 2-byte SYSCALL encoding")
	}
}
