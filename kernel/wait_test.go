package kernel

import (
	"testing"

	"golang.org/x/sys/unix"

	"vklinux/kernel/signal"
)

func TestWaitOptsToHost(t *testing.T) {
	got := waitOptsToHost(1 | 2) // Linux WNOHANG | WUNTRACED
	want := unix.WNOHANG | unix.WUNTRACED
	if got != want {
		t.Fatalf("waitOptsToHost(WNOHANG|WUNTRACED) = %#x, want %#x", got, want)
	}
	if waitOptsToHost(0) != 0 {
		t.Fatalf("waitOptsToHost(0) should produce no host flags")
	}
}

func TestPackLinuxStatusExited(t *testing.T) {
	ws := unix.WaitStatus(7 << 8) // exited with status 7
	if !ws.Exited() || ws.ExitStatus() != 7 {
		t.Fatalf("test fixture did not encode an exited(7) status")
	}
	if got := packLinuxStatus(ws); got != 7<<8 {
		t.Fatalf("packLinuxStatus(exited 7) = %#x, want %#x", got, 7<<8)
	}
}

func TestPackLinuxStatusSignaled(t *testing.T) {
	ws := unix.WaitStatus(unix.SIGTERM)
	if !ws.Signaled() {
		t.Fatalf("test fixture did not encode a signaled status")
	}
	got := packLinuxStatus(ws)
	want := uint32(signal.SIGTERM)
	if got != want {
		t.Fatalf("packLinuxStatus(signaled SIGTERM) = %#x, want %#x", got, want)
	}
}
