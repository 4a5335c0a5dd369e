package syscalltab_test

import (
	"testing"

	"golang.org/x/sys/unix"

	"vklinux/kernel/syscalltab"
)

func TestSyswrapSuccess(t *testing.T) {
	if got := syscalltab.Syswrap(42, nil); got != 42 {
		t.Fatalf("expected successful result passed through unchanged, got %d", got)
	}
}

func TestSyswrapKnownErrno(t *testing.T) {
	got := syscalltab.Syswrap(-1, unix.ENOENT)
	if got != -syscalltab.ENOENT {
		t.Fatalf("expected -ENOENT (%d), got %d", -syscalltab.ENOENT, got)
	}
}

func TestSyswrapUnknownError(t *testing.T) {
	got := syscalltab.Syswrap(-1, errCustom{})
	if got != -syscalltab.EIO {
		t.Fatalf("expected -EIO for an untranslatable error, got %d", got)
	}
}

type errCustom struct{}

func (errCustom) Error() string { return "custom failure" }
