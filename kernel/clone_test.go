package kernel

import (
	"testing"

	"vklinux/kernel/syscalltab"
)

func TestCloneRejectsMismatchedVMThreadFlags(t *testing.T) {
	// CLONE_VM without CLONE_THREAD (and vice versa) is rejected before
	// anything touches the caller's VCPU, so this is safe to exercise
	// without a live Task.
	if got := Clone(nil, CloneVM, 0, 0, 0, 0); got != -int64(syscalltab.EINVAL) {
		t.Fatalf("Clone(CLONE_VM only) = %d, want -EINVAL", got)
	}
	if got := Clone(nil, CloneThread, 0, 0, 0, 0); got != -int64(syscalltab.EINVAL) {
		t.Fatalf("Clone(CLONE_THREAD only) = %d, want -EINVAL", got)
	}
}
