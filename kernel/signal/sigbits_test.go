package signal_test

import (
	"testing"

	"vklinux/kernel/signal"
)

func TestSetAddDel(t *testing.T) {
	var s signal.Set
	s = s.Add(signal.SIGINT)
	s = s.Add(signal.SIGTERM)

	if !s.Has(signal.SIGINT) || !s.Has(signal.SIGTERM) {
		t.Fatalf("expected SIGINT and SIGTERM set, got %#x", s)
	}
	if s.Has(signal.SIGKILL) {
		t.Fatalf("SIGKILL should not be set")
	}

	s = s.Del(signal.SIGINT)
	if s.Has(signal.SIGINT) {
		t.Fatalf("SIGINT should have been cleared")
	}
	if !s.Has(signal.SIGTERM) {
		t.Fatalf("SIGTERM should remain set after deleting SIGINT")
	}
}

func TestPendingBitsSetClear(t *testing.T) {
	var p signal.PendingBits

	p.Set(signal.SIGCHLD)
	if !p.Test(signal.SIGCHLD) {
		t.Fatalf("expected SIGCHLD pending")
	}

	prev := p.Clear(signal.SIGCHLD)
	if !prev.Has(signal.SIGCHLD) {
		t.Fatalf("Clear should return the pre-clear snapshot with the bit still set")
	}
	if p.Test(signal.SIGCHLD) {
		t.Fatalf("SIGCHLD should no longer be pending")
	}
}

func TestPendingBitsClearRace(t *testing.T) {
	var p signal.PendingBits
	p.Set(signal.SIGUSR1)

	first := p.Clear(signal.SIGUSR1)
	second := p.Clear(signal.SIGUSR1)

	if !first.Has(signal.SIGUSR1) {
		t.Fatalf("first clearer should observe the bit as having been set")
	}
	if second.Has(signal.SIGUSR1) {
		t.Fatalf("second clearer should observe the bit as already gone")
	}
}

func TestDarwinLinuxSignalRoundTrip(t *testing.T) {
	cases := []int{signal.SIGHUP, signal.SIGINT, signal.SIGBUS, signal.SIGUSR1, signal.SIGCHLD, signal.SIGSYS}
	for _, linux := range cases {
		darwin := signal.LinuxToDarwin(linux)
		if darwin == 0 {
			t.Fatalf("no darwin signal mapped for linux signal %d", linux)
		}
		if got := signal.DarwinToLinux(darwin); got != linux {
			t.Fatalf("round trip mismatch: linux %d -> darwin %d -> linux %d", linux, darwin, got)
		}
	}
}
