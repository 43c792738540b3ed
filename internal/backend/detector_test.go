package backend

import "testing"

func TestOutputDetectorFirstCallIsAlwaysChanged(t *testing.T) {
	d := NewOutputDetector()
	if !d.Changed("s1", "hello") {
		t.Fatalf("first call for a session must report changed")
	}
}

func TestOutputDetectorRepeatedIdenticalCaptureIsNotChanged(t *testing.T) {
	d := NewOutputDetector()
	d.Changed("s1", "hello")
	if d.Changed("s1", "hello") {
		t.Fatalf("identical repeated capture must not report changed")
	}
}

func TestOutputDetectorDifferentCaptureIsChanged(t *testing.T) {
	d := NewOutputDetector()
	d.Changed("s1", "hello")
	if !d.Changed("s1", "hello world") {
		t.Fatalf("a different capture must report changed")
	}
}

func TestOutputDetectorKeysAreIndependent(t *testing.T) {
	d := NewOutputDetector()
	d.Changed("s1", "hello")
	if !d.Changed("s2", "hello") {
		t.Fatalf("a different key seeing the same content for the first time must report changed")
	}
}

func TestOutputDetectorForgetResetsState(t *testing.T) {
	d := NewOutputDetector()
	d.Changed("s1", "hello")
	d.Forget("s1")
	if !d.Changed("s1", "hello") {
		t.Fatalf("after Forget, the same capture must report changed again")
	}
}
