package transport

import "testing"

func TestParseEarlyDataHintAbsentDefaultsToZero(t *testing.T) {
	n, ok := parseEarlyDataHint("")
	if !ok || n != 0 {
		t.Fatalf("got (%d,%v), want (0,true)", n, ok)
	}
}

func TestParseEarlyDataHintRejectsNegative(t *testing.T) {
	if _, ok := parseEarlyDataHint("-1"); ok {
		t.Fatal("negative ed must be rejected")
	}
}

func TestParseEarlyDataHintRejectsNonInteger(t *testing.T) {
	if _, ok := parseEarlyDataHint("abc"); ok {
		t.Fatal("non-integer ed must be rejected")
	}
}

func TestParseEarlyDataHintCapsAtMax(t *testing.T) {
	n, ok := parseEarlyDataHint("999999999")
	if !ok {
		t.Fatal("an oversized but well-formed ed must still be accepted, capped")
	}
	if n != 65536 {
		t.Fatalf("got %d, want capped at MaxEarlyDataBytes", n)
	}
}
