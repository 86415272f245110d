package id

import "testing"

func TestHashDeterministic(t *testing.T) {
	a := Hash([]byte("name"), []byte("contents"))
	b := Hash([]byte("name"), []byte("contents"))
	if a != b {
		t.Fatalf("hash not deterministic: %v != %v", a, b)
	}
}

func TestHashSingleByteChange(t *testing.T) {
	a := Hash([]byte("name"), []byte("contents"))
	b := Hash([]byte("name"), []byte("contentz"))
	if a == b {
		t.Fatalf("single byte change did not change hash")
	}
}

func TestTruncate64(t *testing.T) {
	var r RawId
	r[0] = 0x01
	r[7] = 0xFF
	got := r.Truncate64()
	want := uint64(0x01000000000000FF)
	if got != want {
		t.Fatalf("Truncate64() = %x, want %x", got, want)
	}
}

func TestStringRoundTrip(t *testing.T) {
	r := Hash([]byte("roundtrip"))
	parsed, err := ParseRawId(r.String())
	if err != nil {
		t.Fatalf("ParseRawId: %v", err)
	}
	if parsed != r {
		t.Fatalf("round trip mismatch: %v != %v", parsed, r)
	}
}

func TestParseRawIdBadLength(t *testing.T) {
	if _, err := ParseRawId("ab"); err == nil {
		t.Fatalf("expected error for short id")
	}
}

func TestLessTotalOrder(t *testing.T) {
	a := RawId{0, 1}
	b := RawId{0, 2}
	if !a.Less(b) {
		t.Fatalf("expected a < b")
	}
	if b.Less(a) {
		t.Fatalf("expected !(b < a)")
	}
	if a.Less(a) {
		t.Fatalf("expected !(a < a)")
	}
}
