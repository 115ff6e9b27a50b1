package codec

import (
	"testing"
)

func TestCanonicalMapOrder(t *testing.T) {
	a := map[string]int{"b": 2, "a": 1, "c": 3}
	b := map[string]int{"c": 3, "a": 1, "b": 2}

	ea, err := Marshal(a)
	if err != nil {
		t.Fatalf("Marshal() failed: %v", err)
	}
	eb, err := Marshal(b)
	if err != nil {
		t.Fatalf("Marshal() failed: %v", err)
	}
	if string(ea) != string(eb) {
		t.Errorf("Marshal() not canonical: %x != %x", ea, eb)
	}

	var out map[string]int
	if err := Unmarshal(ea, &out); err != nil {
		t.Fatalf("Unmarshal() failed: %v", err)
	}
	if out["c"] != 3 {
		t.Errorf("out[c] = %d, want 3", out["c"])
	}
}

func TestUint32(t *testing.T) {
	enc, err := Marshal(uint32(10))
	if err != nil {
		t.Fatal(err)
	}
	// major type 0, value 10 fits in the initial byte
	if len(enc) != 1 || enc[0] != 0x0a {
		t.Errorf("Marshal(10) = %x, want 0a", enc)
	}
}
