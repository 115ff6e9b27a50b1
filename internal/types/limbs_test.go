package types

import (
	"bytes"
	"testing"
)

func TestWordsBERoundTrip(t *testing.T) {
	w := []uint32{0x04030201, 0x08070605}
	be := WordsToBE(w)
	want := []byte{0x08, 0x07, 0x06, 0x05, 0x04, 0x03, 0x02, 0x01}
	if !bytes.Equal(be, want) {
		t.Errorf("WordsToBE() = %x, want %x", be, want)
	}

	got := make([]uint32, 2)
	WordsFromBE(got, be)
	if got[0] != w[0] || got[1] != w[1] {
		t.Errorf("WordsFromBE() = %x, want %x", got, w)
	}
}

func TestWordsLEMatchesBytes(t *testing.T) {
	b := make([]byte, 8)
	PutWordsLE(b, []uint32{0x04030201, 0x08070605})
	if !bytes.Equal(b, []byte{1, 2, 3, 4, 5, 6, 7, 8}) {
		t.Errorf("PutWordsLE() = %x", b)
	}
}

func TestLanes(t *testing.T) {
	lanes := []uint64{0x1122334455667788}
	w := make([]uint32, 2)
	Uint64sToWords(w, lanes)
	if w[0] != 0x55667788 || w[1] != 0x11223344 {
		t.Errorf("Uint64sToWords() = %x", w)
	}
	back := make([]uint64, 1)
	WordsToUint64s(back, w)
	if back[0] != lanes[0] {
		t.Errorf("WordsToUint64s() = %x, want %x", back[0], lanes[0])
	}
}

func TestDigestEncoding(t *testing.T) {
	var d Digest
	for i := range d {
		d[i] = byte(i)
	}

	parsed, err := DigestFromBase58(d.String())
	if err != nil {
		t.Fatalf("DigestFromBase58() error = %v", err)
	}
	if parsed != d {
		t.Errorf("base58 round trip = %x, want %x", parsed, d)
	}

	if DigestFromWords(d.Words()) != d {
		t.Error("word round trip mismatch")
	}

	short := Digest{}.String()[:10]
	if _, err := DigestFromBase58(short); err != ErrInvalidDigest {
		t.Errorf("DigestFromBase58(%q) error = %v, want ErrInvalidDigest", short, err)
	}
}
