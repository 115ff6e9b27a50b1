package transition

import (
	"encoding/hex"
	"errors"
	"math"
	"strings"
	"testing"
)

const sample = `{
 "callTest": {
  "transaction": {
   "data": ["0x", "0x00ff01"],
   "gasLimit": ["0x0f4240", "21000"],
   "value": ["0x00"],
   "to": "0x095e7baea6a6c7c4c2dfeb977efac326af552d87",
   "nonce": "0x00",
   "accessLists": [[], [{"address": "0x01", "storageKeys": ["0x00", "0x01"]}]]
  },
  "post": {
   "Shanghai": [
    {"indexes": {"data": 0, "gas": 0, "value": 0}},
    {"indexes": {"data": 1, "gas": 0, "value": 0}}
   ]
  }
 },
 "createTest": {
  "transaction": {
   "data": ["0x6000600055"],
   "gasLimit": ["0x0f4240"],
   "value": ["0x01"],
   "to": ""
  },
  "post": {"Shanghai": [{"indexes": {"data": 0, "gas": 0, "value": 0}}]}
 }
}`

func TestIntrinsicGas(t *testing.T) {
	txs, err := NewIntrinsic().Transactions(sample)
	if err != nil {
		t.Fatalf("Transactions() error = %v", err)
	}
	// sorted by test name: callTest/0, callTest/1, createTest/0
	want := []uint64{
		21000,
		21000 + 4 + 16 + 16 + 2400 + 2*1900,
		53000 + 3*16 + 2*4 + 2,
	}
	if len(txs) != len(want) {
		t.Fatalf("len(Transactions()) = %d, want %d", len(txs), len(want))
	}
	for i, tx := range txs {
		got, err := tx.Gas()
		if err != nil {
			t.Fatalf("tx %d: Gas() error = %v", i, err)
		}
		if got != want[i] {
			t.Errorf("tx %d (%s/%d): Gas() = %d, want %d", i, tx.Test, tx.Index, got, want[i])
		}
	}
	if !txs[2].Create || txs[0].Create {
		t.Errorf("Create flags = %v %v, want false true", txs[0].Create, txs[2].Create)
	}
}

func TestRunCumulative(t *testing.T) {
	once := uint64(21000 + (21000 + 4 + 16 + 16 + 2400 + 2*1900) + (53000 + 3*16 + 2*4 + 2))
	for _, n := range []uint32{1, 3} {
		got, err := NewIntrinsic().Run(n, sample)
		if err != nil {
			t.Fatalf("Run(%d) error = %v", n, err)
		}
		if got != uint64(n)*once {
			t.Errorf("Run(%d) = %d, want %d", n, got, uint64(n)*once)
		}
	}
}

func TestRunErrors(t *testing.T) {
	lowGas := strings.Replace(sample, `"0x0f4240", "21000"`, `"0x5208", "21000"`, 1)
	lowGas = strings.Replace(lowGas, `{"indexes": {"data": 1, "gas": 0, "value": 0}}`, `{"indexes": {"data": 1, "gas": 1, "value": 0}}`, 1)

	tests := []struct {
		name string
		n    uint32
		json string
		want error
	}{
		{"zero iterations", 0, sample, ErrZeroIterations},
		{"not json", 1, "{", ErrInvalidJSON},
		{"empty", 1, "{}", ErrNoTests},
		{"missing fork", 1, `{"t": {"transaction": {}, "post": {"Cancun": []}}}`, ErrNoPostState},
		{"index range", 1, `{"t": {"transaction": {"data": ["0x"], "gasLimit": ["0x1"], "value": ["0x0"]}, "post": {"Shanghai": [{"indexes": {"data": 2}}]}}}`, ErrIndexRange},
		{"bad quantity", 1, `{"t": {"transaction": {"data": ["0x"], "gasLimit": ["0xzz"], "value": ["0x0"], "to": "0x01"}, "post": {"Shanghai": [{"indexes": {}}]}}}`, ErrQuantity},
		{"bad data", 1, `{"t": {"transaction": {"data": ["0xqq"], "gasLimit": ["0x1"], "value": ["0x0"], "to": "0x01"}, "post": {"Shanghai": [{"indexes": {}}]}}}`, ErrHexData},
		{"gas limit", 1, lowGas, ErrIntrinsicGas},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewIntrinsic().Run(tt.n, tt.json)
			if !errors.Is(err, tt.want) {
				t.Errorf("Run() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestRunManyIterations(t *testing.T) {
	const n = math.MaxUint32
	once := uint64(21000 + (21000 + 4 + 16 + 16 + 2400 + 2*1900) + (53000 + 3*16 + 2*4 + 2))
	got, err := NewIntrinsic().Run(n, sample)
	if err != nil {
		t.Fatalf("Run(%d) error = %v", uint32(n), err)
	}
	if got != n*once {
		t.Errorf("Run(%d) = %d, want %d", uint32(n), got, n*once)
	}
}

func TestGasErrorNamesCalldata(t *testing.T) {
	const tx = `{"t": {"transaction": {"data": ["0x"], "gasLimit": ["0x1"], "value": ["0x0"], "to": "0x01"}, "post": {"Shanghai": [{"indexes": {}}]}}}`
	_, err := NewIntrinsic().Run(1, tx)
	if !errors.Is(err, ErrIntrinsicGas) {
		t.Fatalf("Run() error = %v, want %v", err, ErrIntrinsicGas)
	}
	const want = "t/0 (data c5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470)"
	if !strings.Contains(err.Error(), want) {
		t.Errorf("Run() error = %q, want it to contain %q", err, want)
	}
}

func TestInitcodeLimit(t *testing.T) {
	tx := &Tx{Create: true, Data: make([]byte, MaxInitCodeSize+1)}
	tx.GasLimit, _ = parseQuantity("0xffffffff")
	if _, err := tx.Gas(); !errors.Is(err, ErrInitcodeSize) {
		t.Errorf("Gas() error = %v, want %v", err, ErrInitcodeSize)
	}
}

func TestParseQuantity(t *testing.T) {
	tests := []struct {
		in   string
		want uint64
	}{
		{"0x00", 0},
		{"0x", 0},
		{"0x0f4240", 1000000},
		{"21000", 21000},
	}
	for _, tt := range tests {
		got, err := parseQuantity(tt.in)
		if err != nil {
			t.Fatalf("parseQuantity(%q) error = %v", tt.in, err)
		}
		if got.Uint64() != tt.want {
			t.Errorf("parseQuantity(%q) = %d, want %d", tt.in, got.Uint64(), tt.want)
		}
	}
}

func TestDataHash(t *testing.T) {
	tx := &Tx{}
	got := tx.DataHash()
	// keccak256 of the empty string
	const want = "c5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470"
	if hex.EncodeToString(got[:]) != want {
		t.Errorf("DataHash() = %x, want %s", got, want)
	}
}
