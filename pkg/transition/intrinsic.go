package transition

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/holiman/uint256"
	"golang.org/x/crypto/sha3"
)

// Shanghai gas schedule.
const (
	TxGas                     = 21000
	TxGasCreate               = 53000
	TxDataZeroGas             = 4
	TxDataNonZeroGas          = 16
	InitCodeWordGas           = 2
	MaxInitCodeSize           = 49152
	TxAccessListAddressGas    = 2400
	TxAccessListStorageKeyGas = 1900
)

// DefaultFork is the post-state fork Intrinsic evaluates.
const DefaultFork = "Shanghai"

type stateTest struct {
	Transaction txTemplate             `json:"transaction"`
	Post        map[string][]postEntry `json:"post"`
}

type txTemplate struct {
	Data        []string        `json:"data"`
	GasLimit    []string        `json:"gasLimit"`
	Value       []string        `json:"value"`
	To          string          `json:"to"`
	Nonce       string          `json:"nonce"`
	AccessLists [][]AccessTuple `json:"accessLists"`
}

// AccessTuple is one EIP-2930 access list entry.
type AccessTuple struct {
	Address     string   `json:"address"`
	StorageKeys []string `json:"storageKeys"`
}

type postEntry struct {
	Indexes struct {
		Data  int `json:"data"`
		Gas   int `json:"gas"`
		Value int `json:"value"`
	} `json:"indexes"`
}

// Tx is one transaction selected from a state test.
type Tx struct {
	Test       string
	Index      int
	Create     bool
	Data       []byte
	GasLimit   *uint256.Int
	Value      *uint256.Int
	AccessList []AccessTuple
}

// DataHash returns the keccak256 of the calldata.
func (tx *Tx) DataHash() [32]byte {
	var out [32]byte
	h := sha3.NewLegacyKeccak256()
	h.Write(tx.Data)
	h.Sum(out[:0])
	return out
}

// Gas returns the intrinsic gas of tx.
func (tx *Tx) Gas() (uint64, error) {
	gas := uint64(TxGas)
	if tx.Create {
		gas = TxGasCreate
	}
	var nz uint64
	for _, b := range tx.Data {
		if b != 0 {
			nz++
		}
	}
	z := uint64(len(tx.Data)) - nz
	gas += nz*TxDataNonZeroGas + z*TxDataZeroGas
	if tx.Create {
		if len(tx.Data) > MaxInitCodeSize {
			return 0, fmt.Errorf("%w: %d bytes", ErrInitcodeSize, len(tx.Data))
		}
		gas += InitCodeWordGas * ((uint64(len(tx.Data)) + 31) / 32)
	}
	for _, t := range tx.AccessList {
		gas += TxAccessListAddressGas + uint64(len(t.StorageKeys))*TxAccessListStorageKeyGas
	}
	if tx.GasLimit.LtUint64(gas) {
		return 0, fmt.Errorf("%w: have %s, want %d", ErrIntrinsicGas, tx.GasLimit.Dec(), gas)
	}
	return gas, nil
}

// Intrinsic evaluates Ethereum state-test JSON by charging the intrinsic
// gas of each post-state transaction of Fork. It does not execute EVM code.
type Intrinsic struct {
	Fork string
}

// NewIntrinsic creates an evaluator for DefaultFork.
func NewIntrinsic() *Intrinsic {
	return &Intrinsic{Fork: DefaultFork}
}

// Transactions parses tx and returns its transactions in test name order.
func (e *Intrinsic) Transactions(tx string) ([]*Tx, error) {
	var tests map[string]stateTest
	if err := json.Unmarshal([]byte(tx), &tests); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	if len(tests) == 0 {
		return nil, ErrNoTests
	}
	names := make([]string, 0, len(tests))
	for name := range tests {
		names = append(names, name)
	}
	sort.Strings(names)

	fork := e.Fork
	if fork == "" {
		fork = DefaultFork
	}
	var out []*Tx
	for _, name := range names {
		st := tests[name]
		entries, ok := st.Post[fork]
		if !ok {
			return nil, fmt.Errorf("%w: %s in %s", ErrNoPostState, fork, name)
		}
		for i, p := range entries {
			t, err := st.Transaction.pick(p)
			if err != nil {
				return nil, fmt.Errorf("%s/%s/%d: %w", name, fork, i, err)
			}
			t.Test, t.Index = name, i
			out = append(out, t)
		}
	}
	return out, nil
}

// Run implements Evaluator.
func (e *Intrinsic) Run(n uint32, tx string) (uint64, error) {
	if n == 0 {
		return 0, ErrZeroIterations
	}
	txs, err := e.Transactions(tx)
	if err != nil {
		return 0, err
	}
	pass := new(uint256.Int)
	for _, t := range txs {
		gas, err := t.Gas()
		if err != nil {
			return 0, fmt.Errorf("%s/%d (data %x): %w", t.Test, t.Index, t.DataHash(), err)
		}
		pass.Add(pass, uint256.NewInt(gas))
	}
	// Every pass charges the same gas, so the product is the total.
	total, overflow := new(uint256.Int).MulOverflow(pass, uint256.NewInt(uint64(n)))
	if overflow || !total.IsUint64() {
		return 0, ErrGasOverflow
	}
	return total.Uint64(), nil
}

func (t *txTemplate) pick(p postEntry) (*Tx, error) {
	ix := p.Indexes
	if ix.Data < 0 || ix.Data >= len(t.Data) || ix.Gas < 0 || ix.Gas >= len(t.GasLimit) ||
		ix.Value < 0 || ix.Value >= len(t.Value) {
		return nil, fmt.Errorf("%w: data %d gas %d value %d", ErrIndexRange, ix.Data, ix.Gas, ix.Value)
	}
	data, err := parseData(t.Data[ix.Data])
	if err != nil {
		return nil, err
	}
	gasLimit, err := parseQuantity(t.GasLimit[ix.Gas])
	if err != nil {
		return nil, err
	}
	value, err := parseQuantity(t.Value[ix.Value])
	if err != nil {
		return nil, err
	}
	tx := &Tx{
		Create:   strings.TrimSpace(t.To) == "",
		Data:     data,
		GasLimit: gasLimit,
		Value:    value,
	}
	if ix.Data < len(t.AccessLists) {
		tx.AccessList = t.AccessLists[ix.Data]
	}
	return tx, nil
}

// parseQuantity accepts 0x-prefixed hex, with or without leading zeros, or
// decimal.
func parseQuantity(s string) (*uint256.Int, error) {
	s = strings.TrimSpace(s)
	if h, ok := cutHexPrefix(s); ok {
		h = strings.TrimLeft(h, "0")
		if h == "" {
			return new(uint256.Int), nil
		}
		v, err := uint256.FromHex("0x" + h)
		if err != nil {
			return nil, fmt.Errorf("%w %q: %v", ErrQuantity, s, err)
		}
		return v, nil
	}
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrQuantity, s, err)
	}
	return v, nil
}

func parseData(s string) ([]byte, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), ":raw ")
	h, _ := cutHexPrefix(s)
	if len(h)%2 == 1 {
		h = "0" + h
	}
	b, err := hex.DecodeString(h)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrHexData, err)
	}
	return b, nil
}

func cutHexPrefix(s string) (string, bool) {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:], true
	}
	return s, false
}
