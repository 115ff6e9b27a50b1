package prover

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/zstd"

	"github.com/fortiblox/zilkworm/internal/codec"
)

var ErrCorruptFile = errors.New("prover: corrupt file")

// EncodeReceipt returns the zstd-framed CBOR encoding of r.
func EncodeReceipt(r *Receipt) ([]byte, error) {
	raw, err := codec.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encode receipt: %w", err)
	}
	var buf bytes.Buffer
	enc, err := zstd.NewWriter(&buf)
	if err != nil {
		return nil, err
	}
	if _, err := enc.Write(raw); err != nil {
		enc.Close()
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeReceipt reverses EncodeReceipt.
func DecodeReceipt(data []byte) (*Receipt, error) {
	dec, err := zstd.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptFile, err)
	}
	defer dec.Close()
	raw, err := io.ReadAll(dec)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptFile, err)
	}
	var r Receipt
	if err := codec.Unmarshal(raw, &r); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptFile, err)
	}
	return &r, nil
}

// SaveReceipt writes r to path.
func SaveReceipt(path string, r *Receipt) error {
	data, err := EncodeReceipt(r)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// LoadReceipt reads a receipt written by SaveReceipt.
func LoadReceipt(path string) (*Receipt, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return DecodeReceipt(data)
}

// SaveKey writes a proving or verifying key to path as CBOR.
func SaveKey(path string, key any) error {
	data, err := codec.Marshal(key)
	if err != nil {
		return fmt.Errorf("encode key: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// LoadProvingKey reads a proving key written by SaveKey.
func LoadProvingKey(path string) (*ProvingKey, error) {
	var pk ProvingKey
	if err := loadKey(path, &pk); err != nil {
		return nil, err
	}
	return &pk, nil
}

// LoadVerifyingKey reads a verifying key written by SaveKey.
func LoadVerifyingKey(path string) (*VerifyingKey, error) {
	var vk VerifyingKey
	if err := loadKey(path, &vk); err != nil {
		return nil, err
	}
	return &vk, nil
}

func loadKey(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := codec.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrCorruptFile, path, err)
	}
	return nil
}
