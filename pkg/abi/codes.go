package abi

import "fmt"

// Code identifies a syscall. The table is the binary contract between a
// guest and the host and does not change across host versions.
//
// The second byte of a code is 1 for operations that may be batched by the
// prover, the third byte is the number of extra cycles the host bills.
type Code uint32

// Syscall table.
const (
	Halt                Code = 0x00_00_00_00
	Read                Code = 0x00_00_00_01
	Write               Code = 0x00_00_00_02
	EnterUnconstrained  Code = 0x00_00_00_03
	ExitUnconstrained   Code = 0x00_00_00_04
	Sha256Extend        Code = 0x00_30_01_05
	Sha256Compress      Code = 0x00_01_01_06
	EdAdd               Code = 0x00_01_01_07
	EdDecompress        Code = 0x00_00_01_08
	KeccakPermute       Code = 0x00_01_01_09
	Secp256k1Add        Code = 0x00_01_01_0A
	Secp256k1Double     Code = 0x00_00_01_0B
	Secp256k1Decompress Code = 0x00_00_01_0C
	Bn254Add            Code = 0x00_01_01_0E
	Bn254Double         Code = 0x00_00_01_0F
	Commit              Code = 0x00_00_00_10
	VerifyProof         Code = 0x00_00_00_1B
	Bls12381Decompress  Code = 0x00_00_01_1C
	Uint256MulMod       Code = 0x00_01_01_1D
	Bls12381Add         Code = 0x00_01_01_1E
	Bls12381Double      Code = 0x00_00_01_1F
	Bls12381FpAddMod    Code = 0x00_01_01_20
	Bls12381FpSubMod    Code = 0x00_01_01_21
	Bls12381FpMulMod    Code = 0x00_01_01_22
	Bls12381Fp2AddMod   Code = 0x00_01_01_23
	Bls12381Fp2SubMod   Code = 0x00_01_01_24
	Bls12381Fp2MulMod   Code = 0x00_01_01_25
	Bn254FpAddMod       Code = 0x00_01_01_26
	Bn254FpSubMod       Code = 0x00_01_01_27
	Bn254FpMulMod       Code = 0x00_01_01_28
	Bn254Fp2AddMod      Code = 0x00_01_01_29
	Bn254Fp2SubMod      Code = 0x00_01_01_2A
	Bn254Fp2MulMod      Code = 0x00_01_01_2B
	Secp256r1Add        Code = 0x00_01_01_2C
	Secp256r1Double     Code = 0x00_00_01_2D
	Secp256r1Decompress Code = 0x00_00_01_2E
	U256x2048Mul        Code = 0x00_01_01_2F
	Bigint              Code = 0x00_00_00_30
	HintLen             Code = 0x00_00_00_F0
	HintRead            Code = 0x00_00_00_F1
	AllocAligned        Code = 0x00_00_00_F2
)

var codeNames = map[Code]string{
	Halt:                "HALT",
	Read:                "READ",
	Write:               "WRITE",
	EnterUnconstrained:  "ENTER_UNCONSTRAINED",
	ExitUnconstrained:   "EXIT_UNCONSTRAINED",
	Sha256Extend:        "SHA_EXTEND",
	Sha256Compress:      "SHA_COMPRESS",
	EdAdd:               "ED_ADD",
	EdDecompress:        "ED_DECOMPRESS",
	KeccakPermute:       "KECCAK_PERMUTE",
	Secp256k1Add:        "SECP256K1_ADD",
	Secp256k1Double:     "SECP256K1_DOUBLE",
	Secp256k1Decompress: "SECP256K1_DECOMPRESS",
	Bn254Add:            "BN254_ADD",
	Bn254Double:         "BN254_DOUBLE",
	Commit:              "COMMIT",
	VerifyProof:         "VERIFY_PROOF",
	Bls12381Decompress:  "BLS12381_DECOMPRESS",
	Uint256MulMod:       "UINT256_MULMOD",
	Bls12381Add:         "BLS12381_ADD",
	Bls12381Double:      "BLS12381_DOUBLE",
	Bls12381FpAddMod:    "BLS12381_FP_ADD",
	Bls12381FpSubMod:    "BLS12381_FP_SUB",
	Bls12381FpMulMod:    "BLS12381_FP_MUL",
	Bls12381Fp2AddMod:   "BLS12381_FP2_ADD",
	Bls12381Fp2SubMod:   "BLS12381_FP2_SUB",
	Bls12381Fp2MulMod:   "BLS12381_FP2_MUL",
	Bn254FpAddMod:       "BN254_FP_ADD",
	Bn254FpSubMod:       "BN254_FP_SUB",
	Bn254FpMulMod:       "BN254_FP_MUL",
	Bn254Fp2AddMod:      "BN254_FP2_ADD",
	Bn254Fp2SubMod:      "BN254_FP2_SUB",
	Bn254Fp2MulMod:      "BN254_FP2_MUL",
	Secp256r1Add:        "SECP256R1_ADD",
	Secp256r1Double:     "SECP256R1_DOUBLE",
	Secp256r1Decompress: "SECP256R1_DECOMPRESS",
	U256x2048Mul:        "U256XU2048_MUL",
	Bigint:              "BIGINT",
	HintLen:             "HINT_LEN",
	HintRead:            "HINT_READ",
	AllocAligned:        "ALLOC_ALIGNED",
}

// String returns the syscall's table name.
func (c Code) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("SYSCALL_0x%08x", uint32(c))
}

// ExtraCycles is the per-call surcharge encoded in the code.
func (c Code) ExtraCycles() uint64 {
	return uint64(c>>16) & 0xFF
}

// Codes returns every code in the table.
func Codes() []Code {
	out := make([]Code, 0, len(codeNames))
	for c := range codeNames {
		out = append(out, c)
	}
	return out
}

// Channel identifiers for Read and Write.
const (
	FdStdin        uint32 = 0
	FdStdout       uint32 = 1
	FdStderr       uint32 = 2
	FdPublicValues uint32 = 3
	FdHint         uint32 = 4
)

// BigintOp selects the operation of the Bigint syscall. The numbering is
// published by the host; guests must not assume any other values exist.
type BigintOp uint32

// Bigint operations. A zero modulus means 2^256.
const (
	BigintMulMod BigintOp = 0
	BigintAddMod BigintOp = 1
	BigintSubMod BigintOp = 2
)
