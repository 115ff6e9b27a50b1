package host

import (
	"fmt"

	"github.com/fortiblox/zilkworm/pkg/abi"
)

// Claim is a (verifying key, public values digest) pair asserted to have
// a valid proof.
type Claim struct {
	VK           abi.VKDigest           `cbor:"vk"`
	PublicValues abi.PublicValuesDigest `cbor:"pv"`
}

func (c Claim) String() string {
	return fmt.Sprintf("%s/%s", c.VK, c.PublicValues)
}

// ProofVerifier decides VERIFY_PROOF claims.
type ProofVerifier interface {
	VerifyClaim(vk abi.VKDigest, pv abi.PublicValuesDigest) error
}

// ClaimSet is an in-memory ProofVerifier.
type ClaimSet map[Claim]struct{}

// NewClaimSet creates a set holding claims.
func NewClaimSet(claims ...Claim) ClaimSet {
	s := make(ClaimSet, len(claims))
	for _, c := range claims {
		s[c] = struct{}{}
	}
	return s
}

// VerifyClaim implements ProofVerifier.
func (s ClaimSet) VerifyClaim(vk abi.VKDigest, pv abi.PublicValuesDigest) error {
	if _, ok := s[Claim{VK: vk, PublicValues: pv}]; !ok {
		return fmt.Errorf("%w: %s", ErrProofNotFound, Claim{VK: vk, PublicValues: pv})
	}
	return nil
}

// verifiers tries each verifier in turn.
type verifiers []ProofVerifier

func (vs verifiers) VerifyClaim(vk abi.VKDigest, pv abi.PublicValuesDigest) error {
	err := fmt.Errorf("%w: %s", ErrProofNotFound, Claim{VK: vk, PublicValues: pv})
	for _, v := range vs {
		if err = v.VerifyClaim(vk, pv); err == nil {
			return nil
		}
	}
	return err
}
