package receipts

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/fortiblox/zilkworm/pkg/abi"
	"github.com/fortiblox/zilkworm/pkg/guest"
	"github.com/fortiblox/zilkworm/pkg/host"
	"github.com/fortiblox/zilkworm/pkg/prover"
)

func openStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "receipts.db")
	s, err := Open(DefaultConfig(path))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s, path
}

// prove returns a receipt of a program committing payload.
func prove(t *testing.T, name string, payload []byte) (*prover.Receipt, *prover.VerifyingKey) {
	t.Helper()
	p := guest.NewProgram(name, "1", func(env *abi.Env) {
		guest.CommitSlice(env, payload)
	})
	c := prover.NewClient(prover.DefaultConfig(), p)
	pk, vk, err := c.Setup(name)
	if err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	r, err := c.Prove(context.Background(), pk, nil)
	if err != nil {
		t.Fatalf("Prove() error = %v", err)
	}
	return r, vk
}

func TestPutGetFind(t *testing.T) {
	s, _ := openStore(t)
	r, _ := prove(t, "a", []byte("one"))

	if err := s.Put(r); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if err := s.Put(r); err != nil {
		t.Fatalf("second Put() error = %v", err)
	}
	if got := s.Count(); got != 1 {
		t.Errorf("Count() = %d, want 1", got)
	}

	got, err := s.Get(r.Seal)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Seal != r.Seal || string(got.PublicValues) != "one" {
		t.Errorf("Get() = %+v, want %+v", got, r)
	}

	found, err := s.Find(r.VK, r.PublicValuesDigest)
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	if found.Seal != r.Seal {
		t.Errorf("Find() seal = %s, want %s", found.Seal, r.Seal)
	}

	var missing = r.Seal
	missing[0] ^= 1
	if _, err := s.Get(missing); !errors.Is(err, ErrReceiptNotFound) {
		t.Errorf("Get(missing) error = %v, want %v", err, ErrReceiptNotFound)
	}
}

func TestPutRejectsInvalid(t *testing.T) {
	s, _ := openStore(t)
	r, _ := prove(t, "a", []byte("one"))

	bad := *r
	bad.Seal[0] ^= 1
	if err := s.Put(&bad); !errors.Is(err, ErrInvalidReceipt) {
		t.Errorf("Put(bad seal) error = %v, want %v", err, ErrInvalidReceipt)
	}

	bad = *r
	bad.PublicValues = []byte("two")
	if err := s.Put(&bad); !errors.Is(err, ErrInvalidReceipt) {
		t.Errorf("Put(bad digest) error = %v, want %v", err, ErrInvalidReceipt)
	}
}

func TestListAndReopen(t *testing.T) {
	s, path := openStore(t)
	for i, name := range []string{"a", "b", "a"} {
		r, _ := prove(t, name, []byte{byte(i)})
		if err := s.Put(r); err != nil {
			t.Fatalf("Put() error = %v", err)
		}
	}
	all, err := s.List("")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(all) != 3 {
		t.Errorf("len(List(\"\")) = %d, want 3", len(all))
	}
	as, _ := s.List("a")
	if len(as) != 2 {
		t.Errorf("len(List(a)) = %d, want 2", len(as))
	}

	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if _, err := s.List(""); !errors.Is(err, ErrClosed) {
		t.Errorf("List() after Close error = %v, want %v", err, ErrClosed)
	}

	s2, err := Open(DefaultConfig(path))
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer s2.Close()
	if got := s2.Count(); got != 3 {
		t.Errorf("Count() after reopen = %d, want 3", got)
	}
}

// A stored receipt satisfies VERIFY_PROOF in a later run.
func TestVerifyClaimComposesProofs(t *testing.T) {
	s, _ := openStore(t)
	inner, innerVK := prove(t, "inner", []byte("inner result"))
	if err := s.Put(inner); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	cfg := host.DefaultConfig()
	cfg.Verifier = s
	ok := func(env *abi.Env) {
		vk := innerVK.Digest
		pv := inner.PublicValuesDigest
		env.VerifyProof(&vk, &pv)
		env.Exit(0)
	}
	rep, err := host.Run(context.Background(), cfg, nil, ok)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(rep.VerifiedProofs) != 1 || rep.VerifiedProofs[0] != inner.Claim() {
		t.Errorf("VerifiedProofs = %v, want [%v]", rep.VerifiedProofs, inner.Claim())
	}

	unknown := func(env *abi.Env) {
		var vk abi.VKDigest
		var pv abi.PublicValuesDigest
		env.VerifyProof(&vk, &pv)
		env.Exit(0)
	}
	if _, err := host.Run(context.Background(), cfg, nil, unknown); !errors.Is(err, host.ErrProofNotFound) {
		t.Errorf("Run(unknown claim) error = %v, want %v", err, host.ErrProofNotFound)
	}
}
