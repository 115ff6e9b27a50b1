package prover

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fortiblox/zilkworm/pkg/abi"
	"github.com/fortiblox/zilkworm/pkg/guest"
	"github.com/fortiblox/zilkworm/pkg/host"
	"github.com/fortiblox/zilkworm/pkg/zilkworm"
)

const callJSON = `{"t":{"transaction":{"data":["0x"],"gasLimit":["0x0f4240"],"value":["0x00"],"to":"0x01"},"post":{"Shanghai":[{"indexes":{"data":0,"gas":0,"value":0}}]}}}`

func zilkwormStdin(t *testing.T) *host.Stdin {
	t.Helper()
	in := host.NewStdin()
	require.NoError(t, in.Write(uint32(1)))
	in.WriteSlice([]byte(callJSON))
	return in
}

func TestSetupDeterministic(t *testing.T) {
	_, vk1 := Setup(zilkworm.Default())
	_, vk2 := Setup(zilkworm.Default())
	assert.Equal(t, vk1, vk2)
	assert.NotEqual(t, VKDigest("zilkworm", "0.1.0"), VKDigest("zilkworm", "0.1.1"))
	assert.NotEqual(t, VKDigest("ab", "c"), VKDigest("a", "bc"))
}

func TestProveVerify(t *testing.T) {
	c := NewClient(DefaultConfig(), zilkworm.Default())
	pk, vk, err := c.Setup(zilkworm.Name)
	require.NoError(t, err)

	r, err := c.Prove(context.Background(), pk, zilkwormStdin(t))
	require.NoError(t, err)
	require.NoError(t, c.Verify(r, vk))

	gas, err := zilkworm.DecodeGas(r.PublicValues)
	require.NoError(t, err)
	assert.Equal(t, uint64(21000), gas)
	assert.NotEmpty(t, r.ID())
}

func TestVerifyRejectsTampering(t *testing.T) {
	c := NewClient(DefaultConfig(), zilkworm.Default())
	pk, vk, err := c.Setup(zilkworm.Name)
	require.NoError(t, err)
	r, err := c.Prove(context.Background(), pk, zilkwormStdin(t))
	require.NoError(t, err)

	pv := *r
	pv.PublicValues = append([]byte(nil), r.PublicValues...)
	pv.PublicValues[len(pv.PublicValues)-1] ^= 1
	assert.ErrorIs(t, Verify(&pv, vk), ErrDigestMismatch)

	seal := *r
	seal.Seal[0] ^= 1
	assert.ErrorIs(t, Verify(&seal, vk), ErrBadSeal)

	other := *vk
	other.Digest = VKDigest("other", "1")
	assert.ErrorIs(t, Verify(r, &other), ErrVKMismatch)
}

func TestExecuteRunsUnconstrained(t *testing.T) {
	var ran []bool
	p := guest.NewProgram("hinted", "1", func(env *abi.Env) {
		ran = append(ran, guest.Unconstrained(env, func() {}))
	})
	c := NewClient(DefaultConfig(), p)
	_, err := c.Execute(context.Background(), "hinted", nil)
	require.NoError(t, err)

	pk, _, err := c.Setup("hinted")
	require.NoError(t, err)
	_, err = c.Prove(context.Background(), pk, nil)
	require.NoError(t, err)

	// Prove executes once to capture hints, then reruns with the region
	// skipped.
	assert.Equal(t, []bool{true, true, false}, ran)
}

func TestProveReplaysRegionHints(t *testing.T) {
	p := guest.NewProgram("oracle", "1", func(env *abi.Env) {
		guest.Unconstrained(env, func() {
			guest.WriteHint(env, []byte("x"))
		})
		guest.CommitSlice(env, guest.ReadVec(env))
	})
	c := NewClient(DefaultConfig(), p)

	rep, err := c.Execute(context.Background(), "oracle", nil)
	require.NoError(t, err)
	require.Equal(t, [][][]byte{{[]byte("x")}}, rep.RegionHints)

	pk, vk, err := c.Setup("oracle")
	require.NoError(t, err)
	r, err := c.Prove(context.Background(), pk, nil)
	require.NoError(t, err)
	assert.Equal(t, rep.PublicValues, r.PublicValues)
	require.NoError(t, c.Verify(r, vk))
}

func TestProveErrors(t *testing.T) {
	c := NewClient(DefaultConfig(), guest.NewProgram("exit3", "1", func(env *abi.Env) { env.Halt(3) }))

	_, _, err := c.Setup("missing")
	assert.ErrorIs(t, err, ErrUnknownProgram)

	pk, _, err := c.Setup("exit3")
	require.NoError(t, err)
	_, err = c.Prove(context.Background(), pk, nil)
	var exit *host.ExitCodeError
	assert.ErrorAs(t, err, &exit)

	stale := *pk
	stale.VK.Digest = VKDigest("exit3", "0")
	_, err = c.Prove(context.Background(), &stale, nil)
	assert.ErrorIs(t, err, ErrKeyMismatch)
}

func TestFiles(t *testing.T) {
	dir := t.TempDir()
	c := NewClient(DefaultConfig(), zilkworm.Default())
	pk, vk, err := c.Setup(zilkworm.Name)
	require.NoError(t, err)

	pkPath := filepath.Join(dir, "pk.bin")
	vkPath := filepath.Join(dir, "vk.bin")
	require.NoError(t, SaveKey(pkPath, pk))
	require.NoError(t, SaveKey(vkPath, vk))

	pk2, err := LoadProvingKey(pkPath)
	require.NoError(t, err)
	assert.Equal(t, pk, pk2)
	vk2, err := LoadVerifyingKey(vkPath)
	require.NoError(t, err)
	assert.Equal(t, vk, vk2)

	r, err := c.Prove(context.Background(), pk2, zilkwormStdin(t))
	require.NoError(t, err)
	proofPath := filepath.Join(dir, "proof.bin")
	require.NoError(t, SaveReceipt(proofPath, r))
	r2, err := LoadReceipt(proofPath)
	require.NoError(t, err)
	assert.Equal(t, r, r2)
	require.NoError(t, Verify(r2, vk2))

	_, err = DecodeReceipt([]byte("not zstd"))
	assert.ErrorIs(t, err, ErrCorruptFile)
}
