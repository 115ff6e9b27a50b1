package hostrpc

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/fortiblox/zilkworm/pkg/abi"
	"github.com/fortiblox/zilkworm/pkg/guest"
	"github.com/fortiblox/zilkworm/pkg/host"
	"github.com/fortiblox/zilkworm/pkg/prover"
	"github.com/fortiblox/zilkworm/pkg/zilkworm"
)

const callJSON = `{"t":{"transaction":{"data":["0x"],"gasLimit":["0x0f4240"],"value":["0x00"],"to":"0x01"},"post":{"Shanghai":[{"indexes":{"data":0,"gas":0,"value":0}}]}}}`

func startServer(t *testing.T) *Client {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	pc := prover.NewClient(prover.DefaultConfig(),
		zilkworm.Default(),
		guest.NewProgram("exit2", "1", func(env *abi.Env) { env.Halt(2) }),
	)
	srv := NewServer(DefaultServerConfig(), pc)
	go srv.Serve(lis)
	t.Cleanup(srv.Stop)

	c, err := Dial("bufnet", grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
		return lis.DialContext(ctx)
	}))
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func stdin(t *testing.T) *host.Stdin {
	in := host.NewStdin()
	require.NoError(t, in.Write(uint32(2)))
	in.WriteSlice([]byte(callJSON))
	return in
}

func TestRemoteExecute(t *testing.T) {
	c := startServer(t)
	rep, err := c.Execute(context.Background(), zilkworm.Name, stdin(t))
	require.NoError(t, err)
	gas, err := zilkworm.DecodeGas(rep.PublicValues)
	require.NoError(t, err)
	assert.Equal(t, uint64(42000), gas)
	assert.Contains(t, string(rep.Stdout), zilkworm.StartedMessage)
}

func TestRemoteProveVerifiesLocally(t *testing.T) {
	c := startServer(t)
	ctx := context.Background()
	pk, vk, err := c.Setup(ctx, zilkworm.Name)
	require.NoError(t, err)

	r, err := c.Prove(ctx, pk, stdin(t))
	require.NoError(t, err)
	require.NoError(t, prover.Verify(r, vk))
}

func TestRemoteErrors(t *testing.T) {
	c := startServer(t)
	ctx := context.Background()

	_, _, err := c.Setup(ctx, "missing")
	assert.Equal(t, codes.NotFound, status.Code(err))

	_, err = c.Execute(ctx, zilkworm.Name, host.NewStdin())
	assert.Equal(t, codes.Aborted, status.Code(err))

	pk, _, err := c.Setup(ctx, "exit2")
	require.NoError(t, err)
	_, err = c.Prove(ctx, pk, nil)
	assert.Equal(t, codes.Aborted, status.Code(err))

	_, err = c.Prove(ctx, nil, nil)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}
