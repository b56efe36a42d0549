package tcp

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNodeRoundTrip(t *testing.T) {
	ctx := context.Background()

	master, err := Listen(0, "127.0.0.1:0", nil)
	require.NoError(t, err)
	defer master.Close()

	peers := map[int]string{0: master.Addr().String()}
	worker, err := Listen(1, "127.0.0.1:0", peers)
	require.NoError(t, err)
	defer worker.Close()

	require.NoError(t, worker.Send(ctx, 0, []byte("batch-1")))
	require.NoError(t, worker.Send(ctx, 0, []byte("batch-2")))

	payload, from, err := master.Recv(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, []byte("batch-1"), payload)
	assert.Equal(t, 1, from)

	// Reuse the buffer for the second frame.
	payload, from, err = master.Recv(ctx, payload)
	require.NoError(t, err)
	assert.Equal(t, []byte("batch-2"), payload)
	assert.Equal(t, 1, from)
}

func TestNodeUnknownRank(t *testing.T) {
	node, err := Listen(0, "127.0.0.1:0", nil)
	require.NoError(t, err)
	defer node.Close()

	err = node.Send(context.Background(), 9, []byte("x"))
	assert.Error(t, err)
}

func TestNodeLargePayload(t *testing.T) {
	ctx := context.Background()

	master, err := Listen(0, "127.0.0.1:0", nil)
	require.NoError(t, err)
	defer master.Close()

	worker, err := Listen(1, "127.0.0.1:0", map[int]string{0: master.Addr().String()})
	require.NoError(t, err)
	defer worker.Close()

	big := make([]byte, 1<<20)
	for i := range big {
		big[i] = byte(i)
	}
	require.NoError(t, worker.Send(ctx, 0, big))

	payload, _, err := master.Recv(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, big, payload)
}
