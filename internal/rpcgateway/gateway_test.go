package rpcgateway

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dingodb/dingo-taskqueue/pkg/executor"
)

func newTestGateway(t *testing.T, workerNum uint32) (*Gateway, *executor.WorkerSet) {
	t.Helper()
	set := executor.NewWorkerSet("gw-test", workerNum, 0, true, nil)
	require.True(t, set.Init())
	t.Cleanup(set.Destroy)
	return NewGateway(set), set
}

func TestGatewaySubmitTaskRoundRobin(t *testing.T) {
	gw, set := newTestGateway(t, 2)

	resp, err := gw.SubmitTask(context.Background(), &SubmitTaskRequest{TaskType: "generic"})
	require.NoError(t, err)
	assert.True(t, resp.Accepted)
	assert.NotZero(t, resp.TaskID)

	require.Eventually(t, func() bool { return set.TotalCount() == 1 }, time.Second, time.Millisecond)
}

func TestGatewaySubmitTaskAffinity(t *testing.T) {
	gw, set := newTestGateway(t, 4)

	_, err := gw.SubmitTask(context.Background(), &SubmitTaskRequest{TaskType: "generic", RoutingKey: "region-1"})
	require.NoError(t, err)

	require.Eventually(t, func() bool { return set.TotalCount() == 1 }, time.Second, time.Millisecond)
}

func TestGatewaySubmitTaskInvokesRegisteredHandler(t *testing.T) {
	gw, _ := newTestGateway(t, 1)

	called := make(chan []byte, 1)
	gw.Handle("echo", func(ctx context.Context, payload []byte) error {
		called <- payload
		return nil
	})

	_, err := gw.SubmitTask(context.Background(), &SubmitTaskRequest{TaskType: "echo", Payload: []byte("hi")})
	require.NoError(t, err)

	select {
	case got := <-called:
		assert.Equal(t, []byte("hi"), got)
	case <-time.After(time.Second):
		t.Fatal("handler was never invoked")
	}
}

func TestGatewayHeartbeatTracksRemoteWorkers(t *testing.T) {
	gw, _ := newTestGateway(t, 1)

	gw.Heartbeat("node-1", "10.0.0.1:9000", 4, []string{"vector"}, time.Hour)
	gw.Heartbeat("node-2", "10.0.0.2:9000", 4, nil, time.Hour)

	alive := gw.RemoteWorkers()
	assert.ElementsMatch(t, []string{"node-1", "node-2"}, alive)
}

func TestGatewayHeartbeatExpires(t *testing.T) {
	gw, _ := newTestGateway(t, 1)

	gw.Heartbeat("node-1", "10.0.0.1:9000", 1, nil, time.Millisecond)
	time.Sleep(5 * time.Millisecond)

	assert.Empty(t, gw.RemoteWorkers())
}

func TestGatewayGetStatusReportsAggregate(t *testing.T) {
	gw, set := newTestGateway(t, 3)

	for i := 0; i < 5; i++ {
		_, err := gw.SubmitTask(context.Background(), &SubmitTaskRequest{TaskType: "generic"})
		require.NoError(t, err)
	}
	require.Eventually(t, func() bool { return set.TotalCount() == 5 }, time.Second, time.Millisecond)

	resp, err := gw.GetStatus(context.Background(), &GetStatusRequest{})
	require.NoError(t, err)

	assert.EqualValues(t, 3, resp.WorkerCount)
	assert.EqualValues(t, 5, resp.TotalAccepted)
}
