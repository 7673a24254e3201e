package rpcgateway

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWireCodecRoundTrip(t *testing.T) {
	c := wireCodec{}
	in := &SubmitTaskRequest{TaskType: "t", RoutingKey: "k", Payload: []byte{9}}

	b, err := c.Marshal(in)
	require.NoError(t, err)

	out := &SubmitTaskRequest{}
	require.NoError(t, c.Unmarshal(b, out))
	assert.Equal(t, in.TaskType, out.TaskType)
}

func TestWireCodecRejectsNonWireMessage(t *testing.T) {
	c := wireCodec{}
	_, err := c.Marshal(struct{}{})
	assert.Error(t, err)

	err = c.Unmarshal([]byte{}, &struct{}{})
	assert.Error(t, err)
}

func TestWireCodecName(t *testing.T) {
	assert.Equal(t, "taskqueue-wire", wireCodec{}.Name())
}
