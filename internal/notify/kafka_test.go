package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKafkaNotifier_Send(t *testing.T) {
	w := &mockWriter{}
	n := &KafkaNotifier{writer: w}

	require.NoError(t, n.Send(context.Background(), approved))

	require.Len(t, w.messages, 1)
	msg := w.messages[0]
	assert.Equal(t, "SS-1-2", string(msg.Key))

	var decoded Message
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, approved.OrderID, decoded.OrderID)
	assert.Equal(t, approved.Body, decoded.Body)

	require.Len(t, msg.Headers, 2)
	assert.Equal(t, "order.approved", string(msg.Headers[0].Value))
	assert.Equal(t, "999", string(msg.Headers[1].Value))
}

func TestKafkaNotifier_WriteError(t *testing.T) {
	n := &KafkaNotifier{writer: &mockWriter{err: errors.New("broker down")}}
	assert.EqualError(t, n.Send(context.Background(), approved), "broker down")
}

func TestKafkaNotifier_Close(t *testing.T) {
	w := &mockWriter{}
	require.NoError(t, (&KafkaNotifier{writer: w}).Close())
	assert.True(t, w.closed)
}

func TestNewKafkaNotifier_DefaultTopic(t *testing.T) {
	n := NewKafkaNotifier("", "localhost:9092")
	assert.Equal(t, "kafka", n.Name())
	require.NoError(t, n.Close())
}
