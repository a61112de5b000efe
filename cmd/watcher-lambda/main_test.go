package main

import (
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessagesFromSQS(t *testing.T) {
	traceparent := "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01"
	ev := events.SQSEvent{Records: []events.SQSMessage{
		{
			MessageId: "m-1",
			Body:      `{"id":"e-1"}`,
			MessageAttributes: map[string]events.SQSMessageAttribute{
				"traceparent": {StringValue: &traceparent, DataType: "String"},
				"blob":        {BinaryValue: []byte{1}, DataType: "Binary"},
			},
		},
		{MessageId: "m-2", Body: `{}`},
	}}

	msgs := messagesFromSQS(ev)

	require.Len(t, msgs, 2)
	assert.Equal(t, "m-1", msgs[0].ID)
	assert.Equal(t, []byte(`{"id":"e-1"}`), msgs[0].Body)
	assert.Equal(t, map[string]string{"traceparent": traceparent}, msgs[0].Headers)
	assert.Equal(t, "m-2", msgs[1].ID)
	assert.Empty(t, msgs[1].Headers)
}
