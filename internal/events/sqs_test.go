package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSQS struct {
	inputs []*sqs.SendMessageInput
	err    error
}

func (f *fakeSQS) SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	f.inputs = append(f.inputs, params)
	if f.err != nil {
		return nil, f.err
	}
	return &sqs.SendMessageOutput{MessageId: aws.String("msg-1")}, nil
}

func TestSQSPublisherSendsEnvelope(t *testing.T) {
	client := &fakeSQS{}
	pub := NewSQSPublisher(client, "https://sqs.local/queue")
	entry := OutboxEntry{
		ID:          uuid.New(),
		AggregateID: "appt-1",
		Type:        "appointment.status_changed.v1",
		Payload:     json.RawMessage(`{"status":"confirmed"}`),
		CreatedAt:   time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
	}

	require.NoError(t, pub.Handle(context.Background(), entry))
	require.Len(t, client.inputs, 1)
	in := client.inputs[0]
	assert.Equal(t, "https://sqs.local/queue", aws.ToString(in.QueueUrl))
	assert.Equal(t, entry.Type, aws.ToString(in.MessageAttributes["event_type"].StringValue))

	var env Envelope
	require.NoError(t, json.Unmarshal([]byte(aws.ToString(in.MessageBody)), &env))
	assert.Equal(t, entry.ID.String(), env.EventID)
	assert.Equal(t, "appt-1", env.Aggregate)
	assert.Equal(t, entry.CreatedAt.UnixMicro(), env.TimestampMicros)
	assert.JSONEq(t, `{"status":"confirmed"}`, string(env.Payload))
}

func TestSQSPublisherWrapsErrors(t *testing.T) {
	pub := NewSQSPublisher(&fakeSQS{err: errors.New("throttled")}, "q")
	err := pub.Handle(context.Background(), OutboxEntry{ID: uuid.New(), Type: "x.v1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "throttled")
}
