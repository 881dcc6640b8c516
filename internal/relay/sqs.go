package relay

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/wolfman30/botpe-relay/internal/events"
)

// SQSAPI is the subset of the SQS client used by SQSPublisher.
type SQSAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// SQSPublisher forwards every canonical event to a queue as its JSON envelope.
type SQSPublisher struct {
	client   SQSAPI
	queueURL string
}

func NewSQSPublisher(client SQSAPI, queueURL string) *SQSPublisher {
	if client == nil {
		panic("relay: SQS client cannot be nil")
	}
	if queueURL == "" {
		panic("relay: SQS queueURL cannot be empty")
	}
	return &SQSPublisher{client: client, queueURL: queueURL}
}

// Observe implements the webhook observer contract.
func (p *SQSPublisher) Observe(ctx context.Context, env events.Envelope) error {
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("relay: marshal envelope: %w", err)
	}
	_, err = p.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(p.queueURL),
		MessageBody: aws.String(string(body)),
		MessageAttributes: map[string]sqstypes.MessageAttributeValue{
			"event_type": {DataType: aws.String("String"), StringValue: aws.String(env.EventType)},
			"aggregate":  {DataType: aws.String("String"), StringValue: aws.String(env.Aggregate)},
			"account":    {DataType: aws.String("String"), StringValue: aws.String(env.Account)},
		},
	})
	if err != nil {
		return fmt.Errorf("relay: failed to send SQS message: %w", err)
	}
	return nil
}
