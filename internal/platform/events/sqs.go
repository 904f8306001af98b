package events

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

// SQS sends each event as one message to a queue.
type SQS struct {
	client   *sqs.Client
	queueURL string
}

func NewSQS(ctx context.Context, queueURL, region string) (*SQS, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &SQS{client: sqs.NewFromConfig(cfg), queueURL: queueURL}, nil
}

func (s *SQS) Publish(ctx context.Context, evt Event) error {
	body, err := evt.Encode()
	if err != nil {
		return err
	}
	_, err = s.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(s.queueURL),
		MessageBody: aws.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"event_type": {DataType: aws.String("String"), StringValue: aws.String(evt.Type)},
		},
	})
	if err != nil {
		return fmt.Errorf("sqs send %s: %w", evt.Type, err)
	}
	return nil
}

func (s *SQS) Close() error { return nil }

// Settings selects and configures a publisher backend.
type Settings struct {
	Backend  string
	Brokers  []string
	Topic    string
	QueueURL string
	Region   string
}

// NewPublisher builds the configured backend; "" and "none" give Noop.
func NewPublisher(ctx context.Context, s Settings) (Publisher, error) {
	switch s.Backend {
	case "", "none":
		return Noop{}, nil
	case "kafka":
		return NewKafka(s.Brokers, s.Topic), nil
	case "sqs":
		return NewSQS(ctx, s.QueueURL, s.Region)
	default:
		return nil, fmt.Errorf("unknown events backend %q", s.Backend)
	}
}
