package publishers

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/samvad-hq/outage-bot/internal/logger"
)

type sqsClient interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// awsSQSSender puts events on a queue. FIFO queues are grouped by provider
// and deduplicated by entry id.
type awsSQSSender struct {
	id       string
	queueURL string
	fifo     bool
	client   sqsClient
	log      logger.Logger
}

func newSQSPublisher(ctx context.Context, cfg PublisherConfig, log logger.Logger) (Publisher, error) {
	if cfg.SQS == nil {
		return nil, fmt.Errorf("publisher %q missing sqs configuration", cfg.ID)
	}
	awsCfg, err := loadAWSConfig(ctx, cfg.SQS.Region, cfg.SQS.AWSAuth)
	if err != nil {
		return nil, err
	}
	return &awsSQSSender{
		id:       cfg.ID,
		queueURL: cfg.SQS.QueueURL,
		fifo:     strings.HasSuffix(cfg.SQS.QueueURL, ".fifo"),
		client:   sqs.NewFromConfig(awsCfg),
		log:      logger.Ensure(log),
	}, nil
}

func (s *awsSQSSender) ID() string                                   { return s.id }
func (s *awsSQSSender) Type() string                                 { return TypeSQS }
func (s *awsSQSSender) Publish(ctx context.Context, evt Event) error { return s.Send(ctx, evt) }

// Send delivers one event.
func (s *awsSQSSender) Send(ctx context.Context, evt Event) error {
	env, err := evt.envelope()
	if err != nil {
		return err
	}

	attrs := make(map[string]types.MessageAttributeValue, len(env.attrs))
	for k, v := range env.attrs {
		attrs[k] = types.MessageAttributeValue{DataType: aws.String("String"), StringValue: aws.String(v)}
	}
	input := &sqs.SendMessageInput{
		QueueUrl:          aws.String(s.queueURL),
		MessageBody:       aws.String(string(env.body)),
		MessageAttributes: attrs,
	}
	if s.fifo {
		input.MessageGroupId = aws.String(evt.ProviderID)
		if evt.Entry.ID != "" {
			input.MessageDeduplicationId = aws.String(evt.Entry.ID)
		}
	}

	if _, err := s.client.SendMessage(ctx, input); err != nil {
		return fmt.Errorf("send message to sqs: %w", err)
	}
	s.log.DebugObj("sqs delivered event", "publisher_sqs_delivery", map[string]any{
		"publisher_id": s.id,
		"entry_id":     evt.Entry.ID,
	})
	return nil
}
