package publishers

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/samvad-hq/outage-bot/internal/logger"
)

// snsSubjectLimit is the longest Subject SNS accepts.
const snsSubjectLimit = 100

type snsClient interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// awsSNSSender publishes events to a topic, with "<provider>: <title>" as the
// subject so e-mail subscriptions stay readable.
type awsSNSSender struct {
	id       string
	topicARN string
	client   snsClient
	log      logger.Logger
}

func newSNSPublisher(ctx context.Context, cfg PublisherConfig, log logger.Logger) (Publisher, error) {
	if cfg.SNS == nil {
		return nil, fmt.Errorf("publisher %q missing sns configuration", cfg.ID)
	}
	awsCfg, err := loadAWSConfig(ctx, cfg.SNS.Region, cfg.SNS.AWSAuth)
	if err != nil {
		return nil, err
	}
	return &awsSNSSender{
		id:       cfg.ID,
		topicARN: cfg.SNS.TopicARN,
		client:   sns.NewFromConfig(awsCfg),
		log:      logger.Ensure(log),
	}, nil
}

func (s *awsSNSSender) ID() string                                   { return s.id }
func (s *awsSNSSender) Type() string                                 { return TypeSNS }
func (s *awsSNSSender) Publish(ctx context.Context, evt Event) error { return s.Send(ctx, evt) }

// Send delivers one event.
func (s *awsSNSSender) Send(ctx context.Context, evt Event) error {
	env, err := evt.envelope()
	if err != nil {
		return err
	}

	attrs := make(map[string]types.MessageAttributeValue, len(env.attrs))
	for k, v := range env.attrs {
		attrs[k] = types.MessageAttributeValue{DataType: aws.String("String"), StringValue: aws.String(v)}
	}
	input := &sns.PublishInput{
		TopicArn:          aws.String(s.topicARN),
		Message:           aws.String(string(env.body)),
		Subject:           aws.String(truncateSubject(evt.ProviderName + ": " + evt.Entry.Title)),
		MessageAttributes: attrs,
	}

	if _, err := s.client.Publish(ctx, input); err != nil {
		return fmt.Errorf("publish to sns: %w", err)
	}
	s.log.DebugObj("sns delivered event", "publisher_sns_delivery", map[string]any{
		"publisher_id": s.id,
		"entry_id":     evt.Entry.ID,
	})
	return nil
}

// truncateSubject cuts on a rune boundary.
func truncateSubject(s string) string {
	r := []rune(s)
	if len(r) > snsSubjectLimit {
		return string(r[:snsSubjectLimit])
	}
	return s
}
