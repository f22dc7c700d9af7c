package publishers

import (
	"context"
	"fmt"

	"cloud.google.com/go/pubsub"
	"github.com/samvad-hq/outage-bot/internal/logger"
	"google.golang.org/api/option"
)

// gcpPubSubSender publishes events to a Pub/Sub topic with the provider id as
// ordering key, so one provider's entries arrive in announcement order.
type gcpPubSubSender struct {
	id     string
	client *pubsub.Client
	topic  *pubsub.Topic
	log    logger.Logger
}

func newGCPPublisher(ctx context.Context, cfg PublisherConfig, log logger.Logger) (Publisher, error) {
	if cfg.GCP == nil {
		return nil, fmt.Errorf("publisher %q missing gcp_pubsub configuration", cfg.ID)
	}
	sender, err := newGCPPubSubSender(ctx, cfg.GCP, log)
	if err != nil {
		return nil, err
	}
	sender.id = cfg.ID
	return sender, nil
}

func newGCPPubSubSender(ctx context.Context, cfg *GCPQueueConfig, log logger.Logger) (*gcpPubSubSender, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	client, err := pubsub.NewClient(ctx, cfg.ProjectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("create pubsub client: %w", err)
	}
	topic := client.Topic(cfg.Topic)
	topic.EnableMessageOrdering = true
	return &gcpPubSubSender{
		id:     cfg.Topic,
		client: client,
		topic:  topic,
		log:    logger.Ensure(log),
	}, nil
}

func (g *gcpPubSubSender) ID() string                                   { return g.id }
func (g *gcpPubSubSender) Type() string                                 { return TypeGCPPubSub }
func (g *gcpPubSubSender) Publish(ctx context.Context, evt Event) error { return g.Send(ctx, evt) }

// Send publishes one event and waits for the server id.
func (g *gcpPubSubSender) Send(ctx context.Context, evt Event) error {
	env, err := evt.envelope()
	if err != nil {
		return err
	}
	res := g.topic.Publish(ctx, &pubsub.Message{
		Data:        env.body,
		Attributes:  env.attrs,
		OrderingKey: evt.ProviderID,
	})
	serverID, err := res.Get(ctx)
	if err != nil {
		g.topic.ResumePublish(evt.ProviderID)
		return fmt.Errorf("publish to pubsub: %w", err)
	}
	g.log.DebugObj("pubsub delivered event", "publisher_pubsub_delivery", map[string]any{
		"publisher_id": g.id,
		"message_id":   serverID,
	})
	return nil
}
