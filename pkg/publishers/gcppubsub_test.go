package publishers

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"
	"github.com/stretchr/testify/require"
)

func TestGCPPubSubSenderPublishes(t *testing.T) {
	server := pstest.NewServer()
	defer server.Close()
	t.Setenv("PUBSUB_EMULATOR_HOST", server.Addr)

	ctx := context.Background()
	admin, err := pubsub.NewClient(ctx, "test-project")
	require.NoError(t, err)
	defer admin.Close()
	_, err = admin.CreateTopic(ctx, "outages")
	require.NoError(t, err)

	sender, err := newGCPPubSubSender(ctx, &GCPQueueConfig{ProjectID: "test-project", Topic: "outages"}, nil)
	require.NoError(t, err)
	defer sender.client.Close()

	require.NoError(t, sender.Send(ctx, sampleEvent()))

	msgs := server.Messages()
	require.Len(t, msgs, 1)
	require.Equal(t, "aws", msgs[0].Attributes["provider_id"])
	require.Equal(t, "e1", msgs[0].Attributes["entry_id"])

	var evt Event
	require.NoError(t, json.Unmarshal(msgs[0].Data, &evt))
	require.Equal(t, "AWS", evt.ProviderName)
	require.WithinDuration(t, time.Now(), evt.AnnouncedAt, time.Minute)
}
