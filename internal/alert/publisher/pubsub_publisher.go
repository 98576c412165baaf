package publisher

import (
	"context"
	"encoding/json"

	"gocloud.dev/pubsub"

	auditDomain "github.com/allisson/keycore/internal/audit/domain"
	apperrors "github.com/allisson/keycore/internal/errors"

	// Register pubsub provider drivers
	_ "gocloud.dev/pubsub/gcppubsub"
	_ "gocloud.dev/pubsub/mempubsub"
)

// PubSubPublisher delivers alerts to a gocloud.dev pubsub topic.
// Supported schemes: gcppubsub://, mem:// (tests and local development).
type PubSubPublisher struct {
	topic *pubsub.Topic
}

// NewPubSubPublisher opens the topic at the given URL.
func NewPubSubPublisher(ctx context.Context, topicURL string) (*PubSubPublisher, error) {
	topic, err := pubsub.OpenTopic(ctx, topicURL)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to open alert topic")
	}
	return &PubSubPublisher{topic: topic}, nil
}

// NewPubSubPublisherFromTopic wraps an already opened topic.
func NewPubSubPublisherFromTopic(topic *pubsub.Topic) *PubSubPublisher {
	return &PubSubPublisher{topic: topic}
}

func (p *PubSubPublisher) Name() string {
	return "pubsub"
}

// Publish sends the alert as a JSON message with type and severity attached
// as metadata for subscriber-side filtering.
func (p *PubSubPublisher) Publish(ctx context.Context, alert *auditDomain.SecurityAlert) error {
	body, err := json.Marshal(newAlertPayload(alert))
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal alert payload")
	}

	err = p.topic.Send(ctx, &pubsub.Message{
		Body: body,
		Metadata: map[string]string{
			"alert_type": string(alert.AlertType),
			"severity":   string(alert.Severity),
		},
	})
	if err != nil {
		return apperrors.Wrap(err, "failed to publish alert")
	}
	return nil
}

// Shutdown releases the topic's resources.
func (p *PubSubPublisher) Shutdown(ctx context.Context) error {
	return p.topic.Shutdown(ctx)
}
