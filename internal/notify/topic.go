package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gocloud.dev/pubsub"
	_ "gocloud.dev/pubsub/mempubsub"
	_ "gocloud.dev/pubsub/natspubsub"
)

// Topic publishes notifications to a pub/sub topic (mem://, nats://).
type Topic struct {
	topic *pubsub.Topic
}

func OpenTopic(ctx context.Context, url string) (*Topic, error) {
	t, err := pubsub.OpenTopic(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("open topic %s: %w", url, err)
	}
	return &Topic{topic: t}, nil
}

// NewTopic wraps an already opened topic.
func NewTopic(t *pubsub.Topic) *Topic {
	return &Topic{topic: t}
}

type TopicMessage struct {
	Title  string `json:"title"`
	Text   string `json:"text"`
	SentAt int64  `json:"sent_at"`
}

func (t *Topic) Send(ctx context.Context, title, text string) error {
	body, err := json.Marshal(TopicMessage{Title: title, Text: text, SentAt: time.Now().Unix()})
	if err != nil {
		return err
	}
	return t.topic.Send(ctx, &pubsub.Message{
		Body:     body,
		Metadata: map[string]string{"kind": "notification"},
	})
}

func (t *Topic) Close(ctx context.Context) error {
	return t.topic.Shutdown(ctx)
}
