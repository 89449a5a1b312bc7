package notify

import (
	"context"
	"fmt"

	"github.com/segmentio/kafka-go"

	"github.com/tusrelay/tusrelay/pkg/upload"
)

// KafkaNotifier produces hook messages to a topic, keyed by upload id
// so that all messages for one upload land on the same partition.
type KafkaNotifier struct {
	writer *kafka.Writer
	Topic  string // empty means "use the hook name as the topic"
	Prefix string
	Format Format
}

func NewKafkaNotifier(brokers []string, topic, prefix string, format Format) *KafkaNotifier {
	return &KafkaNotifier{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Balancer: &kafka.Hash{},
		},
		Topic: topic, Prefix: prefix, Format: format,
	}
}

func (n *KafkaNotifier) Name() string { return "kafka" }

func (n *KafkaNotifier) Prepare(ctx context.Context) error { return nil }

func (n *KafkaNotifier) topicName(hook upload.Hook) string {
	topic := n.Topic
	if topic == "" {
		topic = string(hook)
	}
	if n.Prefix != "" {
		return fmt.Sprintf("%s-%s", n.Prefix, topic)
	}
	return topic
}

func (n *KafkaNotifier) Send(ctx context.Context, hook upload.Hook, message upload.HookMessage) error {
	body, err := FormatMessage(n.Format, message)
	if err != nil {
		return err
	}

	return n.writer.WriteMessages(ctx, kafka.Message{
		Topic: n.topicName(hook),
		Key:   []byte(message.Upload.ID),
		Value: body,
	})
}
