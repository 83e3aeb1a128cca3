package kafka

import (
	"context"
	"crypto/tls"
	"log"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/enjoys-in/pinglet-sub002/metrics"
	"github.com/enjoys-in/pinglet-sub002/pkg/dispatch"
	"github.com/enjoys-in/pinglet-sub002/pkg/utils"
)

// Consumer claims messages without committing their offsets; a worker that
// dies mid-processing leaves its message re-deliverable. A Consumer serves
// one sequential worker loop: Fetch, process, Commit, repeat.
type Consumer struct {
	reader *kafka.Reader
	last   kafka.Message
}

// Fetch claims the next message without acknowledging it.
func (c *Consumer) Fetch(ctx context.Context) (dispatch.Message, error) {
	m, err := c.reader.FetchMessage(ctx)
	if err != nil {
		metrics.QueueFetchFailureTotal.WithLabelValues(c.reader.Config().Topic).Inc()
		return dispatch.Message{}, err
	}
	c.last = m
	return dispatch.Message{Key: m.Key, Value: m.Value}, nil
}

// Commit acknowledges the message most recently returned by Fetch.
func (c *Consumer) Commit(ctx context.Context, _ dispatch.Message) error {
	return c.reader.CommitMessages(ctx, c.last)
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}

func NewConsumer(topic string, brokers []string, groupID string) *Consumer {
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:  brokers,
			Topic:    topic,
			GroupID:  groupID,
			MaxBytes: 10e6, // 10MB
		}),
	}
}

func NewConsumerAiven(topic, groupID string) *Consumer {
	kafkaURL := utils.GetEnv("AIVEN_KAFKA_URL")

	keypair, caCertPool := utils.LoadKafkaTLS()

	dialer := &kafka.Dialer{
		Timeout:   10 * time.Second,
		DualStack: true,
		TLS: &tls.Config{
			Certificates: []tls.Certificate{keypair},
			RootCAs:      caCertPool,
		},
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  []string{kafkaURL},
		Topic:    topic,
		GroupID:  groupID,
		Dialer:   dialer,
		MaxBytes: 10e6,
	})

	return &Consumer{reader: reader}
}

func NewConsumerFromEnv(topic, groupID string) *Consumer {
	state := utils.GetEnv("STATE")

	switch state {
	case "prod":
		log.Println("Starting Kafka Consumer in PROD mode (Aiven)")
		return NewConsumerAiven(topic, groupID)
	case "dev":
		log.Println("Starting Kafka Consumer in DEV mode (local)")
		fallthrough
	default:
		broker := utils.GetEnv("KAFKA_BROKER")
		return NewConsumer(topic, []string{broker}, groupID)
	}
}
