package events

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/detailerapp/backend/internal/logging"
)

// KafkaBroker is the Broker implementation used in production. The topic is
// created on startup if the cluster does not have it yet.
type KafkaBroker struct {
	producer *kafka.Writer
	consumer *kafka.Reader
}

type KafkaConfig struct {
	Brokers           []string
	Topic             string
	GroupID           string
	NumPartitions     int
	ReplicationFactor int
}

func NewKafkaBroker(cfg KafkaConfig, logger logging.Logger) (*KafkaBroker, error) {
	for _, broker := range cfg.Brokers {
		if err := createTopic(cfg, broker, logger); err != nil {
			return nil, err
		}
	}

	producer := &kafka.Writer{
		Addr:     kafka.TCP(cfg.Brokers...),
		Topic:    cfg.Topic,
		Balancer: &kafka.LeastBytes{},
	}

	consumer := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.Brokers,
		Topic:          cfg.Topic,
		GroupID:        cfg.GroupID,
		CommitInterval: time.Second,
	})

	return &KafkaBroker{producer: producer, consumer: consumer}, nil
}

func (b *KafkaBroker) Publish(ctx context.Context, key, value []byte) error {
	if err := b.producer.WriteMessages(ctx, kafka.Message{Key: key, Value: value}); err != nil {
		return fmt.Errorf("publishing to kafka: %w", err)
	}
	return nil
}

func (b *KafkaBroker) Read(ctx context.Context) (key, value []byte, err error) {
	msg, err := b.consumer.ReadMessage(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("reading from kafka: %w", err)
	}
	return msg.Key, msg.Value, nil
}

func (b *KafkaBroker) Close() error {
	if err := b.producer.Close(); err != nil {
		return fmt.Errorf("closing kafka producer: %w", err)
	}
	if err := b.consumer.Close(); err != nil {
		return fmt.Errorf("closing kafka consumer: %w", err)
	}
	return nil
}

func createTopic(cfg KafkaConfig, broker string, logger logging.Logger) error {
	conn, err := kafka.Dial("tcp", broker)
	if err != nil {
		return fmt.Errorf("connecting to kafka broker: %w", err)
	}
	defer conn.Close()

	err = conn.CreateTopics(kafka.TopicConfig{
		Topic:             cfg.Topic,
		NumPartitions:     cfg.NumPartitions,
		ReplicationFactor: cfg.ReplicationFactor,
	})
	if err != nil {
		if errors.Is(err, kafka.TopicAlreadyExists) {
			logger.Debug(context.Background(), "kafka topic already exists", "topic", cfg.Topic)
			return nil
		}
		return fmt.Errorf("creating kafka topic '%s': %w", cfg.Topic, err)
	}

	logger.Info(context.Background(), "kafka topic created", "topic", cfg.Topic)
	return nil
}
