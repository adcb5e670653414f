// Package kafka publishes alerts to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/crimson-sun/silverwatch/internal/model"
	"github.com/crimson-sun/silverwatch/internal/output"
)

const defaultWriteTimeout = 10 * time.Second

// Output writes each alert as one JSON message keyed by alert ID.
type Output struct {
	w *kafka.Writer
}

// New creates a synchronous writer for topic. Brokers are dialled lazily.
func New(brokers []string, topic string) (*Output, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka output: at least one broker is required")
	}
	if topic == "" {
		return nil, fmt.Errorf("kafka output: topic is required")
	}
	return &Output{w: &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		MaxAttempts:  1,
		BatchSize:    1,
		WriteTimeout: defaultWriteTimeout,
	}}, nil
}

func message(alert model.AlertEvent) (kafka.Message, error) {
	b, err := json.Marshal(alert)
	if err != nil {
		return kafka.Message{}, err
	}
	return kafka.Message{
		Key:   []byte(alert.ID),
		Value: b,
		Time:  alert.Timestamp,
		Headers: []kafka.Header{
			{Key: "alert_level", Value: []byte(strconv.Itoa(alert.Level))},
		},
	}, nil
}

func (o *Output) Write(ctx context.Context, alert model.AlertEvent) error {
	msg, err := message(alert)
	if err != nil {
		return output.Fail("kafka", "marshal", err)
	}
	return output.Fail("kafka", "publish", o.w.WriteMessages(ctx, msg))
}

func (o *Output) Close() error {
	return o.w.Close()
}
