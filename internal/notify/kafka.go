package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
)

const EventOrderConfirmation = "order.confirmation"

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaNotifier publishes confirmations for a downstream mail consumer.
type KafkaNotifier struct {
	writer messageWriter
}

type envelope struct {
	EventID   string            `json:"event_id"`
	Type      string            `json:"type"`
	OrderID   uint              `json:"order_id"`
	CreatedAt time.Time         `json:"created_at"`
	Payload   OrderConfirmation `json:"payload"`
}

func NewKafkaNotifier(brokersCSV, topic string) *KafkaNotifier {
	return &KafkaNotifier{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(ParseBrokers(brokersCSV)...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
		},
	}
}

func (k *KafkaNotifier) SendOrderConfirmation(ctx context.Context, msg OrderConfirmation) error {
	data, err := json.Marshal(envelope{
		EventID:   msg.EventID,
		Type:      EventOrderConfirmation,
		OrderID:   msg.OrderID,
		CreatedAt: time.Now().UTC(),
		Payload:   msg,
	})
	if err != nil {
		return fmt.Errorf("failed to encode confirmation: %w", err)
	}

	// Keyed by order so events for one order stay on one partition.
	return k.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(strconv.FormatUint(uint64(msg.OrderID), 10)),
		Value: data,
		Time:  time.Now().UTC(),
	})
}

func (k *KafkaNotifier) Close() error {
	return k.writer.Close()
}

func ParseBrokers(csv string) []string {
	brokers := []string{}
	for _, b := range strings.Split(csv, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}
