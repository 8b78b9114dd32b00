package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill/message"
)

// LogEvents subscribes to topic and writes every event to logger until ctx
// ends. Undecodable payloads are logged and acked so they are not redelivered.
func LogEvents(ctx context.Context, subscriber message.Subscriber, topic string, logger *slog.Logger) error {
	messages, err := subscriber.Subscribe(ctx, topic)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", topic, err)
	}

	go func() {
		for msg := range messages {
			var event Event
			if err := json.Unmarshal(msg.Payload, &event); err != nil {
				logger.Warn("Undecodable event", "topic", topic, "message_id", msg.UUID, "error", err)
				msg.Ack()
				continue
			}
			logger.Info("Event received",
				"topic", topic,
				"event_id", event.ID,
				"event_type", event.Type,
				"timestamp", event.Timestamp)
			msg.Ack()
		}
	}()
	return nil
}
