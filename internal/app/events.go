package app

import (
	"fmt"
	"log/slog"

	"carpool/internal/config"
	"carpool/internal/events"
)

// NewPublisher builds the ride event publisher selected by EVENTS_BACKEND.
func NewPublisher(cfg config.EventsConfig, log *slog.Logger) (events.Publisher, error) {
	switch cfg.Backend {
	case config.EventsRabbitMQ:
		p, err := events.NewRabbitMQPublisher(cfg.RabbitMQURL, cfg.RabbitMQExchange)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to rabbitmq: %w", err)
		}
		return p, nil
	case config.EventsLog:
		return events.NewNotifier(log), nil
	case config.EventsKafka:
		return events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic), nil
	case config.EventsNone, "":
		return events.NopPublisher{}, nil
	default:
		return nil, fmt.Errorf("unknown events backend %q", cfg.Backend)
	}
}
