package events

import (
	"github.com/mailweave/mailweave/interfaces"
	"github.com/mailweave/mailweave/internal/logger"
)

// EventsService bundles the publisher and subscriber sharing one broker URL.
type EventsService struct {
	Publisher  interfaces.EventPublisher
	Subscriber interfaces.EventSubscriber
}

func NewEventsService(rabbitmqURL string, log logger.Logger, publisherConfig *PublisherConfig, subscriberConfig *SubscriberConfig) (*EventsService, error) {
	publisher, err := NewRabbitMQPublisher(rabbitmqURL, log, publisherConfig)
	if err != nil {
		return nil, err
	}

	subscriber, err := NewRabbitMQSubscriber(rabbitmqURL, log, subscriberConfig)
	if err != nil {
		publisher.Close()
		return nil, err
	}

	return &EventsService{
		Publisher:  publisher,
		Subscriber: subscriber,
	}, nil
}

func (s *EventsService) Close() {
	if s.Subscriber != nil {
		_ = s.Subscriber.Close()
	}
	if s.Publisher != nil {
		_ = s.Publisher.Close()
	}
}
