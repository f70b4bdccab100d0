package messaging

import (
	"context"
	"time"

	"github.com/jwalitptl/patient-records/pkg/logger"
	"github.com/jwalitptl/patient-records/pkg/metrics"
)

// ChannelPublisher wraps every event in a Message and publishes it on one
// broker channel.
type ChannelPublisher struct {
	broker  Broker
	channel string
	log     *logger.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewPublisher(broker Broker, channel string, log *logger.Logger, m *metrics.Metrics) *ChannelPublisher {
	if log == nil {
		log = logger.Nop()
	}
	return &ChannelPublisher{
		broker:  broker,
		channel: channel,
		log:     log,
		metrics: m,
		now:     time.Now,
	}
}

func (p *ChannelPublisher) Publish(ctx context.Context, eventType string, payload interface{}) error {
	err := p.broker.Publish(ctx, p.channel, Message{
		Type:       eventType,
		OccurredAt: p.now().UTC(),
		Payload:    payload,
	})
	p.metrics.ObserveEvent(eventType, err)
	if err != nil {
		p.log.Error(err, "failed to publish event", "type", eventType, "channel", p.channel)
		return err
	}
	p.log.Debug("event published", "type", eventType, "channel", p.channel)
	return nil
}
