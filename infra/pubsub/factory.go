// Package pubsub builds the AMQP transports used to exchange events with
// the rest of the platform. Everything rides one durable topic exchange;
// publishers address it with the topic as routing key and every consumer
// handler gets its own bound queue.
package pubsub

import (
	"github.com/ThreeDotsLabs/watermill"
	amqp "github.com/ThreeDotsLabs/watermill-amqp/v3/pkg/amqp"
	"github.com/ThreeDotsLabs/watermill/message"
)

type Factory struct {
	uri    string
	logger watermill.LoggerAdapter
}

func NewFactory(uri string, logger watermill.LoggerAdapter) *Factory {
	return &Factory{uri: uri, logger: logger}
}

// BuildPublisher returns a publisher bound to the given topic exchange.
// The watermill topic becomes the AMQP routing key.
func (f *Factory) BuildPublisher(exchange string) (message.Publisher, error) {
	return amqp.NewPublisher(f.config(exchange, ""), f.logger)
}

// BuildSubscriber returns a subscriber consuming `topic` from `exchange`
// through a dedicated durable queue.
func (f *Factory) BuildSubscriber(queue, exchange, topic string) (message.Subscriber, error) {
	return amqp.NewSubscriber(f.config(exchange, queue), f.logger)
}

func (f *Factory) config(exchange, queue string) amqp.Config {
	return amqp.Config{
		Connection: amqp.ConnectionConfig{
			AmqpURI: f.uri,
		},
		Marshaler: amqp.DefaultMarshaler{},
		Exchange: amqp.ExchangeConfig{
			GenerateName: func(topic string) string { return exchange },
			Type:         "topic",
			Durable:      true,
		},
		Queue: amqp.QueueConfig{
			GenerateName: func(topic string) string { return queue },
			Durable:      true,
		},
		QueueBind: amqp.QueueBindConfig{
			GenerateRoutingKey: func(topic string) string { return topic },
		},
		Publish: amqp.PublishConfig{
			GenerateRoutingKey: func(topic string) string { return topic },
		},
		Consume: amqp.ConsumeConfig{
			Qos: amqp.QosConfig{
				PrefetchCount: 16,
			},
		},
		TopologyBuilder: &amqp.DefaultTopologyBuilder{},
	}
}
