package queue

import (
	"time"

	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	natsgo "github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// NewNats wires an MQ over NATS JetStream. Each queue becomes a durable
// consumer so jobs survive restarts, with a queue group so multiple
// instances share the work.
func NewNats(cfg Config, url string, log zerolog.Logger) (*MQ, error) {
	wmLogger := newLoggerAdapter(log)

	natsOpts := []natsgo.Option{
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(-1),
		natsgo.ReconnectWait(time.Second),
		natsgo.DisconnectErrHandler(func(nc *natsgo.Conn, err error) {
			if err != nil {
				log.Error().Err(err).Msg("nats disconnected")
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("nats reconnected")
		}),
	}

	pub, err := wmNats.NewPublisher(wmNats.PublisherConfig{
		URL:         url,
		NatsOptions: natsOpts,
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			AutoProvision: true,
			PublishOptions: []natsgo.PubOpt{
				natsgo.RetryAttempts(3),
				natsgo.RetryWait(100 * time.Millisecond),
			},
		},
	}, wmLogger)
	if err != nil {
		return nil, err
	}

	subFn := func(queue string) (message.Subscriber, error) {
		return wmNats.NewSubscriber(wmNats.SubscriberConfig{
			URL:              url,
			QueueGroupPrefix: "jobs",
			SubscribersCount: cfg.Concurrency,
			AckWaitTimeout:   30 * time.Second,
			CloseTimeout:     cfg.CloseTimeout,
			NatsOptions:      natsOpts,
			Unmarshaler:      &wmNats.NATSMarshaler{},
			JetStream: wmNats.JetStreamConfig{
				AutoProvision: true,
				DurablePrefix: "jobs-" + queue,
				SubscribeOptions: []natsgo.SubOpt{
					natsgo.MaxAckPending(cfg.Concurrency),
					natsgo.AckWait(30 * time.Second),
				},
			},
		}, wmLogger)
	}

	return NewWithPubSub(cfg, pub, subFn, log)
}
