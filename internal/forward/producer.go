package forward

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/apache/pulsar-client-go/pulsar"
	"github.com/rs/zerolog/log"
	"github.com/timada-org/hookrelay/internal/core"
)

var _ core.Forwarder = &Producer{}

type ProducerOptions struct {
	URL   string
	Topic string
	Name  string
}

// Producer publishes every received event to a Pulsar topic.
type Producer struct {
	client   pulsar.Client
	producer pulsar.Producer
}

func New(options ProducerOptions) (*Producer, error) {
	client, err := pulsar.NewClient(pulsar.ClientOptions{
		URL: options.URL,
	})
	if err != nil {
		return nil, err
	}

	producer, err := client.CreateProducer(pulsar.ProducerOptions{
		Topic: options.Topic,
		Name:  options.Name,
	})
	if err != nil {
		client.Close()
		return nil, err
	}

	return &Producer{
		client:   client,
		producer: producer,
	}, nil
}

// Forward queues the event and returns without waiting for the broker.
// Send failures are only logged.
func (p *Producer) Forward(_ context.Context, event *core.Event) error {
	if p.producer == nil {
		return errors.New("producer not initialized")
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	id := event.ID

	// the request context ends with the webhook response, before the
	// broker acknowledges
	p.producer.SendAsync(context.Background(), &pulsar.ProducerMessage{
		Key:       event.Session,
		Payload:   payload,
		EventTime: event.ReceivedAt,
		Properties: map[string]string{
			"event_id": id,
		},
	}, func(_ pulsar.MessageID, _ *pulsar.ProducerMessage, err error) {
		if err != nil {
			log.Err(err).Msgf("unable to forward event %s", id)
		}
	})

	return nil
}

func (p *Producer) Close() {
	if p.producer != nil {
		if err := p.producer.Flush(); err != nil {
			log.Err(err).Msg("unable to flush forwarded events")
		}
		p.producer.Close()
	}

	p.client.Close()
}
