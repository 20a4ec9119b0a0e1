package events

import (
	"encoding/json"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"
)

// Publisher republishes processed webhook events to RabbitMQ so downstream
// consumers (analytics, bots) can react without polling the store. Publishing
// is best-effort: when no broker is configured every call is a no-op, and
// failures are logged, never propagated into request handling.
type Publisher struct {
	conn    *amqp091.Connection
	channel *amqp091.Channel
	enabled bool
	queue   string
}

// Envelope is the shape of every published event.
type Envelope struct {
	Event     string      `json:"event"`
	TenantID  uint        `json:"tenant_id"`
	ChannelID uint        `json:"channel_id"`
	Payload   interface{} `json:"payload,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// NewPublisher connects to the broker. An empty URL disables publishing.
func NewPublisher(url, queue string) *Publisher {
	p := &Publisher{queue: queue}
	if url == "" {
		log.Info().Msg("RABBITMQ_URL is not set. Event publishing disabled.")
		return p
	}

	var err error
	p.conn, err = amqp091.Dial(url)
	if err != nil {
		log.Error().Err(err).Msg("Could not connect to RabbitMQ, event publishing disabled")
		return p
	}
	p.channel, err = p.conn.Channel()
	if err != nil {
		log.Error().Err(err).Msg("Could not open RabbitMQ channel, event publishing disabled")
		return p
	}

	p.enabled = true
	log.Info().Str("queue", queue).Msg("RabbitMQ connection established")
	return p
}

// Publish serializes the envelope and sends it to the configured queue.
func (p *Publisher) Publish(event string, tenantID, channelID uint, payload interface{}) {
	if p == nil || !p.enabled {
		return
	}

	body, err := json.Marshal(Envelope{
		Event:     event,
		TenantID:  tenantID,
		ChannelID: channelID,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		log.Error().Err(err).Str("event", event).Msg("Failed to marshal event envelope")
		return
	}

	// Declare queue (idempotent)
	if _, err := p.channel.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		log.Error().Err(err).Str("queue", p.queue).Msg("Could not declare RabbitMQ queue")
		return
	}

	err = p.channel.Publish(
		"",      // exchange (default)
		p.queue, // routing key = queue
		false,   // mandatory
		false,   // immediate
		amqp091.Publishing{
			ContentType: "application/json",
			Body:        body,
		},
	)
	if err != nil {
		log.Error().Err(err).Str("event", event).Str("queue", p.queue).Msg("Could not publish to RabbitMQ")
		return
	}
	log.Debug().Str("event", event).Str("queue", p.queue).Msg("Published event to RabbitMQ")
}

// Close releases the broker connection.
func (p *Publisher) Close() {
	if p == nil || !p.enabled {
		return
	}
	if p.channel != nil {
		_ = p.channel.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
}
