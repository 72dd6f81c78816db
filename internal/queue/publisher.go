package queue

import (
	"context"
	"encoding/json"
	"time"

	"github.com/labstack/gommon/log"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/auditorium-seat-reservation/internal/model"
)

const (
	publishTimeout = 3 * time.Second
	// publishBuffer bounds how many events wait for the broker before new
	// ones are dropped.
	publishBuffer = 256
)

// Publisher sends reservation events to RabbitMQ. Listener calls only
// enqueue; Run delivers in the background, so a slow or unreachable broker
// never delays a booking response.
type Publisher struct {
	url     string
	events  chan ReservationEvent
	publish func(ctx context.Context, ev ReservationEvent) error
	now     func() time.Time
	logger  *log.Logger
}

// NewPublisher returns a publisher for the broker at url. Events are
// delivered once Run is started.
func NewPublisher(url string) *Publisher {
	p := &Publisher{
		url:    url,
		events: make(chan ReservationEvent, publishBuffer),
		now:    func() time.Time { return time.Now().UTC() },
		logger: log.New("publisher"),
	}
	p.publish = p.Publish
	return p
}

// Run delivers queued events until ctx is cancelled. Each delivery gets its
// own publishTimeout; failures are logged and the event is dropped.
func (p *Publisher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			if n := len(p.events); n > 0 {
				p.logger.Warnf("rabbitmq: %d events not published at shutdown", n)
			}
			return ctx.Err()
		case ev := <-p.events:
			pctx, cancel := context.WithTimeout(ctx, publishTimeout)
			if err := p.publish(pctx, ev); err != nil {
				p.logger.Errorj(log.JSON{
					"event":          "publish_failed",
					"event_id":       ev.EventID,
					"type":           ev.Type,
					"reservation_id": ev.ReservationID,
					"error":          err.Error(),
				})
			}
			cancel()
		}
	}
}

// Publish declares the events queue and sends ev as a persistent JSON
// message whose MessageId is the event id. Connecting is bounded by
// publishTimeout.
func (p *Publisher) Publish(ctx context.Context, ev ReservationEvent) error {
	conn, err := dial(p.url, publishTimeout)
	if err != nil {
		p.logger.Warnf("rabbitmq: dial failed: %v", err)
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		p.logger.Warnf("rabbitmq: channel open failed: %v", err)
		return err
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(
		QueueName, // name
		true,      // durable
		false,     // autoDelete
		false,     // exclusive
		false,     // noWait
		nil,       // args
	); err != nil {
		p.logger.Warnf("rabbitmq: queue declare failed: %v", err)
		return err
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    ev.EventID,
		Type:         ev.Type,
		Timestamp:    p.now(),
		Body:         body,
	}
	return ch.PublishWithContext(ctx, "", QueueName, false, false, pub)
}

// ReservationCommitted queues a reservation.committed event.
func (p *Publisher) ReservationCommitted(_ context.Context, r model.Reservation) {
	p.enqueue(NewReservationEvent(EventCommitted, r, p.now()))
}

// ReservationCancelled queues a reservation.cancelled event.
func (p *Publisher) ReservationCancelled(_ context.Context, r model.Reservation) {
	p.enqueue(NewReservationEvent(EventCancelled, r, p.now()))
}

func (p *Publisher) enqueue(ev ReservationEvent) {
	select {
	case p.events <- ev:
	default:
		p.logger.Warnf("rabbitmq: event buffer full, dropping %s for reservation %d", ev.Type, ev.ReservationID)
	}
}

// dial connects with a bounded TCP connect and handshake time; amqp.Dial
// alone waits up to 30s on an unreachable host.
func dial(url string, timeout time.Duration) (*amqp.Connection, error) {
	return amqp.DialConfig(url, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      amqp.DefaultDial(timeout),
	})
}
