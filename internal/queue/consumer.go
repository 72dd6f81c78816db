package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/labstack/gommon/log"
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	dialTimeout = 5 * time.Second
	// requeueDelay slows redelivery while the audit log cannot be written.
	requeueDelay = time.Second
)

// ErrMalformedEvent marks a message that can never be processed.
var ErrMalformedEvent = errors.New("malformed reservation event")

// Consumer listens to the reservation events queue and appends each event
// to an audit log file, one line per event.
type Consumer struct {
	url     string
	logPath string
	logger  *log.Logger
}

// NewConsumer returns a consumer for the broker at url writing to logPath.
func NewConsumer(url, logPath string) *Consumer {
	return &Consumer{url: url, logPath: logPath, logger: log.New("reservation-consumer")}
}

// Run connects to RabbitMQ and consumes until ctx is cancelled. Broker
// failures trigger a reconnect with exponential backoff capped at 30s.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		conn, err := dial(c.url, dialTimeout)
		if err != nil {
			c.logger.Warnf("failed to dial broker: %v; retrying in %s", err, backoff)
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consumeLoop(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.logger.Warnf("consume loop ended: %v; reconnecting", err)
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func (c *Consumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		c.logger.Warnf("set QoS failed: %v", err)
	}
	if _, err := ch.QueueDeclare(QueueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(QueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			err := c.handleMessage(d.Body)
			if err == nil {
				_ = d.Ack(false)
				continue
			}
			if shouldRequeue(err) {
				c.logger.Warnf("handle message %s failed, requeueing: %v", d.MessageId, err)
				sleep(ctx, requeueDelay)
				_ = d.Nack(false, true)
				continue
			}
			c.logger.Errorf("dropping message %s: %v", d.MessageId, err)
			_ = d.Nack(false, false)
		}
	}
}

// shouldRequeue is false only for messages that will fail the same way on
// every delivery.
func shouldRequeue(err error) bool {
	return !errors.Is(err, ErrMalformedEvent)
}

func (c *Consumer) handleMessage(body []byte) error {
	var ev ReservationEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if ev.Type == "" {
		return fmt.Errorf("%w: event without type", ErrMalformedEvent)
	}
	if err := os.MkdirAll(filepath.Dir(c.logPath), 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	f, err := os.OpenFile(c.logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(formatLine(ev)); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

func formatLine(ev ReservationEvent) string {
	verb := "Reservation committed"
	if ev.Type == EventCancelled {
		verb = "Reservation cancelled"
	}
	return fmt.Sprintf("[%s] %s | event_id=%s | reservation_id=%d | user_id=%d | show_id=%d | seats=[%s]\n",
		ev.OccurredAt, verb, ev.EventID, ev.ReservationID, ev.UserID, ev.ShowID, strings.Join(ev.Seats, ","))
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
