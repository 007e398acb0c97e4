package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	DefaultExchange = "community.events"

	// Wait window for Return / Confirm
	publishWait = 300 * time.Millisecond
)

var ErrNotReady = errors.New("publisher channel not ready")

// Publisher sends outbox rows to a durable topic exchange with publisher
// confirms and mandatory routing. It is safe for concurrent use.
type Publisher struct {
	url      string
	exchange string

	mu sync.Mutex

	conn *amqp.Connection
	ch   *amqp.Channel

	confirmCh <-chan amqp.Confirmation
	returnCh  <-chan amqp.Return
}

func NewPublisher(url, exchange string) (*Publisher, error) {
	if exchange == "" {
		exchange = DefaultExchange
	}

	p := &Publisher{
		url:      url,
		exchange: exchange,
	}
	if err := p.connect(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Publisher) Exchange() string { return p.exchange }

func (p *Publisher) connect() error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return fmt.Errorf("rabbitmq dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("rabbitmq channel: %w", err)
	}

	if err := ch.ExchangeDeclare(p.exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("exchange declare %s: %w", p.exchange, err)
	}

	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("enable confirms: %w", err)
	}

	p.conn = conn
	p.ch = ch
	p.confirmCh = ch.NotifyPublish(make(chan amqp.Confirmation, 16))
	p.returnCh = ch.NotifyReturn(make(chan amqp.Return, 16))
	return nil
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
	return nil
}

// PublishEvent publishes an envelope body and waits for the broker's confirm.
// messageID must be stable across retries (registration_outbox.message_id).
// A missing confirm within the wait window is reported as an error so the
// outbox row is retried.
func (p *Publisher) PublishEvent(ctx context.Context, routingKey, messageID string, body []byte) error {
	if strings.TrimSpace(routingKey) == "" {
		return errors.New("missing routingKey")
	}
	if strings.TrimSpace(messageID) == "" {
		return errors.New("missing messageID")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ch == nil || p.ch.IsClosed() {
		if p.conn != nil {
			_ = p.conn.Close()
		}
		p.ch, p.conn = nil, nil
		if err := p.connect(); err != nil {
			return fmt.Errorf("%w: %v", ErrNotReady, err)
		}
	}

	// drain stale notifications from earlier timed-out publishes
drain:
	for {
		select {
		case <-p.returnCh:
		case <-p.confirmCh:
		default:
			break drain
		}
	}

	tag := p.ch.GetNextPublishSeqNo()
	err := p.ch.PublishWithContext(
		ctx,
		p.exchange,
		routingKey,
		true,  // mandatory
		false, // immediate
		amqp.Publishing{
			MessageId:    messageID,
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
			AppId:        "registration-service",
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish: %w", err)
	}

	return awaitConfirm(ctx, p.confirmCh, p.returnCh, tag, publishWait)
}

// awaitConfirm waits for the confirm carrying tag. Confirms for earlier tags
// belong to publishes that already timed out and are skipped.
// A Return arrives before the Confirm for unroutable messages.
func awaitConfirm(ctx context.Context, confirms <-chan amqp.Confirmation, returns <-chan amqp.Return, tag uint64, wait time.Duration) error {
	timeout := time.NewTimer(wait)
	defer timeout.Stop()
	for {
		select {
		case ret := <-returns:
			return fmt.Errorf("NO_ROUTE: code=%d text=%s rk=%s", ret.ReplyCode, ret.ReplyText, ret.RoutingKey)
		case conf, ok := <-confirms:
			if !ok {
				return ErrNotReady
			}
			if conf.DeliveryTag < tag {
				continue
			}
			if !conf.Ack {
				return fmt.Errorf("NACK: delivery_tag=%d", conf.DeliveryTag)
			}
			return nil
		case <-timeout.C:
			return errors.New("confirm timeout")
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
