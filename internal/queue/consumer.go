package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const (
	notificationQueue = "sportsclub.notifications.log"
	logFileName       = "notifications.log"
)

// ConsumerConfig names the broker, the exchange to bind to and the directory
// that receives notifications.log.
type ConsumerConfig struct {
	URL      string
	Exchange string
	LogDir   string
}

// StartNotificationConsumer binds a durable queue to every notification
// routing key and appends each delivery to LogDir/notifications.log. It
// reconnects with exponential backoff and returns only when ctx is done.
func StartNotificationConsumer(ctx context.Context, cfg ConsumerConfig, log *zap.Logger) error {
	if cfg.Exchange == "" {
		cfg.Exchange = DefaultExchange
	}
	if cfg.LogDir == "" {
		cfg.LogDir = "logs"
	}
	log = log.With(zap.String("component", "notification-consumer"))

	backoff := time.Second
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		conn, err := amqp.Dial(cfg.URL)
		if err != nil {
			log.Warn("dial broker failed", zap.Error(err), zap.Duration("retry_in", backoff))
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = consumeLoop(ctx, conn, cfg, log)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Warn("consume loop ended, reconnecting", zap.Error(err))
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
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

func consumeLoop(ctx context.Context, conn *amqp.Connection, cfg ConsumerConfig, log *zap.Logger) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Warn("set QoS failed", zap.Error(err))
	}
	if err := ch.ExchangeDeclare(cfg.Exchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}
	q, err := ch.QueueDeclare(notificationQueue, true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	if err := ch.QueueBind(q.Name, "notification.#", cfg.Exchange, false, nil); err != nil {
		return fmt.Errorf("queue bind: %w", err)
	}
	msgs, err := ch.ConsumeWithContext(ctx, q.Name, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for d := range msgs {
		if err := handleMessage(cfg.LogDir, d.Body); err != nil {
			log.Error("handle message failed", zap.String("message_id", d.MessageId), zap.Error(err))
			_ = d.Nack(false, false) // no requeue, a poison message would loop
			continue
		}
		_ = d.Ack(false)
	}
	return errors.New("deliveries channel closed")
}

func handleMessage(dir string, body []byte) error {
	var ev NotificationEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.Kind == "" || ev.UserID == 0 {
		return errors.New("event missing kind or user_id")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}
	f, err := os.OpenFile(filepath.Join(dir, logFileName), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(formatLine(ev)); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

func formatLine(ev NotificationEvent) string {
	var meta strings.Builder
	keys := make([]string, 0, len(ev.Meta))
	for k := range ev.Meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&meta, " | %s=%v", k, ev.Meta[k])
	}
	return fmt.Sprintf("[%s] %s | event_id=%s | notification_id=%d | user_id=%d | title=%q%s\n",
		ev.CreatedAt, ev.Kind, ev.EventID, ev.NotificationID, ev.UserID, ev.Title, meta.String())
}
