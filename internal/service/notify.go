package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/sportsclub/internal/model"
	"github.com/iliyamo/sportsclub/internal/queue"
)

// Notifier delivers one notification. Callers in this package never let a
// Notifier error change the outcome of the operation that triggered it.
type Notifier interface {
	Notify(ctx context.Context, n model.Notification) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, n model.Notification) error

func (f NotifierFunc) Notify(ctx context.Context, n model.Notification) error { return f(ctx, n) }

type NotificationWriter interface {
	Create(ctx context.Context, n *model.Notification) error
}

type EventPublisher interface {
	PublishNotification(ctx context.Context, ev queue.NotificationEvent) error
}

// StoreNotifier writes the inbox row and then announces it on the broker.
// A nil Publisher keeps delivery inbox-only.
type StoreNotifier struct {
	Store     NotificationWriter
	Publisher EventPublisher
}

func (s *StoreNotifier) Notify(ctx context.Context, n model.Notification) error {
	if err := s.Store.Create(ctx, &n); err != nil {
		return fmt.Errorf("store notification: %w", err)
	}
	if s.Publisher == nil {
		return nil
	}
	if err := s.Publisher.PublishNotification(ctx, queue.NewNotificationEvent(n)); err != nil {
		return fmt.Errorf("publish notification %d: %w", n.ID, err)
	}
	return nil
}

var (
	ErrNotifyQueueFull = errors.New("notification queue full")
	ErrNotifierClosed  = errors.New("notifier closed")
)

// AsyncNotifier hands notifications to a pool of workers so the triggering
// request never waits on delivery. When the buffer is full the notification
// is dropped and logged.
type AsyncNotifier struct {
	next    Notifier
	log     *zap.Logger
	timeout time.Duration

	mu     sync.RWMutex
	closed bool
	ch     chan model.Notification
	wg     sync.WaitGroup
}

func NewAsyncNotifier(next Notifier, log *zap.Logger, buffer, workers int, timeout time.Duration) *AsyncNotifier {
	if buffer < 1 {
		buffer = 1
	}
	if workers < 1 {
		workers = 1
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	a := &AsyncNotifier{next: next, log: log, timeout: timeout, ch: make(chan model.Notification, buffer)}
	a.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go a.work()
	}
	return a
}

func (a *AsyncNotifier) work() {
	defer a.wg.Done()
	for n := range a.ch {
		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		if err := a.next.Notify(ctx, n); err != nil {
			a.log.Warn("notification delivery failed",
				zap.Uint64("user_id", n.UserID), zap.String("kind", n.Kind), zap.Error(err))
		}
		cancel()
	}
}

// Notify enqueues n without blocking.
func (a *AsyncNotifier) Notify(_ context.Context, n model.Notification) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return ErrNotifierClosed
	}
	select {
	case a.ch <- n:
		return nil
	default:
		return ErrNotifyQueueFull
	}
}

// Close stops accepting work and waits for queued notifications to drain.
func (a *AsyncNotifier) Close() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.closed = true
	close(a.ch)
	a.mu.Unlock()
	a.wg.Wait()
}

// emit sends n and swallows any failure, panics included.
func emit(ctx context.Context, log *zap.Logger, notifier Notifier, n model.Notification) {
	if notifier == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			log.Error("notifier panicked", zap.String("kind", n.Kind), zap.Any("panic", r))
		}
	}()
	if err := notifier.Notify(ctx, n); err != nil {
		log.Warn("notification not sent",
			zap.Uint64("user_id", n.UserID), zap.String("kind", n.Kind), zap.Error(err))
	}
}

// emitRole sends one notification per active user holding role and returns
// how many were handed to the notifier.
func emitRole(ctx context.Context, log *zap.Logger, users UserDirectory, notifier Notifier, role string, build func(userID uint64) model.Notification) int {
	if users == nil || notifier == nil {
		return 0
	}
	ids, err := users.ListIDsByRole(ctx, role)
	if err != nil {
		log.Warn("list recipients failed", zap.String("role", role), zap.Error(err))
		return 0
	}
	for _, id := range ids {
		emit(ctx, log, notifier, build(id))
	}
	return len(ids)
}
