package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"
)

type Consumer interface {
	Consume(ctx context.Context, handler func([]byte) error) error
}

// Reader drains the notification queue into the mailer.
type Reader struct {
	consumer Consumer
	mailer   Mailer
	done     chan struct{}
	cancel   context.CancelFunc
}

func NewReader(consumer Consumer, mailer Mailer) *Reader {
	return &Reader{
		consumer: consumer,
		mailer:   mailer,
		done:     make(chan struct{}),
	}
}

func (r *Reader) Start(ctx context.Context) error {
	cctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	if err := r.consumer.Consume(cctx, r.Handle); err != nil {
		cancel()
		close(r.done)
		return err
	}

	go func() {
		defer close(r.done)
		<-cctx.Done()
		logrus.Info("notification reader stopped")
	}()

	logrus.Info("notification reader started")
	return nil
}

// Handle processes one queued message body.
func (r *Reader) Handle(body []byte) error {
	var msg Message
	if err := json.Unmarshal(body, &msg); err != nil {
		return fmt.Errorf("decode notification: %w", err)
	}

	if err := Deliver(r.mailer, msg); err != nil {
		logrus.WithFields(logrus.Fields{"type": msg.Type, "to": msg.To}).WithError(err).Warn("notification not delivered")
		return err
	}

	logrus.WithFields(logrus.Fields{"type": msg.Type, "to": msg.To}).Info("notification delivered")
	return nil
}

func (r *Reader) Stop() {
	if r.cancel != nil {
		r.cancel()
		<-r.done
	}
}
