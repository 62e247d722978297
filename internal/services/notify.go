package services

import (
	"context"

	"kalam-backend/internal/metrics"
	"kalam-backend/internal/notify"

	"github.com/sirupsen/logrus"
)

// publish hands msg to the notifier. Delivery problems are logged and
// counted but never fail the request that triggered them.
func publish(ctx context.Context, p notify.Publisher, msg notify.Message) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, msg); err != nil {
		metrics.Notifications.WithLabelValues(msg.Type, "error").Inc()
		logrus.WithFields(logrus.Fields{"type": msg.Type, "to": msg.To}).WithError(err).Warn("failed to publish notification")
		return
	}
	metrics.Notifications.WithLabelValues(msg.Type, "published").Inc()
}
