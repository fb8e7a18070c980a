package notify

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/sivaSai9177/Healthcare-sub008/pkg/alerting"
)

// LogSink is a NotificationSink that records deliveries in the service log.
// It stands in for push/email/websocket delivery, which this service treats
// as an external collaborator behind the same interface.
type LogSink struct{}

// Ensure LogSink implements NotificationSink
var _ alerting.NotificationSink = (*LogSink)(nil)

// NewLogSink creates a logging notification sink
func NewLogSink() *LogSink {
	return &LogSink{}
}

// Notify logs the signal. Never fails, so state transitions are never blocked.
func (s *LogSink) Notify(ctx context.Context, signal alerting.Signal) error {
	entry := logrus.WithFields(logrus.Fields{
		"kind":     signal.Kind,
		"alert_id": signal.AlertID,
		"room":     signal.Room,
	})
	if len(signal.UserIDs) > 0 {
		entry = entry.WithField("users", signal.UserIDs)
	}
	if len(signal.Roles) > 0 {
		entry = entry.WithField("roles", signal.Roles)
	}
	if signal.Tier > 0 {
		entry = entry.WithField("tier", signal.Tier)
	}

	switch signal.Kind {
	case alerting.SignalEscalated, alerting.SignalSLABreach, alerting.SignalAssignmentFailed:
		entry.Warnf("Notification: %s", signal.Message)
	default:
		entry.Infof("Notification: %s", signal.Message)
	}
	return nil
}
