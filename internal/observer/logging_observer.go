package observer

import (
	"context"

	"github.com/sirupsen/logrus"
)

// LoggingObserver logs verdict events
type LoggingObserver struct {
	logger *logrus.Logger
}

// NewLoggingObserver creates a new logging observer
func NewLoggingObserver(logger *logrus.Logger) Observer {
	return &LoggingObserver{
		logger: logger,
	}
}

// OnEvent handles verdict events by logging them
func (o *LoggingObserver) OnEvent(ctx context.Context, event VerdictEvent) {
	fields := logrus.Fields{
		"event_type": event.Type,
		"kind":       event.Kind,
		"subject":    event.Subject,
		"duration":   event.Duration,
		"passed":     event.Passed,
	}
	if event.RequestID != "" {
		fields["request_id"] = event.RequestID
	}
	if len(event.FailedChecks) > 0 {
		fields["failed_checks"] = event.FailedChecks
	}
	if event.ErrorMessage != "" {
		fields["error"] = event.ErrorMessage
		fields["error_type"] = event.ErrorType
	}
	for k, v := range event.Metadata {
		fields[k] = v
	}

	entry := o.logger.WithFields(fields)
	switch event.Type {
	case VerdictStarted:
		entry.Debug("Verdict requested")
	case VerdictCompleted:
		entry.Info("Verdict produced")
	case VerdictFailed:
		entry.Error("Verdict could not be produced")
	case ImageLoaded:
		entry.Debug("Capture loaded")
	case ImageLoadFailed:
		entry.Warn("Capture could not be loaded")
	default:
		entry.Info("Verdict event occurred")
	}
}

// GetObserverName returns the observer name
func (o *LoggingObserver) GetObserverName() string {
	return "logging_observer"
}
