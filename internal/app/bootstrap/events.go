package bootstrap

import (
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	appconfig "github.com/wolfman30/advisor-match/internal/config"
	"github.com/wolfman30/advisor-match/internal/events"
	"github.com/wolfman30/advisor-match/internal/notify"
	"github.com/wolfman30/advisor-match/internal/observability/metrics"
	"github.com/wolfman30/advisor-match/pkg/logging"
)

// Handler names recorded in processed_events. Renaming one replays history
// for that handler.
const (
	HandlerNotifications = "notifications"
	HandlerRealtimeFeed  = "realtime_feed"
	HandlerSQS           = "sqs"
)

// BuildDeliverer wires the outbox to its consumers: email and in-app
// notifications, the realtime appointments feed and, when EVENTS_QUEUE_URL
// is set, the SQS fan-out queue.
func BuildDeliverer(cfg *appconfig.Config, stores Stores, notifier *notify.Service, hub notify.Broadcaster, awsCfg *aws.Config, m *metrics.SchedulingMetrics, logger *logging.Logger) *events.Deliverer {
	if logger == nil {
		logger = logging.Default()
	}
	fanout := events.NewFanout(stores.Processed)
	if notifier != nil {
		fanout.Add(HandlerNotifications, notify.NewAppointmentEventHandler(notifier, logger))
	}
	if hub != nil {
		fanout.Add(HandlerRealtimeFeed, notify.NewAppointmentFeed(hub))
	}
	if cfg != nil && cfg.EventsQueueURL != "" && awsCfg != nil {
		fanout.Add(HandlerSQS, events.NewSQSPublisher(sqs.NewFromConfig(*awsCfg), cfg.EventsQueueURL))
		logger.Info("publishing appointment events to sqs", "queue_url", cfg.EventsQueueURL)
	}

	d := events.NewDeliverer(stores.Outbox, fanout, logger).WithMetrics(m)
	if cfg != nil {
		if cfg.OutboxPollInterval > 0 {
			d = d.WithInterval(cfg.OutboxPollInterval)
		}
		if cfg.OutboxBatchSize > 0 {
			d = d.WithBatchSize(int32(cfg.OutboxBatchSize))
		}
	}
	return d
}
