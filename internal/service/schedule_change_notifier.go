package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-absensi-api/internal/models"
)

// ScheduleChangedChannel is the Redis channel dependent views subscribe to.
const ScheduleChangedChannel = "schedule:changed"

type changePublisher interface {
	Publish(ctx context.Context, channel string, payload interface{}) error
}

// ScheduleChangeNotifier refreshes what depends on the timetable once slots are
// written: cached class reports are dropped and an event is published.
// Failures are logged only; the write they follow has already committed.
type ScheduleChangeNotifier struct {
	publisher changePublisher
	cache     *CacheService
	metrics   *MetricsService
	logger    *zap.Logger
	now       func() time.Time
}

// NewScheduleChangeNotifier constructs a notifier. Both publisher and cache may be nil.
func NewScheduleChangeNotifier(publisher changePublisher, cache *CacheService, metrics *MetricsService, logger *zap.Logger) *ScheduleChangeNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleChangeNotifier{publisher: publisher, cache: cache, metrics: metrics, logger: logger, now: time.Now}
}

// ScheduleChanged implements the schedule service hook.
func (n *ScheduleChangeNotifier) ScheduleChanged(ctx context.Context, event models.ScheduleChangedEvent) {
	if event.At.IsZero() {
		event.At = n.now().UTC()
	}
	if err := n.cache.InvalidateClass(ctx, event.ClassID); err != nil {
		n.logger.Warn("drop cached reports after schedule change", zap.Int64("class_id", event.ClassID), zap.Error(err))
	}
	if n.publisher != nil {
		if err := n.publisher.Publish(ctx, ScheduleChangedChannel, event); err != nil {
			n.logger.Warn("publish schedule change", zap.Int64("class_id", event.ClassID), zap.Error(err))
		}
	}
	n.metrics.RecordScheduleSlots(len(event.SlotIDs))
}
