package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// BiddingMetrics records counters and timings for the bid engine.
type BiddingMetrics struct {
	submissions    *prometheus.CounterVec
	rollbacks      *prometheus.CounterVec
	duplicates     prometheus.Counter
	reconnects     prometheus.Counter
	feedMessages   *prometheus.CounterVec
	submitDuration *prometheus.HistogramVec
}

// NewBiddingMetrics registers the bid engine metrics on the provided registerer.
func NewBiddingMetrics(reg prometheus.Registerer) *BiddingMetrics {
	if reg == nil {
		return &BiddingMetrics{}
	}
	submissions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bid_submissions_total",
		Help: "Bid submissions by outcome.",
	}, []string{"outcome"})
	rollbacks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bid_rollbacks_total",
		Help: "Optimistic bid state rollbacks by reason.",
	}, []string{"reason"})
	duplicates := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "feed_duplicates_dropped_total",
		Help: "Duplicate or stale feed updates dropped.",
	})
	reconnects := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "feed_reconnect_attempts_total",
		Help: "Reconnect attempts made against the auction feed.",
	})
	feedMessages := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "feed_messages_total",
		Help: "Feed messages processed by type.",
	}, []string{"type"})
	submitDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bid_submit_duration_seconds",
		Help:    "Duration of upstream bid submissions in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})
	reg.MustRegister(submissions, rollbacks, duplicates, reconnects, feedMessages, submitDuration)
	return &BiddingMetrics{
		submissions:    submissions,
		rollbacks:      rollbacks,
		duplicates:     duplicates,
		reconnects:     reconnects,
		feedMessages:   feedMessages,
		submitDuration: submitDuration,
	}
}

// IncSubmission records a bid submission with the given outcome label.
func (b *BiddingMetrics) IncSubmission(outcome string) {
	if b == nil || b.submissions == nil {
		return
	}
	b.submissions.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncRollback records a rollback of an optimistic bid update.
func (b *BiddingMetrics) IncRollback(reason string) {
	if b == nil || b.rollbacks == nil {
		return
	}
	b.rollbacks.WithLabelValues(normalizeLabel(reason)).Inc()
}

// IncDuplicateDropped records a stale feed update that was ignored.
func (b *BiddingMetrics) IncDuplicateDropped() {
	if b == nil || b.duplicates == nil {
		return
	}
	b.duplicates.Inc()
}

// IncReconnect records a reconnect attempt against the auction feed.
func (b *BiddingMetrics) IncReconnect() {
	if b == nil || b.reconnects == nil {
		return
	}
	b.reconnects.Inc()
}

// IncFeedMessage records a processed feed message by type.
func (b *BiddingMetrics) IncFeedMessage(messageType string) {
	if b == nil || b.feedMessages == nil {
		return
	}
	b.feedMessages.WithLabelValues(normalizeLabel(messageType)).Inc()
}

// ObserveSubmitDuration records how long an upstream submission took.
func (b *BiddingMetrics) ObserveSubmitDuration(outcome string, duration time.Duration) {
	if b == nil || b.submitDuration == nil {
		return
	}
	b.submitDuration.WithLabelValues(normalizeLabel(outcome)).Observe(duration.Seconds())
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
