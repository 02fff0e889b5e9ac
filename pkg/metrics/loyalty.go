package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type LoyaltyMetrics struct {
	tokenTransitions    *prometheus.CounterVec
	tokenConflicts      *prometheus.CounterVec
	rewards             *prometheus.CounterVec
	reconciliation      *prometheus.CounterVec
	notifications       *prometheus.CounterVec
	notificationsQueued prometheus.Gauge
	reaped              *prometheus.CounterVec
	httpRequests        *prometheus.CounterVec
	httpDuration        *prometheus.HistogramVec
}

var (
	loyaltyOnce     sync.Once
	loyaltyRegistry *LoyaltyMetrics
)

// Loyalty returns the process wide metric set, registering it on first use.
func Loyalty() *LoyaltyMetrics {
	loyaltyOnce.Do(func() {
		loyaltyRegistry = &LoyaltyMetrics{
			tokenTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "stampcard_qr_token_transitions_total",
				Help: "QR token status transitions by kind and target status.",
			}, []string{"kind", "status"}),
			tokenConflicts: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "stampcard_qr_token_conflicts_total",
				Help: "Conditional token updates that lost a race, by operation.",
			}, []string{"operation"}),
			rewards: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "stampcard_rewards_total",
				Help: "Applied ledger mutations by transaction type.",
			}, []string{"type"}),
			reconciliation: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "stampcard_reconciliation_required_total",
				Help: "Confirmations that left a token or ledger needing manual reconciliation.",
			}, []string{"stage"}),
			notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "stampcard_notifications_total",
				Help: "Notification deliveries by channel and outcome.",
			}, []string{"channel", "outcome"}),
			notificationsQueued: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "stampcard_notifications_queued",
				Help: "Events waiting in the notification queue.",
			}),
			reaped: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "stampcard_qr_tokens_reaped_total",
				Help: "QR tokens touched by the reaper, by action.",
			}, []string{"action"}),
			httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "stampcard_http_requests_total",
				Help: "HTTP requests by route and status code.",
			}, []string{"method", "route", "code"}),
			httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Name:    "stampcard_http_request_duration_seconds",
				Help:    "HTTP request latency by route.",
				Buckets: prometheus.DefBuckets,
			}, []string{"method", "route"}),
		}
		prometheus.MustRegister(
			loyaltyRegistry.tokenTransitions,
			loyaltyRegistry.tokenConflicts,
			loyaltyRegistry.rewards,
			loyaltyRegistry.reconciliation,
			loyaltyRegistry.notifications,
			loyaltyRegistry.notificationsQueued,
			loyaltyRegistry.reaped,
			loyaltyRegistry.httpRequests,
			loyaltyRegistry.httpDuration,
		)
	})
	return loyaltyRegistry
}

func (m *LoyaltyMetrics) ObserveTransition(kind, status string) {
	if m == nil {
		return
	}
	m.tokenTransitions.WithLabelValues(kind, status).Inc()
}

func (m *LoyaltyMetrics) ObserveConflict(operation string) {
	if m == nil {
		return
	}
	m.tokenConflicts.WithLabelValues(operation).Inc()
}

func (m *LoyaltyMetrics) ObserveReward(transactionType string) {
	if m == nil {
		return
	}
	m.rewards.WithLabelValues(transactionType).Inc()
}

func (m *LoyaltyMetrics) ObserveReconciliation(stage string) {
	if m == nil {
		return
	}
	m.reconciliation.WithLabelValues(stage).Inc()
}

func (m *LoyaltyMetrics) ObserveNotification(channel, outcome string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(channel, outcome).Inc()
}

func (m *LoyaltyMetrics) SetNotificationsQueued(n int) {
	if m == nil {
		return
	}
	m.notificationsQueued.Set(float64(n))
}

func (m *LoyaltyMetrics) ObserveReaped(action string, n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.reaped.WithLabelValues(action).Add(float64(n))
}

func (m *LoyaltyMetrics) ObserveHTTPRequest(method, route string, code int, elapsed time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
