package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "macronata_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "macronata_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	DepositsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "macronata_wallet_deposits_total",
			Help: "Total number of wallet deposits",
		},
		[]string{"mode"},
	)

	WithdrawalsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "macronata_wallet_withdrawals_total",
			Help: "Total number of wallet withdrawal requests",
		},
	)

	SessionsBookedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "macronata_sessions_booked_total",
			Help: "Total number of tutoring sessions booked",
		},
	)

	SessionsStartedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "macronata_sessions_started_total",
			Help: "Total number of tutoring sessions started",
		},
	)

	SessionsSettledTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "macronata_sessions_settled_total",
			Help: "Total number of tutoring sessions settled",
		},
		[]string{"trigger"},
	)

	EscrowLockedCents = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "macronata_escrow_locked_cents",
			Help: "Cents currently held in escrow across all wallets",
		},
	)

	ChatRepliesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "macronata_chat_replies_total",
			Help: "Total number of AI tutor replies",
		},
		[]string{"outcome"},
	)

	EmailsSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "macronata_emails_sent_total",
			Help: "Total number of emails sent",
		},
		[]string{"type", "status"},
	)

	EmailQueueLength = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "macronata_email_queue_length",
			Help: "Current length of email queue",
		},
	)
)

func RecordHTTPRequest(method, path, status string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
}

func RecordDeposit(mode string) {
	DepositsTotal.WithLabelValues(mode).Inc()
}

func RecordWithdrawal() {
	WithdrawalsTotal.Inc()
}

func RecordSessionBooked() {
	SessionsBookedTotal.Inc()
}

func RecordSessionStarted(lockedCents int64) {
	SessionsStartedTotal.Inc()
	EscrowLockedCents.Add(float64(lockedCents))
}

func RecordSessionSettled(trigger string, releasedCents int64) {
	SessionsSettledTotal.WithLabelValues(trigger).Inc()
	EscrowLockedCents.Sub(float64(releasedCents))
}

func RecordChatReply(outcome string) {
	ChatRepliesTotal.WithLabelValues(outcome).Inc()
}

func RecordEmail(emailType, status string) {
	EmailsSentTotal.WithLabelValues(emailType, status).Inc()
}
