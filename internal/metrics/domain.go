package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "launchpad"

var (
	submissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "review",
			Name:      "submissions_total",
			Help:      "按支付校验结果统计的提交次数。",
		},
		[]string{"result"},
	)

	statusTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "review",
			Name:      "status_transitions_total",
			Help:      "审核状态变更次数。",
		},
		[]string{"status"},
	)

	loginAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "login_attempts_total",
			Help:      "登录尝试次数。",
		},
		[]string{"result"},
	)
)

// Submission results.
const (
	ResultAccepted   = "accepted"
	ResultUnverified = "unverified"
	ResultRejected   = "rejected"
	ResultError      = "error"
)

// ObserveSubmission counts one submit attempt.
func ObserveSubmission(result string) {
	submissionsTotal.WithLabelValues(result).Inc()
}

// ObserveTransition counts a status change applied by a reviewer.
func ObserveTransition(status string) {
	statusTransitionsTotal.WithLabelValues(status).Inc()
}

// ObserveLogin counts a login attempt: success, failure, limited or locked.
func ObserveLogin(result string) {
	loginAttemptsTotal.WithLabelValues(result).Inc()
}
