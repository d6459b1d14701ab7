// Package metrics exposes Prometheus counters for the notification worker
// and the account-deletion flow.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	NotificationsSent = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "notifications_sent_total",
			Help: "Number of push notifications successfully dispatched",
		},
	)

	NotificationsFailed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "notifications_failed_total",
			Help: "Number of push notifications whose dispatch failed",
		},
	)

	NotificationsSkipped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_skipped_total",
			Help: "Number of notification requests skipped before dispatch",
		},
		[]string{"reason"},
	)

	AccountsDeleted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "accounts_deleted_total",
			Help: "Number of accounts fully deleted",
		},
	)

	AccountDeletionFailed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "account_deletion_failed_total",
			Help: "Number of account deletions aborted, by stage",
		},
		[]string{"stage"},
	)
)

func Init() {
	prometheus.MustRegister(
		NotificationsSent,
		NotificationsFailed,
		NotificationsSkipped,
		AccountsDeleted,
		AccountDeletionFailed,
	)
}
