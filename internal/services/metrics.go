package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// membersCreated counts members by how they were added (form or import)
	membersCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nss_members_created_total",
		Help: "Members created, by source",
	}, []string{"source"})

	// paymentOps counts payment writes by operation
	paymentOps = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nss_payment_operations_total",
		Help: "Payment writes by operation",
	}, []string{"operation"})

	// revenueCollected sums recorded payment amounts by mode
	revenueCollected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nss_revenue_collected_npr_total",
		Help: "Revenue recorded through the payment service, in NPR",
	}, []string{"mode"})

	// importRows counts bulk-import rows by outcome
	importRows = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nss_import_rows_total",
		Help: "Bulk import rows by outcome",
	}, []string{"outcome"})

	// importDuration tracks bulk-import wall time
	importDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "nss_import_duration_seconds",
		Help:    "Bulk import duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
	})
)
