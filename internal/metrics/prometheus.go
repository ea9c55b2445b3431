package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	NotificationUpserts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "internship_notification_upserts_total",
		Help: "Notification rows written by fan-out, by category",
	}, []string{"category"})

	NotificationUpsertErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "internship_notification_upsert_errors_total",
		Help: "Per-user notification writes that failed during fan-out",
	})

	FanoutDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "internship_fanout_duration_seconds",
		Help:    "Time to fan out one announcement to its audience",
		Buckets: prometheus.DefBuckets,
	}, []string{"source"})

	ScanDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "internship_scan_duration_seconds",
		Help:    "Duration of activation and reminder scans",
		Buckets: prometheus.DefBuckets,
	}, []string{"scanner"})

	ScanActions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "internship_scan_actions_total",
		Help: "Announcements acted on by the time scanners",
	}, []string{"scanner"})

	ScanErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "internship_scan_errors_total",
		Help: "Scanner runs or items that failed",
	}, []string{"scanner"})

	ReconcileLastRun = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "internship_reconcile_last_run_timestamp_seconds",
		Help: "Unix time of the last completed background reconcile",
	})
)

func AddNotificationUpserts(category string, count int) {
	if count <= 0 {
		return
	}
	NotificationUpserts.WithLabelValues(labelOrUnknown(category)).Add(float64(count))
}

func AddNotificationUpsertErrors(count int) {
	if count <= 0 {
		return
	}
	NotificationUpsertErrors.Add(float64(count))
}

func ObserveFanoutDuration(source string, duration time.Duration) {
	FanoutDuration.WithLabelValues(labelOrUnknown(source)).Observe(duration.Seconds())
}

func ObserveScanDuration(scanner string, duration time.Duration) {
	ScanDuration.WithLabelValues(labelOrUnknown(scanner)).Observe(duration.Seconds())
}

func AddScanActions(scanner string, count int) {
	if count <= 0 {
		return
	}
	ScanActions.WithLabelValues(labelOrUnknown(scanner)).Add(float64(count))
}

func IncScanError(scanner string) {
	ScanErrors.WithLabelValues(labelOrUnknown(scanner)).Inc()
}

func SetReconcileLastRun(ts time.Time) {
	ReconcileLastRun.Set(float64(ts.Unix()))
}

func labelOrUnknown(value string) string {
	label := strings.TrimSpace(value)
	if label == "" {
		return "unknown"
	}
	return label
}
