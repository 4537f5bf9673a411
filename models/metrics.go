package models

type MetricName string

// Counts
const (
	MetricName_NotifFailed          MetricName = "notif_failed"
	MetricName_NotifSent            MetricName = "notif_sent"
	MetricName_PendingRequests      MetricName = "pending_requests"
	MetricName_PhotoUploaded        MetricName = "photo_uploaded"
	MetricName_PollStaleDiscarded   MetricName = "poll_stale_discarded"
	MetricName_PollTick             MetricName = "poll_tick"
	MetricName_PollTickSkipped      MetricName = "poll_tick_skipped"
	MetricName_RatingSubmitted      MetricName = "rating_submitted"
	MetricName_StatusFallback       MetricName = "status_fallback"
	MetricName_TransitionApplied    MetricName = "transition_applied"
	MetricName_TransitionDetected   MetricName = "transition_detected"
	MetricName_TransitionRejected   MetricName = "transition_rejected"
	MetricName_TransitionReverted   MetricName = "transition_reverted"
	MetricName_TransitionSuppressed MetricName = "transition_suppressed"
)

// Distributions
const MetricName_BackendCallTime MetricName = "backend_call_time"

const MetricsCallerName = "go-servi"
