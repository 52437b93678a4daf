package metrics

import "time"

// ModeLabel is the label value for a display mode.
func ModeLabel(rateOnly bool) string {
	if rateOnly {
		return "rate_only"
	}
	return "full"
}

// DocumentRendered records a successful render of the given format.
func DocumentRendered(format string, duration time.Duration) {
	DocumentsRendered.WithLabelValues(format, "success").Inc()
	DocumentRenderDuration.WithLabelValues(format).Observe(duration.Seconds())
}

// DocumentFailed records a failed render.
func DocumentFailed(format string) {
	DocumentsRendered.WithLabelValues(format, "failed").Inc()
}

// EmailDelivered records an email accepted by the relay.
func EmailDelivered(duration time.Duration) {
	EmailsSent.WithLabelValues("sent").Inc()
	EmailSendDuration.Observe(duration.Seconds())
}

// EmailFailed records a send that did not reach the relay or was rejected.
// outcome is a transport failure kind, or "config", "invalid" or "render".
func EmailFailed(outcome string) {
	EmailsSent.WithLabelValues(outcome).Inc()
}
