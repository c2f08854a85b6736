package metrics

import "time"

// SubmissionSucceeded records a completed submission.
func SubmissionSucceeded(form string, duration time.Duration) {
	SubmissionsTotal.WithLabelValues(form, "success").Inc()
	SubmissionDuration.WithLabelValues(form).Observe(duration.Seconds())
}

// SubmissionFailed records a submission that stopped at stage.
func SubmissionFailed(form, stage string) {
	SubmissionsTotal.WithLabelValues(form, stage).Inc()
}

// UploadSucceeded records a stored media object.
func UploadSucceeded(class string, size int64) {
	UploadsTotal.WithLabelValues(class, "success").Inc()
	UploadBytes.WithLabelValues(class).Observe(float64(size))
}

// UploadFailed records a rejected or failed upload.
func UploadFailed(class, kind string) {
	UploadsTotal.WithLabelValues(class, kind).Inc()
}

// UploadRemoved records an object deleted after a failed submission.
func UploadRemoved(class string) {
	UploadsTotal.WithLabelValues(class, "removed").Inc()
}

// Compressed records the outcome of a compression attempt.
func Compressed(outcome string) {
	CompressionsTotal.WithLabelValues(outcome).Inc()
}

// ChatbotStep records a chatbot transition into step.
func ChatbotStep(step string) {
	ChatbotStepsTotal.WithLabelValues(step).Inc()
}

// UpstreamCall records a voter-audit API call.
func UpstreamCall(endpoint, status string) {
	UpstreamCallsTotal.WithLabelValues(endpoint, status).Inc()
}
