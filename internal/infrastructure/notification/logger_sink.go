package notification

import (
	"context"

	"github.com/fincore/backend/internal/domain/importing"
	"go.uber.org/zap"
)

// LoggerSink is a NotificationSink that writes job outcomes to the structured
// log. It stands in for push/e-mail delivery in single-instance deployments.
type LoggerSink struct {
	logger *zap.Logger
}

// NewLoggerSink creates a logging notification sink
func NewLoggerSink(logger *zap.Logger) *LoggerSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LoggerSink{logger: logger}
}

// NotifyJobFinished reports a finished import job. It never fails; delivery
// problems must not affect the job outcome.
func (s *LoggerSink) NotifyJobFinished(ctx context.Context, job *importing.ImportJob) {
	if job == nil {
		return
	}
	s.logger.Info("import job finished",
		zap.String("job_id", job.ID.String()),
		zap.String("user_id", job.UserID.String()),
		zap.String("source", string(job.Source)),
		zap.String("status", string(job.Status)),
		zap.String("summary", job.Summary()),
		zap.Float64("progress", job.Progress()),
		zap.Duration("duration", job.Duration()),
	)
}

// Ensure LoggerSink implements NotificationSink
var _ importing.NotificationSink = (*LoggerSink)(nil)
