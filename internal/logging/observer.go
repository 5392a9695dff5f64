package logging

import (
	"go.uber.org/zap"

	"github.com/nbyapp/nbyapp/internal/status"
)

// StatusObserver returns a status observer that logs every new step once.
// Snapshots arrive in order, so remembering the job and step count is enough.
func StatusObserver(logger *zap.Logger) status.Observer {
	var (
		job  string
		seen int
	)
	return func(s status.Status) {
		if s.JobID != job {
			job = s.JobID
			seen = 0
		}
		for _, step := range s.Steps[min(seen, len(s.Steps)):] {
			fields := []zap.Field{
				zap.String("job_id", s.JobID),
				zap.Int("progress", s.Progress),
				zap.String("kind", string(step.Kind)),
			}
			switch step.Kind {
			case status.KindError:
				logger.Error(step.Message, fields...)
			case status.KindWarning:
				logger.Warn(step.Message, fields...)
			case status.KindFile:
				logger.Debug(step.Message, fields...)
			default:
				logger.Info(step.Message, fields...)
			}
		}
		seen = len(s.Steps)
	}
}
