package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/lumen-cms/lumen-cms/internal/jobs"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeWelcomeEmail is the task type for post-registration welcome emails.
	TaskTypeWelcomeEmail = "mail:welcome"
)

// WelcomeEmailPayload describes the information required to greet a new account.
type WelcomeEmailPayload struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// NewWelcomeEmailTask constructs an Asynq task.
func NewWelcomeEmailTask(payload WelcomeEmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeWelcomeEmail, data, asynq.Queue(QueueDefault)), nil
}

// WelcomeEmailJob delivers welcome emails enqueued during registration.
type WelcomeEmailJob struct {
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewWelcomeEmailJob initialises the welcome email handler.
func NewWelcomeEmailJob(logger *slog.Logger, metrics *jobmetrics.Metrics) *WelcomeEmailJob {
	return &WelcomeEmailJob{Logger: logger, Metrics: metrics}
}

// Handle processes TaskTypeWelcomeEmail tasks.
func (j *WelcomeEmailJob) Handle(ctx context.Context, t *asynq.Task) error {
	var payload WelcomeEmailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	tracker := j.Metrics.Track(TaskTypeWelcomeEmail)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()
	// Placeholder: wire an SMTP transport once the mail provider is chosen.
	if j.Logger != nil {
		j.Logger.Info("welcome email",
			slog.String("to", payload.Email),
			slog.String("name", payload.Name))
	}
	return resultErr
}
