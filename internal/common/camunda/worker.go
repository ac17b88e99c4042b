// internal/common/camunda/worker.go
package camunda

import (
	"context"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"

	"cif-onboarding/internal/common/config"
	"cif-onboarding/internal/common/logger"
	"cif-onboarding/internal/common/metrics"
	"cif-onboarding/internal/common/observability"
)

// JobHandler is implemented by every task handler. Handlers complete or
// fail the job themselves.
type JobHandler interface {
	Handle(client worker.JobClient, job entities.Job)
}

type CamundaWorker struct {
	worker   worker.JobWorker
	logger   logger.Logger
	taskType string
}

// Instrument wraps h with the active/duration metrics and a job span.
func Instrument(taskType string, h JobHandler, obs *observability.Observability) worker.JobHandler {
	return func(client worker.JobClient, job entities.Job) {
		done := metrics.JobStarted(taskType)
		defer done()

		start := time.Now()
		if obs != nil {
			_, span := obs.StartSpan(context.Background(), "job "+taskType)
			defer span.End()
			defer func() {
				obs.RecordJobProcessed(context.Background(), taskType, "handled")
				obs.RecordJobDuration(context.Background(), taskType, time.Since(start), "handled")
			}()
		}

		h.Handle(client, job)
	}
}

// NewWorker opens a job worker for taskType.
func NewWorker(
	client zbc.Client,
	taskType string,
	cfg config.WorkerConfig,
	handler JobHandler,
	obs *observability.Observability,
	log logger.Logger,
) *CamundaWorker {
	builder := client.NewJobWorker().
		JobType(taskType).
		Handler(Instrument(taskType, handler, obs))

	step := builder.MaxJobsActive(maxInt(cfg.MaxJobsActive, 1))
	if cfg.Timeout > 0 {
		step = step.Timeout(time.Duration(cfg.Timeout) * time.Millisecond)
	}

	return &CamundaWorker{
		worker:   step.Open(),
		logger:   log.WithFields(map[string]interface{}{"taskType": taskType}),
		taskType: taskType,
	}
}

func (w *CamundaWorker) Start() {
	w.logger.Info("worker started", nil)
}

// Stop closes the job worker and waits for in-flight jobs. The shared
// Zeebe client is closed by its owner.
func (w *CamundaWorker) Stop() {
	w.logger.Info("stopping worker", nil)
	w.worker.Close()
	w.worker.AwaitClose()
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
