// internal/workers/ranking/recompute-rankings/handler.go
package recomputerankings

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"supplier-ranking/internal/common/errors"
	"supplier-ranking/internal/common/logger"
	"supplier-ranking/internal/common/metrics"
	"supplier-ranking/internal/common/observability"
	"supplier-ranking/internal/common/validation"
	"supplier-ranking/internal/models"
	"supplier-ranking/internal/ranking/recompute"
	"supplier-ranking/internal/ranking/scoring"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "recompute-supplier-rankings"
)

// Runner executes one recompute run.
type Runner interface {
	Run(ctx context.Context, opts recompute.Options) (*models.RunReport, error)
}

type Handler struct {
	config *Config
	runner Runner
	schema *validation.Schema
	obs    *observability.Observability
	errors *errors.ErrorHandler
	logger logger.Logger
}

func NewHandler(config *Config, runner Runner, schema *validation.Schema, obs *observability.Observability, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config: config,
		runner: runner,
		schema: schema,
		obs:    obs,
		errors: errors.NewErrorHandler(log),
		logger: log,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	startTime := time.Now()
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	input, err := h.parseInput(job)
	if err == nil {
		var output *Output
		output, err = h.Execute(ctx, input)
		if err == nil {
			h.completeJob(ctx, client, job, output)
			h.record(ctx, "completed", startTime)
			metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
			return
		}
	}

	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(errors.Normalize(err).Code)).Inc()
	h.errors.HandleJobError(ctx, client, job, err)
	h.record(ctx, "failed", startTime)
}

func (h *Handler) parseInput(job entities.Job) (*Input, error) {
	var input Input
	result, err := validation.Decode(h.schema, job.Variables, &input)
	if err != nil {
		return nil, errors.NewInvalidInputError(err.Error())
	}
	if !result.Valid {
		return nil, errors.NewInvalidInputError(strings.Join(result.GetErrorMessages(), "; "))
	}
	return &input, nil
}

// Execute runs one recompute. A guard-blocked run completes the job unless
// the caller asked for it to fail.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	report, err := h.runner.Run(ctx, recompute.Options{
		RegionID:   input.RegionID,
		SupplierID: input.SupplierID,
		Force:      input.Force,
		DryRun:     input.DryRun,
	})
	if h.obs != nil {
		h.obs.RecordRun(ctx, recompute.OutcomeOf(report, err))
	}
	if err != nil {
		return nil, mapRunError(err)
	}

	if report.GuardBlocked && input.FailWhenBlocked {
		var last time.Time
		if report.LastComputedAt != nil {
			last = *report.LastComputedAt
		}
		return nil, errors.NewGuardBlockedError(last)
	}

	output := newOutput(report)
	h.logger.Info("recompute completed", map[string]interface{}{
		"runId":        output.RunID,
		"updated":      output.Updated,
		"errors":       output.Errors,
		"guardBlocked": output.GuardBlocked,
	})
	return output, nil
}

func mapRunError(err error) error {
	switch {
	case stderrors.Is(err, scoring.ErrConfigurationInvalid):
		return errors.NewConfigurationInvalidError(err)
	case stderrors.Is(err, recompute.ErrRankingInconsistent):
		return errors.NewRankingInconsistentError("", err)
	case stderrors.Is(err, recompute.ErrCommitFailed):
		return errors.NewSnapshotCommitFailedError(err)
	case stderrors.Is(err, recompute.ErrDataSource):
		return errors.NewDataSourceError("ranking-store", err)
	default:
		return err
	}
}

func (h *Handler) record(ctx context.Context, status string, started time.Time) {
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(started).Seconds())
	if h.obs != nil {
		h.obs.RecordJobProcessed(ctx, TaskType, status)
		h.obs.RecordJobDuration(ctx, TaskType, time.Since(started), status)
	}
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err,
		})
	}
}
