// internal/workers/ranking/get-supplier-trend/handler.go
package getsuppliertrend

import (
	"context"
	"strings"
	"time"

	"supplier-ranking/internal/common/errors"
	"supplier-ranking/internal/common/logger"
	"supplier-ranking/internal/common/metrics"
	"supplier-ranking/internal/common/observability"
	"supplier-ranking/internal/common/validation"
	"supplier-ranking/internal/ranking/query"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "get-supplier-trend"
)

type TrendReader interface {
	GetTrend(ctx context.Context, supplierID string, days int) (*query.TrendResult, error)
}

type Handler struct {
	config *Config
	reader TrendReader
	schema *validation.Schema
	obs    *observability.Observability
	errors *errors.ErrorHandler
	logger logger.Logger
}

func NewHandler(config *Config, reader TrendReader, schema *validation.Schema, obs *observability.Observability, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config: config,
		reader: reader,
		schema: schema,
		obs:    obs,
		errors: errors.NewErrorHandler(log),
		logger: log,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	startTime := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.process(ctx, job)
	status := "completed"
	if err != nil {
		status = "failed"
		metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(errors.Normalize(err).Code)).Inc()
		h.errors.HandleJobError(ctx, client, job, err)
	} else {
		h.completeJob(ctx, client, job, output)
		metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	}

	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(startTime).Seconds())
	if h.obs != nil {
		h.obs.RecordJobProcessed(ctx, TaskType, status)
		h.obs.RecordJobDuration(ctx, TaskType, time.Since(startTime), status)
	}
}

func (h *Handler) process(ctx context.Context, job entities.Job) (*Output, error) {
	var input Input
	result, err := validation.Decode(h.schema, job.Variables, &input)
	if err != nil {
		return nil, errors.NewInvalidInputError(err.Error())
	}
	if !result.Valid {
		return nil, errors.NewInvalidInputError(strings.Join(result.GetErrorMessages(), "; "))
	}
	return h.Execute(ctx, &input)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if input.SupplierID == "" {
		return nil, errors.NewInvalidInputError("supplierId is required")
	}
	res, err := h.reader.GetTrend(ctx, input.SupplierID, input.WindowDays)
	if err != nil {
		return nil, errors.NewDataSourceError("ranking-store", err)
	}

	out := newOutput(res)
	h.logger.Debug("trend classified", map[string]interface{}{
		"supplierId": out.SupplierID,
		"trend":      out.Trend,
		"windowDays": out.WindowDays,
	})
	return out, nil
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
