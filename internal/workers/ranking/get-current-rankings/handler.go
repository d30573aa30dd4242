// internal/workers/ranking/get-current-rankings/handler.go
package getcurrentrankings

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
	"supplier-ranking/internal/ranking/query"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "get-current-rankings"
)

type RankingReader interface {
	GetCurrentRankings(ctx context.Context, regionID string, limit int) ([]models.ScoreSnapshot, error)
}

type Handler struct {
	config *Config
	reader RankingReader
	schema *validation.Schema
	obs    *observability.Observability
	errors *errors.ErrorHandler
	logger logger.Logger
}

func NewHandler(config *Config, reader RankingReader, schema *validation.Schema, obs *observability.Observability, log logger.Logger) *Handler {
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
	h.logger.Debug("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	status := "completed"
	defer func() {
		metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(startTime).Seconds())
		if h.obs != nil {
			h.obs.RecordJobProcessed(ctx, TaskType, status)
			h.obs.RecordJobDuration(ctx, TaskType, time.Since(startTime), status)
		}
	}()

	var input Input
	result, err := validation.Decode(h.schema, job.Variables, &input)
	switch {
	case err != nil:
		err = errors.NewInvalidInputError(err.Error())
	case !result.Valid:
		err = errors.NewInvalidInputError(strings.Join(result.GetErrorMessages(), "; "))
	}

	var output *Output
	if err == nil {
		output, err = h.Execute(ctx, &input)
	}
	if err != nil {
		status = "failed"
		metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(errors.Normalize(err).Code)).Inc()
		h.errors.HandleJobError(ctx, client, job, err)
		return
	}

	cmd, err := client.NewCompleteJobCommand().JobKey(job.Key).VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{"error": err})
		return
	}
	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{"error": err})
		return
	}
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	snapshots, err := h.reader.GetCurrentRankings(ctx, input.RegionID, input.Limit)
	if err != nil {
		if stderrors.Is(err, query.ErrInvalidLimit) {
			return nil, errors.NewInvalidInputError(err.Error())
		}
		return nil, errors.NewDataSourceError("ranking-store", err)
	}

	out := &Output{
		RegionID: input.RegionID,
		Count:    len(snapshots),
		Rankings: make([]RankingEntry, 0, len(snapshots)),
	}
	for _, s := range snapshots {
		out.Rankings = append(out.Rankings, newEntry(s))
	}
	return out, nil
}
