package evaluatedocumentcompletion

import (
	"context"
	"encoding/json"
	"fmt"

	"cif-onboarding/internal/common/backend"
	"cif-onboarding/internal/common/database"
	"cif-onboarding/internal/common/errors"
	"cif-onboarding/internal/common/logger"
	"cif-onboarding/internal/common/metrics"
	"cif-onboarding/internal/completion"
	"cif-onboarding/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/redis/go-redis/v9"
)

const (
	TaskType = "evaluate-document-completion"
)

// ClientSource loads a client record from the backend.
type ClientSource interface {
	GetClient(ctx context.Context, id string) (models.ClientRecord, error)
}

type Handler struct {
	config     *Config
	clients    ClientSource
	redis      redis.Cmdable
	calculator *completion.Calculator
	logger     logger.Logger
	errHandler *errors.ErrorHandler
}

// NewHandler builds the handler. rdb may be nil, which disables caching.
func NewHandler(config *Config, clients ClientSource, rdb redis.Cmdable, calc *completion.Calculator, log logger.Logger) *Handler {
	if calc == nil {
		calc = completion.NewCalculator(nil)
	}
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		clients:    clients,
		redis:      rdb,
		calculator: calc,
		logger:     log,
		errHandler: errors.NewErrorHandler(log),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	input, err := h.parseInput(job)
	if err != nil {
		h.failJob(client, job, err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.execute(ctx, input)
	if err != nil {
		h.failJob(client, job, err)
		return
	}

	h.completeJob(client, job, output)
}

func (h *Handler) parseInput(job entities.Job) (*Input, error) {
	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		return nil, errors.NewInvalidInputError(fmt.Sprintf("parse input: %v", err))
	}
	return &input, nil
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input.ClientID == "" && input.ClientData == nil {
		return nil, errors.NewInvalidInputError("clientId or clientData is required")
	}

	types, err := h.parseTypes(input.DocumentTypes)
	if err != nil {
		return nil, err
	}
	// Only unfiltered evaluations are cached.
	cacheable := h.redis != nil && input.ClientID != "" && len(types) == 0

	data := input.ClientData
	if data == nil {
		if cacheable {
			if cached, ok := h.readCache(ctx, input.ClientID); ok {
				return cached, nil
			}
		}

		record, err := h.clients.GetClient(ctx, input.ClientID)
		if err != nil {
			if backend.IsNotFound(err) {
				return nil, errors.NewClientNotFoundError(input.ClientID)
			}
			return nil, backend.Classify(err, "get client")
		}
		data = completion.ClientFlatData(record)
	}

	results, err := h.calculator.CalculateTypes(data, types...)
	if err != nil {
		return nil, errors.NewInternalError(err)
	}

	output := &Output{
		Results:          results,
		Summary:          h.calculator.SummarizeResults(results),
		MissingBySection: completion.GroupMissing(results),
		RiskSuggestion:   completion.SuggestRiskProfile(data),
	}
	if output.MissingBySection == nil {
		output.MissingBySection = []completion.SectionMissing{}
	}

	for _, r := range results {
		metrics.ObserveCompletion(string(r.DocumentType), r.Percentage, r.IsReady)
	}

	h.logger.Info("document completion evaluated", map[string]interface{}{
		"clientId":       input.ClientID,
		"overall":        output.Summary.Overall,
		"documentsReady": output.Summary.DocumentsReady,
		"mandatoryReady": output.Summary.MandatoryReady,
	})

	if cacheable {
		if err := database.SetJSON(ctx, h.redis, completion.CacheKey(input.ClientID), output, h.config.CacheTTL); err != nil {
			h.logger.Warn("failed to cache completion", map[string]interface{}{
				"clientId": input.ClientID,
				"error":    err.Error(),
			})
		}
	}

	return output, nil
}

func (h *Handler) parseTypes(raw []string) ([]completion.DocumentType, error) {
	types := make([]completion.DocumentType, 0, len(raw))
	for _, s := range raw {
		t, err := h.calculator.Registry().Parse(s)
		if err != nil {
			return nil, errors.NewUnknownDocumentTypeError(s)
		}
		types = append(types, t)
	}
	return types, nil
}

// readCache treats every cache failure as a miss.
func (h *Handler) readCache(ctx context.Context, clientID string) (*Output, bool) {
	var cached Output
	hit, err := database.GetJSON(ctx, h.redis, completion.CacheKey(clientID), &cached)
	if err != nil {
		h.logger.Warn("completion cache unavailable", map[string]interface{}{
			"clientId": clientID,
			"error":    err.Error(),
		})
		metrics.CompletionCacheHits.WithLabelValues("error").Inc()
		return nil, false
	}
	if !hit {
		metrics.CompletionCacheHits.WithLabelValues("miss").Inc()
		return nil, false
	}
	metrics.CompletionCacheHits.WithLabelValues("hit").Inc()
	return &cached, true
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	if _, err := cmd.Send(context.Background()); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	metrics.JobCompleted(TaskType)
}

func (h *Handler) failJob(client worker.JobClient, job entities.Job, err error) {
	h.errHandler.HandleJobError(context.Background(), client, job, err)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
