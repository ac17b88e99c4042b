package generatedocument

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"cif-onboarding/internal/common/backend"
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
	TaskType = "generate-document"

	auditEventGenerated = "document_generated"
)

// Backend is the part of the backend client the generator needs.
type Backend interface {
	GetClient(ctx context.Context, id string) (models.ClientRecord, error)
	GenerateDocument(ctx context.Context, clientID, documentType string) (*models.GenerateResponse, error)
}

type Handler struct {
	config     *Config
	backend    Backend
	db         *sql.DB
	redis      redis.Cmdable
	calculator *completion.Calculator
	logger     logger.Logger
	errHandler *errors.ErrorHandler
}

// NewHandler builds the handler. rdb may be nil when no completion cache is kept.
func NewHandler(config *Config, api Backend, db *sql.DB, rdb redis.Cmdable, calc *completion.Calculator, log logger.Logger) *Handler {
	if calc == nil {
		calc = completion.NewCalculator(nil)
	}
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		backend:    api,
		db:         db,
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
	if input.ClientID == "" {
		return nil, errors.NewInvalidInputError("clientId is required")
	}
	docType, err := h.calculator.Registry().Parse(input.DocumentType)
	if err != nil {
		return nil, errors.NewUnknownDocumentTypeError(input.DocumentType)
	}

	record, err := h.backend.GetClient(ctx, input.ClientID)
	if err != nil {
		if backend.IsNotFound(err) {
			return nil, errors.NewClientNotFoundError(input.ClientID)
		}
		return nil, backend.Classify(err, "get client")
	}

	result, err := h.calculator.Calculate(completion.ClientFlatData(record), docType)
	if err != nil {
		return nil, errors.NewInternalError(err)
	}

	if !result.IsReady && !input.Force {
		metrics.DocumentsGenerated.WithLabelValues(string(docType), "refused").Inc()
		return nil, errors.NewDocumentNotReadyError(string(docType), result.Percentage, missingKeys(result))
	}

	resp, err := h.backend.GenerateDocument(ctx, input.ClientID, string(docType))
	if err != nil {
		metrics.DocumentsGenerated.WithLabelValues(string(docType), "failed").Inc()
		return nil, backend.Classify(err, string(docType))
	}
	metrics.DocumentsGenerated.WithLabelValues(string(docType), "generated").Inc()

	h.writeAudit(ctx, input, docType, resp, result)
	h.invalidateCompletion(ctx, input.ClientID)

	message := resp.Message
	if message == "" {
		message = fmt.Sprintf("%s généré", result.Label)
	}

	h.logger.Info("document generated", map[string]interface{}{
		"clientId":     input.ClientID,
		"documentType": docType,
		"documentId":   resp.DocumentID,
		"percentage":   result.Percentage,
		"forced":       input.Force && !result.IsReady,
	})

	return &Output{
		Generated:  true,
		Message:    message,
		DocumentID: resp.DocumentID,
		Filename:   resp.Filename,
		Completion: result,
	}, nil
}

func missingKeys(r completion.Result) []string {
	keys := make([]string, len(r.MissingFields))
	for i, f := range r.MissingFields {
		keys[i] = f.Key
	}
	return keys
}

// writeAudit records the generation. A failed insert is logged, never fatal.
func (h *Handler) writeAudit(ctx context.Context, input *Input, docType completion.DocumentType, resp *models.GenerateResponse, result completion.Result) {
	if h.db == nil {
		return
	}

	details, err := json.Marshal(map[string]interface{}{
		"documentType": docType,
		"documentId":   resp.DocumentID,
		"filename":     resp.Filename,
		"percentage":   result.Percentage,
		"forced":       input.Force && !result.IsReady,
	})
	if err != nil {
		h.logger.Warn("failed to marshal audit log details", map[string]interface{}{
			"error": err,
		})
		details = []byte("{}")
	}

	_, err = h.db.ExecContext(ctx, `
		INSERT INTO audit_log (event_type, resource_type, resource_id, details, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		auditEventGenerated,
		"client",
		input.ClientID,
		details,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		h.logger.Warn("audit log insert failed", map[string]interface{}{
			"error":    err,
			"clientId": input.ClientID,
		})
	}
}

func (h *Handler) invalidateCompletion(ctx context.Context, clientID string) {
	if h.redis == nil {
		return
	}
	if err := h.redis.Del(ctx, completion.CacheKey(clientID)).Err(); err != nil {
		h.logger.Warn("failed to drop cached completion", map[string]interface{}{
			"error":    err,
			"clientId": clientID,
		})
	}
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
