package syncclientdocuments

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"

	"cif-onboarding/internal/common/backend"
	"cif-onboarding/internal/common/errors"
	"cif-onboarding/internal/common/logger"
	"cif-onboarding/internal/common/metrics"
	"cif-onboarding/internal/completion"
	"cif-onboarding/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "sync-client-documents"
)

const upsertStatusQuery = `
	INSERT INTO client_document_status (
		client_id, document_type, status, document_id, file_name, generated_at, updated_at
	) VALUES ($1, $2, $3, $4, $5, $6, now())
	ON CONFLICT (client_id, document_type) DO UPDATE SET
		status       = EXCLUDED.status,
		document_id  = EXCLUDED.document_id,
		file_name    = EXCLUDED.file_name,
		generated_at = EXCLUDED.generated_at,
		updated_at   = now()`

// DocumentLister lists the documents the backend holds for a client.
type DocumentLister interface {
	ListClientDocuments(ctx context.Context, clientID string) ([]models.Document, error)
}

type Handler struct {
	config     *Config
	documents  DocumentLister
	db         *sql.DB
	registry   *completion.Registry
	logger     logger.Logger
	errHandler *errors.ErrorHandler
}

func NewHandler(config *Config, documents DocumentLister, db *sql.DB, reg *completion.Registry, log logger.Logger) *Handler {
	if reg == nil {
		reg = completion.DefaultRegistry()
	}
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		documents:  documents,
		db:         db,
		registry:   reg,
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

	docs, err := h.documents.ListClientDocuments(ctx, input.ClientID)
	if err != nil {
		if backend.IsNotFound(err) {
			return nil, errors.NewClientNotFoundError(input.ClientID)
		}
		return nil, backend.Classify(err, "list documents")
	}

	board := completion.DocumentBoard(docs, h.registry)

	if err := h.storeBoard(ctx, input.ClientID, board); err != nil {
		if stderrors.Is(err, context.DeadlineExceeded) {
			return nil, errors.NewQueryTimeoutError("document status upsert")
		}
		return nil, errors.NewQueryExecutionFailedError("document status upsert", err)
	}

	output := &Output{
		Documents:    board,
		MissingTypes: completion.MissingTypes(board),
	}
	if output.MissingTypes == nil {
		output.MissingTypes = []completion.DocumentType{}
	}
	for _, e := range board {
		switch e.Status {
		case completion.StatusSigned:
			output.SignedCount++
			output.GeneratedCount++
		case completion.StatusGenerated:
			output.GeneratedCount++
		}
	}

	h.logger.Info("client documents synced", map[string]interface{}{
		"clientId":  input.ClientID,
		"generated": output.GeneratedCount,
		"signed":    output.SignedCount,
		"missing":   len(output.MissingTypes),
	})

	return output, nil
}

// storeBoard upserts one status row per document type in a single
// transaction. A regenerated type is stored with its latest document.
func (h *Handler) storeBoard(ctx context.Context, clientID string, board []completion.BoardEntry) error {
	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, upsertStatusQuery)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, e := range completion.LatestByType(board) {
		if _, err := stmt.ExecContext(ctx,
			clientID,
			string(e.Type),
			e.Status,
			nullString(e.DocumentID),
			nullString(e.FileName),
			nullString(e.GeneratedAt),
		); err != nil {
			return fmt.Errorf("upsert %s: %w", e.Type, err)
		}
	}

	return tx.Commit()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
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
