package indexclientprofile

import (
	"context"
	"encoding/json"
	stderrors "errors"
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
	"golang.org/x/sync/errgroup"
)

const (
	TaskType = "index-client-profile"
)

type Backend interface {
	GetClient(ctx context.Context, id string) (models.ClientRecord, error)
	ListClientDocuments(ctx context.Context, clientID string) ([]models.Document, error)
}

// Indexer stores a JSON document under an id and returns the index result.
type Indexer interface {
	IndexDocument(ctx context.Context, index, id string, doc interface{}) (string, error)
}

type Handler struct {
	config     *Config
	backend    Backend
	indexer    Indexer
	calculator *completion.Calculator
	logger     logger.Logger
	errHandler *errors.ErrorHandler
	now        func() time.Time
}

func NewHandler(config *Config, api Backend, indexer Indexer, calc *completion.Calculator, log logger.Logger) *Handler {
	if calc == nil {
		calc = completion.NewCalculator(nil)
	}
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		backend:    api,
		indexer:    indexer,
		calculator: calc,
		logger:     log,
		errHandler: errors.NewErrorHandler(log),
		now:        time.Now,
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

	var (
		record models.ClientRecord
		docs   []models.Document
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		record, err = h.backend.GetClient(gctx, input.ClientID)
		return err
	})
	g.Go(func() error {
		var err error
		docs, err = h.backend.ListClientDocuments(gctx, input.ClientID)
		return err
	})
	if err := g.Wait(); err != nil {
		if backend.IsNotFound(err) {
			return nil, errors.NewClientNotFoundError(input.ClientID)
		}
		return nil, backend.Classify(err, "load client profile")
	}

	profile := h.buildProfile(input.ClientID, record, docs)

	result, err := h.indexer.IndexDocument(ctx, h.config.Index, input.ClientID, profile)
	if err != nil {
		if stderrors.Is(err, context.DeadlineExceeded) {
			return nil, errors.NewSearchTimeoutError(h.config.Index)
		}
		return nil, errors.NewSearchIndexFailedError(h.config.Index, err)
	}

	h.logger.Info("client profile indexed", map[string]interface{}{
		"clientId": input.ClientID,
		"index":    h.config.Index,
		"result":   result,
		"overall":  profile.Overall,
	})

	return &Output{
		Indexed:    true,
		DocumentID: input.ClientID,
		Overall:    profile.Overall,
		Result:     result,
	}, nil
}

func (h *Handler) buildProfile(clientID string, record models.ClientRecord, docs []models.Document) *ClientProfile {
	data := completion.ClientFlatData(record)
	summary := h.calculator.Summarize(data)

	profile := &ClientProfile{
		ClientID:         clientID,
		NumeroClient:     stringField(data, "numero_client"),
		Nom:              stringField(data, "t1_nom"),
		Prenom:           stringField(data, "t1_prenom"),
		Email:            stringField(data, "t1_email"),
		Statut:           stringField(data, "statut"),
		ProfilRisque:     stringField(data, "profil_risque_calcule"),
		Overall:          summary.Overall,
		MandatoryReady:   summary.MandatoryReady,
		ReadyDocuments:   refTypes(summary.Ready),
		MissingDocuments: refTypes(summary.Missing),
		Documents:        completion.DocumentBoard(docs, h.calculator.Registry()),
		IndexedAt:        h.now().UTC().Format(time.RFC3339),
	}
	return profile
}

func refTypes(refs []completion.DocumentRef) []string {
	out := make([]string, len(refs))
	for i, r := range refs {
		out[i] = string(r.Type)
	}
	return out
}

func stringField(data map[string]interface{}, key string) string {
	if s, ok := data[key].(string); ok {
		return s
	}
	return ""
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
