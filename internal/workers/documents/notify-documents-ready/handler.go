package notifydocumentsready

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"cif-onboarding/internal/common/backend"
	"cif-onboarding/internal/common/errors"
	"cif-onboarding/internal/common/logger"
	"cif-onboarding/internal/common/metrics"
	"cif-onboarding/internal/completion"
	"cif-onboarding/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"
)

const (
	TaskType = "notify-documents-ready"
)

var priorityRank = map[string]int{
	PriorityLow:    1,
	PriorityNormal: 2,
	PriorityHigh:   3,
	PriorityUrgent: 4,
}

type ClientSource interface {
	GetClient(ctx context.Context, id string) (models.ClientRecord, error)
}

// EmailSender is satisfied by the SES client.
type EmailSender interface {
	SendEmail(ctx context.Context, to, subject, text, html string) (string, error)
}

// SMSSender is satisfied by the SNS client.
type SMSSender interface {
	SendSMS(ctx context.Context, phone, message string) (string, error)
}

type Handler struct {
	config     *Config
	clients    ClientSource
	email      EmailSender
	sms        SMSSender
	calculator *completion.Calculator
	logger     logger.Logger
	errHandler *errors.ErrorHandler
}

// NewHandler builds the handler. A nil sender disables its channel.
func NewHandler(config *Config, clients ClientSource, email EmailSender, sms SMSSender, calc *completion.Calculator, log logger.Logger) *Handler {
	if calc == nil {
		calc = completion.NewCalculator(nil)
	}
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		clients:    clients,
		email:      email,
		sms:        sms,
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

	notificationID := uuid.New().String()

	record, err := h.clients.GetClient(ctx, input.ClientID)
	if err != nil {
		if backend.IsNotFound(err) {
			return nil, errors.NewClientNotFoundError(input.ClientID)
		}
		return nil, backend.Classify(err, "get client")
	}

	data := completion.ClientFlatData(record)
	summary := h.calculator.Summarize(data)

	if !summary.MandatoryReady {
		h.logger.Info("mandatory documents not ready, nothing sent", map[string]interface{}{
			"clientId": input.ClientID,
			"overall":  summary.Overall,
		})
		return &Output{NotificationID: notificationID, Status: StatusNotReady, Channels: []string{}}, nil
	}

	vars := templateData(data, summary)
	output := &Output{NotificationID: notificationID, Status: StatusDisabled, Channels: []string{}}

	if h.emailEnabled() && input.AdvisorEmail != "" {
		subject := renderTemplate(documentsReadyTemplate.Subject, vars)
		body := renderTemplate(documentsReadyTemplate.Body, vars)

		msgID, err := h.email.SendEmail(ctx, input.AdvisorEmail, subject, body, htmlBody(body))
		if err != nil {
			metrics.NotificationsSent.WithLabelValues(ChannelEmail, "failed").Inc()
			return nil, errors.NewNotificationSendFailedError(ChannelEmail, err)
		}
		metrics.NotificationsSent.WithLabelValues(ChannelEmail, StatusSent).Inc()
		output.Channels = append(output.Channels, ChannelEmail)
		h.logger.Info("readiness email sent", map[string]interface{}{
			"clientId":  input.ClientID,
			"messageId": msgID,
		})
	}

	if h.smsEnabled() && input.AdvisorPhone != "" && h.priorityAllowsSMS(input.Priority) {
		msgID, err := h.sms.SendSMS(ctx, input.AdvisorPhone, renderTemplate(smsTemplate, vars))
		switch {
		case err != nil && len(output.Channels) == 0:
			metrics.NotificationsSent.WithLabelValues(ChannelSMS, "failed").Inc()
			return nil, errors.NewNotificationSendFailedError(ChannelSMS, err)
		case err != nil:
			// The email already went out, so a retry would duplicate it.
			metrics.NotificationsSent.WithLabelValues(ChannelSMS, "failed").Inc()
			h.logger.Warn("readiness SMS failed", map[string]interface{}{
				"clientId": input.ClientID,
				"error":    err.Error(),
			})
		default:
			metrics.NotificationsSent.WithLabelValues(ChannelSMS, StatusSent).Inc()
			output.Channels = append(output.Channels, ChannelSMS)
			h.logger.Info("readiness SMS sent", map[string]interface{}{
				"clientId":  input.ClientID,
				"messageId": msgID,
			})
		}
	}

	if len(output.Channels) > 0 {
		output.Status = StatusSent
		output.SentAt = time.Now().UTC().Format(time.RFC3339)
	}
	return output, nil
}

func (h *Handler) emailEnabled() bool {
	return h.config.EmailEnabled && h.email != nil
}

func (h *Handler) smsEnabled() bool {
	return h.config.SMSEnabled && h.sms != nil
}

// priorityAllowsSMS compares against the configured threshold. Unknown
// priorities rank as normal.
func (h *Handler) priorityAllowsSMS(priority string) bool {
	rank := func(p string) int {
		if r, ok := priorityRank[strings.ToLower(strings.TrimSpace(p))]; ok {
			return r
		}
		return priorityRank[PriorityNormal]
	}
	threshold := h.config.SMSPriorityThreshold
	if threshold == "" {
		threshold = PriorityHigh
	}
	return rank(priority) >= rank(threshold)
}

func templateData(data map[string]interface{}, summary completion.Summary) map[string]interface{} {
	name := strings.TrimSpace(fmt.Sprintf("%s %s", stringValue(data["t1_prenom"]), stringValue(data["t1_nom"])))
	if name == "" {
		name = "client"
	}

	lines := make([]string, len(summary.Ready))
	for i, d := range summary.Ready {
		lines[i] = "- " + d.Label
	}

	return map[string]interface{}{
		"clientName":   name,
		"numeroClient": data["numero_client"],
		"overall":      summary.Overall,
		"documents":    strings.Join(lines, "\n"),
		"readyCount":   summary.DocumentsReady,
		"missingCount": len(summary.Missing),
	}
}

func stringValue(v interface{}) string {
	if s, ok := v.(string); ok {
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
