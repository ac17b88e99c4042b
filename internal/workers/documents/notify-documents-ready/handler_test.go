package notifydocumentsready

import (
	"context"
	"fmt"
	"testing"
	"time"

	"cif-onboarding/internal/common/errors"
	"cif-onboarding/internal/common/logger"
	"cif-onboarding/internal/completion"
	"cif-onboarding/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// ==========================
// Mocks
// ==========================

type MockClientSource struct{ mock.Mock }

func (m *MockClientSource) GetClient(ctx context.Context, id string) (models.ClientRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(models.ClientRecord), args.Error(1)
}

type MockEmailSender struct{ mock.Mock }

func (m *MockEmailSender) SendEmail(ctx context.Context, to, subject, text, html string) (string, error) {
	args := m.Called(ctx, to, subject, text, html)
	return args.String(0), args.Error(1)
}

type MockSMSSender struct{ mock.Mock }

func (m *MockSMSSender) SendSMS(ctx context.Context, phone, message string) (string, error) {
	args := m.Called(ctx, phone, message)
	return args.String(0), args.Error(1)
}

// ==========================
// Test Helpers
// ==========================

func createTestConfig() *Config {
	return &Config{
		EmailEnabled:         true,
		SMSEnabled:           true,
		SMSPriorityThreshold: PriorityHigh,
		Timeout:              5 * time.Second,
	}
}

func testCalculator(t *testing.T) *completion.Calculator {
	t.Helper()
	reg, err := completion.NewRegistry([]completion.DocumentDefinition{
		{Type: completion.DocDER, Label: "DER", Mandatory: true, Fields: []completion.FieldRequirement{
			{Key: "t1_nom", Label: "Nom", Section: "Identité"},
		}},
		{Type: completion.DocRapportIAS, Label: "Rapport IAS", Fields: []completion.FieldRequirement{
			{Key: "t1_profession", Label: "Profession", Section: "Profession"},
		}},
	})
	require.NoError(t, err)
	return completion.NewCalculator(reg)
}

func readyRecord() models.ClientRecord {
	return models.ClientRecord{"id": "c-1", "t1_nom": "Dupont", "t1_prenom": "Jean", "numero_client": "CIF-0001"}
}

// ==========================
// Tests
// ==========================

func TestHandler_Execute_EmailAndSMS(t *testing.T) {
	clients := new(MockClientSource)
	clients.On("GetClient", mock.Anything, "c-1").Return(readyRecord(), nil)

	email := new(MockEmailSender)
	email.On("SendEmail", mock.Anything, "advisor@cabinet.fr",
		"Dossier Jean Dupont : documents réglementaires prêts",
		mock.MatchedBy(func(body string) bool {
			return assert.Contains(t, body, "(CIF-0001) est complet à 50%") &&
				assert.Contains(t, body, "- DER") &&
				assert.NotContains(t, body, "{{")
		}),
		mock.MatchedBy(func(html string) bool { return assert.Contains(t, html, "<br>- DER") }),
	).Return("msg-1", nil)

	sms := new(MockSMSSender)
	sms.On("SendSMS", mock.Anything, "+33612345678", "CIF: dossier Jean Dupont prêt (1 documents). Génération possible.").
		Return("sms-1", nil)

	h := NewHandler(createTestConfig(), clients, email, sms, testCalculator(t), logger.NewTestLogger(t))

	out, err := h.Execute(context.Background(), &Input{
		ClientID:     "c-1",
		AdvisorEmail: "advisor@cabinet.fr",
		AdvisorPhone: "+33612345678",
		Priority:     "high",
	})
	require.NoError(t, err)

	assert.Equal(t, StatusSent, out.Status)
	assert.Equal(t, []string{ChannelEmail, ChannelSMS}, out.Channels)
	assert.NotEmpty(t, out.NotificationID)
	assert.NotEmpty(t, out.SentAt)
	email.AssertExpectations(t)
	sms.AssertExpectations(t)
}

func TestHandler_Execute_NotReady(t *testing.T) {
	clients := new(MockClientSource)
	clients.On("GetClient", mock.Anything, "c-1").Return(models.ClientRecord{"id": "c-1"}, nil)
	email := new(MockEmailSender)

	h := NewHandler(createTestConfig(), clients, email, nil, testCalculator(t), logger.NewTestLogger(t))

	out, err := h.Execute(context.Background(), &Input{ClientID: "c-1", AdvisorEmail: "advisor@cabinet.fr"})
	require.NoError(t, err)
	assert.Equal(t, StatusNotReady, out.Status)
	assert.Empty(t, out.Channels)
	email.AssertNotCalled(t, "SendEmail", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestHandler_Execute_Channels(t *testing.T) {
	tests := []struct {
		name         string
		priority     string
		emailEnabled bool
		wantChannels []string
		wantStatus   string
	}{
		{"normal priority is email only", "normal", true, []string{ChannelEmail}, StatusSent},
		{"urgent priority adds sms", "URGENT", true, []string{ChannelEmail, ChannelSMS}, StatusSent},
		{"unknown priority ranks normal", "asap", true, []string{ChannelEmail}, StatusSent},
		{"email disabled and low priority", "low", false, []string{}, StatusDisabled},
		{"email disabled, sms alone", "high", false, []string{ChannelSMS}, StatusSent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clients := new(MockClientSource)
			clients.On("GetClient", mock.Anything, "c-1").Return(readyRecord(), nil)
			email := new(MockEmailSender)
			email.On("SendEmail", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("m", nil).Maybe()
			sms := new(MockSMSSender)
			sms.On("SendSMS", mock.Anything, mock.Anything, mock.Anything).Return("s", nil).Maybe()

			cfg := createTestConfig()
			cfg.EmailEnabled = tt.emailEnabled
			h := NewHandler(cfg, clients, email, sms, testCalculator(t), logger.NewTestLogger(t))

			out, err := h.Execute(context.Background(), &Input{
				ClientID:     "c-1",
				AdvisorEmail: "advisor@cabinet.fr",
				AdvisorPhone: "0612345678",
				Priority:     tt.priority,
			})
			require.NoError(t, err)
			assert.Equal(t, tt.wantChannels, out.Channels)
			assert.Equal(t, tt.wantStatus, out.Status)
		})
	}
}

func TestHandler_Execute_SendFailures(t *testing.T) {
	t.Run("email failure is retryable", func(t *testing.T) {
		clients := new(MockClientSource)
		clients.On("GetClient", mock.Anything, "c-1").Return(readyRecord(), nil)
		email := new(MockEmailSender)
		email.On("SendEmail", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return("", fmt.Errorf("throttled"))

		h := NewHandler(createTestConfig(), clients, email, nil, testCalculator(t), logger.NewTestLogger(t))

		_, err := h.Execute(context.Background(), &Input{ClientID: "c-1", AdvisorEmail: "advisor@cabinet.fr"})
		var stdErr *errors.StandardError
		require.ErrorAs(t, err, &stdErr)
		assert.Equal(t, errors.ErrCodeNotificationSendFailed, stdErr.Code)
		assert.True(t, stdErr.Retryable)
	})

	t.Run("sms failure after email keeps the job successful", func(t *testing.T) {
		clients := new(MockClientSource)
		clients.On("GetClient", mock.Anything, "c-1").Return(readyRecord(), nil)
		email := new(MockEmailSender)
		email.On("SendEmail", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("m", nil)
		sms := new(MockSMSSender)
		sms.On("SendSMS", mock.Anything, mock.Anything, mock.Anything).Return("", fmt.Errorf("opted out"))

		h := NewHandler(createTestConfig(), clients, email, sms, testCalculator(t), logger.NewTestLogger(t))

		out, err := h.Execute(context.Background(), &Input{
			ClientID: "c-1", AdvisorEmail: "advisor@cabinet.fr", AdvisorPhone: "0612345678", Priority: "high",
		})
		require.NoError(t, err)
		assert.Equal(t, StatusSent, out.Status)
		assert.Equal(t, []string{ChannelEmail}, out.Channels)
	})
}

func TestRenderTemplate(t *testing.T) {
	got := renderTemplate("Bonjour {{name}}, {{count}} documents{{missing}}.", map[string]interface{}{
		"name":  "Jean",
		"count": 3,
	})
	assert.Equal(t, "Bonjour Jean, 3 documents.", got)
}

func TestHTMLBody(t *testing.T) {
	assert.Equal(t, "<html><body><p>a &lt;b&gt;<br>c</p><p>d</p></body></html>", htmlBody("a <b>\nc\n\nd"))
}
