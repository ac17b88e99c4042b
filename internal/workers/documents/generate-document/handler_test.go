package generatedocument

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"cif-onboarding/internal/common/backend"
	"cif-onboarding/internal/common/errors"
	"cif-onboarding/internal/common/logger"
	"cif-onboarding/internal/completion"
	"cif-onboarding/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// ==========================
// Mock Backend
// ==========================

type MockBackend struct {
	mock.Mock
}

func (m *MockBackend) GetClient(ctx context.Context, id string) (models.ClientRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(models.ClientRecord), args.Error(1)
}

func (m *MockBackend) GenerateDocument(ctx context.Context, clientID, documentType string) (*models.GenerateResponse, error) {
	args := m.Called(ctx, clientID, documentType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.GenerateResponse), args.Error(1)
}

// ==========================
// Test Helpers
// ==========================

func createTestConfig() *Config {
	return &Config{Timeout: 5 * time.Second}
}

func derReadyRecord() models.ClientRecord {
	return models.ClientRecord{
		"id":          "c-1",
		"t1_civilite": "Monsieur",
		"t1_nom":      "Dupont",
		"t1_prenom":   "Jean",
		"t1_email":    "jean.dupont@example.fr",
	}
}

func expectAudit(mock sqlmock.Sqlmock) {
	mock.ExpectExec(`INSERT INTO audit_log`).
		WithArgs("document_generated", "client", "c-1", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute_Success(t *testing.T) {
	db, sqlMock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	expectAudit(sqlMock)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	require.NoError(t, mr.Set(completion.CacheKey("c-1"), `{"results":[]}`))

	api := new(MockBackend)
	api.On("GetClient", mock.Anything, "c-1").Return(derReadyRecord(), nil)
	api.On("GenerateDocument", mock.Anything, "c-1", "DER").Return(&models.GenerateResponse{
		Success:    true,
		DocumentID: "doc-9",
		Filename:   "DER_Dupont.docx",
	}, nil)

	h := NewHandler(createTestConfig(), api, db, rdb, nil, logger.NewTestLogger(t))

	out, err := h.Execute(context.Background(), &Input{ClientID: "c-1", DocumentType: "der"})
	require.NoError(t, err)

	assert.True(t, out.Generated)
	assert.Equal(t, "doc-9", out.DocumentID)
	assert.Equal(t, "DER_Dupont.docx", out.Filename)
	assert.Equal(t, "DER - Document d'Entrée en Relation généré", out.Message)
	assert.True(t, out.Completion.IsReady)
	assert.False(t, mr.Exists(completion.CacheKey("c-1")))

	assert.NoError(t, sqlMock.ExpectationsWereMet())
	api.AssertExpectations(t)
}

func TestHandler_Execute_NotReady(t *testing.T) {
	record := derReadyRecord()
	delete(record, "t1_email")

	api := new(MockBackend)
	api.On("GetClient", mock.Anything, "c-1").Return(record, nil)

	h := NewHandler(createTestConfig(), api, nil, nil, nil, logger.NewTestLogger(t))

	out, err := h.Execute(context.Background(), &Input{ClientID: "c-1", DocumentType: "DER"})
	assert.Nil(t, out)

	var stdErr *errors.StandardError
	require.ErrorAs(t, err, &stdErr)
	assert.Equal(t, errors.ErrCodeDocumentNotReady, stdErr.Code)
	assert.Equal(t, []string{"t1_email"}, stdErr.Metadata["missingFields"])
	assert.Equal(t, 75, stdErr.Metadata["percentage"])
	api.AssertNotCalled(t, "GenerateDocument", mock.Anything, mock.Anything, mock.Anything)
}

func TestHandler_Execute_ForceGeneratesIncompleteDocument(t *testing.T) {
	db, sqlMock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	expectAudit(sqlMock)

	api := new(MockBackend)
	api.On("GetClient", mock.Anything, "c-1").Return(models.ClientRecord{"id": "c-1"}, nil)
	api.On("GenerateDocument", mock.Anything, "c-1", "QCC").Return(&models.GenerateResponse{
		Success: true,
		Message: "Document généré avec succès",
	}, nil)

	h := NewHandler(createTestConfig(), api, db, nil, nil, logger.NewTestLogger(t))

	out, err := h.Execute(context.Background(), &Input{ClientID: "c-1", DocumentType: "QCC", Force: true})
	require.NoError(t, err)
	assert.True(t, out.Generated)
	assert.Equal(t, "Document généré avec succès", out.Message)
	assert.Equal(t, 0, out.Completion.Percentage)
	assert.NoError(t, sqlMock.ExpectationsWereMet())
}

func TestHandler_Execute_AuditFailureIsNotFatal(t *testing.T) {
	db, sqlMock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	sqlMock.ExpectExec(`INSERT INTO audit_log`).WillReturnError(fmt.Errorf("connection reset"))

	api := new(MockBackend)
	api.On("GetClient", mock.Anything, "c-1").Return(derReadyRecord(), nil)
	api.On("GenerateDocument", mock.Anything, "c-1", "DER").Return(&models.GenerateResponse{Success: true}, nil)

	h := NewHandler(createTestConfig(), api, db, nil, nil, logger.NewTestLogger(t))

	out, err := h.Execute(context.Background(), &Input{ClientID: "c-1", DocumentType: "DER"})
	require.NoError(t, err)
	assert.True(t, out.Generated)
	assert.NoError(t, sqlMock.ExpectationsWereMet())
}

// ==========================
// Error Handling Tests
// ==========================

func TestHandler_Execute_Errors(t *testing.T) {
	tests := []struct {
		name     string
		input    *Input
		setup    func(m *MockBackend)
		wantCode errors.ErrorCode
	}{
		{
			name:     "missing client id",
			input:    &Input{DocumentType: "DER"},
			wantCode: errors.ErrCodeInvalidInput,
		},
		{
			name:     "unknown document type",
			input:    &Input{ClientID: "c-1", DocumentType: "BULLETIN"},
			wantCode: errors.ErrCodeUnknownDocumentType,
		},
		{
			name:  "client not found",
			input: &Input{ClientID: "c-1", DocumentType: "DER"},
			setup: func(m *MockBackend) {
				m.On("GetClient", mock.Anything, "c-1").Return(nil, &backend.APIError{StatusCode: http.StatusNotFound})
			},
			wantCode: errors.ErrCodeClientNotFound,
		},
		{
			name:  "backend reports failure",
			input: &Input{ClientID: "c-1", DocumentType: "DER"},
			setup: func(m *MockBackend) {
				m.On("GetClient", mock.Anything, "c-1").Return(derReadyRecord(), nil)
				m.On("GenerateDocument", mock.Anything, "c-1", "DER").
					Return(&models.GenerateResponse{Success: false, Message: "Template introuvable"},
						fmt.Errorf("%w: DER c-1: Template introuvable", backend.ErrGenerationFailed))
			},
			wantCode: errors.ErrCodeDocumentGenerationFailed,
		},
		{
			name:  "backend rejects",
			input: &Input{ClientID: "c-1", DocumentType: "DER"},
			setup: func(m *MockBackend) {
				m.On("GetClient", mock.Anything, "c-1").Return(derReadyRecord(), nil)
				m.On("GenerateDocument", mock.Anything, "c-1", "DER").
					Return(nil, &backend.APIError{StatusCode: http.StatusUnprocessableEntity, Detail: "type_document: invalide"})
			},
			wantCode: errors.ErrCodeBackendRejected,
		},
		{
			name:  "generation timeout",
			input: &Input{ClientID: "c-1", DocumentType: "DER"},
			setup: func(m *MockBackend) {
				m.On("GetClient", mock.Anything, "c-1").Return(derReadyRecord(), nil)
				m.On("GenerateDocument", mock.Anything, "c-1", "DER").Return(nil, context.DeadlineExceeded)
			},
			wantCode: errors.ErrCodeBackendTimeout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := new(MockBackend)
			if tt.setup != nil {
				tt.setup(api)
			}
			h := NewHandler(createTestConfig(), api, nil, nil, nil, logger.NewTestLogger(t))

			out, err := h.Execute(context.Background(), tt.input)
			assert.Nil(t, out)
			var stdErr *errors.StandardError
			require.ErrorAs(t, err, &stdErr)
			assert.Equal(t, tt.wantCode, stdErr.Code)
		})
	}
}
