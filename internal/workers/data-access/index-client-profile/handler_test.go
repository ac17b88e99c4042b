package indexclientprofile

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"cif-onboarding/internal/common/backend"
	"cif-onboarding/internal/common/config"
	"cif-onboarding/internal/common/database"
	"cif-onboarding/internal/common/errors"
	"cif-onboarding/internal/common/logger"
	"cif-onboarding/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

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

func (m *MockBackend) ListClientDocuments(ctx context.Context, clientID string) ([]models.Document, error) {
	args := m.Called(ctx, clientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Document), args.Error(1)
}

type MockIndexer struct {
	mock.Mock
}

func (m *MockIndexer) IndexDocument(ctx context.Context, index, id string, doc interface{}) (string, error) {
	args := m.Called(ctx, index, id, doc)
	return args.String(0), args.Error(1)
}

func createTestConfig() *Config {
	return &Config{Index: "clients", Timeout: 5 * time.Second}
}

func clientRecord() models.ClientRecord {
	return models.ClientRecord{
		"id":                    "c-1",
		"numero_client":         "CIF-0001",
		"statut":                "actif",
		"profil_risque_calcule": "Equilibre",
		"t1_email":              "jean.dupont@example.fr",
		"form_data": map[string]interface{}{
			"titulaire1": map[string]interface{}{"civilite": "M", "nom": "Dupont", "prenom": "Jean"},
		},
	}
}

func TestHandler_Execute_IndexesIntoElasticsearch(t *testing.T) {
	var indexed map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		assert.Equal(t, "/clients/_doc/c-1", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&indexed))
		_, _ = io.WriteString(w, `{"_index":"clients","_id":"c-1","result":"updated"}`)
	}))
	defer srv.Close()

	es, err := database.NewElasticsearch(config.ElasticsearchConfig{URL: srv.URL})
	require.NoError(t, err)

	api := new(MockBackend)
	api.On("GetClient", mock.Anything, "c-1").Return(clientRecord(), nil)
	api.On("ListClientDocuments", mock.Anything, "c-1").Return([]models.Document{
		{ID: "d-1", TypeDocument: "DER", NomFichier: "DER.docx", Signe: true},
	}, nil)

	h := NewHandler(createTestConfig(), api, es, nil, logger.NewTestLogger(t))
	h.now = func() time.Time { return time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC) }

	out, err := h.Execute(context.Background(), &Input{ClientID: "c-1"})
	require.NoError(t, err)

	assert.True(t, out.Indexed)
	assert.Equal(t, "c-1", out.DocumentID)
	assert.Equal(t, "updated", out.Result)

	assert.Equal(t, "CIF-0001", indexed["numeroClient"])
	assert.Equal(t, "Dupont", indexed["nom"])
	assert.Equal(t, "Equilibre", indexed["profilRisque"])
	assert.Equal(t, "2026-10-17T09:00:00Z", indexed["indexedAt"])
	assert.Equal(t, float64(out.Overall), indexed["overall"])
	assert.Contains(t, indexed["readyDocuments"], "DER")
	assert.Equal(t, false, indexed["mandatoryReady"])

	docs := indexed["documents"].([]interface{})
	first := docs[0].(map[string]interface{})
	assert.Equal(t, "signed", first["status"])
	api.AssertExpectations(t)
}

func TestHandler_Execute_Errors(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(api *MockBackend, idx *MockIndexer)
		wantCode errors.ErrorCode
	}{
		{
			name: "client missing",
			setup: func(api *MockBackend, idx *MockIndexer) {
				api.On("GetClient", mock.Anything, "c-1").Return(nil, &backend.APIError{StatusCode: http.StatusNotFound})
				api.On("ListClientDocuments", mock.Anything, "c-1").Return([]models.Document{}, nil).Maybe()
			},
			wantCode: errors.ErrCodeClientNotFound,
		},
		{
			name: "documents unavailable",
			setup: func(api *MockBackend, idx *MockIndexer) {
				api.On("GetClient", mock.Anything, "c-1").Return(clientRecord(), nil).Maybe()
				api.On("ListClientDocuments", mock.Anything, "c-1").Return(nil, &backend.APIError{StatusCode: http.StatusBadGateway})
			},
			wantCode: errors.ErrCodeBackendUnavailable,
		},
		{
			name: "index rejected",
			setup: func(api *MockBackend, idx *MockIndexer) {
				api.On("GetClient", mock.Anything, "c-1").Return(clientRecord(), nil)
				api.On("ListClientDocuments", mock.Anything, "c-1").Return([]models.Document{}, nil)
				idx.On("IndexDocument", mock.Anything, "clients", "c-1", mock.Anything).Return("", fmt.Errorf("400 Bad Request"))
			},
			wantCode: errors.ErrCodeSearchIndexFailed,
		},
		{
			name: "index timeout",
			setup: func(api *MockBackend, idx *MockIndexer) {
				api.On("GetClient", mock.Anything, "c-1").Return(clientRecord(), nil)
				api.On("ListClientDocuments", mock.Anything, "c-1").Return([]models.Document{}, nil)
				idx.On("IndexDocument", mock.Anything, "clients", "c-1", mock.Anything).
					Return("", fmt.Errorf("index clients/c-1: %w", context.DeadlineExceeded))
			},
			wantCode: errors.ErrCodeSearchTimeout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := new(MockBackend)
			idx := new(MockIndexer)
			tt.setup(api, idx)

			h := NewHandler(createTestConfig(), api, idx, nil, logger.NewTestLogger(t))

			out, err := h.Execute(context.Background(), &Input{ClientID: "c-1"})
			assert.Nil(t, out)
			var stdErr *errors.StandardError
			require.ErrorAs(t, err, &stdErr)
			assert.Equal(t, tt.wantCode, stdErr.Code)
		})
	}
}

func TestHandler_Execute_MissingClientID(t *testing.T) {
	h := NewHandler(createTestConfig(), new(MockBackend), new(MockIndexer), nil, logger.NewTestLogger(t))

	_, err := h.Execute(context.Background(), &Input{})
	var stdErr *errors.StandardError
	require.ErrorAs(t, err, &stdErr)
	assert.Equal(t, errors.ErrCodeInvalidInput, stdErr.Code)
}
