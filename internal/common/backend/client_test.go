package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cif-onboarding/internal/common/config"
	"cif-onboarding/internal/common/logger"
	"cif-onboarding/internal/models"
)

func newTestClient(t *testing.T, handler http.Handler, pair TokenPair) (*Client, *MemoryTokenStore) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	store := NewMemoryTokenStore()
	require.NoError(t, store.Save(context.Background(), pair))

	c := NewClient(config.BackendConfig{BaseURL: srv.URL + "/", Timeout: 2000}, logger.NewTestLogger(t), WithTokenStore(store))
	return c, store
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestClient_RefreshesOnceAndReplays(t *testing.T) {
	var refreshes, calls atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		refreshes.Add(1)
		assert.Empty(t, r.Header.Get("Authorization"))
		var body models.RefreshRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "refresh-1", body.RefreshToken)
		writeJSON(w, http.StatusOK, map[string]string{"access_token": "access-2", "refresh_token": "refresh-2"})
	})
	mux.HandleFunc("GET /clients/{id}", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.Header.Get("Authorization") != "Bearer access-2" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Token expiré"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"id": r.PathValue("id"), "t1_nom": "Dupont"})
	})

	c, store := newTestClient(t, mux, TokenPair{AccessToken: "access-1", RefreshToken: "refresh-1"})

	record, err := c.GetClient(context.Background(), "c-1")
	require.NoError(t, err)
	assert.Equal(t, "c-1", record.ID())
	assert.Equal(t, "Dupont", record["t1_nom"])
	assert.Equal(t, int32(1), refreshes.Load())
	assert.Equal(t, int32(2), calls.Load())

	pair, _ := store.Load(context.Background())
	assert.Equal(t, TokenPair{AccessToken: "access-2", RefreshToken: "refresh-2"}, pair)
}

func TestClient_ConcurrentUnauthorizedShareOneRefresh(t *testing.T) {
	var refreshes, stale atomic.Int32
	bothRejected := make(chan struct{})

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		refreshes.Add(1)
		time.Sleep(20 * time.Millisecond)
		writeJSON(w, http.StatusOK, map[string]string{"access_token": "access-2", "refresh_token": "refresh-2"})
	})
	mux.HandleFunc("GET /clients/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "Bearer access-2" {
			writeJSON(w, http.StatusOK, map[string]interface{}{"id": r.PathValue("id")})
			return
		}
		// hold both stale requests until each has been rejected
		if stale.Add(1) == 2 {
			close(bothRejected)
		}
		select {
		case <-bothRejected:
		case <-time.After(2 * time.Second):
		}
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Token expiré"})
	})

	c, store := newTestClient(t, mux, TokenPair{AccessToken: "access-1", RefreshToken: "refresh-1"})

	ids := []string{"c-1", "c-2"}
	errs := make([]error, len(ids))
	var wg sync.WaitGroup
	for i, id := range ids {
		i, id := i, id
		wg.Add(1)
		go func() {
			defer wg.Done()
			record, err := c.GetClient(context.Background(), id)
			if err == nil {
				assert.Equal(t, id, record.ID())
			}
			errs[i] = err
		}()
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, int32(2), stale.Load())
	assert.Equal(t, int32(1), refreshes.Load())

	pair, _ := store.Load(context.Background())
	assert.Equal(t, "access-2", pair.AccessToken)
}

func TestClient_SecondUnauthorizedIsNotRetried(t *testing.T) {
	var refreshes, calls atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		refreshes.Add(1)
		writeJSON(w, http.StatusOK, map[string]string{"access_token": "access-2"})
	})
	mux.HandleFunc("GET /users/me", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Compte désactivé"})
	})

	c, store := newTestClient(t, mux, TokenPair{AccessToken: "access-1", RefreshToken: "refresh-1"})

	_, err := c.Me(context.Background())
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, StatusCode(err))
	assert.Equal(t, int32(1), refreshes.Load())
	assert.Equal(t, int32(2), calls.Load())

	// refresh token kept when the response omits it
	pair, _ := store.Load(context.Background())
	assert.Equal(t, "refresh-1", pair.RefreshToken)
}

func TestClient_RefreshFailureExpiresSession(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Refresh token invalide"})
	})
	mux.HandleFunc("GET /stats/dashboard", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, nil)
	})

	c, store := newTestClient(t, mux, TokenPair{AccessToken: "access-1", RefreshToken: "refresh-1"})

	_, err := c.DashboardStats(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSessionExpired))

	pair, _ := store.Load(context.Background())
	assert.True(t, pair.Empty())
}

func TestClient_NoRefreshTokenReturnsUnauthorized(t *testing.T) {
	var refreshes atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		refreshes.Add(1)
	})
	mux.HandleFunc("GET /users/me", func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Not authenticated"})
	})

	c, _ := newTestClient(t, mux, TokenPair{})

	_, err := c.Me(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Not authenticated", apiErr.Detail)
	assert.Zero(t, refreshes.Load())
}

func TestClient_LoginStoresTokens(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "conseiller@cabinet-cif.fr", body["email"])
		assert.Equal(t, "secret", body["mot_de_passe"])
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"access_token":  "a",
			"refresh_token": "r",
			"token_type":    "bearer",
			"user":          map[string]interface{}{"id": "u-1", "email": "conseiller@cabinet-cif.fr", "role": "conseiller"},
		})
	})

	c, store := newTestClient(t, mux, TokenPair{})

	tokens, err := c.Login(context.Background(), "conseiller@cabinet-cif.fr", "secret")
	require.NoError(t, err)
	require.NotNil(t, tokens.User)
	assert.Equal(t, "u-1", tokens.User.ID)

	pair, _ := store.Load(context.Background())
	assert.Equal(t, TokenPair{AccessToken: "a", RefreshToken: "r"}, pair)

	require.NoError(t, c.Logout(context.Background()))
	pair, _ = store.Load(context.Background())
	assert.True(t, pair.Empty())
}

func TestClient_LoginRejectedDoesNotRefresh(t *testing.T) {
	var refreshes atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/refresh", func(w http.ResponseWriter, r *http.Request) { refreshes.Add(1) })
	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Email ou mot de passe incorrect"})
	})

	c, _ := newTestClient(t, mux, TokenPair{AccessToken: "x", RefreshToken: "y"})

	_, err := c.Login(context.Background(), "a@b.fr", "bad")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Email ou mot de passe incorrect")
	assert.Zero(t, refreshes.Load())
}

func TestClient_ListClientsShapes(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantTotal int
		wantPage  int
	}{
		{"bare array", `[{"id":"1","t1_nom":"A","statut":"actif"},{"id":"2","t1_nom":"B","statut":"brouillon"}]`, 2, 3},
		{"clients envelope", `{"clients":[{"id":"1"},{"id":"2"}],"total":40,"page":2}`, 40, 2},
		{"items envelope", `{"items":[{"id":"1"},{"id":"2"}]}`, 2, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := http.NewServeMux()
			mux.HandleFunc("GET /clients", func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "20", r.URL.Query().Get("limit"))
				assert.Equal(t, "3", r.URL.Query().Get("page"))
				assert.Equal(t, "dupont", r.URL.Query().Get("search"))
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(tt.body))
			})
			c, _ := newTestClient(t, mux, TokenPair{AccessToken: "a"})

			list, err := c.ListClients(context.Background(), models.ClientListParams{Limit: 20, Page: 3, Search: "dupont"})
			require.NoError(t, err)
			assert.Len(t, list.Clients, 2)
			assert.Equal(t, "1", list.Clients[0].ID)
			assert.Equal(t, tt.wantTotal, list.Total)
			assert.Equal(t, tt.wantPage, list.Page)
		})
	}
}

func TestClient_SaveClientForm(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /clients/form", func(w http.ResponseWriter, r *http.Request) {
		var body models.ClientFormPayload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, models.ClientStatusActive, body.Statut)
		writeJSON(w, http.StatusCreated, map[string]interface{}{"id": "new"})
	})
	mux.HandleFunc("PUT /clients/{id}/form", func(w http.ResponseWriter, r *http.Request) {
		var body models.ClientFormPayload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, models.ClientStatusDraft, body.Statut)
		writeJSON(w, http.StatusOK, map[string]interface{}{"id": r.PathValue("id")})
	})

	c, _ := newTestClient(t, mux, TokenPair{AccessToken: "a"})
	form := map[string]interface{}{"titulaire1": map[string]interface{}{"nom": "Dupont"}}

	created, err := c.SaveClientForm(context.Background(), "", form, "")
	require.NoError(t, err)
	assert.Equal(t, "new", created.ID())

	updated, err := c.SaveClientForm(context.Background(), "c-9", form, models.ClientStatusDraft)
	require.NoError(t, err)
	assert.Equal(t, "c-9", updated.ID())
}

func TestClient_GenerateDocument(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /documents/generate", func(w http.ResponseWriter, r *http.Request) {
		var body models.GenerateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body.TypeDocument == "QCC" {
			writeJSON(w, http.StatusOK, map[string]interface{}{"success": false, "message": "Modèle introuvable"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": true, "document_id": "d-1", "filename": "DER_Dupont.docx",
			"download_url": "/api/v1/documents/download/d-1",
		})
	})
	c, _ := newTestClient(t, mux, TokenPair{AccessToken: "a"})

	resp, err := c.GenerateDocument(context.Background(), "c-1", "DER")
	require.NoError(t, err)
	assert.Equal(t, "d-1", resp.DocumentID)

	resp, err = c.GenerateDocument(context.Background(), "c-1", "QCC")
	require.ErrorIs(t, err, ErrGenerationFailed)
	require.NotNil(t, resp)
	assert.Contains(t, err.Error(), "Modèle introuvable")
}

func TestClient_DownloadAndDeleteDocument(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /documents/download/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") == "d-1" {
			w.Header().Set("Content-Disposition", `attachment; filename="DER_Dupont.docx"`)
		}
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.wordprocessingml.document")
		_, _ = w.Write([]byte("PK\x03\x04"))
	})
	mux.HandleFunc("DELETE /documents/{id}", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "true", r.URL.Query().Get("delete_file"))
		w.WriteHeader(http.StatusNoContent)
	})
	c, _ := newTestClient(t, mux, TokenPair{AccessToken: "a"})

	file, err := c.DownloadDocument(context.Background(), "d-1")
	require.NoError(t, err)
	assert.Equal(t, "DER_Dupont.docx", file.Filename)
	assert.Equal(t, []byte("PK\x03\x04"), file.Content)

	file, err = c.DownloadDocument(context.Background(), "d-2")
	require.NoError(t, err)
	assert.Equal(t, "document.docx", file.Filename)

	require.NoError(t, c.DeleteDocument(context.Background(), "d-1", true))
}

func TestClient_ListClientDocuments(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /documents/client/{id}", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"id":"d-1","type_document":"DER","nom_fichier":"DER.docx","date_generation":"2026-10-01T10:00:00","signe":true}]`))
	})
	c, _ := newTestClient(t, mux, TokenPair{AccessToken: "a"})

	docs, err := c.ListClientDocuments(context.Background(), "c-1")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "DER", docs[0].TypeDocument)
	assert.True(t, docs[0].Signe)
}

func TestClient_ServerErrorDetail(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /stats/dashboard", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": "Erreur base de données"})
	})
	c, _ := newTestClient(t, mux, TokenPair{AccessToken: "a"})

	_, err := c.DashboardStats(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	assert.Equal(t, "Erreur base de données", apiErr.Detail)
}

func TestDispositionFilename(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{`attachment; filename="QCC Dupont.docx"`, "QCC Dupont.docx"},
		{`attachment; filename="DER.docx"; size=1024`, "DER.docx"},
		{`attachment; filename="a.docx"; creation-date="Wed, 12 Feb 1997"`, "a.docx"},
		{`attachment; filename=DER_Dupont.docx`, "DER_Dupont.docx"},
		{`attachment; filename*=utf-8''Lettre%20de%20mission%20H%C3%A9l%C3%A8ne.docx`, "Lettre de mission Hélène.docx"},
		{`attachment; filename="fallback.docx"; filename*=UTF-8''R%C3%A9sum%C3%A9.docx`, "Résumé.docx"},
		{`attachment; filename*=UTF-8'fr'%ZZbad.docx; filename="ok.docx"`, "ok.docx"},
		{`attachment; filename=""`, "document.docx"},
		{"attachment", "document.docx"},
		{"", "document.docx"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DispositionFilename(tt.header), tt.header)
	}
}
