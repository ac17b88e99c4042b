// internal/common/backend/clients.go
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"cif-onboarding/internal/models"
)

// ListClients returns a page of clients. The backend answers either a bare
// array or an envelope keyed clients or items.
func (c *Client) ListClients(ctx context.Context, params models.ClientListParams) (*models.ClientList, error) {
	q := url.Values{}
	if params.Limit > 0 {
		q.Set("limit", strconv.Itoa(params.Limit))
	}
	if params.Page > 0 {
		q.Set("page", strconv.Itoa(params.Page))
	}
	if params.Search != "" {
		q.Set("search", params.Search)
	}
	if params.Statut != "" {
		q.Set("statut", params.Statut)
	}
	path := "/clients"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	resp, err := c.do(ctx, request{method: http.MethodGet, route: "/clients", path: path})
	if err != nil {
		return nil, err
	}
	list, err := decodeClientList(resp.body)
	if err != nil {
		return nil, err
	}
	if list.Page == 0 {
		list.Page = params.Page
	}
	return list, nil
}

func decodeClientList(body []byte) (*models.ClientList, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return &models.ClientList{Clients: []models.ClientSummary{}}, nil
	}

	if body[0] == '[' {
		var clients []models.ClientSummary
		if err := json.Unmarshal(body, &clients); err != nil {
			return nil, fmt.Errorf("decode client list: %w", err)
		}
		return &models.ClientList{Total: len(clients), Clients: clients}, nil
	}

	var envelope struct {
		Clients []models.ClientSummary `json:"clients"`
		Items   []models.ClientSummary `json:"items"`
		Total   *int                   `json:"total"`
		Page    int                    `json:"page"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("decode client list: %w", err)
	}

	clients := envelope.Clients
	if clients == nil {
		clients = envelope.Items
	}
	if clients == nil {
		clients = []models.ClientSummary{}
	}
	list := &models.ClientList{Total: len(clients), Page: envelope.Page, Clients: clients}
	if envelope.Total != nil {
		list.Total = *envelope.Total
	}
	return list, nil
}

// GetClient returns every column of the client record.
func (c *Client) GetClient(ctx context.Context, id string) (models.ClientRecord, error) {
	var record models.ClientRecord
	err := c.doJSON(ctx, request{
		method: http.MethodGet,
		route:  "/clients/{id}",
		path:   "/clients/" + url.PathEscape(id),
	}, &record)
	if err != nil {
		return nil, err
	}
	return record, nil
}

// SaveClientForm creates a client from the onboarding form when id is empty
// and replaces the stored form otherwise. An empty statut saves as actif.
func (c *Client) SaveClientForm(ctx context.Context, id string, form map[string]interface{}, statut string) (models.ClientRecord, error) {
	if statut == "" {
		statut = models.ClientStatusActive
	}
	req := request{
		method: http.MethodPost,
		route:  "/clients/form",
		path:   "/clients/form",
		body:   models.ClientFormPayload{FormData: form, Statut: statut},
	}
	if id != "" {
		req.method = http.MethodPut
		req.route = "/clients/{id}/form"
		req.path = "/clients/" + url.PathEscape(id) + "/form"
	}

	var record models.ClientRecord
	if err := c.doJSON(ctx, req, &record); err != nil {
		return nil, err
	}
	return record, nil
}

func (c *Client) UpdateClient(ctx context.Context, id string, fields map[string]interface{}) (models.ClientRecord, error) {
	var record models.ClientRecord
	err := c.doJSON(ctx, request{
		method: http.MethodPatch,
		route:  "/clients/{id}",
		path:   "/clients/" + url.PathEscape(id),
		body:   fields,
	}, &record)
	if err != nil {
		return nil, err
	}
	return record, nil
}

func (c *Client) DeleteClient(ctx context.Context, id string) error {
	return c.doJSON(ctx, request{
		method: http.MethodDelete,
		route:  "/clients/{id}",
		path:   "/clients/" + url.PathEscape(id),
	}, nil)
}
