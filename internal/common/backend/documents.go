// internal/common/backend/documents.go
package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"

	"cif-onboarding/internal/models"
)

const defaultDownloadName = "document.docx"

var (
	filenamePattern         = regexp.MustCompile(`(?i)\bfilename\s*=\s*(?:"([^"]*)"|([^;\s]+))`)
	extendedFilenamePattern = regexp.MustCompile(`(?i)\bfilename\*\s*=\s*[\w-]*'[^']*'([^;\s]+)`)
)

// GenerateDocument asks the backend to render a document. A response with
// success=false is returned alongside ErrGenerationFailed.
func (c *Client) GenerateDocument(ctx context.Context, clientID, documentType string) (*models.GenerateResponse, error) {
	var out models.GenerateResponse
	err := c.doJSON(ctx, request{
		method: http.MethodPost,
		route:  "/documents/generate",
		path:   "/documents/generate",
		body:   models.GenerateRequest{ClientID: clientID, TypeDocument: documentType},
	}, &out)
	if err != nil {
		return nil, err
	}
	if !out.Success {
		msg := out.Message
		if msg == "" {
			msg = "backend reported failure"
		}
		return &out, fmt.Errorf("%w: %s %s: %s", ErrGenerationFailed, documentType, clientID, msg)
	}
	return &out, nil
}

// DownloadDocument fetches the file body and the name announced in
// Content-Disposition.
func (c *Client) DownloadDocument(ctx context.Context, id string) (*models.DownloadedFile, error) {
	resp, err := c.do(ctx, request{
		method: http.MethodGet,
		route:  "/documents/download/{id}",
		path:   "/documents/download/" + url.PathEscape(id),
	})
	if err != nil {
		return nil, err
	}

	return &models.DownloadedFile{
		Filename:    DispositionFilename(resp.header.Get("Content-Disposition")),
		ContentType: resp.header.Get("Content-Type"),
		Content:     resp.body,
	}, nil
}

// DispositionFilename returns the download name announced in a
// Content-Disposition header. filename*=charset''value wins over filename=
// and is percent-decoded. Without either it returns document.docx.
func DispositionFilename(header string) string {
	if m := extendedFilenamePattern.FindStringSubmatch(header); m != nil {
		if name, err := url.PathUnescape(m[1]); err == nil && name != "" {
			return name
		}
	}
	if m := filenamePattern.FindStringSubmatch(header); m != nil {
		name := m[1]
		if name == "" {
			name = m[2]
		}
		if name != "" {
			return name
		}
	}
	return defaultDownloadName
}

func (c *Client) ListClientDocuments(ctx context.Context, clientID string) ([]models.Document, error) {
	docs := []models.Document{}
	err := c.doJSON(ctx, request{
		method: http.MethodGet,
		route:  "/documents/client/{id}",
		path:   "/documents/client/" + url.PathEscape(clientID),
	}, &docs)
	if err != nil {
		return nil, err
	}
	return docs, nil
}

// DeleteDocument removes the record, and the stored file when deleteFile is set.
func (c *Client) DeleteDocument(ctx context.Context, id string, deleteFile bool) error {
	path := "/documents/" + url.PathEscape(id)
	if deleteFile {
		path += "?delete_file=true"
	}
	return c.doJSON(ctx, request{method: http.MethodDelete, route: "/documents/{id}", path: path}, nil)
}
