package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"time"

	"gds-ingestion/internal/domain"
	"gds-ingestion/internal/domain/ports/adapter"
)

var _ adapter.UploadAdapter = (*HTTPUpload)(nil)

// HTTPUpload stores raw document files with the object-store service and
// returns the stored URL.
type HTTPUpload struct {
	url    string
	apiKey string
	client *http.Client
}

func NewHTTPUpload(url, apiKey string) (*HTTPUpload, error) {
	if url == "" {
		return nil, errors.New("upload url empty")
	}
	return &HTTPUpload{
		url:    url,
		apiKey: apiKey,
		client: &http.Client{Timeout: 60 * time.Second},
	}, nil
}

func (u *HTTPUpload) Store(ctx context.Context, name string, content []byte) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", name)
	if err != nil {
		return "", err
	}
	if _, err := fw.Write(content); err != nil {
		return "", err
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.url, &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if u.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+u.apiKey)
	}

	resp, err := u.client.Do(req)
	if err != nil {
		return "", &domain.DependencyError{Op: "upload.store", Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return "", &domain.DependencyError{Op: "upload.store", Err: fmt.Errorf("upload http %d", resp.StatusCode)}
	}

	var payload struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", &domain.DependencyError{Op: "upload.decode", Err: err}
	}
	if payload.URL == "" {
		return "", &domain.DependencyError{Op: "upload.store", Err: errors.New("no url in response")}
	}
	return payload.URL, nil
}
