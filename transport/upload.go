package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/BaSui01/aigate/types"
)

// UploadResult is what a provider upload endpoint hands back: either a URL
// or an opaque id, both usable as a message attachment.
type UploadResult struct {
	URL string `json:"url,omitempty"`
	ID  string `json:"id,omitempty"`
}

// Ref returns whichever handle the provider issued, preferring the URL.
func (r UploadResult) Ref() string {
	if r.URL != "" {
		return r.URL
	}
	return r.ID
}

// UploadFile posts a multipart form to a provider upload endpoint. headers
// carry the provider auth; field defaults to "file".
func UploadFile(ctx context.Context, client *http.Client, endpoint, field, filename string, content io.Reader, headers map[string]string) (*UploadResult, error) {
	if field == "" {
		field = "file"
	}
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(field, filename)
	if err != nil {
		return nil, types.NewError(types.ErrInvalidRequest, "building multipart form failed").WithCause(err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return nil, types.NewError(types.ErrInvalidRequest, "reading upload content failed").WithCause(err)
	}
	if err := mw.Close(); err != nil {
		return nil, types.NewError(types.ErrInvalidRequest, "finalising multipart form failed").WithCause(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return nil, types.NewError(types.ErrConfiguration, "bad upload endpoint").WithCause(err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, types.NewError(types.ErrNetwork, "upload request failed").WithCause(err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		return nil, types.Errorf(types.ErrProvider, "upload failed with status %d: %s", resp.StatusCode, string(body)).
			WithHTTPStatus(resp.StatusCode)
	}

	var result UploadResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, types.NewError(types.ErrInvalidModelResponse, "upload response is not JSON").WithCause(err)
	}
	if result.Ref() == "" {
		return nil, types.NewError(types.ErrInvalidModelResponse, "upload response carries neither url nor id")
	}
	return &result, nil
}
