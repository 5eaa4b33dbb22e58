package adapter

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/BaSui01/aigate/types"
)

// errMessage digs the human-readable message out of a provider error body.
// Providers disagree on shape; try the common nests before falling back to
// the raw body.
func errMessage(body []byte) string {
	var envelope struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
		} `json:"error"`
		Message string `json:"message"`
		Detail  string `json:"detail"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil {
		if envelope.Error.Message != "" {
			return envelope.Error.Message
		}
		if envelope.Message != "" {
			return envelope.Message
		}
		if envelope.Detail != "" {
			return envelope.Detail
		}
	}
	return string(body)
}

// mapHTTPError converts a provider HTTP status into the closed taxonomy.
func mapHTTPError(providerID string, resp *http.Response, body []byte) *types.Error {
	msg := errMessage(body)
	status := resp.StatusCode

	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return types.NewError(types.ErrAuthentication, msg).
			WithHTTPStatus(status).WithProvider(providerID)
	case http.StatusTooManyRequests:
		e := types.NewError(types.ErrRateLimitExceeded, msg).
			WithHTTPStatus(status).WithProvider(providerID)
		if after := retryAfter(resp); after > 0 {
			e = e.WithRetryAfter(after)
		}
		return e
	case http.StatusBadRequest, http.StatusNotFound, http.StatusUnprocessableEntity:
		return types.NewError(types.ErrInvalidRequest, msg).
			WithHTTPStatus(status).WithProvider(providerID)
	default:
		return types.NewError(types.ErrProvider, msg).
			WithHTTPStatus(status).WithProvider(providerID)
	}
}

func retryAfter(resp *http.Response) time.Duration {
	v := resp.Header.Get("Retry-After")
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return 0
}
