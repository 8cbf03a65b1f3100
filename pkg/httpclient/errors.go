package httpclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	apperrors "github.com/saumyadesai17/maayaro-sub001/pkg/errors"
)

// remoteError is the envelope returned by the payment gateway and carrier APIs
// on failure.
type remoteError struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
		Message     string `json:"message"`
	} `json:"error"`
}

// ParseResponseError converts a non-2xx response from an upstream API into an
// AppError. The response body is consumed but not closed.
func ParseResponseError(resp *http.Response, upstream string) error {
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return apperrors.DependencyUnavailable(upstream, fmt.Errorf("read error response: %w", err))
	}

	var remote remoteError
	msg := ""
	if jsonErr := json.Unmarshal(body, &remote); jsonErr == nil {
		if remote.Error.Description != "" {
			msg = remote.Error.Description
		} else if remote.Error.Message != "" {
			msg = remote.Error.Message
		}
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return apperrors.Unauthorized(fmt.Sprintf("%s rejected credentials: %s", upstream, msg))
	case resp.StatusCode == http.StatusNotFound:
		return apperrors.NotFound(upstream+" resource", msg)
	case resp.StatusCode >= 500:
		return apperrors.DependencyUnavailable(upstream, fmt.Errorf("status %d: %s", resp.StatusCode, msg))
	default:
		return apperrors.InvalidInput(fmt.Sprintf("%s rejected request: %s", upstream, msg))
	}
}
