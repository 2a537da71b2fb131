package httpclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// downstreamError mirrors the {"error": {...}} envelope written by httputil.
type downstreamError struct {
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// ParseResponseError consumes and closes the body of a non-2xx response and
// translates it into an AppError when the body carries the standard envelope.
func ParseResponseError(resp *http.Response, serviceName string) error {
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%s returned status %d (failed to read body: %w)", serviceName, resp.StatusCode, err)
	}

	var downstream downstreamError
	if json.Unmarshal(body, &downstream) != nil || downstream.Error == nil {
		return fmt.Errorf("%s returned status %d: %s", serviceName, resp.StatusCode, string(body))
	}

	msg := fmt.Sprintf("%s: %s", serviceName, downstream.Error.Message)
	switch status := resp.StatusCode; {
	case status == http.StatusNotFound:
		return &apperrors.AppError{Code: "NOT_FOUND", Message: msg, Status: status, Err: apperrors.ErrNotFound}
	case status == http.StatusBadRequest:
		return apperrors.InvalidInput(msg)
	case status == http.StatusConflict:
		return apperrors.Conflict(msg)
	case status == http.StatusServiceUnavailable:
		return apperrors.Unavailable(msg, fmt.Errorf("%s", downstream.Error.Code))
	case status >= 500:
		return fmt.Errorf("%s server error (%d/%s): %s", serviceName, status, downstream.Error.Code, downstream.Error.Message)
	default:
		return &apperrors.AppError{Code: downstream.Error.Code, Message: msg, Status: status}
	}
}
