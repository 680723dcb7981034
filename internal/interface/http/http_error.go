package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/yanqian/review-digest/pkg/errors"
)

// HTTPError captures the metadata required to serialize an error response consistently.
type HTTPError struct {
	Status  int
	Code    string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

// NewHTTPError is a helper to build an HTTPError instance.
func NewHTTPError(status int, code, message string, err error) *HTTPError {
	return &HTTPError{Status: status, Code: code, Message: message, Err: err}
}

// fromDomainError maps a domain error to its response. Client errors keep the
// domain message; server errors use a fixed message so causes never leak.
func fromDomainError(err error) *HTTPError {
	code := apperrors.CodeOf(err)
	switch code {
	case apperrors.CodeInvalidInput, apperrors.CodeNoContentToSummarize:
		return NewHTTPError(http.StatusBadRequest, code, apperrors.MessageOf(err), err)
	case apperrors.CodeNotFound:
		return NewHTTPError(http.StatusNotFound, code, apperrors.MessageOf(err), err)
	case apperrors.CodeBackendUnavailable:
		return NewHTTPError(http.StatusInternalServerError, code, "failed to generate summary", err)
	case apperrors.CodeStoreFailure:
		return NewHTTPError(http.StatusInternalServerError, code, "failed to access review data", err)
	default:
		return NewHTTPError(http.StatusInternalServerError, apperrors.CodeInternal, "something went wrong", err)
	}
}

func asHTTPError(err error) *HTTPError {
	if err == nil {
		return nil
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr
	}
	return fromDomainError(err)
}

func abortWithError(c *gin.Context, err *HTTPError) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}
