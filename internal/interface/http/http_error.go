package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/yanqian/meteo-burkina/pkg/errors"
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

var statusByCode = map[string]int{
	"invalid_input":            http.StatusBadRequest,
	"invalid_credentials":      http.StatusUnauthorized,
	"invalid_token":            http.StatusUnauthorized,
	"unauthorized":             http.StatusUnauthorized,
	"payment_required":         http.StatusPaymentRequired,
	"email_not_verified":       http.StatusForbidden,
	"not_found":                http.StatusNotFound,
	"email_exists":             http.StatusConflict,
	"account_linking_disabled": http.StatusConflict,
	"weather_error":            http.StatusBadGateway,
	"payment_error":            http.StatusBadGateway,
	"auth_error":               http.StatusBadGateway,
	"mail_error":               http.StatusBadGateway,
	"auth_not_configured":      http.StatusServiceUnavailable,
}

// fromDomainError maps a coded domain error to its HTTP status. Uncoded
// errors become 500 internal_error.
func fromDomainError(err error) *HTTPError {
	code := apperrors.CodeOf(err)
	status, ok := statusByCode[code]
	if !ok {
		return NewHTTPError(http.StatusInternalServerError, "internal_error", "something went wrong", err)
	}
	return NewHTTPError(status, code, apperrors.MessageOf(err), err)
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

func abortWithDomainError(c *gin.Context, err error) {
	abortWithError(c, fromDomainError(err))
}

func errMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
