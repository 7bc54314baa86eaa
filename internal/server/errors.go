package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/passage/internal/account"
	apikeydomain "github.com/smallbiznis/passage/internal/apikey/domain"
	"github.com/smallbiznis/passage/internal/authorization"
	"github.com/smallbiznis/passage/internal/google"
	"github.com/smallbiznis/passage/internal/guard"
	"github.com/smallbiznis/passage/internal/ratelimit"
	sessiondomain "github.com/smallbiznis/passage/internal/session/domain"
	subnetdomain "github.com/smallbiznis/passage/internal/subnet/domain"
	"github.com/smallbiznis/passage/internal/token"
	userdomain "github.com/smallbiznis/passage/internal/user/domain"
	verificationdomain "github.com/smallbiznis/passage/internal/verification/domain"
	"github.com/smallbiznis/passage/internal/wechat"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrNotFound       = errors.New("not_found")
	ErrInvalidRequest = errors.New("invalid_request")
)

// ErrorHandlingMiddleware converts errors attached to the gin context
// into the wire error envelope. Handlers never write error bodies
// themselves; they abort with an error and the mapping happens here.
func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	switch {
	case isValidationError(err):
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: err.Error(),
		}
	case errors.Is(err, account.ErrUnverifiedEmail):
		return http.StatusForbidden, errorPayload{
			Type:    "unverified_email",
			Message: err.Error(),
		}
	case errors.Is(err, account.ErrUnverifiedLocation):
		return http.StatusForbidden, errorPayload{
			Type:    "unverified_location",
			Message: err.Error(),
		}
	case errors.Is(err, ErrForbidden),
		errors.Is(err, authorization.ErrPermissionDenied):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "forbidden",
		}
	case isUnauthorizedError(err):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case errors.Is(err, userdomain.ErrConflictingAccount):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: err.Error(),
		}
	case errors.Is(err, ratelimit.ErrRateLimited):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "rate_limited",
			Message: "too many attempts, slow down",
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, userdomain.ErrWeakPassword),
		errors.Is(err, userdomain.ErrInvalidEmailFormat),
		errors.Is(err, userdomain.ErrMissingIdentifier),
		errors.Is(err, userdomain.ErrInvalidProfile),
		errors.Is(err, google.ErrMissingCode),
		errors.Is(err, wechat.ErrMissingCode):
		return true
	default:
		return false
	}
}

// isUnauthorizedError covers every credential failure. Bad passwords,
// dead sessions and mismatched API secrets all collapse into one 401
// so responses do not reveal which part of the credential was wrong.
func isUnauthorizedError(err error) bool {
	switch {
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, guard.ErrMissingCredentials),
		errors.Is(err, guard.ErrUnknownStrategy),
		errors.Is(err, userdomain.ErrWrongCredentials),
		errors.Is(err, userdomain.ErrNoPasswordSet),
		errors.Is(err, userdomain.ErrInactiveUser),
		errors.Is(err, userdomain.ErrAmbiguousProfileMatch),
		errors.Is(err, token.ErrInvalidToken),
		errors.Is(err, sessiondomain.ErrSessionNotFound),
		errors.Is(err, verificationdomain.ErrInvalidCode),
		errors.Is(err, verificationdomain.ErrCodeNotFound),
		errors.Is(err, apikeydomain.ErrKeyNotFound),
		errors.Is(err, apikeydomain.ErrSecretMismatch):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, userdomain.ErrUserNotFound),
		errors.Is(err, userdomain.ErrEmailNotFound),
		errors.Is(err, account.ErrWechatAccountNotFound),
		errors.Is(err, subnetdomain.ErrSubnetNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

// classifyErrorForLog labels request-log entries without leaking
// message details into metrics cardinality.
func classifyErrorForLog(err error) (string, string) {
	status, payload := mapError(err)
	switch {
	case status >= http.StatusInternalServerError:
		return "internal", payload.Type
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return "auth", payload.Type
	case status == http.StatusTooManyRequests:
		return "rate_limit", payload.Type
	default:
		return "client", payload.Type
	}
}
