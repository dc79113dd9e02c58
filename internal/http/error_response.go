package httpx

import (
	"errors"
	"log/slog"
	"net/http"

	apperrors "github.com/target/mmk-auth/internal/errors"
)

// StatusFor maps an application error code to an HTTP status.
func StatusFor(err error) int {
	switch apperrors.GetCode(err) {
	case apperrors.ErrCodeValidation, apperrors.ErrCodeMethodNotSupported:
		return http.StatusBadRequest
	case apperrors.ErrCodeUnauthenticated, apperrors.ErrCodeInvalidCredentials, apperrors.ErrCodeIncorrectOldPassword:
		return http.StatusUnauthorized
	case apperrors.ErrCodeUserNotFound, apperrors.ErrCodeGrantNotFound,
		apperrors.ErrCodePasswordGrantNotFound, apperrors.ErrCodeNotFound:
		return http.StatusNotFound
	case apperrors.ErrCodeUserAlreadyExists, apperrors.ErrCodePasswordGrantAlreadyExists, apperrors.ErrCodeConflict:
		return http.StatusConflict
	case apperrors.ErrCodeCodeOutdated:
		return http.StatusGone
	case apperrors.ErrCodeCodeNotActive:
		return http.StatusUnprocessableEntity
	case apperrors.ErrCodeProviderExchangeFailed, apperrors.ErrCodeProviderResponseInvalid:
		return http.StatusBadGateway
	case apperrors.ErrCodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error   string            `json:"error"`
	Message string            `json:"message"`
	Field   string            `json:"field,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

// WriteAppError renders err as JSON. Internal failures are logged and their message hidden.
func WriteAppError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	status := StatusFor(err)
	code := apperrors.GetCode(err)
	if status >= http.StatusInternalServerError && status != http.StatusBadGateway {
		if logger == nil {
			logger = slog.Default()
		}
		logger.ErrorContext(r.Context(), "request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", RequestIDFromContext(r.Context()),
			"error", err,
		)
		if code == "" {
			code = apperrors.ErrCodeInternal
		}
		WriteJSON(w, status, errorBody{Error: string(code), Message: http.StatusText(status)})
		return
	}

	body := errorBody{Error: string(code), Message: err.Error()}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		body.Message = appErr.Message
		body.Field = appErr.Field
		body.Details = appErr.Details
	}
	WriteJSON(w, status, body)
}
