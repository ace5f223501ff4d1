package core

import (
	"errors"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	SessionErrorBadInput       = "SESSION_BAD_INPUT"
	SessionErrorNotFound       = "SESSION_NOT_FOUND"
	SessionErrorConflict       = "SESSION_CONFLICT"
	SessionErrorProviderFailed = "SESSION_PROVIDER_FAILED"
	SessionErrorStoreFailed    = "SESSION_STORE_FAILED"
	SessionErrorInternal       = "SESSION_INTERNAL_ERROR"
)

func sessionErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensureSessionErrorEnvelope(richErr)
	}

	switch {
	case errors.Is(err, ErrInvalidIdentity):
		return newSessionError(err.Error(), goerrors.CategoryBadInput, SessionErrorBadInput)
	case errors.Is(err, ErrSessionNotFound):
		return newSessionError(err.Error(), goerrors.CategoryNotFound, SessionErrorNotFound)
	case errors.Is(err, ErrSlotConflict), errors.Is(err, ErrLockBusy):
		return newSessionError(err.Error(), goerrors.CategoryConflict, SessionErrorConflict)
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "provider"), strings.Contains(msg, "pairing code"):
		return newSessionError(err.Error(), goerrors.CategoryExternal, SessionErrorProviderFailed)
	case strings.Contains(msg, "store"), strings.Contains(msg, "sql"), strings.Contains(msg, "database"):
		return newSessionError(err.Error(), goerrors.CategoryInternal, SessionErrorStoreFailed)
	case strings.Contains(msg, "required"), strings.Contains(msg, "invalid"):
		return newSessionError(err.Error(), goerrors.CategoryBadInput, SessionErrorBadInput)
	}

	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	return ensureSessionErrorEnvelope(mapped)
}

func newSessionError(message string, category goerrors.Category, textCode string) *goerrors.Error {
	return ensureSessionErrorEnvelope(
		goerrors.New(message, category).
			WithTextCode(textCode),
	)
}

func ensureSessionErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 {
		err.Code = sessionHTTPStatus(err.Category)
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = defaultSessionTextCode(err.Category)
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}

func defaultSessionTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return SessionErrorBadInput
	case goerrors.CategoryNotFound:
		return SessionErrorNotFound
	case goerrors.CategoryConflict:
		return SessionErrorConflict
	case goerrors.CategoryExternal:
		return SessionErrorProviderFailed
	default:
		return SessionErrorInternal
	}
}

func sessionHTTPStatus(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
