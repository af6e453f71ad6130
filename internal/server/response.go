package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/julianstephens/ropeline/internal/constants"
	apperrors "github.com/julianstephens/ropeline/internal/errors"
	"github.com/julianstephens/ropeline/internal/logger"
	"github.com/julianstephens/ropeline/internal/streak"
)

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error apiError `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: apiError{Code: code, Message: message}})
}

// errorStatus maps a service error to an HTTP status and error code
var errorStatus = []struct {
	err    error
	status int
	code   string
}{
	{apperrors.ErrDuplicateCompletion, http.StatusConflict, "DUPLICATE_COMPLETION"},
	{apperrors.ErrHabitNotFound, http.StatusNotFound, "HABIT_NOT_FOUND"},
	{apperrors.ErrUserNotFound, http.StatusNotFound, "USER_NOT_FOUND"},
	{apperrors.ErrAchievementNotFound, http.StatusNotFound, "ACHIEVEMENT_NOT_FOUND"},
	{apperrors.ErrChallengeNotFound, http.StatusNotFound, "CHALLENGE_NOT_FOUND"},
	{apperrors.ErrUnauthorized, http.StatusForbidden, "FORBIDDEN"},
	{apperrors.ErrInvalidCredentials, http.StatusUnauthorized, "INVALID_CREDENTIALS"},
	{apperrors.ErrInvalidTransition, http.StatusConflict, "INVALID_TRANSITION"},
	{apperrors.ErrConflict, http.StatusConflict, "CONFLICT"},
	{apperrors.ErrHabitInactive, http.StatusConflict, "HABIT_INACTIVE"},
	{apperrors.ErrHabitNameTaken, http.StatusConflict, "HABIT_NAME_TAKEN"},
	{apperrors.ErrEmailTaken, http.StatusConflict, "EMAIL_TAKEN"},
	{apperrors.ErrAlreadyFriends, http.StatusConflict, "ALREADY_FRIENDS"},
	{apperrors.ErrAlreadyJoined, http.StatusConflict, "ALREADY_JOINED"},
	{apperrors.ErrNotSpecial, http.StatusBadRequest, "NOT_SPECIAL"},
	{apperrors.ErrInvalidInput, http.StatusBadRequest, "INVALID_INPUT"},
	{streak.ErrInvalidTimestamp, http.StatusBadRequest, "INVALID_TIMESTAMP"},
	{apperrors.ErrCatalogUnavailable, http.StatusServiceUnavailable, "CATALOG_UNAVAILABLE"},
	{apperrors.ErrStoreUnavailable, http.StatusServiceUnavailable, "STORE_UNAVAILABLE"},
}

func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	if apperrors.Retryable(err) {
		w.Header().Set("Retry-After", "1")
	}
	for _, m := range errorStatus {
		if errors.Is(err, m.err) {
			if m.status >= http.StatusInternalServerError {
				logger.Error("Request failed", "path", r.URL.Path, "error", err)
				writeError(w, m.status, m.code, m.err.Error())
				return
			}
			writeError(w, m.status, m.code, err.Error())
			return
		}
	}
	logger.Error("Unhandled request error", "path", r.URL.Path, "error", err)
	writeError(w, http.StatusInternalServerError, "INTERNAL", "internal error")
}

// decodeJSON reads a size-limited JSON body into dst
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, constants.MaxRequestBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrInvalidInput, err)
	}
	return nil
}
