package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"
)

var ErrInvalidInput = errors.New("invalid input provided")

// AppError carries the status code and client-facing message for a failed
// request; Err is only logged.
type AppError struct {
	Code    int    `json:"-"`
	Message string `json:"error"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func WrapError(err error, message string, code int) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func (s *Server) writeResponse(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("failed to encode JSON response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		appErr = WrapError(err, "Internal Server Error", http.StatusInternalServerError)
	}

	if appErr.Code >= http.StatusInternalServerError {
		s.logger.Error("request failed", zap.String("message", appErr.Message), zap.Error(appErr.Err))
	} else {
		s.logger.Debug("request rejected", zap.String("message", appErr.Message), zap.Error(appErr.Err))
	}
	s.writeResponse(w, appErr.Code, appErr)
}
