package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"voxclip/internal/logging"
	"voxclip/internal/services"
)

// StatusFor maps an error marker onto an HTTP status code.
func StatusFor(err error) int {
	var maxBytes *http.MaxBytesError
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, services.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, services.ErrAcquisition), errors.Is(err, services.ErrSegmentation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, services.ErrPersistence):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) respondError(c *gin.Context, err error) {
	status := StatusFor(err)
	kind := services.Kind(err)
	if status == http.StatusRequestEntityTooLarge {
		kind = "validation"
	}
	logger := logging.WithContext(c.Request.Context(), s.logger)
	if status >= http.StatusInternalServerError {
		logging.ErrorWithContext(logger, "request failed", "api_request_failed",
			logging.String("path", c.FullPath()),
			logging.Int("status", status),
			logging.String("kind", kind),
			logging.Error(err),
		)
	} else {
		logger.Info("request rejected",
			logging.String("path", c.FullPath()),
			logging.Int("status", status),
			logging.String("kind", kind),
			logging.String("reason", err.Error()),
			logging.String(logging.FieldEventType, "api_request_rejected"),
		)
	}
	c.AbortWithStatusJSON(status, ErrorBody{Error: ErrorDetail{
		Kind:      kind,
		Message:   err.Error(),
		RequestID: c.GetString(requestIDKey),
	}})
}

// bindError marks body decoding failures as validation errors while
// keeping oversized bodies distinguishable.
func bindError(err error) error {
	var maxBytes *http.MaxBytesError
	if errors.As(err, &maxBytes) {
		return err
	}
	return services.Wrap(services.ErrValidation, "api", "decode request", "invalid request body", err)
}
