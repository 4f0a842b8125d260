package utils

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type APIResponse struct {
	Status  string      `json:"status"`
	Code    int         `json:"code"`
	Message string      `json:"message,omitempty"`
	TraceID string      `json:"trace_id,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// StageError is implemented by errors that know which workflow step failed.
type StageError interface {
	FailedStage() string
	IsRetryable() bool
	HasPending() bool
}

type ErrorDetail struct {
	Stage        string      `json:"stage,omitempty"`
	Retryable    bool        `json:"retryable"`
	RetryPending bool        `json:"retry_pending,omitempty"`
	Partial      interface{} `json:"partial,omitempty"`
}

func RespondSuccess(c *gin.Context, data interface{}, message string) {
	c.JSON(http.StatusOK, APIResponse{
		Status:  "success",
		Code:    http.StatusOK,
		Message: message,
		TraceID: c.GetString("trace_id"),
		Data:    data,
	})
}

func RespondCreated(c *gin.Context, data interface{}, message string) {
	c.JSON(http.StatusCreated, APIResponse{
		Status:  "success",
		Code:    http.StatusCreated,
		Message: message,
		TraceID: c.GetString("trace_id"),
		Data:    data,
	})
}

func RespondError(c *gin.Context, code int, message string) {
	c.JSON(code, APIResponse{
		Status:  "error",
		Code:    code,
		Message: message,
		TraceID: c.GetString("trace_id"),
	})
}

func respondErrorWithDetail(c *gin.Context, code int, message string, err error, partial interface{}) {
	var stageErr StageError
	if !errors.As(err, &stageErr) && partial == nil {
		RespondError(c, code, message)
		return
	}
	detail := ErrorDetail{Partial: partial}
	if stageErr != nil {
		detail.Stage = stageErr.FailedStage()
		detail.Retryable = stageErr.IsRetryable()
		detail.RetryPending = stageErr.HasPending()
	}
	c.JSON(code, APIResponse{
		Status:  "error",
		Code:    code,
		Message: message,
		TraceID: c.GetString("trace_id"),
		Data:    detail,
	})
}

func HandleServiceError(c *gin.Context, err error) {
	handleServiceError(c, err, nil)
}

// HandleServiceErrorWithPartial responds like HandleServiceError and adds the
// part of the work that completed before the failure as data.partial.
func HandleServiceErrorWithPartial(c *gin.Context, err error, partial interface{}) {
	handleServiceError(c, err, partial)
}

func handleServiceError(c *gin.Context, err error, partial interface{}) {
	switch {
	case errors.Is(err, ErrNotFound):
		respondErrorWithDetail(c, http.StatusNotFound, "Resource not found", err, partial)
	case errors.Is(err, ErrMissingInput),
		errors.Is(err, ErrInvalidRequest),
		errors.Is(err, ErrUnknownCatalogEntry),
		errors.Is(err, ErrInvalidAmount):
		respondErrorWithDetail(c, http.StatusBadRequest, err.Error(), err, partial)
	case errors.Is(err, ErrConsentRequired):
		respondErrorWithDetail(c, http.StatusBadRequest, "Client has not consented to image processing", err, partial)
	case errors.Is(err, ErrUnsupportedImage):
		respondErrorWithDetail(c, http.StatusUnsupportedMediaType, "Image must be JPEG, PNG or WebP", err, partial)
	case errors.Is(err, ErrInsufficientFunds):
		respondErrorWithDetail(c, http.StatusPaymentRequired, "Insufficient balance", err, partial)
	case errors.Is(err, ErrGenerationInProgress):
		respondErrorWithDetail(c, http.StatusConflict, "A generation for this client is already running", err, partial)
	case errors.Is(err, ErrForbidden):
		respondErrorWithDetail(c, http.StatusForbidden, "Forbidden", err, partial)
	case errors.Is(err, ErrProviderFailure):
		// provider message is passed through so the clinician sees why
		respondErrorWithDetail(c, http.StatusBadGateway, err.Error(), err, partial)
	case errors.Is(err, ErrStorageFailure):
		logFromContext(c).Error("object storage error", zap.Error(err))
		respondErrorWithDetail(c, http.StatusBadGateway, "Image storage unavailable", err, partial)
	case errors.Is(err, ErrPersistence):
		logFromContext(c).Error("persistence error", zap.Error(err))
		respondErrorWithDetail(c, http.StatusInternalServerError, "Result could not be saved", err, partial)
	case errors.Is(err, ErrDatabaseError):
		logFromContext(c).Error("database error", zap.Error(err))
		respondErrorWithDetail(c, http.StatusInternalServerError, "Internal server error", err, partial)
	default:
		logFromContext(c).Error("unknown error", zap.Error(err))
		respondErrorWithDetail(c, http.StatusInternalServerError, "Internal server error", err, partial)
	}
}

// logFromContext returns the request-scoped logger set by the logging middleware.
func logFromContext(c *gin.Context) *zap.Logger {
	if v, ok := c.Get("logger"); ok {
		if l, ok := v.(*zap.Logger); ok {
			return l
		}
	}
	return zap.NewNop()
}
