package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

type stageErr struct {
	stage   string
	pending bool
	err     error
}

func (e *stageErr) Error() string       { return e.stage + ": " + e.err.Error() }
func (e *stageErr) Unwrap() error       { return e.err }
func (e *stageErr) FailedStage() string { return e.stage }
func (e *stageErr) IsRetryable() bool   { return !e.pending }
func (e *stageErr) HasPending() bool    { return e.pending }

func handle(err error) (*httptest.ResponseRecorder, APIResponse) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Set("trace_id", "trace-1")
	HandleServiceError(c, err)

	var body APIResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	return rec, body
}

func TestHandleServiceError_StatusMapping(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{ErrNotFound, http.StatusNotFound},
		{fmt.Errorf("%w: name", ErrMissingInput), http.StatusBadRequest},
		{ErrUnknownCatalogEntry, http.StatusBadRequest},
		{ErrInvalidAmount, http.StatusBadRequest},
		{ErrConsentRequired, http.StatusBadRequest},
		{ErrUnsupportedImage, http.StatusUnsupportedMediaType},
		{ErrInsufficientFunds, http.StatusPaymentRequired},
		{ErrGenerationInProgress, http.StatusConflict},
		{ErrForbidden, http.StatusForbidden},
		{ErrProviderFailure, http.StatusBadGateway},
		{ErrStorageFailure, http.StatusBadGateway},
		{ErrPersistence, http.StatusInternalServerError},
		{ErrDatabaseError, http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		rec, body := handle(tc.err)
		require.Equal(t, tc.code, rec.Code, tc.err.Error())
		require.Equal(t, "error", body.Status)
		require.Equal(t, tc.code, body.Code)
		require.Equal(t, "trace-1", body.TraceID)
		require.Nil(t, body.Data)
	}
}

func TestHandleServiceError_ProviderMessagePassedThrough(t *testing.T) {
	_, body := handle(fmt.Errorf("%w: content blocked by safety filter", ErrProviderFailure))
	require.Contains(t, body.Message, "content blocked by safety filter")

	_, body = handle(fmt.Errorf("%w: connection refused", ErrDatabaseError))
	require.Equal(t, "Internal server error", body.Message)
}

func TestHandleServiceError_StageDetail(t *testing.T) {
	rec, body := handle(&stageErr{stage: "gating", err: fmt.Errorf("%w: balance 0.00", ErrInsufficientFunds)})
	require.Equal(t, http.StatusPaymentRequired, rec.Code)
	detail, ok := body.Data.(map[string]any)
	require.True(t, ok)
	require.Equal(t, "gating", detail["stage"])
	require.Equal(t, true, detail["retryable"])
	require.NotContains(t, detail, "retry_pending")

	rec, body = handle(&stageErr{stage: "persisting", pending: true, err: ErrPersistence})
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	detail, ok = body.Data.(map[string]any)
	require.True(t, ok)
	require.Equal(t, "persisting", detail["stage"])
	require.Equal(t, false, detail["retryable"])
	require.Equal(t, true, detail["retry_pending"])
}

func TestHandleServiceErrorWithPartial(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	HandleServiceErrorWithPartial(c,
		&stageErr{stage: "generating", err: fmt.Errorf("%w: quota exhausted", ErrProviderFailure)},
		map[string]string{"report": "stored"})

	require.Equal(t, http.StatusBadGateway, rec.Code)
	var body APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Contains(t, body.Message, "quota exhausted")
	detail, ok := body.Data.(map[string]any)
	require.True(t, ok)
	require.Equal(t, "generating", detail["stage"])
	require.Equal(t, map[string]any{"report": "stored"}, detail["partial"])
}
