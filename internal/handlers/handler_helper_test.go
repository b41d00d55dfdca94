package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"cashbox-api/internal/models"
	"cashbox-api/internal/services"
)

func TestStatusFor(t *testing.T) {
	cases := map[error]int{
		services.ErrNotFound:         http.StatusNotFound,
		services.ErrNotAuthorized:    http.StatusForbidden,
		services.ErrAlreadyOpen:      http.StatusConflict,
		services.ErrDuplicateRequest: http.StatusConflict,
		services.ErrInvalidState:     http.StatusConflict,
		services.ErrNotOpen:          http.StatusConflict,
		services.ErrInvalidAmount:    http.StatusBadRequest,
		services.ErrInvalidMethod:    http.StatusBadRequest,
		services.ErrInvalidCategory:  http.StatusBadRequest,
		services.ErrInvalidDate:      http.StatusBadRequest,
		services.ErrMissingCollector: http.StatusBadRequest,
		errors.New("disk full"):      http.StatusInternalServerError,
	}
	for err, want := range cases {
		wrapped := fmt.Errorf("cash box b1: %w", err)
		assert.Equal(t, want, statusFor(wrapped), err.Error())
	}
}

func TestWriteErrorHidesInternalDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, zap.NewNop(), errors.New("pq: password authentication failed"))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"status":"error","error":"internal error"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	writeError(rec, zap.NewNop(), services.ErrNotOpen)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.JSONEq(t, `{"status":"error","error":"cash box is not open"}`, rec.Body.String())
}

func TestDecode(t *testing.T) {
	newReq := func(body string) *http.Request {
		return httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	}

	var inc incomeBody
	require.NoError(t, decode(newReq(`{"client_id":"c","client_name":"Luis","amount":"12.50","method":"cash"}`), &inc))
	assert.Equal(t, models.Money(1250), inc.Amount)

	err := decode(newReq(`{"client_id":"c","client_name":"Luis","amount":0,"method":"cash"}`), &incomeBody{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Amount")

	err = decode(newReq(`{"work_date":"01-03-2025"}`), &openCashBoxBody{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "WorkDate")

	err = decode(newReq(`{"work_date":"2025-03-01","extra":1}`), &openCashBoxBody{})
	assert.Error(t, err)

	err = decode(newReq(`{"amount": 1.001}`), &incomeBody{})
	assert.Error(t, err)

	err = decode(newReq(`{"client_id":"c","client_name":"Luis","amount":1e20,"method":"cash"}`), &incomeBody{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of range")
}

func TestDecodeCloseRequiresCounts(t *testing.T) {
	newReq := func(body string) *http.Request {
		return httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	}

	err := decode(newReq(`{}`), &closeBody{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Counts (required)")

	err = decode(newReq(`{"closing_counts":{"cash":10}}`), &closeBody{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Digital (required)")

	var body closeBody
	require.NoError(t, decode(newReq(`{"closing_counts":{"cash":10,"digital":0}}`), &body))
	assert.Equal(t, models.Money(1000), *body.Counts.Cash)
	assert.Equal(t, models.Money(0), *body.Counts.Digital)
}
