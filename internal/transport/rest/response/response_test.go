package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baechuer/real-time-ressys/services/registration-service/internal/domain"
	appCtx "github.com/baechuer/real-time-ressys/services/registration-service/internal/pkg/context"
)

func TestErr(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"not_found", domain.ErrEventNotFound(), http.StatusNotFound, "not_found"},
		{"validation", domain.ErrValidationField("email", "email is required"), http.StatusBadRequest, "validation_error"},
		{"forbidden", domain.ErrForbidden("admin only"), http.StatusForbidden, "forbidden"},
		{"conflict", domain.ErrConflict("email", "taken"), http.StatusConflict, "conflict"},
		{"capacity", domain.ErrCapacity(domain.MustParseDate("2025-01-02")), http.StatusConflict, "capacity_exceeded"},
		{"wrapped", fmt.Errorf("admit: %w", domain.ErrRegistrationNotFound()), http.StatusNotFound, "not_found"},
		{"generic_error", errors.New("db crash"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "http://example.com", nil)
			req = req.WithContext(appCtx.WithRequestID(req.Context(), "rid-1"))
			Err(rr, req, tt.err)

			assert.Equal(t, tt.wantStatus, rr.Code)

			var body ErrorBody
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
			assert.Equal(t, tt.wantCode, body.Error.Code)
			assert.Equal(t, "rid-1", body.Error.RequestID)
		})
	}
}

func TestErr_HidesInternalDetails(t *testing.T) {
	rr := httptest.NewRecorder()
	Err(rr, httptest.NewRequest(http.MethodGet, "/", nil), errors.New("pq: password authentication failed"))

	assert.NotContains(t, rr.Body.String(), "password")
}

func TestErr_CapacityMeta(t *testing.T) {
	rr := httptest.NewRecorder()
	Err(rr, httptest.NewRequest(http.MethodPost, "/", nil),
		domain.ErrCapacity(domain.MustParseDate("2025-01-02"), domain.MustParseDate("2025-01-03")))

	var body ErrorBody
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "quota for 2025-01-02 is full", body.Error.Message)
	assert.Equal(t, "2025-01-02,2025-01-03", body.Error.Meta["dates"])
}

func TestData(t *testing.T) {
	rr := httptest.NewRecorder()
	Data(rr, http.StatusCreated, map[string]int{"n": 1})

	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, "application/json; charset=utf-8", rr.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"data":{"n":1}}`, rr.Body.String())
}
