// internal/interfaces/http/handlers/errors_test.go
package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/your-org/storefront-backend/internal/pkg/errs"
)

func respond(err error) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	respondError(c, err)
	return w
}

func TestRespondErrorMapsTaxonomy(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"not found", errs.ErrNotFound, http.StatusNotFound},
		{"invalid argument", errs.ErrInvalidArgument, http.StatusBadRequest},
		{"forbidden", errs.ErrForbidden, http.StatusForbidden},
		{"verification failed", errs.ErrVerificationFailed, http.StatusBadRequest},
		{"already paid", errs.ErrAlreadyPaid, http.StatusConflict},
		{"unavailable", errs.ErrUnavailable, http.StatusServiceUnavailable},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := respond(fmt.Errorf("context: %w", tt.err))
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestRespondErrorNeverEchoesUpstreamDetail(t *testing.T) {
	// Unavailable errors can wrap gateway failures; the response body must
	// stay generic no matter what the wrapped chain says.
	err := fmt.Errorf("failed to create gateway order: %w",
		errors.Join(errs.ErrUnavailable, errors.New("gateway returned status 502")))

	w := respond(err)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.NotContains(t, w.Body.String(), "502")
	assert.Contains(t, w.Body.String(), "Service temporarily unavailable")

	// Unrecognized errors stay generic too.
	w = respond(errors.New("pq: connection refused on 10.0.0.3"))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "10.0.0.3")
}
