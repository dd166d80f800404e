package handler

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"vidstory-server/internal/models"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

func TestHandleServiceError_StatusMapping(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"not found", models.ErrNotFound, http.StatusNotFound},
		{"forbidden", models.ErrForbidden, http.StatusForbidden},
		{"not purchased", models.ErrStoryNotPurchased, http.StatusForbidden},
		{"unauthorized", models.ErrUnauthorized, http.StatusUnauthorized},
		{"invalid option", models.ErrInvalidOption, http.StatusBadRequest},
		{"welcome scene mismatch", models.ErrWelcomeSceneMismatch, http.StatusBadRequest},
		{"cross story option", models.ErrCrossStoryOption, http.StatusBadRequest},
		{"invalid input", models.ErrInvalidInput, http.StatusBadRequest},
		{"duplicate option order", models.ErrDuplicateOptionOrder, http.StatusConflict},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	e := echo.New()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			err := handleServiceError(c, tc.err)
			assert.NoError(t, err)
			assert.Equal(t, tc.wantStatus, rec.Code)
		})
	}
}

func TestHandleServiceError_WrappedErrorsMatched(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	wrapped := errors.Join(errors.New("context"), models.ErrInvalidOption)
	err := handleServiceError(c, wrapped)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
