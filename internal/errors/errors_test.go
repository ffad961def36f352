package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voicemetrics/updrs-meter/internal/pipeline"
)

func TestAppErrorMarshalsWithoutExplicitCause(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
	}{
		{name: "validation", err: NewValidationError("bad body")},
		{name: "configuration without cause", err: NewConfigurationError("missing artifact", nil)},
		{name: "internal without cause", err: NewInternalError("unexpected", nil)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NotNil(t, tt.err.Unwrap(), "a serializable error always carries a cause")

			data, err := json.Marshal(tt.err)
			require.NoError(t, err)
			assert.NotEmpty(t, data)
		})
	}
}

func TestErrorCategoriesAndStatus(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		category ErrorCategory
		status   int
	}{
		{name: "validation", err: NewValidationError("x"), category: CategoryValidation, status: http.StatusBadRequest},
		{name: "configuration", err: NewConfigurationError("x", fmt.Errorf("boom")), category: CategoryConfiguration, status: http.StatusInternalServerError},
		{name: "shape", err: NewShapeError(&pipeline.ShapeError{Stage: "project", Got: 1, Want: 3}), category: CategoryShape, status: http.StatusInternalServerError},
		{name: "internal", err: NewInternalError("x", fmt.Errorf("boom")), category: CategoryInternal, status: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.category, tt.err.Category)
			assert.Equal(t, tt.status, tt.err.HTTPStatus)
		})
	}
}

func TestToAppErrorConvertsShapeErrors(t *testing.T) {
	shapeErr := &pipeline.ShapeError{Stage: "standardize", Got: 2, Want: 5}

	appErr := ToAppError(fmt.Errorf("pipeline failed: %w", shapeErr))
	require.NotNil(t, appErr)
	assert.Equal(t, CategoryShape, appErr.Category)
	assert.Equal(t, http.StatusInternalServerError, appErr.HTTPStatus)
}

func TestToAppErrorPassesThroughAppErrors(t *testing.T) {
	original := NewValidationError("bad body")
	assert.Same(t, original, ToAppError(original))
	assert.Nil(t, ToAppError(nil))
}
