package frontend

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFormRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	staticFS, err := GetStaticFS()
	require.NoError(t, err)

	r := gin.New()
	r.NoRoute(NewFormHandler(staticFS))
	return r
}

func TestRootServesFormDirectly(t *testing.T) {
	r := newFormRouter(t)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/", nil)
	r.ServeHTTP(w, req)

	// Must be the form itself, not a redirect hop.
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Parkinson's Disease Severity Prediction")
	assert.NotEmpty(t, w.Header().Get("Cache-Control"))
}

func TestUnknownPathFallsBackToForm(t *testing.T) {
	r := newFormRouter(t)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/no/such/page", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Parkinson's Disease Severity Prediction")
}
