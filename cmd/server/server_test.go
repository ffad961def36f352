package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voicemetrics/updrs-meter/internal/cache"
	"github.com/voicemetrics/updrs-meter/internal/config"
	"github.com/voicemetrics/updrs-meter/internal/database"
	"github.com/voicemetrics/updrs-meter/internal/monitoring"
	"github.com/voicemetrics/updrs-meter/internal/pipeline"
	"github.com/voicemetrics/updrs-meter/internal/ratelimit"
	"github.com/voicemetrics/updrs-meter/internal/synthesis"
)

// writeTestArtifacts exports a small but real artifact set: five features,
// two projected dimensions, identity-ish transforms so expected scores are
// easy to compute by hand.
func writeTestArtifacts(t *testing.T, dir string) {
	t.Helper()

	artifacts := map[string]any{
		"feature_names.json": []string{"age", "sex", "MDVP:Jitter(%)", "HNR", "DFA"},
		"scaler.json": map[string]any{
			"mean":  []float64{60, 0.5, 0.005, 20, 0.9},
			"scale": []float64{15, 0.5, 0.003, 7, 0.2},
		},
		"pca.json": map[string]any{
			"mean": []float64{0, 0, 0, 0, 0},
			"components": [][]float64{
				{1, 0, 0, 0, 0},
				{0, 1, 0, 0, 0},
			},
		},
		"model.json": map[string]any{
			"coefficients": []float64{3, 2},
			"intercept":    20,
		},
	}

	for name, v := range artifacts {
		data, err := json.Marshal(v)
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), data, 0o644))
	}
}

func newTestDeps(t *testing.T) *serverDeps {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dir := t.TempDir()
	writeTestArtifacts(t, dir)

	artifacts, err := pipeline.LoadArtifacts(dir)
	require.NoError(t, err)
	pipe := pipeline.New(artifacts)

	db, err := database.NewDB(dir)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	redisClient, err := ratelimit.NewRedisClient("", "", 0)
	require.NoError(t, err)

	metrics := monitoring.NewMetrics()
	cfg := config.Default()
	cfg.DataDir = dir

	return &serverDeps{
		cfg:         cfg,
		pipe:        pipe,
		synthesizer: synthesis.NewSynthesizer(pipe.Schema()),
		history:     database.NewHistoryService(database.NewRepository(db)),
		db:          db,
		appCache:    cache.NewCache(time.Minute),
		metrics:     metrics,
		logger:      monitoring.NewLogger(),
		limiter: ratelimit.NewRateLimiter(redisClient, ratelimit.Config{
			IPLimitPerMin:   6000,
			BurstMultiplier: 2,
		}, metrics),
	}
}

func predictBody(t *testing.T, age, sex, tremor, clarity, stability, distortion int) *bytes.Buffer {
	t.Helper()
	body := fmt.Sprintf(`{"inputs":{"age":%d,"sex":%d,"tremor":%d,"voice_clarity":%d,"speech_stability":%d,"distortion":%d}}`,
		age, sex, tremor, clarity, stability, distortion)
	return bytes.NewBufferString(body)
}

func doPredict(t *testing.T, r *gin.Engine, body *bytes.Buffer) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/predict", body)
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	r := setupRouter(newTestDeps(t))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/health", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp["status"])
	assert.EqualValues(t, 5, resp["features"])
	assert.EqualValues(t, 2, resp["reduced_dim"])
}

func TestSchemaEndpoint(t *testing.T) {
	r := setupRouter(newTestDeps(t))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/schema", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		FeatureCount int `json:"feature_count"`
		Features     []struct {
			Name string `json:"name"`
			Rule string `json:"rule"`
		} `json:"features"`
		Sliders []struct {
			Name string `json:"name"`
		} `json:"sliders"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	assert.Equal(t, 5, resp.FeatureCount)
	require.Len(t, resp.Features, 5)
	assert.Equal(t, "jitter", resp.Features[2].Rule)
	assert.Len(t, resp.Sliders, 6)
}

func TestPredictEndpoint(t *testing.T) {
	r := setupRouter(newTestDeps(t))

	// Midpoint sliders synthesize [60, 1, 0.00505, 20, 0.90]; after
	// standardize the first two features are 0 and 1, so the projected
	// vector is [0, 1] and the score is 20 + 3*0 + 2*1 = 22.
	w := doPredict(t, r, predictBody(t, 60, 1, 5, 5, 5, 5))

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Severity        float64 `json:"severity"`
		SeverityDisplay string  `json:"severity_display"`
		FeatureCount    int     `json:"feature_count"`
		ReducedCount    int     `json:"reduced_count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	assert.InDelta(t, 22.0, resp.Severity, 1e-9)
	assert.Equal(t, "22.00", resp.SeverityDisplay)
	assert.Equal(t, 5, resp.FeatureCount)
	assert.Equal(t, 2, resp.ReducedCount)
}

func TestPredictDeterministic(t *testing.T) {
	r := setupRouter(newTestDeps(t))

	first := doPredict(t, r, predictBody(t, 72, 0, 3, 7, 2, 8))
	second := doPredict(t, r, predictBody(t, 72, 0, 3, 7, 2, 8))

	require.Equal(t, http.StatusOK, first.Code)
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, first.Body.String(), second.Body.String())
}

func TestPredictCachesResponses(t *testing.T) {
	deps := newTestDeps(t)
	r := setupRouter(deps)

	doPredict(t, r, predictBody(t, 60, 1, 5, 5, 5, 5))
	doPredict(t, r, predictBody(t, 60, 1, 5, 5, 5, 5))

	stats := deps.metrics.GetStats()
	assert.EqualValues(t, 1, stats["cache_hits"])
	assert.EqualValues(t, 1, stats["cache_misses"])
}

func TestPredictRejectsMalformedBody(t *testing.T) {
	r := setupRouter(newTestDeps(t))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/predict", bytes.NewBufferString(`{"inputs":`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPredictRejectsWrongContentType(t *testing.T) {
	r := setupRouter(newTestDeps(t))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/predict", predictBody(t, 60, 1, 5, 5, 5, 5))
	req.Header.Set("Content-Type", "text/plain")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
}

func TestPredictClampsOutOfRangeInputs(t *testing.T) {
	r := setupRouter(newTestDeps(t))

	// Age and sliders beyond bounds clamp to the documented ranges, so
	// this behaves exactly like age=90, distortion=10.
	exact := doPredict(t, r, predictBody(t, 90, 1, 5, 5, 5, 10))
	clamped := doPredict(t, r, predictBody(t, 300, 1, 5, 5, 5, 99))

	require.Equal(t, http.StatusOK, clamped.Code)
	assert.Equal(t, exact.Body.String(), clamped.Body.String())
}

func TestPredictClampsZeroAge(t *testing.T) {
	r := setupRouter(newTestDeps(t))

	// Age 0 is below the documented minimum and must clamp to 20, not be
	// rejected as a missing field.
	exact := doPredict(t, r, predictBody(t, 20, 1, 5, 5, 5, 5))
	clamped := doPredict(t, r, predictBody(t, 0, 1, 5, 5, 5, 5))

	require.Equal(t, http.StatusOK, clamped.Code)
	assert.Equal(t, exact.Body.String(), clamped.Body.String())
}

func TestPredictRateLimitResponse(t *testing.T) {
	deps := newTestDeps(t)

	client, err := ratelimit.NewRedisClient("", "", 0)
	require.NoError(t, err)
	// Burst is limit*multiplier/60 = 2 tokens, so the third immediate
	// request is rejected.
	deps.limiter = ratelimit.NewRateLimiter(client, ratelimit.Config{
		IPLimitPerMin:   60,
		BurstMultiplier: 2,
	}, deps.metrics)
	r := setupRouter(deps)

	var w *httptest.ResponseRecorder
	for i := 0; i < 3; i++ {
		w = doPredict(t, r, predictBody(t, 60, 1, 5, 5, 5, 5))
	}

	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Equal(t, "60", w.Header().Get("X-RateLimit-Limit"))
	assert.Contains(t, w.Body.String(), "rate limit exceeded")

	stats := deps.metrics.GetStats()
	assert.EqualValues(t, 1, stats["rate_limit_blocks"])
}

func TestHistoryEndpointsAfterPredictions(t *testing.T) {
	deps := newTestDeps(t)
	r := setupRouter(deps)

	doPredict(t, r, predictBody(t, 60, 1, 5, 5, 5, 5))

	// History writes are async; give the goroutine a moment.
	require.Eventually(t, func() bool {
		stats, err := deps.history.Stats()
		return err == nil && stats.Count == 1
	}, 2*time.Second, 10*time.Millisecond)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/history/recent", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Count       int `json:"count"`
		Predictions []struct {
			Severity float64 `json:"severity"`
		} `json:"predictions"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, 1, resp.Count)
	assert.InDelta(t, 22.0, resp.Predictions[0].Severity, 1e-9)
}

func TestMetricsEndpoint(t *testing.T) {
	r := setupRouter(newTestDeps(t))

	doPredict(t, r, predictBody(t, 60, 1, 5, 5, 5, 5))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/metrics", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var stats map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.EqualValues(t, 1, stats["prediction_count"])
	assert.GreaterOrEqual(t, stats["request_count"].(float64), 1.0)
}

func TestFormServedAtRoot(t *testing.T) {
	r := setupRouter(newTestDeps(t))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Parkinson's Disease Severity Prediction")
}
