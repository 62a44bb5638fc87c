package serve

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steamops/vapor/pkg/artifact"
	"github.com/steamops/vapor/pkg/config"
	"github.com/steamops/vapor/pkg/table"
)

func writeAggregate(t *testing.T, dir, name string, rows []map[string]interface{}) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, artifact.Write(path, table.FromRows(rows), "gzip"))
}

func testServer(t *testing.T) *Server {
	t.Helper()
	dir := t.TempDir()

	writeAggregate(t, dir, developerStatsFile, []map[string]interface{}{
		{"developer": "Acme", "total_items": int64(12), "free_percentage": 25.0},
	})
	writeAggregate(t, dir, reviewAnalysisFile, []map[string]interface{}{
		{"developer": "Acme", "0": int64(3), "1": int64(5), "2": int64(9)},
	})
	writeAggregate(t, dir, genrePlaytimeFile, []map[string]interface{}{
		{"genre": "Action", "genre_avg_playtime": 300.5, "overall_avg_playtime": 120.25},
	})
	writeAggregate(t, dir, userDataFile, []map[string]interface{}{
		{"user_id": "u1", "total_spent": 59.5, "recommend_percentage": 80.0, "items_count": int64(7)},
	})
	writeAggregate(t, dir, bestDevelopersFile, []map[string]interface{}{
		{"release_date": int64(2017), "developer": "Oldco"},
		{"release_date": int64(2018), "developer": "Acme"},
		{"release_date": int64(2018), "developer": "Duplicate"},
	})

	cfg := config.Default()
	cfg.Serve.DatasetsDir = dir

	srv, err := New(cfg)
	require.NoError(t, err)
	return srv
}

func get(t *testing.T, srv *Server, path string) (int, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec.Code, body
}

func TestDeveloperStatsLookup(t *testing.T) {
	srv := testServer(t)

	code, body := get(t, srv, "/developer/Acme")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(12), body["total_items"])
	assert.Equal(t, 25.0, body["free_percentage"])

	code, body = get(t, srv, "/developer/Nobody")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Contains(t, body["detail"], "Nobody")
}

func TestReviewAnalysisRenamesSentimentKeys(t *testing.T) {
	srv := testServer(t)

	code, body := get(t, srv, "/developer_reviews_analysis/Acme")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(3), body["Negative"])
	assert.Equal(t, float64(5), body["Neutral"])
	assert.Equal(t, float64(9), body["Positive"])
	assert.NotContains(t, body, "0")

	code, _ = get(t, srv, "/developer_reviews_analysis/Nobody")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestGenrePlaytimeLookup(t *testing.T) {
	srv := testServer(t)

	code, body := get(t, srv, "/genre_playtime/Action")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, 300.5, body["genre_avg_playtime"])

	code, _ = get(t, srv, "/genre_playtime/Polka")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestUserDataLookup(t *testing.T) {
	srv := testServer(t)

	code, body := get(t, srv, "/userdata/u1")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, 59.5, body["total_spent"])

	code, _ = get(t, srv, "/userdata/u999")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestBestDeveloperYearLookup(t *testing.T) {
	srv := testServer(t)

	code, body := get(t, srv, "/best_developer_year/2018")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(2018), body["year"])
	// First matching row wins.
	assert.Equal(t, "Acme", body["best_developer"])

	code, _ = get(t, srv, "/best_developer_year/1980")
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = get(t, srv, "/best_developer_year/not-a-year")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestHealthAndRoot(t *testing.T) {
	srv := testServer(t)

	code, body := get(t, srv, "/healthz")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])

	code, _ = get(t, srv, "/")
	assert.Equal(t, http.StatusOK, code)
}

func TestMissingArtifactFailsStartup(t *testing.T) {
	cfg := config.Default()
	cfg.Serve.DatasetsDir = t.TempDir()
	_, err := New(cfg)
	require.Error(t, err)
}
