package di

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"humaneval/application/queries"
	"humaneval/infrastructure/config"
	pkgerrors "humaneval/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCatalog = "filename,ethnicity,age_group\n" +
	"a.png,Asian,child\n" +
	"b.png,Black,adult\n" +
	"c.png,White,senior\n" +
	"d.png,Latino,teen\n"

func newTestServer(t *testing.T) (*httptest.Server, *config.Config) {
	t.Helper()
	dir := t.TempDir()
	catalogPath := filepath.Join(dir, "metadata.csv")
	require.NoError(t, os.WriteFile(catalogPath, []byte(testCatalog), 0o644))

	cfg := config.Defaults()
	cfg.Environment = "test"
	cfg.LogLevel = "error"
	cfg.SampleSize = 2
	cfg.CatalogPath = catalogPath
	cfg.ResultsPath = filepath.Join(dir, "results.csv")
	cfg.SessionTTL = 0
	require.NoError(t, cfg.Validate())

	container, err := InitializeContainer(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Close() })

	srv := httptest.NewServer(container.Handler())
	t.Cleanup(srv.Close)
	return srv, cfg
}

func doJSON(t *testing.T, method, url string, body interface{}) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeStatus(t *testing.T, resp *http.Response) queries.SessionStatus {
	t.Helper()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var status queries.SessionStatus
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	return status
}

func decodeError(t *testing.T, resp *http.Response) pkgerrors.ErrorResponse {
	t.Helper()
	var body pkgerrors.ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

// catalogAttributes mirrors testCatalog as item ID -> ethnicity, age_group
var catalogAttributes = map[string][]string{
	"a.png": {"Asian", "child"},
	"b.png": {"Black", "adult"},
	"c.png": {"White", "senior"},
	"d.png": {"Latino", "teen"},
}

func scores() map[string]int {
	return map[string]int{"realism": 5, "age_appropriateness": 4, "ethnic_consistency": 3}
}

func TestHTTP_FullRatingSession(t *testing.T) {
	srv, cfg := newTestServer(t)
	base := srv.URL + "/api/v1/sessions"

	// Start is idempotent
	first := decodeStatus(t, doJSON(t, http.MethodPost, base+"/", map[string]string{"raterId": "alice"}))
	again := decodeStatus(t, doJSON(t, http.MethodPost, base+"/", map[string]string{"raterId": "alice"}))
	require.NotNil(t, first.CurrentItem)
	assert.Equal(t, first.CurrentItem.ID, again.CurrentItem.ID)
	assert.Equal(t, 2, first.Total)
	assert.Equal(t, 1, first.Position)

	// Rate both items
	status := first
	rated := []string{}
	for !status.Completed {
		item := status.CurrentItem.ID
		rated = append(rated, item)
		status = decodeStatus(t, doJSON(t, http.MethodPost, base+"/alice/ratings", map[string]interface{}{
			"itemId": item,
			"scores": scores(),
		}))
	}
	assert.Len(t, rated, 2)
	assert.NotEqual(t, rated[0], rated[1])
	assert.Equal(t, float64(100), status.Percent)
	assert.Nil(t, status.CurrentItem)

	// Once complete, further submissions are refused
	resp := doJSON(t, http.MethodPost, base+"/alice/ratings", map[string]interface{}{"itemId": rated[1], "scores": scores()})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, pkgerrors.CodeAlreadyComplete, decodeError(t, resp).Code)

	// Exactly one row per rated item, after a single header
	f, err := os.Open(cfg.ResultsPath)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"user_id", "filename", "ethnicity", "age_group",
		"realism", "age_appropriateness", "ethnic_consistency", "timestamp"}, records[0])
	assert.Equal(t, "alice", records[1][0])
	assert.Equal(t, rated[0], records[1][1])
	assert.Equal(t, rated[1], records[2][1])
	for i, item := range rated {
		assert.Equal(t, catalogAttributes[item], records[i+1][2:4], item)
	}
	assert.Equal(t, []string{"5", "4", "3"}, records[1][4:7])
}

func TestHTTP_RaterIDsWithReservedCharacters(t *testing.T) {
	srv, _ := newTestServer(t)
	base := srv.URL + "/api/v1/sessions"

	tests := []struct {
		name    string
		raterID string
		path    string
	}{
		{"percent sign", "50%", "/50%25"},
		{"percent escape lookalike", "a%41", "/a%2541"},
		{"slash", "bob/x", "/bob%2Fx"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			started := decodeStatus(t, doJSON(t, http.MethodPost, base+"/", map[string]string{"raterId": tt.raterID}))
			require.NotNil(t, started.CurrentItem)

			fetched := decodeStatus(t, doJSON(t, http.MethodGet, base+tt.path, nil))
			assert.Equal(t, started.CurrentItem.ID, fetched.CurrentItem.ID)
			assert.Equal(t, 0, fetched.Rated)

			next := decodeStatus(t, doJSON(t, http.MethodPost, base+tt.path+"/ratings", map[string]interface{}{
				"itemId": started.CurrentItem.ID,
				"scores": scores(),
			}))
			assert.Equal(t, 1, next.Rated)
		})
	}

	// "a%41" must not have been read as "aA"
	resp := doJSON(t, http.MethodGet, base+"/aA", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHTTP_SubmissionErrors(t *testing.T) {
	srv, _ := newTestServer(t)
	base := srv.URL + "/api/v1/sessions"
	status := decodeStatus(t, doJSON(t, http.MethodPost, base+"/", map[string]string{"raterId": "bob"}))
	current := status.CurrentItem.ID

	tests := []struct {
		name       string
		body       interface{}
		wantStatus int
		wantCode   string
	}{
		{
			name:       "out of range score",
			body:       map[string]interface{}{"itemId": current, "scores": map[string]int{"realism": 9, "age_appropriateness": 4, "ethnic_consistency": 3}},
			wantStatus: http.StatusBadRequest,
			wantCode:   pkgerrors.CodeInvalidScores,
		},
		{
			name:       "stale item",
			body:       map[string]interface{}{"itemId": "not-current.png", "scores": scores()},
			wantStatus: http.StatusConflict,
			wantCode:   pkgerrors.CodeStaleSubmission,
		},
		{
			name:       "missing scores",
			body:       map[string]interface{}{"itemId": current},
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := doJSON(t, http.MethodPost, base+"/bob/ratings", tt.body)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, decodeError(t, resp).Code)
			}
		})
	}

	// none of the rejected submissions moved the cursor
	after := decodeStatus(t, doJSON(t, http.MethodGet, base+"/bob", nil))
	assert.Equal(t, current, after.CurrentItem.ID)
	assert.Equal(t, 0, after.Rated)
}

func TestHTTP_LookupsAndHealthEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodGet, srv.URL+"/api/v1/sessions/nobody", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, pkgerrors.CodeSessionNotFound, decodeError(t, resp).Code)

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/v1/sessions/", map[string]string{"raterId": "   "})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/v1/items/c.png", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var item struct {
		ID         string `json:"id"`
		Attributes []struct {
			Name  string `json:"name"`
			Value string `json:"value"`
		} `json:"attributes"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&item))
	assert.Equal(t, "c.png", item.ID)
	require.Len(t, item.Attributes, 2)
	assert.Equal(t, "White", item.Attributes[0].Value)

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/v1/items/zzz.png", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, pkgerrors.CodeItemNotFound, decodeError(t, resp).Code)

	for _, path := range []string{"/health", "/ready", "/metrics"} {
		resp = doJSON(t, http.MethodGet, srv.URL+path, nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
	}
}
