package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinhakim/roadpulse/pkg/data"
	"github.com/jinhakim/roadpulse/pkg/metrics"
	"github.com/jinhakim/roadpulse/pkg/render"
	"github.com/jinhakim/roadpulse/pkg/scoring"
)

func setupTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	require.NoError(t, data.Init(dbPath))
	db, err := data.GetDB(dbPath)
	require.NoError(t, err)

	mux := makeRouter(db, metrics.NewForTesting(), scoring.DefaultConfig())
	srv := httptest.NewServer(mux)
	t.Cleanup(func() {
		srv.Close()
		db.Close()
	})
	return srv
}

func uploadTestCSV(t *testing.T, srv *httptest.Server, name string) {
	t.Helper()

	b, err := os.ReadFile(testCSVPath)
	require.NoError(t, err)
	resp := postUpload(t, srv, "regions.csv", name, b)
	defer resp.Body.Close()
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Location"), "imported=5")
}

// postUpload sends a multipart form without following the redirect.
func postUpload(t *testing.T, srv *httptest.Server, filename, name string, content []byte) *http.Response {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile(uploadFileField, filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	if name != "" {
		require.NoError(t, mw.WriteField(uploadNameField, name))
	}
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/upload", &body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	client := &http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	resp, err := client.Do(req)
	require.NoError(t, err)
	return resp
}

func TestServer_Healthz(t *testing.T) {
	srv := setupTestServer(t)

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var status map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	assert.Equal(t, "healthy", status["status"])
}

func TestServer_Metrics(t *testing.T) {
	srv := setupTestServer(t)

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServer_Home_EmptyState(t *testing.T) {
	srv := setupTestServer(t)

	resp, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(b), "CSV 파일을 업로드하면")
}

func TestServer_Home_ErrorBanner(t *testing.T) {
	srv := setupTestServer(t)

	resp, err := http.Get(srv.URL + "/?err=broken")
	require.NoError(t, err)
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(b), "파일 업로드 실패")
	assert.Contains(t, string(b), "broken")
}

func TestServer_UploadAndHome(t *testing.T) {
	srv := setupTestServer(t)
	uploadTestCSV(t, srv, "seoul")

	resp, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	page := string(b)
	assert.Contains(t, page, "seoul")
	assert.Contains(t, page, "강남구")
	assert.Contains(t, page, "지역별 교통 환경 순위")
}

func TestServer_Home_WithSelection(t *testing.T) {
	srv := setupTestServer(t)
	uploadTestCSV(t, srv, "")

	resp, err := http.Get(srv.URL + "/?region=" + url.QueryEscape("송파구"))
	require.NoError(t, err)
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	page := string(b)
	assert.Contains(t, page, "송파구 지역 분석 결과")
	assert.Contains(t, page, "평균보다")
}

func TestServer_Upload_BadCSV(t *testing.T) {
	srv := setupTestServer(t)

	resp := postUpload(t, srv, "bad.csv", "", []byte("not,a,traffic\nfile,1,2\n"))
	defer resp.Body.Close()

	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Location"), "/?err=")
}

func TestServer_Scores(t *testing.T) {
	srv := setupTestServer(t)

	// No dataset yet.
	resp, err := http.Get(srv.URL + "/data/scores")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	uploadTestCSV(t, srv, "")

	resp, err = http.Get(srv.URL + "/data/scores")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var rows []render.TableRow
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&rows))
	require.Len(t, rows, 5)
	assert.Equal(t, 1, rows[0].Rank)
	assert.Equal(t, "송파구", rows[0].Region)
}

func TestServer_Chart(t *testing.T) {
	srv := setupTestServer(t)
	uploadTestCSV(t, srv, "")

	resp, err := http.Get(srv.URL + "/data/chart?m=accidents")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var series SeriesData[float64]
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&series))
	require.Len(t, series.Labels, 5)

	// Accidents chart is ascending, safest region first.
	assert.Equal(t, "송파구", series.Labels[0])
	assert.InDelta(t, 3.5, series.Data[0], 1e-9)
}

func TestServer_Chart_UnknownKey(t *testing.T) {
	srv := setupTestServer(t)
	uploadTestCSV(t, srv, "")

	resp, err := http.Get(srv.URL + "/data/chart?m=bogus")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServer_Compare(t *testing.T) {
	srv := setupTestServer(t)
	uploadTestCSV(t, srv, "")

	resp, err := http.Get(srv.URL + "/data/compare?region=" + url.QueryEscape("강남구"))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var view render.ComparisonView
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&view))
	assert.Equal(t, "강남구", view.Region)
	assert.Len(t, view.Lines, 3)
}

func TestServer_Compare_NotFound(t *testing.T) {
	srv := setupTestServer(t)
	uploadTestCSV(t, srv, "")

	resp, err := http.Get(srv.URL + "/data/compare?region=" + url.QueryEscape("없는동네"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_Compare_MissingParam(t *testing.T) {
	srv := setupTestServer(t)

	resp, err := http.Get(srv.URL + "/data/compare")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServer_Regions(t *testing.T) {
	srv := setupTestServer(t)

	// Empty store still answers with an empty option list.
	resp, err := http.Get(srv.URL + "/data/regions")
	require.NoError(t, err)
	var items []*data.ListItem
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&items))
	resp.Body.Close()
	assert.Empty(t, items)

	uploadTestCSV(t, srv, "")

	resp, err = http.Get(srv.URL + "/data/regions")
	require.NoError(t, err)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&items))
	resp.Body.Close()
	require.Len(t, items, 5)
	assert.Equal(t, "강남구", items[0].Value)

	resp, err = http.Get(srv.URL + "/data/regions?q=" + url.QueryEscape("노원"))
	require.NoError(t, err)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&items))
	resp.Body.Close()
	require.Len(t, items, 1)
	assert.Equal(t, "노원구", items[0].Value)
}

func TestServer_State(t *testing.T) {
	srv := setupTestServer(t)
	uploadTestCSV(t, srv, "")

	resp, err := http.Get(srv.URL + "/data/state")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var state map[string]int64
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&state))
	assert.Equal(t, int64(1), state["datasets"])
	assert.Equal(t, int64(5), state["regions"])
}

func TestServer_Favicon(t *testing.T) {
	srv := setupTestServer(t)

	resp, err := http.Get(srv.URL + "/favicon.ico")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/svg+xml", resp.Header.Get("Content-Type"))
}
