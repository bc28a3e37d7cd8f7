package ui

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"datastory/adapters/echarts"
	"datastory/adapters/fileload"
	"datastory/internal/chartspec"
	"datastory/internal/cleaning"
	"datastory/internal/config"
	"datastory/internal/filter"
	"datastory/internal/insight"
	"datastory/internal/qa"
	"datastory/internal/session"
)

const sampleCSV = "order_date,region,sales\n" +
	"2024-01-01,north,100\n" +
	"2024-01-02,south,150\n" +
	"2024-01-03,north,90\n" +
	"2024-01-04,east,220\n" +
	"2024-01-05,south,180\n"

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := &config.Config{
		Server: config.ServerConfig{Port: "0", GinMode: gin.TestMode},
		Upload: config.UploadConfig{MaxBytes: 1 << 20},
	}
	return NewServer(cfg, fileload.NewLoader(), session.NewStore(cleaning.NewCleaner()),
		filter.NewEngine(), chartspec.NewResolver(), insight.NewGenerator(),
		qa.NewResponder(), echarts.NewRenderer(), nil)
}

func uploadCSV(t *testing.T, srv *Server, name, content string) map[string]interface{} {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func postJSON(t *testing.T, srv *Server, path string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func TestServer_ChartKinds(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/chart-kinds", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "bar")
	assert.Contains(t, rec.Body.String(), "heatmap")
}

func TestServer_UploadReportsSchemaAndFilters(t *testing.T) {
	srv := newTestServer(t)
	resp := uploadCSV(t, srv, "sales.csv", sampleCSV)

	assert.NotEmpty(t, resp["session_id"])
	assert.Equal(t, float64(5), resp["rows"])
	assert.Equal(t, float64(3), resp["columns"])

	types := resp["column_types"].(map[string]interface{})
	assert.Equal(t, "datetime", types["order_date"])
	assert.Equal(t, "categorical", types["region"])
	assert.Equal(t, "numeric", types["sales"])
}

func TestServer_UploadRejectsMissingFile(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/upload", strings.NewReader(""))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_ChartFlow(t *testing.T) {
	srv := newTestServer(t)
	resp := uploadCSV(t, srv, "sales.csv", sampleCSV)
	id := resp["session_id"].(string)

	rec := postJSON(t, srv, "/api/sessions/"+id+"/chart", ChartRequest{
		Chart: chartspec.Request{Kind: "bar", X: "region", Y: "sales"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.NotEmpty(t, out["figure_html"])
	assert.Contains(t, out["narrative_markdown"], "Bar Chart Analysis")
	assert.Equal(t, float64(5), out["original_row_count"])
	assert.Equal(t, float64(5), out["filtered_row_count"])
}

func TestServer_ChartWithFilter(t *testing.T) {
	srv := newTestServer(t)
	resp := uploadCSV(t, srv, "sales.csv", sampleCSV)
	id := resp["session_id"].(string)

	rec := postJSON(t, srv, "/api/sessions/"+id+"/chart", ChartRequest{
		Filters: []filter.Spec{{Column: "region", Values: []string{"north"}}},
		Chart:   chartspec.Request{Kind: "bar", X: "region", Y: "sales"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, float64(2), out["filtered_row_count"])
	assert.Equal(t, float64(3), out["removed_row_count"])
}

func TestServer_ScatterWithCategoricalX(t *testing.T) {
	srv := newTestServer(t)
	resp := uploadCSV(t, srv, "sales.csv", sampleCSV)
	id := resp["session_id"].(string)

	rec := postJSON(t, srv, "/api/sessions/"+id+"/chart", ChartRequest{
		Chart: chartspec.Request{Kind: "scatter", X: "region", Y: "sales"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.NotEmpty(t, out["figure_html"])
}

func TestServer_ChartInvalidKind(t *testing.T) {
	srv := newTestServer(t)
	resp := uploadCSV(t, srv, "sales.csv", sampleCSV)
	id := resp["session_id"].(string)

	rec := postJSON(t, srv, "/api/sessions/"+id+"/chart", ChartRequest{
		Chart: chartspec.Request{Kind: "sparkline", X: "region", Y: "sales"},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_AskFlow(t *testing.T) {
	srv := newTestServer(t)
	resp := uploadCSV(t, srv, "sales.csv", sampleCSV)
	id := resp["session_id"].(string)

	rec := postJSON(t, srv, "/api/sessions/"+id+"/ask", AskRequest{
		Chart:    chartspec.Request{Kind: "bar", X: "region", Y: "sales"},
		Question: "which region is the highest?",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var out map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Contains(t, out["answer"], "220.00")
	assert.Contains(t, out["answer"], "east")
}

func TestServer_ExportFlow(t *testing.T) {
	srv := newTestServer(t)
	resp := uploadCSV(t, srv, "sales.csv", sampleCSV)
	id := resp["session_id"].(string)

	rec := postJSON(t, srv, "/api/sessions/"+id+"/export", ExportRequest{
		Filters: []filter.Spec{{Column: "region", Values: []string{"north"}}},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "filtered_sales.csv")

	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	assert.Len(t, lines, 3)
	assert.Equal(t, "order_date,region,sales", lines[0])
}

func TestServer_UnknownSessionIs404(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/sessions/nope/filters", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_HistoryEmptyWithoutRepository(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/history", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"uploads":[]}`, rec.Body.String())
}
