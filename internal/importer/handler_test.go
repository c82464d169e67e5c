package importer

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

	"cablesync/internal/logger"
)

func newTestRouter(store *memoryStore, maxUpload int64) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	NewHandler(newTestService(store), logger.NopLogger(), maxUpload).RegisterRoutes(router)
	return router
}

func doRequest(router *gin.Engine, method, path string, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	if body == nil {
		body = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHandler_CreateImportRawBody(t *testing.T) {
	router := newTestRouter(newMemoryStore(), 0)

	w := doRequest(router, http.MethodPost, "/api/v1/scopes/S/imports?note=weekly",
		bytes.NewBufferString("A,Free\nB,Done"), "text/csv")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var result RunResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, 2, result.TotalEvents)
	assert.Nil(t, result.PreviousImportID)

	w = doRequest(router, http.MethodGet, "/api/v1/imports/"+result.ImportID+"/events?change_type=NEW_ENTITY", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var events []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &events))
	assert.Len(t, events, 2)
	assert.Equal(t, "INFO", events[0]["severity"])
}

func TestHandler_CreateImportMultipart(t *testing.T) {
	router := newTestRouter(newMemoryStore(), 0)

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", "weekly.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte("A,Free"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	w := doRequest(router, http.MethodPost, "/api/v1/scopes/S/imports", body, writer.FormDataContentType())
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())
}

func TestHandler_CreateImportFailureReportsPhase(t *testing.T) {
	router := newTestRouter(newMemoryStore(), 0)

	w := doRequest(router, http.MethodPost, "/api/v1/scopes/S/imports", bytes.NewBufferString(" ,Free"), "text/csv")
	require.Equal(t, http.StatusBadRequest, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "INPUT_ERROR", response["error_code"])
	details, ok := response["details"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "normalize", details["phase"])
}

func TestHandler_UploadLimit(t *testing.T) {
	router := newTestRouter(newMemoryStore(), 8)

	w := doRequest(router, http.MethodPost, "/api/v1/scopes/S/imports",
		bytes.NewBufferString(strings.Repeat("A,Free\n", 10)), "text/csv")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandler_Errors(t *testing.T) {
	router := newTestRouter(newMemoryStore(), 0)

	tests := []struct {
		name string
		path string
		code int
	}{
		{name: "malformed import id", path: "/api/v1/imports/nope", code: http.StatusBadRequest},
		{name: "unknown import", path: "/api/v1/imports/00000000-0000-0000-0000-000000000042", code: http.StatusNotFound},
		{name: "unknown summary", path: "/api/v1/imports/00000000-0000-0000-0000-000000000042/summary", code: http.StatusNotFound},
		{name: "bad change type", path: "/api/v1/imports/00000000-0000-0000-0000-000000000042/events?change_type=MOVED", code: http.StatusBadRequest},
		{name: "bad severity", path: "/api/v1/imports/00000000-0000-0000-0000-000000000042/events?severity=FATAL", code: http.StatusBadRequest},
		{name: "bad status filter", path: "/api/v1/scopes/S/projection?status=Lost", code: http.StatusBadRequest},
		{name: "bad missing filter", path: "/api/v1/scopes/S/projection?missing=maybe", code: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(router, http.MethodGet, tt.path, nil, "")
			assert.Equal(t, tt.code, w.Code, w.Body.String())
		})
	}
}

func TestHandler_ProjectionAndSummary(t *testing.T) {
	store := newMemoryStore()
	router := newTestRouter(store, 0)

	doRequest(router, http.MethodPost, "/api/v1/scopes/S/imports", bytes.NewBufferString("A,Done\nB,Free"), "text/csv")
	w := doRequest(router, http.MethodPost, "/api/v1/scopes/S/imports", bytes.NewBufferString("A,Free"), "text/csv")
	require.Equal(t, http.StatusCreated, w.Code)
	var result RunResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))

	w = doRequest(router, http.MethodGet, "/api/v1/scopes/S/projection?missing=true", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var rows []ProjectionRow
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "B", rows[0].Code)

	w = doRequest(router, http.MethodGet, "/api/v1/scopes/S/projection?status=Free", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rows))
	require.Len(t, rows, 2)
	assert.Equal(t, 1, rows[0].Counters.Rework)

	w = doRequest(router, http.MethodPost, "/api/v1/imports/"+result.ImportID+"/summary/recompute", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var summary Summary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &summary))
	assert.Equal(t, 1, summary.ByChangeType["REWORK_REOPENED"])
	assert.Equal(t, 1, summary.ByChangeType["DISAPPEARED_UNEXPECTED"])

	w = doRequest(router, http.MethodGet, "/api/v1/scopes/S/imports", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var imports []Import
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &imports))
	assert.Len(t, imports, 2)
}

func TestHandler_WriteMiddlewareGuardsOnlyWrites(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	deny := func(c *gin.Context) {
		c.AbortWithStatus(http.StatusTooManyRequests)
	}
	NewHandler(newTestService(newMemoryStore()), logger.NopLogger(), 0).RegisterRoutes(router, deny)

	w := doRequest(router, http.MethodPost, "/api/v1/scopes/S/imports", bytes.NewBufferString("A,Free"), "text/csv")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	w = doRequest(router, http.MethodPost, "/api/v1/imports/x/summary/recompute", nil, "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	w = doRequest(router, http.MethodGet, "/api/v1/scopes/S/imports", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
}
