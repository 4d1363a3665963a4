package server

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klytics/mergekit/internal/xlsx"
)

const mappingJSON = `{
  "sheet_configs": {
    "Sheet1": {
      "subtables": [
        {
          "name": "client_info",
          "kind": "key_value_pairs",
          "header_search": {"method": "exact_match", "text": "Client Name", "column": "A"},
          "column_mappings": {"Client Name": "name"}
        }
      ]
    }
  }
}`

func workbookBytes(t *testing.T) []byte {
	t.Helper()
	wb := xlsx.New()
	defer wb.Close()
	require.NoError(t, wb.SetCell("Sheet1", 1, 1, "Client Name"))
	require.NoError(t, wb.SetCell("Sheet1", 1, 2, "Acme"))
	data, err := wb.Bytes()
	require.NoError(t, err)
	return data
}

func multipartBody(t *testing.T, files map[string][]byte) (*bytes.Buffer, string) {
	t.Helper()
	body := new(bytes.Buffer)
	w := multipart.NewWriter(body)
	for field, data := range files {
		part, err := w.CreateFormFile(field, field+".bin")
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return body, w.FormDataContentType()
}

func TestHealthz(t *testing.T) {
	srv := New(Options{})
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()

	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestExtractEndpoint(t *testing.T) {
	srv := New(Options{})

	body, contentType := multipartBody(t, map[string][]byte{
		"workbook": workbookBytes(t),
		"mapping":  []byte(mappingJSON),
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/extract", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	srv.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result struct {
		Data map[string]map[string]map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, "Acme", result.Data["Sheet1"]["client_info"]["name"])
}

func TestExtractMissingMappingIsBadRequest(t *testing.T) {
	srv := New(Options{})

	body, contentType := multipartBody(t, map[string][]byte{
		"workbook": workbookBytes(t),
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/extract", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	srv.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var errResp errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errResp))
	assert.Contains(t, errResp.Error, "mapping")
}

func TestExtractInvalidMappingListsProblems(t *testing.T) {
	srv := New(Options{})

	body, contentType := multipartBody(t, map[string][]byte{
		"workbook": workbookBytes(t),
		"mapping":  []byte(`{"sheet_configs": {"Sheet1": {"subtables": [{"name": "x", "kind": "nope", "header_search": {"method": "exact_match"}}]}}}`),
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/extract", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	srv.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var errResp errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errResp))
	assert.NotEmpty(t, errResp.Problems)
}
