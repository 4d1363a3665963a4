package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/klytics/mergekit/internal/extract"
	"github.com/klytics/mergekit/internal/mapping"
	"github.com/klytics/mergekit/internal/pptx"
	"github.com/klytics/mergekit/internal/update"
	"github.com/klytics/mergekit/internal/xlsx"
)

// errorBody is the uniform JSON error payload.
type errorBody struct {
	Error    string   `json:"error"`
	Problems []string `json:"problems,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, err error) {
	body := errorBody{Error: err.Error()}

	var ve *mapping.ValidationError
	var se *update.StructuralError
	switch {
	case errors.As(err, &ve):
		body.Problems = ve.Problems
	case errors.As(err, &se):
		body.Problems = se.Problems
	}
	writeJSON(w, status, body)
}

// parseUpload reads the workbook and mapping parts of a multipart request.
func (s *Server) parseUpload(r *http.Request) ([]byte, *mapping.Config, error) {
	maxBytes := int64(s.opts.MaxUploadMB) << 20
	r.Body = http.MaxBytesReader(nil, r.Body, maxBytes)

	if err := r.ParseMultipartForm(maxBytes); err != nil {
		return nil, nil, fmt.Errorf("invalid multipart request: %w", err)
	}

	workbook, _, err := formFileBytes(r, "workbook")
	if err != nil {
		return nil, nil, err
	}

	mappingData, mappingName, err := formFileBytes(r, "mapping")
	if err != nil {
		return nil, nil, err
	}
	cfg, err := parseMapping(mappingData, mappingName)
	if err != nil {
		return nil, nil, err
	}
	return workbook, cfg, nil
}

func formFileBytes(r *http.Request, field string) ([]byte, string, error) {
	f, header, err := r.FormFile(field)
	if err != nil {
		return nil, "", fmt.Errorf("missing form file %q", field)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, "", fmt.Errorf("could not read form file %q: %w", field, err)
	}
	return data, header.Filename, nil
}

func parseMapping(data []byte, filename string) (*mapping.Config, error) {
	if strings.HasSuffix(filename, ".yaml") || strings.HasSuffix(filename, ".yml") {
		return mapping.ParseYAML(data)
	}
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] != '{' {
		return mapping.ParseYAML(data)
	}
	return mapping.ParseJSON(data)
}

// handleExtract runs an extraction and returns the data document as JSON.
func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	workbook, cfg, err := s.parseUpload(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	wb, err := xlsx.OpenBytes(workbook)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	defer wb.Close()

	result, err := extract.New(cfg).Run(wb)
	if err != nil {
		status := http.StatusInternalServerError
		var ve *mapping.ValidationError
		if errors.As(err, &ve) {
			status = http.StatusUnprocessableEntity
		}
		writeError(w, status, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleUpdate applies a data document to the workbook and streams the
// updated file back. The update summary travels in headers so the body can
// stay binary.
func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	workbook, cfg, err := s.parseUpload(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	dataJSON, _, err := formFileBytes(r, "data")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var payload struct {
		Data map[string]map[string]any `json:"data"`
	}
	if err := json.Unmarshal(dataJSON, &payload); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid data document: %w", err))
		return
	}

	wb, err := xlsx.OpenBytes(workbook)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	defer wb.Close()

	result, err := update.New(cfg).Run(wb, payload.Data, nil)
	if err != nil {
		status := http.StatusInternalServerError
		var se *update.StructuralError
		if errors.As(err, &se) {
			status = http.StatusUnprocessableEntity
		}
		writeError(w, status, err)
		return
	}

	out, err := wb.Bytes()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("X-Update-Success", fmt.Sprint(result.Summary.Success))
	w.Header().Set("X-Update-Errors", fmt.Sprint(len(result.CellErrors)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out)
}

// handleMerge extracts from the workbook and merges the result into the
// uploaded .pptx template.
func (s *Server) handleMerge(w http.ResponseWriter, r *http.Request) {
	workbook, cfg, err := s.parseUpload(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	template, _, err := formFileBytes(r, "template")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	wb, err := xlsx.OpenBytes(workbook)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	defer wb.Close()

	extracted, err := extract.New(cfg).Run(wb)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}

	merged, err := pptx.Merge(template, pptx.Flatten(extracted.Data))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.presentationml.presentation")
	w.Header().Set("X-Merge-Applied", fmt.Sprint(merged.Applied))
	w.Header().Set("X-Merge-Missing", fmt.Sprint(merged.Missing))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(merged.Data)
}
