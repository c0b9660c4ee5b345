package server

import (
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"regexp"
	"strings"

	"github.com/lumenhq/sentinel/pkg/detect"
)

var dataURLRe = regexp.MustCompile(`(?is)^data:([^;]+);base64,(.*)$`)

// inputError is a client-side input problem, reported as 422.
type inputError struct{ detail string }

func (e *inputError) Error() string { return e.detail }

// readImage extracts the image from either a multipart "file" part or a
// "file_b64" form field holding raw base64 or a data URL. Uploads are
// capped at the configured detector image size.
func (s *Server) readImage(r *http.Request) ([]byte, string, error) {
	maxBytes := s.store.Snapshot().Detector.MaxImageBytes

	if err := r.ParseMultipartForm(maxBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return nil, "", &inputError{detail: "Malformed form data"}
	}

	file, header, err := r.FormFile("file")
	if err == nil {
		defer file.Close()
		data, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
		if err != nil {
			return nil, "", &inputError{detail: "Could not read file upload"}
		}
		if int64(len(data)) > maxBytes {
			return nil, "", &inputError{detail: "File upload too large"}
		}
		contentType := header.Header.Get("Content-Type")
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		return data, contentType, nil
	}

	if b64 := strings.TrimSpace(r.FormValue("file_b64")); b64 != "" {
		contentType := "application/octet-stream"
		if m := dataURLRe.FindStringSubmatch(b64); m != nil {
			contentType = m[1]
			b64 = m[2]
		}
		data, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(b64, "\n", ""))
		if err != nil {
			return nil, "", &inputError{detail: "Invalid base64 data: " + err.Error()}
		}
		return data, contentType, nil
	}

	return nil, "", &inputError{detail: "Missing file upload or file_b64 form field"}
}

// handleDetect runs detection and returns the full result list.
func (s *Server) handleDetect(w http.ResponseWriter, r *http.Request) {
	data, contentType, err := s.readImage(r)
	if err != nil {
		var inputErr *inputError
		if errors.As(err, &inputErr) {
			writeError(w, http.StatusUnprocessableEntity, inputErr.detail)
			return
		}
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	results, err := s.detector.Detect(r.Context(), data, contentType)
	if err != nil {
		s.logger.Error("detection failed", "error", err)
		writeError(w, http.StatusBadGateway, "Detection backend unavailable")
		return
	}
	writeJSON(w, http.StatusOK, results)
}

// handleIsNude runs detection and collapses the result to a boolean.
func (s *Server) handleIsNude(w http.ResponseWriter, r *http.Request) {
	data, contentType, err := s.readImage(r)
	if err != nil {
		var inputErr *inputError
		if errors.As(err, &inputErr) {
			writeError(w, http.StatusUnprocessableEntity, inputErr.detail)
			return
		}
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	results, err := s.detector.Detect(r.Context(), data, contentType)
	if err != nil {
		s.logger.Error("detection failed", "error", err)
		writeError(w, http.StatusBadGateway, "Detection backend unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"nude": detect.AnySensitive(results)})
}

// handleListLabels returns the label taxonomy.
func (s *Server) handleListLabels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{
		"all_labels":     detect.AllLabels,
		"naughty_labels": detect.SensitiveLabels,
	})
}

// handleHealth is the liveness endpoint.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
