package web

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/JonMunkholm/contactload/internal/core"
	"github.com/JonMunkholm/contactload/internal/logging"
	"github.com/JonMunkholm/contactload/internal/results"
)

// maxFileNameBody bounds the body of POST /upload/name.
const maxFileNameBody = 4 << 10

// handleUploadRaw stores the contacts in the multipart "file" field.
// ParseMultipartForm buffers the part in memory up to MaxFileSize and
// spills anything larger to a temporary file.
func (s *Server) handleUploadRaw(w http.ResponseWriter, r *http.Request) {
	maxSize := s.cfg.Upload.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)

	if err := r.ParseMultipartForm(maxSize); err != nil {
		if isTooLarge(err) {
			s.respondError(w, r, fmt.Errorf("%w: limit %d bytes", core.ErrFileTooLarge, maxSize), http.StatusRequestEntityTooLarge)
			return
		}
		s.respondError(w, r, fmt.Errorf("%w: %v", core.ErrNoFile, err), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, r, fmt.Errorf("%w: %v", core.ErrNoFile, err), http.StatusBadRequest)
		return
	}
	defer file.Close()

	s.runUpload(w, r, header.Filename, file)
}

// handleUploadName stores the contacts in a file that already sits in the
// upload directory. The body is the URL-encoded file name.
func (s *Server) handleUploadName(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxFileNameBody))
	if err != nil {
		s.respondError(w, r, fmt.Errorf("read file name: %w", err), http.StatusBadRequest)
		return
	}

	name, err := decodeFileName(string(body))
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}

	path, err := resolveUploadPath(s.cfg.Upload.FileRoot, name)
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}

	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		logging.FromContext(r.Context()).Warn("upload file not found", "file", name)
		writeJSON(w, http.StatusNotFound, core.BatchResult{
			Errors: []string{"File Not Found: " + name},
		})
		return
	}
	if err != nil {
		s.respondError(w, r, fmt.Errorf("open %s: %w", name, err), http.StatusInternalServerError)
		return
	}
	defer file.Close()

	s.runUpload(w, r, name, file)
}

// runUpload processes body under an upload slot, caches the result under a
// fresh upload ID and writes it with the batch status.
func (s *Server) runUpload(w http.ResponseWriter, r *http.Request, source string, body io.Reader) {
	if err := s.limiter.Acquire(r.Context()); err != nil {
		s.respondError(w, r, err, http.StatusServiceUnavailable)
		return
	}
	defer s.limiter.Release()

	uploadID := uuid.NewString()
	ctx := r.Context()
	if s.cfg.Upload.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Upload.Timeout)
		defer cancel()
	}

	log := logging.WithFields(ctx, "upload_id", uploadID, "source", source)
	log.Info("upload started")

	result := s.service.StoreBatch(ctx, body)
	status := batchStatus(result)

	log.Info("upload finished",
		"status", status,
		"lines_in_file", result.LinesInFile,
		"lines_parsed", result.LinesParsed,
	)

	entry := results.Entry{
		UploadID:   uploadID,
		Source:     source,
		Status:     status,
		Result:     result,
		FinishedAt: time.Now().UTC(),
	}
	// Saved even when the client has gone away.
	if err := s.results.Save(context.WithoutCancel(ctx), entry); err != nil {
		log.Warn("failed to cache upload result", "error", err)
	} else {
		w.Header().Set(UploadIDHeader, uploadID)
	}

	writeJSON(w, status, result)
}

// handleUploadResult returns a cached upload result.
func (s *Server) handleUploadResult(w http.ResponseWriter, r *http.Request) {
	uploadID := chi.URLParam(r, "uploadID")

	entry, err := s.results.Get(r.Context(), uploadID)
	if errors.Is(err, core.ErrUploadNotFound) {
		s.respondError(w, r, err, http.StatusNotFound)
		return
	}
	if err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, entry)
}

// handleUploadQueueStatus returns the upload limiter occupancy.
func (s *Server) handleUploadQueueStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.limiter.Status())
}

// batchStatus maps a batch outcome to an HTTP status: every row stored is
// 200, some stored is 207, none stored is 400 and a fault is 500.
func batchStatus(r core.BatchResult) int {
	switch {
	case r.Failed():
		return http.StatusInternalServerError
	case r.LinesParsed == 0:
		return http.StatusBadRequest
	case r.LinesParsed < r.LinesInFile:
		return http.StatusMultiStatus
	default:
		return http.StatusOK
	}
}

// decodeFileName URL-decodes a posted file name. Form posts of a bare value
// leave a trailing "=", so one trailing character that is not an ASCII
// letter or digit is dropped.
func decodeFileName(raw string) (string, error) {
	name, err := url.QueryUnescape(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("decode file name: %w", err)
	}

	if last, size := utf8.DecodeLastRuneInString(name); size > 0 {
		if !isASCIIAlphanumeric(last) {
			name = name[:len(name)-size]
		}
	}

	if strings.TrimSpace(name) == "" {
		return "", core.ErrEmptyFileName
	}
	return name, nil
}

func isASCIIAlphanumeric(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

// isTooLarge reports whether err comes from the MaxBytesReader limit. The
// multipart reader does not always keep the typed error.
func isTooLarge(err error) bool {
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		return true
	}
	return strings.Contains(err.Error(), "request body too large")
}

// resolveUploadPath joins name onto root and checks the result sits
// directly inside root.
func resolveUploadPath(root, name string) (string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolve upload root: %w", err)
	}

	path := filepath.Join(absRoot, name)
	if filepath.Dir(path) != absRoot || filepath.Base(path) != name {
		return "", fmt.Errorf("%q: %w", name, core.ErrOutsideRoot)
	}
	return path, nil
}
