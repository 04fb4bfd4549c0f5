package api

import (
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/oklog/ulid/v2"
)

const maxUploadBytes = 10 << 20

// uploadMedia stores a multipart "file" part and returns the key to reference
// it from curriculum and topic records.
func (s *Server) uploadMedia(w http.ResponseWriter, r *http.Request) {
	if s.media == nil {
		respondError(w, http.StatusServiceUnavailable, "media storage is not configured")
		return
	}
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		respondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "file part is required")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	ext := strings.ToLower(filepath.Ext(header.Filename))
	if contentType == "" && ext != "" {
		contentType = mime.TypeByExtension(ext)
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	key := fmt.Sprintf("uploads/%s%s", ulid.Make().String(), ext)
	url, err := s.media.Put(r.Context(), key, contentType, io.LimitReader(file, maxUploadBytes))
	if err != nil {
		s.log.Error().Err(err).Str("key", key).Msg("media upload failed")
		respondError(w, http.StatusInternalServerError, "failed to store file")
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{"key": key, "url": url})
}
