package server

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/hlog"

	"medreport-rag/internal/parser"
)

func (s *Server) handleUploadDocument(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "ValidationError", "file field is required")
		return
	}
	defer file.Close()

	// Reject oversized files before any extraction work.
	if err := parser.ValidateSize(header.Size, s.cfg.Upload.MaxFileSizeMB); err != nil {
		respondError(w, r, err)
		return
	}

	tmpPath, cleanup, err := saveTemp(file, header.Filename)
	if err != nil {
		respondError(w, r, err)
		return
	}
	defer cleanup()

	text, err := parser.ExtractText(tmpPath, s.cfg.Upload.DocFormatList())
	if err != nil {
		respondError(w, r, err)
		return
	}

	message := "Document processed and indexed successfully"
	if s.rag == nil {
		message = "Document processed but indexing is unavailable"
	} else if err := s.rag.Ingest(r.Context(), text); err != nil {
		// Extraction succeeded; report the indexing failure without
		// failing the upload.
		hlog.FromRequest(r).Warn().Err(err).Msg("Indexing uploaded document failed")
		message = fmt.Sprintf("Document processed but indexing failed: %v", err)
	}

	writeJSON(w, http.StatusOK, DocumentUploadResponse{
		Filename:  header.Filename,
		FileSize:  header.Size,
		Format:    fileExt(header.Filename),
		Processed: true,
		Message:   message,
	})
}

func (s *Server) handleUploadImage(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "ValidationError", "file field is required")
		return
	}
	defer file.Close()

	if err := parser.ValidateSize(header.Size, s.cfg.Upload.MaxFileSizeMB); err != nil {
		respondError(w, r, err)
		return
	}

	tmpPath, cleanup, err := saveTemp(file, header.Filename)
	if err != nil {
		respondError(w, r, err)
		return
	}
	defer cleanup()

	text, err := parser.ExtractImageText(r.Context(), tmpPath, s.cfg.Upload.ImageFormatList())
	if err != nil {
		respondError(w, r, err)
		return
	}

	var message string
	switch {
	case strings.TrimSpace(text) == "":
		message = "Image processed but no text extracted"
	case s.rag == nil:
		message = "Image processed but indexing is unavailable"
	default:
		message = "Image processed and text indexed successfully"
		if err := s.rag.Ingest(r.Context(), text); err != nil {
			hlog.FromRequest(r).Warn().Err(err).Msg("Indexing extracted image text failed")
			message = fmt.Sprintf("Image processed but indexing failed: %v", err)
		}
	}

	writeJSON(w, http.StatusOK, DocumentUploadResponse{
		Filename:  header.Filename,
		FileSize:  header.Size,
		Format:    fileExt(header.Filename),
		Processed: true,
		Message:   message,
	})
}

// saveTemp spools an upload to a temp file keeping the original extension,
// which the extractors dispatch on.
func saveTemp(file multipart.File, filename string) (string, func(), error) {
	tmp, err := os.CreateTemp("", "upload-*"+filepath.Ext(filename))
	if err != nil {
		return "", nil, err
	}
	if _, err := io.Copy(tmp, file); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", nil, err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", nil, err
	}
	return tmp.Name(), func() { os.Remove(tmp.Name()) }, nil
}

func fileExt(filename string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
}
