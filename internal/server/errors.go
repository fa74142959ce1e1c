package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/hlog"

	"medreport-rag/internal/llm"
	"medreport-rag/internal/parser"
	"medreport-rag/internal/vectorstore"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, errType, message string) {
	writeJSON(w, status, ErrorResponse{Error: errType, Message: message})
}

// respondError maps domain errors onto the HTTP error taxonomy. Validation
// failures are the caller's fault, unavailable dependencies get a 503 with a
// remediation hint, everything else is a 500.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, parser.ErrValidation):
		writeError(w, http.StatusBadRequest, "ValidationError", err.Error())
	case errors.Is(err, llm.ErrUnavailable):
		writeError(w, http.StatusServiceUnavailable, "ServiceUnavailable",
			"Generation model unavailable. Configure MODEL_NAME and MODEL_BASE_URL and restart the service.")
	case errors.Is(err, vectorstore.ErrUnavailable):
		writeError(w, http.StatusServiceUnavailable, "ServiceUnavailable",
			"Vector store unavailable. Check VECTOR_STORE_TYPE and DATABASE_URL and restart the service.")
	case errors.Is(err, vectorstore.ErrNotInitialized):
		writeError(w, http.StatusInternalServerError, "RuntimeError", err.Error())
	case errors.Is(err, llm.ErrGeneration):
		hlog.FromRequest(r).Error().Err(err).Msg("Generation failed")
		writeError(w, http.StatusInternalServerError, "GenerationError",
			"An error occurred during text generation")
	default:
		hlog.FromRequest(r).Error().Err(err).Msg("Unhandled error")
		writeError(w, http.StatusInternalServerError, "InternalServerError",
			"An unexpected error occurred")
	}
}
