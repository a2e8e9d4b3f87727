package content

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"vouch/internal/sentinel"
	httpjson "vouch/internal/transport/http/json"
	"vouch/internal/transport/http/shared"
	dErrors "vouch/pkg/domain-errors"
)

// maxBlobSize bounds uploads to keep a single request from filling the disk.
const maxBlobSize = 32 << 20

// Handler serves blob ingest and retrieval endpoints.
type Handler struct {
	store    *Store
	maxBytes int64
}

// NewHandler constructs a content handler.
func NewHandler(store *Store) *Handler {
	return &Handler{store: store, maxBytes: maxBlobSize}
}

// Register mounts the blob routes on the given router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/v1/blobs", h.HandleIngest)
	r.Get("/v1/blobs/{digest}", h.HandleGet)
}

// IngestResponse reports where an uploaded blob landed.
type IngestResponse struct {
	Digest    string `json:"digest"`
	Size      int64  `json:"size"`
	Duplicate bool   `json:"duplicate"`
}

// HandleIngest stores the request body as a blob.
func (h *Handler) HandleIngest(w http.ResponseWriter, r *http.Request) {
	result, err := h.store.Ingest(r.Context(), http.MaxBytesReader(w, r.Body, h.maxBytes))
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			httpjson.WriteJSON(w, http.StatusRequestEntityTooLarge, map[string]string{
				"error":             string(dErrors.CodeValidation),
				"error_description": "blob exceeds the maximum size",
			})
			return
		}
		shared.WriteError(w, err)
		return
	}

	status := http.StatusCreated
	if result.Duplicate {
		status = http.StatusOK
	}
	httpjson.WriteJSON(w, status, IngestResponse{
		Digest:    result.Digest,
		Size:      result.Size,
		Duplicate: result.Duplicate,
	})
}

// HandleGet streams a blob by digest.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	digest := chi.URLParam(r, "digest")

	reader, err := h.store.Open(r.Context(), digest)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			shared.WriteError(w, dErrors.New(dErrors.CodeNotFound, "blob not found"))
			return
		}
		shared.WriteError(w, err)
		return
	}
	defer reader.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	if _, err := io.Copy(w, reader); err != nil {
		// Headers are already sent; nothing left to do but log at the
		// access log level via the middleware.
		return
	}
}
