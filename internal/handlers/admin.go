package handlers

import (
	"net/http"

	"vectoria/internal/contextutil"
	"vectoria/internal/storage"
)

// AdminHandler handles operational endpoints: on-demand snapshots and
// store-wide stats.
type AdminHandler struct {
	store *storage.Store
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(store *storage.Store) *AdminHandler {
	return &AdminHandler{store: store}
}

// SnapshotResponse represents the HTTP response payload for a snapshot save.
type SnapshotResponse struct {
	Saved bool               `json:"saved"`
	Stats storage.StoreStats `json:"stats"`
}

// Snapshot handles POST /api/admin/snapshot. It serializes the whole store to
// the configured snapshot path.
func (h *AdminHandler) Snapshot(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if !h.store.SnapshotEnabled() {
		writeError(w, http.StatusConflict, "No snapshot path configured")
		return
	}
	if err := h.store.SaveSnapshot(ctx); err != nil {
		contextutil.LoggerFromContext(ctx).ErrorContext(ctx, "failed to save snapshot", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to save snapshot")
		return
	}
	writeJSON(w, http.StatusOK, SnapshotResponse{Saved: true, Stats: h.store.Stats(ctx)})
}

// Stats handles GET /api/stats.
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.store.Stats(r.Context()))
}
