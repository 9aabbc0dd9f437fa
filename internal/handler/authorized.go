package handler

import (
	"net/http"

	"plateserver/internal/dto"
)

// CreateAuthorizedPlate adds one plate to the allow-list.
func (h *Handler) CreateAuthorizedPlate(w http.ResponseWriter, r *http.Request) {
	var body dto.AuthorizedPlateCreate
	if !h.decodeBody(w, r, &body) {
		return
	}
	if err := body.Validate(); err != nil {
		h.writeDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	stored, err := h.authorized.Insert(r.Context(), body.Model())
	if err != nil {
		h.respondStoreError(w, opCreateAuthorized, err)
		return
	}

	if h.metrics != nil {
		h.metrics.AuthorizedPlatesCreated.Inc()
	}
	h.logger.Info("Authorized plate %s", stored.PlateNumber)
	h.writeJSON(w, http.StatusCreated, dto.NewAuthorizedPlateRead(*stored))
}

// ListAuthorizedPlates returns the allow-list, newest first.
func (h *Handler) ListAuthorizedPlates(w http.ResponseWriter, r *http.Request) {
	plates, err := h.authorized.List(r.Context())
	if err != nil {
		h.respondStoreError(w, opListAuthorized, err)
		return
	}

	h.writeJSON(w, http.StatusOK, dto.NewAuthorizedPlateReads(plates))
}

// ClearAuthorizedPlates empties the allow-list.
func (h *Handler) ClearAuthorizedPlates(w http.ResponseWriter, r *http.Request) {
	if err := h.authorized.DeleteAll(r.Context()); err != nil {
		h.respondStoreError(w, opClearAuthorized, err)
		return
	}

	h.logger.Info("All authorized plates cleared")
	w.WriteHeader(http.StatusNoContent)
}
